package geo

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// Reasons attached to zones that cannot be used as-is.
const (
	ReasonMissingID     = "missing_id"
	ReasonMissingName   = "missing_name"
	ReasonDuplicateID   = "duplicate_id"
	ReasonEmptyGeometry = "empty_geometry"
)

// Zone is one subdivision of a study area.
type Zone struct {
	ID       string
	Name     string
	Reason   string
	Geometry geom.T
}

// ZonePartition splits zones into those with a usable unique id and name and
// those needing attention.
type ZonePartition struct {
	IDField   string
	NameField string
	Clean     []Zone
	Unclean   []Zone
}

// NormalizeZones reads the id and name columns of every feature and partitions
// the features. Every holder of a duplicated id is unclean.
func NormalizeZones(layer *Layer, idField, nameField string) (*ZonePartition, error) {
	for _, f := range []string{idField, nameField} {
		if f == "" || !layer.HasField(f) {
			return nil, fmt.Errorf("%w: %q (available: %s)", ErrFieldNotFound, f, strings.Join(layer.Fields, ", "))
		}
	}
	zones := make([]Zone, len(layer.Features))
	counts := make(map[string]int, len(layer.Features))
	for i, f := range layer.Features {
		z := Zone{
			ID:       NormalizeID(f.Properties[idField]),
			Name:     strings.TrimSpace(f.Properties[nameField]),
			Geometry: f.Geometry,
		}
		if z.ID != "" {
			counts[z.ID]++
		}
		zones[i] = z
	}

	partition := &ZonePartition{IDField: idField, NameField: nameField}
	for _, z := range zones {
		switch {
		case z.ID == "":
			z.Reason = ReasonMissingID
		case counts[z.ID] > 1:
			z.Reason = ReasonDuplicateID
		case z.Name == "":
			z.Reason = ReasonMissingName
		case z.Geometry == nil || z.Geometry.Empty():
			z.Reason = ReasonEmptyGeometry
		}
		if z.Reason != "" {
			partition.Unclean = append(partition.Unclean, z)
			continue
		}
		partition.Clean = append(partition.Clean, z)
	}
	sortZones(partition.Clean)
	return partition, nil
}

// integralFloat matches numbers written with a zero fractional part.
var integralFloat = regexp.MustCompile(`^([+-]?\d+)\.0+$`)

// NormalizeID trims the value and drops a zero fractional part, so "12" and
// "12.0" are the same id. Other values, leading zeros included, are kept as
// written.
func NormalizeID(raw string) string {
	v := strings.TrimSpace(raw)
	if m := integralFloat.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

// sortZones orders numerically when every id is an integer, lexically
// otherwise.
func sortZones(zones []Zone) {
	keys := make(map[string]int64, len(zones))
	for _, z := range zones {
		n, err := strconv.ParseInt(z.ID, 10, 64)
		if err != nil {
			sort.SliceStable(zones, func(a, b int) bool { return zones[a].ID < zones[b].ID })
			return
		}
		keys[z.ID] = n
	}
	sort.SliceStable(zones, func(a, b int) bool { return keys[zones[a].ID] < keys[zones[b].ID] })
}
