package geo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	authorityPattern = regexp.MustCompile(`(?i)AUTHORITY\s*\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)
	idPattern        = regexp.MustCompile(`(?i)\bID\s*\[\s*"EPSG"\s*,\s*(\d+)\s*\]`)
	utmPattern       = regexp.MustCompile(`utm zone (\d{1,2}) ?([ns])`)
	lambertCCPattern = regexp.MustCompile(`cc ?(4[2-9]|50)\b`)
)

// geographic codes whose datum differs from WGS 84 by well under a metre;
// their coordinates are used as is.
var wgs84Equivalents = map[int]bool{
	4326: true,
	4171: true, // RGF93
	4258: true, // ETRS89
	4269: true, // NAD83
}

// IsWGS84Equivalent reports whether coordinates in epsg need no transform.
func IsWGS84Equivalent(epsg int) bool {
	return wgs84Equivalents[epsg]
}

// ParseProjection resolves the EPSG code described by a .prj file. The
// authority of the outermost object wins; otherwise well-known ESRI and OGC
// names are recognised.
func ParseProjection(wkt string) (int, error) {
	wkt = strings.TrimSpace(wkt)
	if wkt == "" {
		return 0, ErrUnknownCRS
	}
	if code, ok := lastCode(authorityPattern, wkt); ok {
		return code, nil
	}
	if code, ok := lastCode(idPattern, wkt); ok {
		return code, nil
	}
	name := normalizeCRSName(wkt)
	projected := strings.HasPrefix(name, "projcs") || strings.HasPrefix(name, "projcrs")
	switch {
	case strings.Contains(name, "pseudo mercator"),
		strings.Contains(name, "web mercator"),
		strings.Contains(name, "popular visualisation"):
		return 3857, nil
	case strings.Contains(name, "lambert 93"), strings.Contains(name, "lambert93"):
		return 2154, nil
	case strings.Contains(name, "rgf93") && lambertCCPattern.MatchString(name):
		zone, _ := strconv.Atoi(lambertCCPattern.FindStringSubmatch(name)[1])
		return 3900 + zone, nil
	}
	if m := utmPattern.FindStringSubmatch(name); m != nil {
		zone, _ := strconv.Atoi(m[1])
		if zone < 1 || zone > 60 {
			return 0, fmt.Errorf("%w: utm zone %d", ErrUnknownCRS, zone)
		}
		switch {
		case strings.Contains(name, "etrs 1989"), strings.Contains(name, "etrs89"):
			return 25800 + zone, nil
		case strings.Contains(name, "wgs 1984"), strings.Contains(name, "wgs 84"), strings.Contains(name, "wgs84"):
			if m[2] == "s" {
				return 32700 + zone, nil
			}
			return 32600 + zone, nil
		}
	}
	if !projected {
		switch {
		case strings.Contains(name, "rgf93"), strings.Contains(name, "rgf 1993"):
			return 4171, nil
		case strings.Contains(name, "etrs89"), strings.Contains(name, "etrs 1989"):
			return 4258, nil
		case strings.Contains(name, "wgs 1984"), strings.Contains(name, "wgs 84"), strings.Contains(name, "wgs84"):
			return 4326, nil
		}
	}
	return 0, ErrUnknownCRS
}

func lastCode(pattern *regexp.Regexp, wkt string) (int, bool) {
	matches := pattern.FindAllStringSubmatchIndex(wkt, -1)
	if len(matches) == 0 {
		return 0, false
	}
	last := matches[len(matches)-1]
	// The root object's authority is the last token before the closing bracket.
	rest := strings.TrimSpace(wkt[last[1]:])
	if strings.Trim(rest, "] \n\r\t") != "" {
		return 0, false
	}
	code, err := strconv.Atoi(wkt[last[2]:last[3]])
	if err != nil {
		return 0, false
	}
	return code, true
}

func normalizeCRSName(wkt string) string {
	lower := strings.ToLower(wkt)
	return strings.NewReplacer("_", " ", "-", " ", "\"", "", "  ", " ").Replace(lower)
}
