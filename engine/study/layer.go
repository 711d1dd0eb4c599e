package study

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LayerKind names what an uploaded file describes.
type LayerKind string

const (
	KindOutline LayerKind = "outline"
	KindZones   LayerKind = "zones"
)

// Kinds lists the accepted layer kinds in display order.
var Kinds = []LayerKind{KindOutline, KindZones}

// ParseLayerKind accepts a kind without regard to case.
func ParseLayerKind(s string) (LayerKind, error) {
	switch LayerKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindOutline:
		return KindOutline, nil
	case KindZones:
		return KindZones, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Bounds is a WGS 84 extent.
type Bounds struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Center returns the middle of the extent as lat, lon.
func (b *Bounds) Center() (float64, float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// LayerRecord describes the last import of one layer kind.
type LayerRecord struct {
	Kind         LayerKind       `json:"kind"`
	FileName     string          `json:"file_name"`
	Format       string          `json:"format"`
	SourceEPSG   int             `json:"source_epsg"`
	FeatureCount int             `json:"feature_count"`
	IDField      string          `json:"id_field,omitempty"`
	NameField    string          `json:"name_field,omitempty"`
	Bounds       *Bounds         `json:"bounds,omitempty"`
	GeoJSON      json.RawMessage `json:"-"`
	ImportedAt   time.Time       `json:"imported_at"`
}

// StoredZone is one persisted zone, geometry kept as GeoJSON.
type StoredZone struct {
	Position int             `json:"position"`
	ZoneID   string          `json:"id"`
	Name     string          `json:"name"`
	Clean    bool            `json:"clean"`
	Reason   string          `json:"reason,omitempty"`
	Geometry json.RawMessage `json:"geometry"`
}

// ZoneFilter selects zones by state. A nil Clean returns every zone.
type ZoneFilter struct {
	Clean *bool
}

// StoredFile is a file kept in a study directory.
type StoredFile struct {
	Kind    LayerKind `json:"kind"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
