package geo

import (
	"github.com/twpayne/go-geom"
)

// WGS84 is the EPSG code every layer is normalised to.
const WGS84 = 4326

// Feature is one geometry with its attribute values. Attribute values are kept
// as the trimmed text read from the source.
type Feature struct {
	Geometry   geom.T
	Properties map[string]string
}

// Layer is a set of features sharing a schema and a coordinate system.
type Layer struct {
	Name      string
	EPSG      int
	Fields    []string
	Features  []Feature
	SourceCRS int
}

// HasField reports whether name is one of the layer attribute names.
func (l *Layer) HasField(name string) bool {
	for _, f := range l.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Bounds returns the extent of all non-empty geometries, or nil when the layer
// has none.
func (l *Layer) Bounds() *geom.Bounds {
	var bounds *geom.Bounds
	for _, f := range l.Features {
		if f.Geometry == nil || f.Geometry.Empty() {
			continue
		}
		if bounds == nil {
			bounds = geom.NewBounds(geom.XY)
		}
		bounds.Extend(f.Geometry)
	}
	return bounds
}
