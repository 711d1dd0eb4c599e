package geo

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// MarshalGeometry encodes g as a GeoJSON geometry object. A nil geometry
// encodes as JSON null.
func MarshalGeometry(g geom.T) ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}

// UnmarshalGeometry decodes a GeoJSON geometry object.
func UnmarshalGeometry(data []byte) (geom.T, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return g, nil
}

// FeatureCollection encodes the layer features with their properties.
func (l *Layer) FeatureCollection() ([]byte, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(l.Features))}
	for _, f := range l.Features {
		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: f.Geometry, Properties: props})
	}
	if b := l.Bounds(); b != nil {
		fc.BBox = b
	}
	return json.Marshal(fc)
}

// ParseFeatureCollection decodes a FeatureCollection produced by
// FeatureCollection back into a layer. Property values are kept as text.
func ParseFeatureCollection(data []byte) (*Layer, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	layer := &Layer{EPSG: WGS84}
	seen := make(map[string]bool)
	for _, f := range fc.Features {
		props := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			if !seen[k] {
				seen[k] = true
				layer.Fields = append(layer.Fields, k)
			}
			if v != nil {
				props[k] = fmt.Sprint(v)
			}
		}
		layer.Features = append(layer.Features, Feature{Geometry: f.Geometry, Properties: props})
	}
	return layer, nil
}
