package geo

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/wroge/wgs84"
)

// Transformer converts planar source coordinates to WGS 84 longitude/latitude.
type Transformer interface {
	Transform(x, y float64) (lon, lat float64, err error)
}

type identityTransformer struct{}

func (identityTransformer) Transform(x, y float64) (float64, float64, error) {
	return x, y, nil
}

var epsgRegistry = wgs84.EPSG()

type epsgTransformer struct {
	from int
	fn   wgs84.Func
}

func (t *epsgTransformer) Transform(x, y float64) (float64, float64, error) {
	lon, lat, _ := t.fn(x, y, 0)
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return 0, 0, fmt.Errorf("transform from EPSG:%d: %w", t.from, ErrInvalidGeometry)
	}
	return lon, lat, nil
}

// NewTransformer returns a transformer from the given EPSG code to WGS 84.
func NewTransformer(fromEPSG int) (Transformer, error) {
	if fromEPSG <= 0 {
		return nil, ErrUnknownCRS
	}
	if IsWGS84Equivalent(fromEPSG) {
		return identityTransformer{}, nil
	}
	crs, err := epsgRegistry.SafeCode(fromEPSG)
	if err != nil || crs == nil {
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, fromEPSG)
	}
	// Area-of-use bounds are not enforced; results are checked against the
	// WGS 84 range instead.
	return &epsgTransformer{from: fromEPSG, fn: wgs84.Transform(crs, wgs84.LonLat())}, nil
}

// Reproject converts every feature of the layer to WGS 84 in place and
// records the source code.
func Reproject(layer *Layer, fromEPSG int) error {
	t, err := NewTransformer(fromEPSG)
	if err != nil {
		return err
	}
	for i := range layer.Features {
		g := layer.Features[i].Geometry
		if g == nil || g.Empty() {
			continue
		}
		if err := transformCoords(g, t); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		setSRID(g, WGS84)
	}
	layer.SourceCRS = fromEPSG
	layer.EPSG = WGS84
	return nil
}

// transformCoords rewrites the flat coordinate buffer of g. Only X and Y are
// touched; Z and M values are preserved.
func transformCoords(g geom.T, t Transformer) error {
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for _, child := range gc.Geoms() {
			if err := transformCoords(child, t); err != nil {
				return err
			}
		}
		return nil
	}
	flat := g.FlatCoords()
	stride := g.Stride()
	if stride < 2 {
		return ErrInvalidGeometry
	}
	for i := 0; i+1 < len(flat); i += stride {
		lon, lat, err := t.Transform(flat[i], flat[i+1])
		if err != nil {
			return err
		}
		if lon < -180.0001 || lon > 180.0001 || lat < -90.0001 || lat > 90.0001 {
			return fmt.Errorf("%w: (%g, %g) is outside WGS 84 bounds", ErrInvalidGeometry, lon, lat)
		}
		flat[i], flat[i+1] = lon, lat
	}
	return nil
}

func setSRID(g geom.T, srid int) {
	switch t := g.(type) {
	case *geom.Point:
		t.SetSRID(srid)
	case *geom.MultiPoint:
		t.SetSRID(srid)
	case *geom.LineString:
		t.SetSRID(srid)
	case *geom.MultiLineString:
		t.SetSRID(srid)
	case *geom.Polygon:
		t.SetSRID(srid)
	case *geom.MultiPolygon:
		t.SetSRID(srid)
	case *geom.GeometryCollection:
		t.SetSRID(srid)
	}
}
