package geo

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/encoding/charmap"
)

// ReadOptions tune how a source is interpreted.
type ReadOptions struct {
	// EPSG overrides the coordinate system found in the source. Zero keeps it.
	EPSG int
	// Layer selects a GeoPackage feature table.
	Layer string
}

// ReadShapefile decodes the validated archive entries and returns the layer
// converted to WGS 84.
func ReadShapefile(set *ShapefileSet, opts ReadOptions) (*Layer, error) {
	shpFile, err := set.SHP.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", set.SHP.Name, err)
	}
	dbfFile, err := set.DBF.Open()
	if err != nil {
		shpFile.Close()
		return nil, fmt.Errorf("open %s: %w", set.DBF.Name, err)
	}
	reader := shp.SequentialReaderFromExt(shpFile, dbfFile)
	defer reader.Close()

	decode := attributeDecoder(set)
	layer := &Layer{Name: set.Name()}
	fields := reader.Fields()
	for _, f := range fields {
		layer.Fields = append(layer.Fields, strings.TrimSpace(f.String()))
	}
	for reader.Next() {
		_, shape := reader.Shape()
		g, err := shapeToGeometry(shape)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", len(layer.Features), err)
		}
		props := make(map[string]string, len(fields))
		for i, name := range layer.Fields {
			props[name] = decode(cleanAttribute(reader.Attribute(i)))
		}
		layer.Features = append(layer.Features, Feature{Geometry: g, Properties: props})
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", set.Name(), err)
	}

	epsg, err := shapefileCRS(set, opts, layer)
	if err != nil {
		return nil, err
	}
	if err := Reproject(layer, epsg); err != nil {
		return nil, err
	}
	return layer, nil
}

func shapefileCRS(set *ShapefileSet, opts ReadOptions, layer *Layer) (int, error) {
	if opts.EPSG > 0 {
		return opts.EPSG, nil
	}
	if set.PRJ != nil {
		data, err := readEntry(set.PRJ)
		if err != nil {
			return 0, err
		}
		return ParseProjection(string(data))
	}
	// Without a .prj, coordinates that all fit the degree ranges are taken as
	// WGS 84; anything else needs an explicit code.
	if b := layer.Bounds(); b != nil &&
		b.Min(0) >= -180 && b.Max(0) <= 180 && b.Min(1) >= -90 && b.Max(1) <= 90 {
		return WGS84, nil
	}
	return 0, ErrUnknownCRS
}

// cleanAttribute drops the NUL and space padding dbf writers leave in
// fixed-width columns.
func cleanAttribute(raw string) string {
	return strings.TrimSpace(strings.TrimRight(raw, "\x00 "))
}

// attributeDecoder returns the text decoder for dbf values: UTF-8 when the
// .cpg says so or the value is valid UTF-8, Windows-1252 otherwise.
func attributeDecoder(set *ShapefileSet) func(string) string {
	utf8Declared := false
	if set.CPG != nil {
		if data, err := readEntry(set.CPG); err == nil {
			cp := strings.ToUpper(strings.TrimSpace(string(data)))
			utf8Declared = cp == "UTF-8" || cp == "UTF8" || cp == "65001"
		}
	}
	decoder := charmap.Windows1252.NewDecoder()
	return func(s string) string {
		if utf8Declared || utf8.ValidString(s) {
			return s
		}
		out, err := decoder.String(s)
		if err != nil {
			return s
		}
		return out
	}
}

func shapeToGeometry(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case nil, *shp.Null:
		return nil, nil
	case *shp.Point:
		return newPoint(s.X, s.Y), nil
	case *shp.PointZ:
		return newPoint(s.X, s.Y), nil
	case *shp.PointM:
		return newPoint(s.X, s.Y), nil
	case *shp.MultiPoint:
		return newMultiPoint(s.Points)
	case *shp.MultiPointZ:
		return newMultiPoint(s.Points)
	case *shp.MultiPointM:
		return newMultiPoint(s.Points)
	case *shp.PolyLine:
		return newLines(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return newLines(s.Parts, s.Points)
	case *shp.PolyLineM:
		return newLines(s.Parts, s.Points)
	case *shp.Polygon:
		return newPolygons(s.Parts, s.Points)
	case *shp.PolygonZ:
		return newPolygons(s.Parts, s.Points)
	case *shp.PolygonM:
		return newPolygons(s.Parts, s.Points)
	default:
		return nil, fmt.Errorf("%w: unsupported shape %T", ErrInvalidGeometry, shape)
	}
}

func newPoint(x, y float64) geom.T {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{x, y})
}

func newMultiPoint(points []shp.Point) (geom.T, error) {
	coords := make([]geom.Coord, 0, len(points))
	for _, p := range points {
		coords = append(coords, geom.Coord{p.X, p.Y})
	}
	return geom.NewMultiPoint(geom.XY).SetCoords(coords)
}

// splitParts cuts the flat point list into the parts described by the part
// start offsets.
func splitParts(parts []int32, points []shp.Point) [][]geom.Coord {
	out := make([][]geom.Coord, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(points) {
			continue
		}
		ring := make([]geom.Coord, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, geom.Coord{p.X, p.Y})
		}
		out = append(out, ring)
	}
	return out
}

func newLines(parts []int32, points []shp.Point) (geom.T, error) {
	lines := splitParts(parts, points)
	switch len(lines) {
	case 0:
		return nil, nil
	case 1:
		return geom.NewLineString(geom.XY).SetCoords(lines[0])
	default:
		return geom.NewMultiLineString(geom.XY).SetCoords(lines)
	}
}

// newPolygons groups rings into polygons: clockwise rings are outer
// boundaries, counter-clockwise rings are holes of the preceding outer ring.
func newPolygons(parts []int32, points []shp.Point) (geom.T, error) {
	rings := splitParts(parts, points)
	var polygons [][][]geom.Coord
	for _, ring := range rings {
		if len(ring) < 4 {
			return nil, fmt.Errorf("%w: ring with %d points", ErrInvalidGeometry, len(ring))
		}
		if signedArea(ring) <= 0 || len(polygons) == 0 {
			polygons = append(polygons, [][]geom.Coord{ring})
			continue
		}
		last := len(polygons) - 1
		polygons[last] = append(polygons[last], ring)
	}
	switch len(polygons) {
	case 0:
		return nil, nil
	case 1:
		return geom.NewPolygon(geom.XY).SetCoords(polygons[0])
	default:
		return geom.NewMultiPolygon(geom.XY).SetCoords(polygons)
	}
}

func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}
