package geo

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestReadShapefile(t *testing.T) {
	t.Run("Should read polygons and attributes in WGS 84", func(t *testing.T) {
		dir := t.TempDir()
		files := writeShapefile(t, dir, "zones", []fixtureZone{
			{id: "1", name: "Centre", minX: 2.0, minY: 48.0, size: 0.1},
			{id: "2", name: "Nord", minX: 2.1, minY: 48.1, size: 0.1},
		})
		set := openArchive(t, zipFiles(t, "", files, nil))

		layer, err := ReadShapefile(set, ReadOptions{})

		require.NoError(t, err)
		assert.Equal(t, "zones", layer.Name)
		assert.Equal(t, []string{"ID", "NAME"}, layer.Fields)
		assert.Equal(t, WGS84, layer.EPSG)
		assert.Equal(t, WGS84, layer.SourceCRS)
		require.Len(t, layer.Features, 2)
		assert.Equal(t, "Centre", layer.Features[0].Properties["NAME"])
		assert.Equal(t, "2", layer.Features[1].Properties["ID"])
		poly, ok := layer.Features[0].Geometry.(*geom.Polygon)
		require.True(t, ok)
		assert.Equal(t, 1, poly.NumLinearRings())
		assert.Equal(t, WGS84, poly.SRID())
		b := layer.Bounds()
		assert.InDelta(t, 2.0, b.Min(0), 1e-9)
		assert.InDelta(t, 48.2, b.Max(1), 1e-9)
	})

	t.Run("Should reproject using the prj file", func(t *testing.T) {
		dir := t.TempDir()
		files := writeShapefile(t, dir, "outline", []fixtureZone{
			{id: "1", name: "Origin", minX: 700000, minY: 6600000, size: 1000},
		})
		set := openArchive(t, zipFiles(t, "data/", files, map[string]string{"data/outline.prj": lambert93PRJ}))

		layer, err := ReadShapefile(set, ReadOptions{})

		require.NoError(t, err)
		assert.Equal(t, 2154, layer.SourceCRS)
		b := layer.Bounds()
		require.NotNil(t, b)
		assert.InDelta(t, 3.0, b.Min(0), 0.01)
		assert.InDelta(t, 46.5, b.Min(1), 0.01)
	})

	t.Run("Should let an explicit code override the prj", func(t *testing.T) {
		dir := t.TempDir()
		files := writeShapefile(t, dir, "utm", []fixtureZone{
			{id: "1", name: "Equator", minX: 500000, minY: 0, size: 100},
		})
		set := openArchive(t, zipFiles(t, "", files, map[string]string{"utm.prj": lambert93PRJ}))

		layer, err := ReadShapefile(set, ReadOptions{EPSG: 32631})

		require.NoError(t, err)
		assert.Equal(t, 32631, layer.SourceCRS)
		assert.InDelta(t, 3.0, layer.Bounds().Min(0), 0.001)
	})

	t.Run("Should take degree coordinates without prj as WGS 84", func(t *testing.T) {
		dir := t.TempDir()
		files := writeShapefile(t, dir, "degrees", []fixtureZone{
			{id: "1", name: "A", minX: -179.5, minY: -89.5, size: 1},
		})
		set := openArchive(t, zipFiles(t, "", files, nil))

		layer, err := ReadShapefile(set, ReadOptions{})

		require.NoError(t, err)
		assert.Equal(t, WGS84, layer.SourceCRS)
		assert.InDelta(t, -179.5, layer.Bounds().Min(0), 1e-9)
	})

	t.Run("Should require a code for projected data without prj", func(t *testing.T) {
		dir := t.TempDir()
		files := writeShapefile(t, dir, "noprj", []fixtureZone{
			{id: "1", name: "A", minX: 700000, minY: 6600000, size: 1000},
		})
		set := openArchive(t, zipFiles(t, "", files, nil))

		_, err := ReadShapefile(set, ReadOptions{})

		assert.ErrorIs(t, err, ErrUnknownCRS)
	})

	t.Run("Should strip the padding of fixed-width columns", func(t *testing.T) {
		dir := t.TempDir()
		files := writeShapefile(t, dir, "insee", []fixtureZone{
			{id: "01001", name: "A", minX: 5, minY: 46, size: 0.1},
		})
		set := openArchive(t, zipFiles(t, "", files, nil))

		layer, err := ReadShapefile(set, ReadOptions{})

		require.NoError(t, err)
		assert.Equal(t, "01001", layer.Features[0].Properties["ID"])
		assert.Equal(t, "A", layer.Features[0].Properties["NAME"])
	})

	t.Run("Should decode Windows-1252 attributes", func(t *testing.T) {
		dir := t.TempDir()
		files := writeShapefile(t, dir, "latin", []fixtureZone{
			{id: "1", name: "Z\xe9ro", minX: 1, minY: 45, size: 0.1},
		})
		set := openArchive(t, zipFiles(t, "", files, nil))

		layer, err := ReadShapefile(set, ReadOptions{})

		require.NoError(t, err)
		assert.Equal(t, "Zéro", layer.Features[0].Properties["NAME"])
	})
}

func TestShapeToGeometry(t *testing.T) {
	t.Run("Should treat null shapes as missing geometry", func(t *testing.T) {
		g, err := shapeToGeometry(&shp.Null{})

		require.NoError(t, err)
		assert.Nil(t, g)
	})

	t.Run("Should attach counter-clockwise rings as holes", func(t *testing.T) {
		outer := square(0, 0, 10)
		hole := []shp.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}}
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{outer, hole}))

		g, err := shapeToGeometry(&poly)

		require.NoError(t, err)
		p, ok := g.(*geom.Polygon)
		require.True(t, ok)
		assert.Equal(t, 2, p.NumLinearRings())
	})

	t.Run("Should build a multipolygon from two outer rings", func(t *testing.T) {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{square(0, 0, 1), square(5, 5, 1)}))

		g, err := shapeToGeometry(&poly)

		require.NoError(t, err)
		mp, ok := g.(*geom.MultiPolygon)
		require.True(t, ok)
		assert.Equal(t, 2, mp.NumPolygons())
	})

	t.Run("Should reject degenerate rings", func(t *testing.T) {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}}))

		_, err := shapeToGeometry(&poly)

		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("Should split polylines into linestrings", func(t *testing.T) {
		line := shp.NewPolyLine([][]shp.Point{{{X: 0, Y: 0}, {X: 1, Y: 1}}, {{X: 2, Y: 2}, {X: 3, Y: 3}}})

		g, err := shapeToGeometry(line)

		require.NoError(t, err)
		ml, ok := g.(*geom.MultiLineString)
		require.True(t, ok)
		assert.Equal(t, 2, ml.NumLineStrings())
	})
}

func TestCleanAttribute(t *testing.T) {
	t.Run("Should trim NUL and space padding", func(t *testing.T) {
		assert.Equal(t, "01001", cleanAttribute("01001\x00\x00\x00"))
		assert.Equal(t, "Nord", cleanAttribute(" Nord  \x00 \x00"))
		assert.Equal(t, "", cleanAttribute("\x00\x00"))
	})
}
