package geo

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

const lambert93PRJ = `PROJCS["RGF93_Lambert_93",GEOGCS["GCS_RGF_1993",DATUM["D_RGF_1993",` +
	`SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],` +
	`PROJECTION["Lambert_Conformal_Conic"],PARAMETER["False_Easting",700000.0],PARAMETER["False_Northing",6600000.0],` +
	`PARAMETER["Central_Meridian",3.0],PARAMETER["Standard_Parallel_1",44.0],PARAMETER["Standard_Parallel_2",49.0],` +
	`PARAMETER["Latitude_Of_Origin",46.5],UNIT["Meter",1.0]]`

type fixtureZone struct {
	id, name   string
	minX, minY float64
	size       float64
}

// square returns a clockwise ring, the orientation shapefiles use for outer
// boundaries.
func square(minX, minY, size float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: minY + size},
		{X: minX + size, Y: minY + size},
		{X: minX + size, Y: minY},
		{X: minX, Y: minY},
	}
}

// writeShapefile writes a polygon shapefile with ID and NAME columns under dir
// and returns the paths of its files.
func writeShapefile(t *testing.T, dir, name string, zones []fixtureZone) []string {
	t.Helper()
	base := filepath.Join(dir, name)
	w, err := shp.Create(base+".shp", shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("ID", 16),
		shp.StringField("NAME", 32),
	}))
	for _, z := range zones {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{square(z.minX, z.minY, z.size)}))
		row := int(w.Write(&poly))
		require.NoError(t, w.WriteAttribute(row, 0, z.id))
		require.NoError(t, w.WriteAttribute(row, 1, z.name))
	}
	w.Close()
	// go-shp writes the attribute table as <base>dbf, without the dot.
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	return []string{base + ".shp", base + ".shx", base + ".dbf"}
}

// zipFiles packs the given files under prefix, adding extra in-memory entries.
func zipFiles(t *testing.T, prefix string, files []string, extra map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range files {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		w, err := zw.Create(prefix + filepath.Base(p))
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	for name, content := range extra {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// zipEntries builds an archive whose entries hold placeholder bytes.
func zipEntries(t *testing.T, names ...string) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		if strings.HasSuffix(n, "/") {
			continue
		}
		_, err = w.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if !errors.Is(err, zip.ErrInsecurePath) {
		require.NoError(t, err)
	}
	return zr
}

func openArchive(t *testing.T, data []byte) *ShapefileSet {
	t.Helper()
	set, err := OpenShapefileArchive(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return set
}

type gpkgTable struct {
	name  string
	srsID int
	rows  []gpkgRow
}

type gpkgRow struct {
	code, label string
	geometry    geom.T
}

// writeGeoPackage creates a minimal GeoPackage holding the given feature
// tables.
func writeGeoPackage(t *testing.T, path string, tables ...gpkgTable) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE gpkg_spatial_ref_sys (srs_name TEXT NOT NULL, srs_id INTEGER PRIMARY KEY,
			organization TEXT NOT NULL, organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL, description TEXT)`,
		`INSERT INTO gpkg_spatial_ref_sys VALUES ('WGS 84', 4326, 'EPSG', 4326, 'GEOGCS["WGS 84"]', NULL)`,
		`INSERT INTO gpkg_spatial_ref_sys VALUES ('Lambert 93', 2154, 'EPSG', 2154, 'PROJCS["RGF93 / Lambert-93"]', NULL)`,
		`INSERT INTO gpkg_spatial_ref_sys VALUES ('custom', 900913, 'NONE', 0, 'PROJCS["WGS_84_Pseudo_Mercator"]', NULL)`,
		`CREATE TABLE gpkg_contents (table_name TEXT NOT NULL PRIMARY KEY, data_type TEXT NOT NULL,
			identifier TEXT, srs_id INTEGER)`,
		`CREATE TABLE gpkg_geometry_columns (table_name TEXT NOT NULL, column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL, srs_id INTEGER NOT NULL, z TINYINT NOT NULL, m TINYINT NOT NULL)`,
	}
	for _, s := range stmts {
		_, err := db.ExecContext(ctx, s)
		require.NoError(t, err)
	}
	for _, tbl := range tables {
		_, err := db.ExecContext(ctx, `CREATE TABLE `+quoteIdent(tbl.name)+
			` (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB, code TEXT, label TEXT)`)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `INSERT INTO gpkg_contents VALUES (?, 'features', ?, ?)`, tbl.name, tbl.name, tbl.srsID)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `INSERT INTO gpkg_geometry_columns VALUES (?, 'geom', 'GEOMETRY', ?, 0, 0)`,
			tbl.name, tbl.srsID)
		require.NoError(t, err)
		for _, r := range tbl.rows {
			_, err = db.ExecContext(ctx, `INSERT INTO `+quoteIdent(tbl.name)+` (geom, code, label) VALUES (?, ?, ?)`,
				encodeGeoPackageBinary(t, r.geometry, tbl.srsID), r.code, r.label)
			require.NoError(t, err)
		}
	}
}

// encodeGeoPackageBinary writes a little-endian header without envelope.
func encodeGeoPackageBinary(t *testing.T, g geom.T, srsID int) []byte {
	t.Helper()
	if g == nil {
		return nil
	}
	body, err := wkb.Marshal(g, wkb.NDR)
	require.NoError(t, err)
	header := []byte{'G', 'P', 0, 0x01, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(header[4:], uint32(int32(srsID)))
	return append(header, body...)
}

func polygon(t *testing.T, minX, minY, size float64) *geom.Polygon {
	t.Helper()
	p, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{
		{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size}, {minX, minY},
	}})
	require.NoError(t, err)
	return p
}
