package geo

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

// GeoPackageLayer describes one feature table of a GeoPackage.
type GeoPackageLayer struct {
	Table          string
	GeometryColumn string
	SRSID          int
}

const listFeatureTablesQuery = `
SELECT c.table_name, g.column_name, g.srs_id
FROM gpkg_contents c
JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
WHERE c.data_type = 'features'
ORDER BY c.table_name`

func openGeoPackage(path string) (*sql.DB, error) {
	dsn := "file:" + filepath.ToSlash(path) + "?mode=ro&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("geopackage: open %s: %w", path, err)
	}
	return db, nil
}

// ListGeoPackageLayers returns the feature tables registered in the file.
func ListGeoPackageLayers(ctx context.Context, path string) ([]GeoPackageLayer, error) {
	db, err := openGeoPackage(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return listFeatureTables(ctx, db)
}

func listFeatureTables(ctx context.Context, db *sql.DB) ([]GeoPackageLayer, error) {
	rows, err := db.QueryContext(ctx, listFeatureTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: geopackage: list feature tables: %v", ErrUnsupportedFormat, err)
	}
	defer rows.Close()
	var out []GeoPackageLayer
	for rows.Next() {
		var l GeoPackageLayer
		if err := rows.Scan(&l.Table, &l.GeometryColumn, &l.SRSID); err != nil {
			return nil, fmt.Errorf("geopackage: scan feature table: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("geopackage: iter feature tables: %w", err)
	}
	return out, nil
}

// ReadGeoPackage reads one feature table and returns it converted to WGS 84.
func ReadGeoPackage(ctx context.Context, path string, opts ReadOptions) (*Layer, error) {
	db, err := openGeoPackage(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tables, err := listFeatureTables(ctx, db)
	if err != nil {
		return nil, err
	}
	target, err := pickLayer(tables, opts.Layer)
	if err != nil {
		return nil, err
	}
	layer, err := readFeatureTable(ctx, db, target)
	if err != nil {
		return nil, err
	}
	epsg := opts.EPSG
	if epsg == 0 {
		if epsg, err = resolveSRS(ctx, db, target.SRSID); err != nil {
			return nil, err
		}
	}
	if err := Reproject(layer, epsg); err != nil {
		return nil, err
	}
	return layer, nil
}

func pickLayer(tables []GeoPackageLayer, name string) (GeoPackageLayer, error) {
	if name != "" {
		for _, t := range tables {
			if strings.EqualFold(t.Table, name) {
				return t, nil
			}
		}
		return GeoPackageLayer{}, fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	switch len(tables) {
	case 0:
		return GeoPackageLayer{}, ErrLayerNotFound
	case 1:
		return tables[0], nil
	default:
		names := make([]string, 0, len(tables))
		for _, t := range tables {
			names = append(names, t.Table)
		}
		return GeoPackageLayer{}, fmt.Errorf("%w: %s", ErrLayerRequired, strings.Join(names, ", "))
	}
}

func readFeatureTable(ctx context.Context, db *sql.DB, target GeoPackageLayer) (*Layer, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(target.Table))
	if err != nil {
		return nil, fmt.Errorf("geopackage: read %s: %w", target.Table, err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("geopackage: columns of %s: %w", target.Table, err)
	}
	layer := &Layer{Name: target.Table}
	geomIdx := -1
	for i, c := range columns {
		if strings.EqualFold(c, target.GeometryColumn) {
			geomIdx = i
			continue
		}
		layer.Fields = append(layer.Fields, c)
	}
	if geomIdx < 0 {
		return nil, fmt.Errorf("%w: geometry column %s", ErrFieldNotFound, target.GeometryColumn)
	}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("geopackage: scan %s: %w", target.Table, err)
		}
		feature := Feature{Properties: make(map[string]string, len(columns)-1)}
		for i, c := range columns {
			if i == geomIdx {
				blob, _ := values[i].([]byte)
				g, err := decodeGeoPackageBinary(blob)
				if err != nil {
					return nil, fmt.Errorf("feature %d: %w", len(layer.Features), err)
				}
				feature.Geometry = g
				continue
			}
			feature.Properties[c] = formatValue(values[i])
		}
		layer.Features = append(layer.Features, feature)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("geopackage: iter %s: %w", target.Table, err)
	}
	return layer, nil
}

// resolveSRS maps a GeoPackage srs_id to an EPSG code.
func resolveSRS(ctx context.Context, db *sql.DB, srsID int) (int, error) {
	switch srsID {
	case 0:
		// Undefined geographic SRS.
		return WGS84, nil
	case -1:
		return 0, ErrUnknownCRS
	}
	var org, definition string
	var orgID int
	err := db.QueryRowContext(ctx,
		`SELECT organization, organization_coordsys_id, definition FROM gpkg_spatial_ref_sys WHERE srs_id = ?`,
		srsID,
	).Scan(&org, &orgID, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return srsID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("geopackage: read srs %d: %w", srsID, err)
	}
	if strings.EqualFold(org, "EPSG") && orgID > 0 {
		return orgID, nil
	}
	return ParseProjection(definition)
}

var envelopeSizes = map[byte]int{0: 0, 1: 32, 2: 48, 3: 48, 4: 64}

// decodeGeoPackageBinary strips the GeoPackage header (magic, version, flags,
// srs id, optional envelope) and decodes the WKB body.
func decodeGeoPackageBinary(b []byte) (geom.T, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) < 8 || b[0] != 'G' || b[1] != 'P' {
		return nil, fmt.Errorf("%w: missing geopackage header", ErrInvalidGeometry)
	}
	flags := b[3]
	envSize, ok := envelopeSizes[(flags>>1)&0x07]
	if !ok {
		return nil, fmt.Errorf("%w: envelope indicator %d", ErrInvalidGeometry, (flags>>1)&0x07)
	}
	if flags&0x10 != 0 {
		return nil, nil
	}
	var order binary.ByteOrder = binary.BigEndian
	if flags&0x01 == 1 {
		order = binary.LittleEndian
	}
	srsID := int32(order.Uint32(b[4:8]))
	offset := 8 + envSize
	if len(b) <= offset {
		return nil, fmt.Errorf("%w: truncated geometry", ErrInvalidGeometry)
	}
	g, err := wkb.Unmarshal(b[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	setSRID(g, int(srsID))
	return g, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
