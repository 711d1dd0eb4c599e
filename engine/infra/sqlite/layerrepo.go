package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/systragroup/SG-DataDashboard/engine/geo"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/engine/study/uc"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

const defaultStudyCacheSize = 16

var layerColumns = []string{
	"kind", "file_name", "format", "source_epsg", "feature_count", "id_field", "name_field",
	"min_lon", "min_lat", "max_lon", "max_lat", "geojson", "imported_at",
}

// LayerStore implements uc.LayerStore with one database per study. Handles
// are opened on first use and kept in an LRU; eviction closes them.
type LayerStore struct {
	mu          sync.Mutex
	handles     *lru.Cache[string, *sql.DB]
	busyTimeout time.Duration
	onOpen      func(id string)
}

var _ uc.LayerStore = (*LayerStore)(nil)

// NewLayerStore creates the handle cache.
func NewLayerStore(cacheSize int, busyTimeout time.Duration) (*LayerStore, error) {
	if cacheSize <= 0 {
		cacheSize = defaultStudyCacheSize
	}
	cache, err := lru.NewWithEvict(cacheSize, func(id string, db *sql.DB) {
		if err := db.Close(); err != nil {
			logger.Warn("sqlite: close study database", "study_id", id, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: create study cache: %w", err)
	}
	return &LayerStore{handles: cache, busyTimeout: busyTimeout}, nil
}

// OnOpen registers a callback run each time a study database is opened.
func (s *LayerStore) OnOpen(fn func(id string)) { s.onOpen = fn }

// Len returns the number of open study databases.
func (s *LayerStore) Len() int { return s.handles.Len() }

func (s *LayerStore) open(ctx context.Context, st *study.Study) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.handles.Get(st.ID); ok {
		return db, nil
	}
	db, err := openDB(ctx, &Config{Path: st.DBPath, BusyTimeout: s.busyTimeout, MaxOpenConns: 2})
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, db, StudyMigrations); err != nil {
		db.Close()
		return nil, err
	}
	s.handles.Add(st.ID, db)
	if s.onOpen != nil {
		s.onOpen(st.ID)
	}
	logger.FromContext(ctx).Debug("Study database opened", "study_id", st.ID, "path", st.DBPath)
	return db, nil
}

// Init creates and migrates the study database.
func (s *LayerStore) Init(ctx context.Context, st *study.Study) error {
	_, err := s.open(ctx, st)
	return err
}

// Release closes the cached handle of a study, if any.
func (s *LayerStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles.Remove(id)
}

// Close closes every cached handle.
func (s *LayerStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles.Purge()
}

func (s *LayerStore) SaveOutline(ctx context.Context, st *study.Study, rec *study.LayerRecord) error {
	db, err := s.open(ctx, st)
	if err != nil {
		return err
	}
	return withTx(ctx, db, func(tx *sql.Tx) error {
		return upsertLayer(ctx, tx, rec)
	})
}

// SaveZones replaces every stored zone. Clean zones come first in their
// sorted order, unclean ones follow in input order.
func (s *LayerStore) SaveZones(
	ctx context.Context,
	st *study.Study,
	rec *study.LayerRecord,
	partition *geo.ZonePartition,
) error {
	db, err := s.open(ctx, st)
	if err != nil {
		return err
	}
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM zones`); err != nil {
			return fmt.Errorf("sqlite: clear zones: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO zones (position, zone_id, name, clean, reason, geometry) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("sqlite: prepare insert zone: %w", err)
		}
		defer stmt.Close()
		pos := 0
		for _, group := range [][]geo.Zone{partition.Clean, partition.Unclean} {
			for _, z := range group {
				g, err := geo.MarshalGeometry(z.Geometry)
				if err != nil {
					return fmt.Errorf("zone %q: %w", z.ID, err)
				}
				if _, err := stmt.ExecContext(ctx, pos, z.ID, z.Name, z.Reason == "", z.Reason, string(g)); err != nil {
					return fmt.Errorf("sqlite: insert zone %q: %w", z.ID, err)
				}
				pos++
			}
		}
		return upsertLayer(ctx, tx, rec)
	})
}

func upsertLayer(ctx context.Context, tx *sql.Tx, rec *study.LayerRecord) error {
	var minLon, minLat, maxLon, maxLat sql.NullFloat64
	if b := rec.Bounds; b != nil {
		minLon = sql.NullFloat64{Float64: b.MinLon, Valid: true}
		minLat = sql.NullFloat64{Float64: b.MinLat, Valid: true}
		maxLon = sql.NullFloat64{Float64: b.MaxLon, Valid: true}
		maxLat = sql.NullFloat64{Float64: b.MaxLat, Valid: true}
	}
	var geojson sql.NullString
	if len(rec.GeoJSON) > 0 {
		geojson = sql.NullString{String: string(rec.GeoJSON), Valid: true}
	}
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = time.Now().UTC()
	}
	q, args, err := builder.Insert("layers").Options("OR REPLACE").Columns(layerColumns...).Values(
		string(rec.Kind), rec.FileName, rec.Format, rec.SourceEPSG, rec.FeatureCount, rec.IDField, rec.NameField,
		minLon, minLat, maxLon, maxLat, geojson, rec.ImportedAt,
	).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build save layer: %w", err)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("sqlite: save %s layer: %w", rec.Kind, err)
	}
	return nil
}

func (s *LayerStore) GetLayer(ctx context.Context, st *study.Study, kind study.LayerKind) (*study.LayerRecord, error) {
	db, err := s.open(ctx, st)
	if err != nil {
		return nil, err
	}
	q, args, err := builder.Select(layerColumns...).From("layers").Where(squirrel.Eq{"kind": string(kind)}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build get layer: %w", err)
	}
	var (
		rec                            study.LayerRecord
		k                              string
		minLon, minLat, maxLon, maxLat sql.NullFloat64
		geojson                        sql.NullString
	)
	err = db.QueryRowContext(ctx, q, args...).Scan(&k, &rec.FileName, &rec.Format, &rec.SourceEPSG,
		&rec.FeatureCount, &rec.IDField, &rec.NameField, &minLon, &minLat, &maxLon, &maxLat, &geojson, &rec.ImportedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", study.ErrLayerNotFound, kind)
		}
		return nil, fmt.Errorf("sqlite: get %s layer: %w", kind, err)
	}
	rec.Kind = study.LayerKind(k)
	if minLon.Valid && minLat.Valid && maxLon.Valid && maxLat.Valid {
		rec.Bounds = &study.Bounds{
			MinLon: minLon.Float64, MinLat: minLat.Float64, MaxLon: maxLon.Float64, MaxLat: maxLat.Float64,
		}
	}
	if geojson.Valid {
		rec.GeoJSON = json.RawMessage(geojson.String)
	}
	return &rec, nil
}

func (s *LayerStore) ListZones(ctx context.Context, st *study.Study, filter study.ZoneFilter) ([]study.StoredZone, error) {
	db, err := s.open(ctx, st)
	if err != nil {
		return nil, err
	}
	sb := builder.Select("position", "zone_id", "name", "clean", "reason", "geometry").From("zones").OrderBy("position")
	if filter.Clean != nil {
		sb = sb.Where(squirrel.Eq{"clean": *filter.Clean})
	}
	q, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list zones: %w", err)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list zones: %w", err)
	}
	defer rows.Close()
	out := []study.StoredZone{}
	for rows.Next() {
		var z study.StoredZone
		var g sql.NullString
		if err := rows.Scan(&z.Position, &z.ZoneID, &z.Name, &z.Clean, &z.Reason, &g); err != nil {
			return nil, fmt.Errorf("sqlite: scan zone: %w", err)
		}
		z.Geometry = json.RawMessage("null")
		if g.Valid && g.String != "" {
			z.Geometry = json.RawMessage(g.String)
		}
		out = append(out, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter zones: %w", err)
	}
	return out, nil
}

func (s *LayerStore) ClearLayer(ctx context.Context, st *study.Study, kind study.LayerKind) error {
	db, err := s.open(ctx, st)
	if err != nil {
		return err
	}
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if kind == study.KindZones {
			if _, err := tx.ExecContext(ctx, `DELETE FROM zones`); err != nil {
				return fmt.Errorf("sqlite: clear zones: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM layers WHERE kind = ?`, string(kind)); err != nil {
			return fmt.Errorf("sqlite: clear %s layer: %w", kind, err)
		}
		return nil
	})
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rb := tx.Rollback(); rb != nil {
				logger.FromContext(ctx).Warn("sqlite: rollback failed", "error", rb)
			}
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit tx: %w", err)
	}
	return nil
}
