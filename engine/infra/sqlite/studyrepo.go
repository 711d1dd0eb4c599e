package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/engine/study/uc"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	studyColumns = []string{
		"id", "name", "description", "lat", "lon", "dir_path", "db_path", "visible", "created_at", "updated_at",
	}
)

// StudyRepo implements uc.Repository on top of the catalog database.
type StudyRepo struct{ db *sql.DB }

// NewStudyRepo creates a new SQLite-backed study catalog.
func NewStudyRepo(db *sql.DB) *StudyRepo { return &StudyRepo{db: db} }

var _ uc.Repository = (*StudyRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudy(row rowScanner) (*study.Study, error) {
	var s study.Study
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Lat, &s.Lon, &s.DirPath, &s.DBPath,
		&s.Visible, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudyRepo) Create(ctx context.Context, s *study.Study) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	q, args, err := builder.Insert("studies").Columns(studyColumns...).Values(
		s.ID, s.Name, s.Description, s.Lat, s.Lon, s.DirPath, s.DBPath, s.Visible, s.CreatedAt, s.UpdatedAt,
	).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build create study: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE) {
			return fmt.Errorf("%w: %s", study.ErrStudyExists, s.ID)
		}
		return fmt.Errorf("sqlite: create study: %w", err)
	}
	return nil
}

func (r *StudyRepo) Get(ctx context.Context, id string) (*study.Study, error) {
	q, args, err := builder.Select(studyColumns...).From("studies").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build get study: %w", err)
	}
	s, err := scanStudy(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, study.ErrStudyNotFound
		}
		return nil, fmt.Errorf("sqlite: get study: %w", err)
	}
	return s, nil
}

func (r *StudyRepo) List(ctx context.Context, filter study.ListFilter) ([]*study.Study, error) {
	sb := builder.Select(studyColumns...).From("studies").OrderBy("name COLLATE NOCASE", "id")
	if filter.VisibleOnly {
		sb = sb.Where(squirrel.Eq{"visible": true})
	}
	q, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list studies: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list studies: %w", err)
	}
	defer rows.Close()
	out := []*study.Study{}
	for rows.Next() {
		s, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan study: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter studies: %w", err)
	}
	return out, nil
}

// Count returns the number of studies, split by visibility.
func (r *StudyRepo) Count(ctx context.Context) (visible, hidden int, err error) {
	q, args, err := builder.Select("visible", "COUNT(*)").From("studies").GroupBy("visible").ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: build count studies: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: count studies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v bool
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return 0, 0, fmt.Errorf("sqlite: scan count: %w", err)
		}
		if v {
			visible = n
		} else {
			hidden = n
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("sqlite: iter count: %w", err)
	}
	return visible, hidden, nil
}

func (r *StudyRepo) Update(ctx context.Context, s *study.Study) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	return r.exec(ctx, "update study", builder.Update("studies").SetMap(map[string]any{
		"name":        s.Name,
		"description": s.Description,
		"lat":         s.Lat,
		"lon":         s.Lon,
		"updated_at":  s.UpdatedAt,
	}).Where(squirrel.Eq{"id": s.ID}))
}

func (r *StudyRepo) SetVisible(ctx context.Context, id string, visible bool) error {
	return r.exec(ctx, "set study visibility", builder.Update("studies").
		Set("visible", visible).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}))
}

func (r *StudyRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "delete study", builder.Delete("studies").Where(squirrel.Eq{"id": id}))
}

// exec runs a single-row statement and maps a missing row to ErrStudyNotFound.
func (r *StudyRepo) exec(ctx context.Context, op string, stmt squirrel.Sqlizer) error {
	q, args, err := stmt.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build %s: %w", op, err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
	if n, raErr := res.RowsAffected(); raErr == nil {
		if n == 0 {
			return study.ErrStudyNotFound
		}
	} else {
		return fmt.Errorf("sqlite: rows affected (%s): %w", op, raErr)
	}
	return nil
}

func isConstraint(err error, codes ...int) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.Code() == c {
			return true
		}
	}
	return false
}
