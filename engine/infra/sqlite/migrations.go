package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/catalog/*.sql migrations/study/*.sql
var migrationsFS embed.FS

// MigrationSet selects the embedded migrations of one database kind.
type MigrationSet string

const (
	CatalogMigrations MigrationSet = "migrations/catalog"
	StudyMigrations   MigrationSet = "migrations/study"
)

var gooseInitMu sync.Mutex

// ApplyMigrations executes the embedded migrations of set against db.
func ApplyMigrations(ctx context.Context, db *sql.DB, set MigrationSet) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	gooseInitMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseInitMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, string(set)); err != nil {
		return fmt.Errorf("sqlite: apply %s: %w", set, err)
	}
	return nil
}
