package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

const (
	memoryPath         = ":memory:"
	defaultBusyTimeout = 5 * time.Second
	defaultMaxConns    = 4
)

// Store owns one SQLite connection pool.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database described by cfg and verifies the connection.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlite: config is required")
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("SQLite store initialized", "path", cfg.Path, "store_driver", "sqlite")
	return &Store{db: db, path: cfg.Path}, nil
}

func openDB(ctx context.Context, cfg *Config) (*sql.DB, error) {
	dsn, inMemory, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}
	configurePool(db, cfg, inMemory)
	if err := applyBusyTimeout(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", cfg.Path, err)
	}
	return db, nil
}

// DB exposes the pool for driver-local repositories.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured location.
func (s *Store) Path() string { return s.path }

// HealthCheck verifies the connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	logger.FromContext(ctx).Info("SQLite store closed", "path", s.path)
	return nil
}

// buildDSN returns the driver DSN and whether the database lives in memory.
// Every in-memory store gets its own named shared-cache database.
func buildDSN(cfg *Config) (string, bool, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", false, fmt.Errorf("sqlite: path is required")
	}
	busy := busyTimeout(cfg)
	if path == memoryPath {
		dsn := fmt.Sprintf("file:memdb-%s?mode=memory&cache=shared&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
			uuid.NewString(), busy.Milliseconds())
		return dsn, true, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, fmt.Errorf("sqlite: resolve %s: %w", path, err)
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)&_pragma=journal_mode(WAL)",
		filepath.ToSlash(abs), busy.Milliseconds(),
	)
	return dsn, false, nil
}

func busyTimeout(cfg *Config) time.Duration {
	if cfg.BusyTimeout > 0 {
		return cfg.BusyTimeout
	}
	return defaultBusyTimeout
}

func configurePool(db *sql.DB, cfg *Config, inMemory bool) {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxConns
	}
	if inMemory {
		// A shared-cache memory database disappears with its last connection.
		maxOpen = 1
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	db.SetMaxOpenConns(maxOpen)
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	db.SetMaxIdleConns(maxIdle)
}

func applyBusyTimeout(ctx context.Context, db *sql.DB, cfg *Config) error {
	ms := busyTimeout(cfg).Milliseconds()
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", ms)); err != nil {
		return fmt.Errorf("sqlite: set busy timeout: %w", err)
	}
	return nil
}
