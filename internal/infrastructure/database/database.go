package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirMode is the permission mode for the store's parent directory.
	dirMode = 0750

	// fileMode keeps the store readable by the owner only. Cached
	// snapshots carry device network addresses.
	fileMode = 0600

	// openPingTimeout bounds the connectivity check inside Open.
	openPingTimeout = 5 * time.Second

	// idleConnTimeout is how long the idle connection is kept before the
	// pool recycles it.
	idleConnTimeout = 30 * time.Minute
)

// Config selects where the device store lives and how patiently writers
// wait for the file lock. Values come from the database section of
// config.yaml.
type Config struct {
	// Path is the SQLite file holding device registrations and their
	// cached status snapshots. Parent directories are created on first
	// open.
	Path string

	// WALMode enables write-ahead logging so reads of cached snapshots
	// do not block the writes made after each poll.
	WALMode bool

	// BusyTimeout is how many seconds a locked statement waits before
	// giving up with SQLITE_BUSY.
	BusyTimeout int
}

// DB is the handle to the device store. The embedded *sql.DB carries
// the connection pool; Migrate and HealthCheck add the lifecycle pieces
// startup and the health reporter need.
type DB struct {
	*sql.DB
	path string
}

// Open opens the SQLite device store, creating the file and its
// directory on first run, and verifies the store answers before
// returning.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer, and one is all the engine needs: each
	// session persists its snapshot from its own poll loop, one row at
	// a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(idleConnTimeout)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The file may not exist until the first write, in which case the
	// chmod is retried implicitly on the next open.
	_ = os.Chmod(cfg.Path, fileMode) //nolint:errcheck // First run creates the file later

	return db, nil
}

// dsn builds the go-sqlite3 connection string for the store. Foreign
// keys stay on so future tables can reference devices(id).
func dsn(cfg Config) string {
	s := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		s += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return s
}

// Close releases the connection pool. Safe to call on a handle whose
// pool is already gone.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to prove the store is reachable.
// The bridge surfaces the result in its periodic health report.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
