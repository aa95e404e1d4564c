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
	dirPermissions  = 0750
	filePermissions = 0600

	// openTimeout bounds the connectivity check in Open.
	openTimeout = 5 * time.Second
)

// Config selects where and how the frame store is opened. It maps to
// the database options of a recorder entry in config.yaml.
type Config struct {
	// Path is the SQLite file holding recorded frames. Its directory
	// is created on first open.
	Path string

	// WALMode enables write-ahead logging so test assertions can read
	// the store while the recorder is still draining frames into it.
	WALMode bool

	// BusyTimeout is how long a statement waits on the write lock, in
	// seconds. Recorder writes and test reads share one file, so a
	// zero timeout surfaces spurious "database is locked" failures.
	BusyTimeout int
}

// DB is an open frame store. It embeds sql.DB, so repositories built
// on top of it use the standard query API directly.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the frame store at cfg.Path and
// verifies it is reachable before returning.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating frame store directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening frame store: %w", err)
	}

	// One writer: the recorder drain goroutine. SQLite serialises
	// writes anyway, so a larger pool only adds lock contention.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying frame store: %w", err)
	}

	// Recorded frames can carry payloads from devices under test, so
	// keep the file owner-only. Chmod fails harmlessly before the
	// first write creates the file.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Close releases the underlying connection. Safe on a zero DB.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing frame store: %w", err)
	}
	return nil
}

// Path returns the SQLite file backing this store.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to confirm the store still answers.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("frame store health check: %w", err)
	}
	return nil
}
