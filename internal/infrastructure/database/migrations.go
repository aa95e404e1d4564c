package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MigrationsFS carries the embedded schema files. The migrations
// package sets it from an init func so the schema ships inside the
// rig binary instead of alongside it.
var MigrationsFS embed.FS

// MigrationsDir is the directory inside MigrationsFS holding the
// schema files, "." when they sit at the root.
var MigrationsDir = "migrations"

// migration is one schema step, assembled from a
// <version>_<name>.up.sql file and its optional .down.sql twin.
// Version is the YYYYMMDD_HHMMSS filename prefix.
type migration struct {
	version string
	name    string
	up      string
	down    string
}

// Migrate brings the frame store schema up to date, applying each
// pending step in version order inside its own transaction. A failed
// step rolls back alone; earlier steps stay committed, so a rerun
// resumes where it stopped.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.ensureVersionTable(ctx); err != nil {
		return err
	}

	all, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading schema files: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range all {
		if applied[m.version] {
			continue
		}
		if err := db.applyStep(ctx, m); err != nil {
			return fmt.Errorf("migration %s (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

// Rollback undoes the most recently applied schema step. Used by
// tests; a store with no applied steps is a no-op.
func (db *DB) Rollback(ctx context.Context) error {
	latest, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if latest == "" {
		return nil
	}

	all, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading schema files: %w", err)
	}

	var step *migration
	for i := range all {
		if all[i].version == latest {
			step = &all[i]
			break
		}
	}
	if step == nil {
		return fmt.Errorf("migration %s not present in embedded schema", latest)
	}
	if step.down == "" {
		return fmt.Errorf("migration %s has no down step", latest)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting rollback: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx, step.down); err != nil {
		return fmt.Errorf("rolling back %s: %w", step.version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schema_migrations WHERE version = ?", step.version); err != nil {
		return fmt.Errorf("clearing version record: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the newest applied migration version, "" for
// a store that has never been migrated.
func (db *DB) SchemaVersion(ctx context.Context) (string, error) {
	if err := db.ensureVersionTable(ctx); err != nil {
		return "", err
	}

	var v string
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), '') FROM schema_migrations").Scan(&v)
	if err != nil {
		return "", fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (db *DB) ensureVersionTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// applyStep runs one migration and records it, both in one transaction.
func (db *DB) applyStep(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// loadMigrations reads the embedded schema directory and pairs up/down
// files by version. Files that do not follow the naming convention are
// skipped.
func loadMigrations() ([]migration, error) {
	var empty embed.FS
	if MigrationsFS == empty {
		return nil, nil
	}

	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, nil
	}

	byVersion := make(map[string]*migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, up, ok := splitMigrationName(entry.Name())
		if !ok {
			continue
		}

		sqlText, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{version: version, name: name}
			byVersion[version] = m
		}
		if up {
			m.up = string(sqlText)
		} else {
			m.down = string(sqlText)
		}
	}

	steps := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		steps = append(steps, *m)
	}
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].version < steps[j].version
	})
	return steps, nil
}

// splitMigrationName parses "20260301_120000_create_frames.up.sql"
// into version "20260301_120000", name "create_frames", up true.
func splitMigrationName(filename string) (version, name string, up, ok bool) {
	base, found := strings.CutSuffix(filename, ".sql")
	if !found {
		return "", "", false, false
	}

	switch {
	case strings.HasSuffix(base, ".up"):
		up = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		base = strings.TrimSuffix(base, ".down")
	default:
		return "", "", false, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 2 {
		return "", "", false, false
	}
	version = parts[0] + "_" + parts[1]
	if len(parts) == 3 {
		name = parts[2]
	} else {
		name = base
	}
	return version, name, up, true
}
