// Package recorder provides the frame-recorder auxiliary: every frame
// observed on its bound connector is persisted to SQLite for post-run
// inspection.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FrameRecord is one persisted frame observation.
type FrameRecord struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	RemoteID  *uint32   `json:"remote_id,omitempty"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which frame records to return.
type Filter struct {
	Channel string // optional: filter by channel label
	Limit   int    // default 50, max 500
	Offset  int    // pagination offset
}

// Filter limits.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Repository defines the persistence interface for frame records.
type Repository interface {
	Create(ctx context.Context, rec *FrameRecord) error
	List(ctx context.Context, filter Filter) ([]FrameRecord, error)
	Count(ctx context.Context, channel string) (int, error)
}

// SQLiteRepository persists frame records in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new frame record repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a frame record. The ID and CreatedAt are generated if
// empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *FrameRecord) error {
	if rec.ID == "" {
		rec.ID = "frm-" + uuid.NewString()[:8]
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var remoteID *int64
	if rec.RemoteID != nil {
		v := int64(*rec.RemoteID)
		remoteID = &v
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO frames (id, channel, remote_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Channel, remoteID, rec.Payload, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting frame record: %w", err)
	}
	return nil
}

// List returns frame records matching the filter, oldest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]FrameRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var conditions []string
	var args []any
	if filter.Channel != "" {
		conditions = append(conditions, "channel = ?")
		args = append(args, filter.Channel)
	}

	query := "SELECT id, channel, remote_id, payload, created_at FROM frames"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying frame records: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var records []FrameRecord
	for rows.Next() {
		var rec FrameRecord
		var remoteID *int64
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Channel, &remoteID, &rec.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning frame record: %w", err)
		}
		if remoteID != nil {
			v := uint32(*remoteID)
			rec.RemoteID = &v
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing frame timestamp: %w", err)
		}
		rec.CreatedAt = ts
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of recorded frames, optionally for one channel
// label only.
func (r *SQLiteRepository) Count(ctx context.Context, channel string) (int, error) {
	query := "SELECT COUNT(*) FROM frames"
	var args []any
	if channel != "" {
		query += " WHERE channel = ?"
		args = append(args, channel)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting frame records: %w", err)
	}
	return count, nil
}
