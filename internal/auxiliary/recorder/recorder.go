package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
	"github.com/nerrad567/testrig-core/internal/infrastructure/database"
)

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// defaultPollInterval is how long each receive poll on the bound connector
// waits before checking for shutdown.
const defaultPollInterval = 100 * time.Millisecond

// RoleChannel is the connector role name the recorder binds.
const RoleChannel = "channel"

// ErrMissingConnector is returned when the "channel" role is not bound.
var ErrMissingConnector = errors.New("recorder: connector role not bound")

// Options configures a recorder auxiliary.
type Options struct {
	// DatabasePath is the SQLite file frames are persisted to.
	DatabasePath string

	// ChannelLabel tags every record; defaults to the bound role name.
	ChannelLabel string

	// PollInterval bounds each receive wait. Zero means the default.
	PollInterval time.Duration
}

// Auxiliary drains its bound connector on a background goroutine and
// persists every observed frame.
//
// The recorder is normally bound to its own proxy channel attached to the
// owner, so recording never steals frames from the auxiliaries doing the
// actual test traffic.
type Auxiliary struct {
	conn   component.Connector
	opts   Options
	logger Logger

	mu      sync.Mutex
	db      *database.DB
	repo    Repository
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a recorder over the given connector.
func New(conn component.Connector, opts Options) *Auxiliary {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ChannelLabel == "" {
		opts.ChannelLabel = RoleChannel
	}
	return &Auxiliary{
		conn:   conn,
		opts:   opts,
		logger: noopLogger{},
	}
}

// Factory constructs a recorder auxiliary from its config map and bound
// connectors. Required config key: "database_path" (string). Optional:
// "channel_label" (string), "poll_interval_ms" (int). The "channel"
// connector role is required.
func Factory(cfg map[string]any, conns map[string]component.Connector) (component.Auxiliary, error) {
	conn, ok := conns[RoleChannel]
	if !ok {
		return nil, ErrMissingConnector
	}

	path, _ := cfg["database_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("recorder: config key %q is required", "database_path")
	}

	opts := Options{DatabasePath: path}
	if label, ok := cfg["channel_label"].(string); ok {
		opts.ChannelLabel = label
	}
	switch v := cfg["poll_interval_ms"].(type) {
	case int:
		opts.PollInterval = time.Duration(v) * time.Millisecond
	case float64:
		opts.PollInterval = time.Duration(v) * time.Millisecond
	}

	return New(conn, opts), nil
}

// SetLogger sets the logger for the recorder.
func (a *Auxiliary) SetLogger(logger Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = logger
}

// Start opens the database, runs migrations, and begins draining the
// bound connector.
func (a *Auxiliary) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}

	db, err := database.Open(database.Config{
		Path:        a.opts.DatabasePath,
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		return fmt.Errorf("recorder: opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("recorder: running migrations: %w", err)
	}

	a.db = db
	a.repo = NewSQLiteRepository(db.DB)
	a.done = make(chan struct{})
	a.started = true

	a.wg.Add(1)
	go a.drain()

	return nil
}

// Stop halts the drain goroutine and closes the database. The bound
// connector stays open; the binder owns it.
func (a *Auxiliary) Stop() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = false
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.db.Close()
	a.db = nil
	a.repo = nil
	return err
}

// Repo returns the repository for querying recorded frames. Nil before
// Start and after Stop.
func (a *Auxiliary) Repo() Repository {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repo
}

// drain polls the bound connector and persists everything it yields.
func (a *Auxiliary) drain() {
	defer a.wg.Done()

	for {
		select {
		case <-a.done:
			return
		default:
		}

		f, err := a.conn.Receive(a.opts.PollInterval)
		if err != nil {
			a.logger.Warn("recorder receive failed", "error", err)
			continue
		}
		if f == nil {
			continue
		}

		rec := &FrameRecord{
			Channel:  a.opts.ChannelLabel,
			RemoteID: f.RemoteID,
			Payload:  f.Payload,
		}
		if err := a.repo.Create(context.Background(), rec); err != nil {
			a.logger.Error("recorder persist failed", "error", err)
		}
	}
}
