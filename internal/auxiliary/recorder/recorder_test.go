package recorder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
	"github.com/nerrad567/testrig-core/internal/connectors/loopback"

	// Embedded schema migrations, required before Start can open a
	// database.
	_ "github.com/nerrad567/testrig-core/migrations"
)

func startedRecorder(t *testing.T) (*Auxiliary, *loopback.Connector) {
	t.Helper()

	conn := loopback.New()
	if err := conn.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	aux := New(conn, Options{
		DatabasePath: filepath.Join(t.TempDir(), "frames.db"),
		ChannelLabel: "rec1",
		PollInterval: 20 * time.Millisecond,
	})
	if err := aux.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		_ = aux.Stop()
	})
	return aux, conn
}

// waitForCount polls the repository until it holds at least n records.
func waitForCount(t *testing.T, aux *Auxiliary, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		count, err := aux.Repo().Count(context.Background(), "")
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("recorded %d frames, want %d", count, n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestStartStop(t *testing.T) {
	conn := loopback.New()
	_ = conn.Open(context.Background())
	defer conn.Close() //nolint:errcheck

	aux := New(conn, Options{DatabasePath: filepath.Join(t.TempDir(), "frames.db")})
	if err := aux.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if aux.Repo() == nil {
		t.Error("Repo() = nil after Start")
	}

	// Start is idempotent while running.
	if err := aux.Start(context.Background()); err != nil {
		t.Errorf("second Start() error = %v", err)
	}

	if err := aux.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if aux.Repo() != nil {
		t.Error("Repo() != nil after Stop")
	}
	if err := aux.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestStartBadDatabasePath(t *testing.T) {
	conn := loopback.New()
	_ = conn.Open(context.Background())
	defer conn.Close() //nolint:errcheck

	// A regular file where the parent directory should be makes the
	// path unusable regardless of permissions.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte{}, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	aux := New(conn, Options{DatabasePath: filepath.Join(blocker, "frames.db")})
	if err := aux.Start(context.Background()); err == nil {
		_ = aux.Stop()
		t.Fatal("Start() expected error for unwritable database path")
	}
}

// =============================================================================
// Recording Tests
// =============================================================================

func TestRecordsObservedFrames(t *testing.T) {
	aux, conn := startedRecorder(t)

	conn.Inject(&component.Frame{
		Payload:  []byte{0x01, 0x02},
		RemoteID: component.RemoteIDPtr(0x500),
	})
	conn.Inject(&component.Frame{Payload: []byte{0x03}})

	waitForCount(t, aux, 2)

	records, err := aux.Repo().List(context.Background(), Filter{Channel: "rec1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}

	first := records[0]
	if !bytes.Equal(first.Payload, []byte{0x01, 0x02}) {
		t.Errorf("first record payload = %x, want 0102", first.Payload)
	}
	if first.RemoteID == nil || *first.RemoteID != 0x500 {
		t.Errorf("first record remote id = %v, want 0x500", first.RemoteID)
	}
	if first.Channel != "rec1" {
		t.Errorf("first record channel = %q, want rec1", first.Channel)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Error("record missing generated id or timestamp")
	}

	if records[1].RemoteID != nil {
		t.Errorf("second record remote id = %v, want nil", *records[1].RemoteID)
	}
}

func TestListFilterByChannel(t *testing.T) {
	aux, conn := startedRecorder(t)

	conn.Inject(&component.Frame{Payload: []byte{0x01}})
	waitForCount(t, aux, 1)

	records, err := aux.Repo().List(context.Background(), Filter{Channel: "other"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("List(other) returned %d records, want 0", len(records))
	}

	count, err := aux.Repo().Count(context.Background(), "rec1")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count(rec1) = %d, want 1", count)
	}
}

// =============================================================================
// Factory Tests
// =============================================================================

func TestFactory(t *testing.T) {
	conns := map[string]component.Connector{RoleChannel: loopback.New()}

	aux, err := Factory(map[string]any{
		"database_path":    filepath.Join(t.TempDir(), "frames.db"),
		"channel_label":    "dut",
		"poll_interval_ms": 50,
	}, conns)
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}

	rec, ok := aux.(*Auxiliary)
	if !ok {
		t.Fatalf("Factory() returned %T, want *Auxiliary", aux)
	}
	if rec.opts.ChannelLabel != "dut" {
		t.Errorf("channel label = %q, want dut", rec.opts.ChannelLabel)
	}
	if rec.opts.PollInterval != 50*time.Millisecond {
		t.Errorf("poll interval = %v, want 50ms", rec.opts.PollInterval)
	}
}

func TestFactoryValidation(t *testing.T) {
	conns := map[string]component.Connector{RoleChannel: loopback.New()}

	if _, err := Factory(map[string]any{}, conns); err == nil {
		t.Error("Factory() expected error for missing database_path")
	}

	_, err := Factory(map[string]any{"database_path": "x.db"}, map[string]component.Connector{})
	if !errors.Is(err, ErrMissingConnector) {
		t.Errorf("Factory() error = %v, want ErrMissingConnector", err)
	}
}
