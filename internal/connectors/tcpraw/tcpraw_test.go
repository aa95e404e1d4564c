package tcpraw

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
)

// startEchoServer listens on a loopback port and echoes every accepted
// connection's bytes back at it.
func startEchoServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() {
		_ = ln.Close()
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				// Echoing raw bytes works because the wire format
				// is symmetric.
				defer conn.Close() //nolint:errcheck
				_, _ = io.Copy(conn, conn)
			}()
		}
	}()

	return ln.Addr().String()
}

func openConnector(t *testing.T, addr string) *Connector {
	t.Helper()
	c := New(addr)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestOpenClose(t *testing.T) {
	addr := startEchoServer(t)
	c := New(addr)

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := c.Open(context.Background()); err == nil {
		t.Error("second Open() expected error on connected connector")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestOpenUnreachable(t *testing.T) {
	c := New("127.0.0.1:1") // nothing listens here

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Open(ctx); err == nil {
		_ = c.Close()
		t.Fatal("Open() expected error for unreachable address")
	}
}

func TestSendReceiveNotOpen(t *testing.T) {
	c := New("127.0.0.1:1")

	if err := c.Send(&component.Frame{Payload: []byte{1}}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Send() error = %v, want ErrNotOpen", err)
	}
	if _, err := c.Receive(time.Millisecond); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Receive() error = %v, want ErrNotOpen", err)
	}
}

// =============================================================================
// Framing Tests
// =============================================================================

func TestRoundTrip(t *testing.T) {
	addr := startEchoServer(t)
	c := openConnector(t, addr)

	want := &component.Frame{Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	if err := c.Send(want); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got, err := c.Receive(2 * time.Second)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if got == nil {
		t.Fatal("Receive() = nil, want echoed frame")
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("Receive() payload = %x, want %x", got.Payload, want.Payload)
	}
	if got.RemoteID != nil {
		t.Errorf("Receive() remote id = %v, want nil for frame sent without one", *got.RemoteID)
	}
}

func TestRoundTripWithRemoteID(t *testing.T) {
	addr := startEchoServer(t)
	c := openConnector(t, addr)

	want := &component.Frame{
		Payload:  []byte{0x11, 0x22},
		RemoteID: component.RemoteIDPtr(0x1234),
	}
	if err := c.Send(want); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got, err := c.Receive(2 * time.Second)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if got == nil {
		t.Fatal("Receive() = nil, want echoed frame")
	}
	if got.RemoteID == nil || *got.RemoteID != 0x1234 {
		t.Errorf("Receive() remote id = %v, want 0x1234", got.RemoteID)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("Receive() payload = %x, want %x", got.Payload, want.Payload)
	}
}

func TestEmptyPayload(t *testing.T) {
	addr := startEchoServer(t)
	c := openConnector(t, addr)

	if err := c.Send(&component.Frame{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	got, err := c.Receive(2 * time.Second)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if got == nil {
		t.Fatal("Receive() = nil, want empty frame")
	}
	if len(got.Payload) != 0 {
		t.Errorf("Receive() payload = %x, want empty", got.Payload)
	}
}

func TestMultipleFramesPreserveOrder(t *testing.T) {
	addr := startEchoServer(t)
	c := openConnector(t, addr)

	for i := byte(0); i < 5; i++ {
		if err := c.Send(&component.Frame{Payload: []byte{i}}); err != nil {
			t.Fatalf("Send(%d) error = %v", i, err)
		}
	}
	for i := byte(0); i < 5; i++ {
		f, err := c.Receive(2 * time.Second)
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
		if f == nil || f.Payload[0] != i {
			t.Fatalf("Receive() = %+v at position %d, order not preserved", f, i)
		}
	}
}

func TestReceiveTimeout(t *testing.T) {
	addr := startEchoServer(t)
	c := openConnector(t, addr)

	start := time.Now()
	f, err := c.Receive(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Receive() error = %v, want nil on timeout", err)
	}
	if f != nil {
		t.Errorf("Receive() = %+v, want nil on timeout", f)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Receive() returned after %v, want at least the 50ms wait", elapsed)
	}
}

func TestSendOversizedFrame(t *testing.T) {
	addr := startEchoServer(t)
	c := openConnector(t, addr)

	err := c.Send(&component.Frame{Payload: make([]byte, maxFrameSize+1)})
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Send() error = %v, want ErrFrameTooLarge", err)
	}
}

// =============================================================================
// Factory Tests
// =============================================================================

func TestFactory(t *testing.T) {
	conn, err := Factory(map[string]any{"address": "127.0.0.1:6720"})
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}
	if conn == nil {
		t.Fatal("Factory() returned nil connector")
	}
}

func TestFactoryMissingAddress(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{name: "nil config", config: nil},
		{name: "empty address", config: map[string]any{"address": ""}},
		{name: "wrong type", config: map[string]any{"address": 6720}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Factory(tt.config); err == nil {
				t.Error("Factory() expected error for missing address")
			}
		})
	}
}
