// Package tcpraw provides a connector carrying frames over a raw TCP
// stream, for device gateways and daemons that speak a simple
// length-prefixed framing (debug bridges, instrument gateways, socket
// servers fronting a field bus).
//
// Wire format per frame: a 4-byte big-endian payload length, a 1-byte
// flags field (bit 0: remote id present), an optional 4-byte big-endian
// remote id, then the payload. Payload semantics are the consumer's
// business; this connector moves bytes.
package tcpraw

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
)

// Connection constants.
const (
	// connectTimeout bounds the initial dial.
	connectTimeout = 10 * time.Second

	// writeTimeout bounds a single frame write.
	writeTimeout = 5 * time.Second

	// maxFrameSize rejects corrupt length prefixes before allocating.
	maxFrameSize = 1 << 20 // 1MB

	// flagRemoteID marks a frame carrying a remote identifier.
	flagRemoteID = 0x01

	// headerSize is length prefix plus flags.
	headerSize = 5
)

// Domain errors for the tcpraw package.
var (
	// ErrNotOpen is returned when sending or receiving on a connector
	// that has not been opened.
	ErrNotOpen = errors.New("tcpraw: connector not open")

	// ErrFrameTooLarge is returned when a frame exceeds maxFrameSize in
	// either direction.
	ErrFrameTooLarge = errors.New("tcpraw: frame exceeds size limit")
)

// Connector carries frames over one TCP connection.
//
// Send and Receive are safe for one producer and one consumer operating
// concurrently; the read and write paths lock independently so a blocked
// Receive never delays a Send.
type Connector struct {
	addr string

	mu   sync.Mutex
	conn net.Conn

	readMu  sync.Mutex
	writeMu sync.Mutex
}

// New creates a connector that will dial addr ("host:port") on Open.
func New(addr string) *Connector {
	return &Connector{addr: addr}
}

// Factory constructs a TCP connector from its config map.
// Required key: "address" (string, "host:port").
func Factory(config map[string]any) (component.Connector, error) {
	addr, ok := config["address"].(string)
	if !ok || addr == "" {
		return nil, fmt.Errorf("tcpraw: config key %q is required", "address")
	}
	return New(addr), nil
}

// Open dials the configured address.
func (c *Connector) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("tcpraw: already connected to %s", c.addr)
	}

	dialer := net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("tcpraw: connecting to %s: %w", c.addr, err)
	}
	c.conn = conn
	return nil
}

// Close closes the connection. Closing a closed connector is a no-op.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Send writes one frame to the stream.
func (c *Connector) Send(f *component.Frame) error {
	conn := c.current()
	if conn == nil {
		return ErrNotOpen
	}
	if len(f.Payload) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(f.Payload))
	}

	// One header+payload buffer per frame keeps the write atomic from
	// the peer's perspective under concurrent senders.
	buf := make([]byte, 0, headerSize+4+len(f.Payload))
	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(f.Payload)))
	if f.RemoteID != nil {
		header[4] = flagRemoteID
	}
	buf = append(buf, header[:]...)
	if f.RemoteID != nil {
		var id [4]byte
		binary.BigEndian.PutUint32(id[:], *f.RemoteID)
		buf = append(buf, id[:]...)
	}
	buf = append(buf, f.Payload...)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("tcpraw: setting write deadline: %w", err)
	}
	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("tcpraw: writing frame: %w", err)
	}
	return nil
}

// Receive reads one frame from the stream, waiting up to timeout.
// A timeout yields (nil, nil).
func (c *Connector) Receive(timeout time.Duration) (*component.Frame, error) {
	conn := c.current()
	if conn == nil {
		return nil, ErrNotOpen
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("tcpraw: setting read deadline: %w", err)
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		if isTimeout(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tcpraw: reading frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:4])
	if size > maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	f := &component.Frame{}
	if header[4]&flagRemoteID != 0 {
		var id [4]byte
		if _, err := io.ReadFull(conn, id[:]); err != nil {
			return nil, fmt.Errorf("tcpraw: reading remote id: %w", err)
		}
		f.RemoteID = component.RemoteIDPtr(binary.BigEndian.Uint32(id[:]))
	}

	f.Payload = make([]byte, size)
	if _, err := io.ReadFull(conn, f.Payload); err != nil {
		return nil, fmt.Errorf("tcpraw: reading frame payload: %w", err)
	}
	return f, nil
}

// current returns the live connection, or nil when closed.
func (c *Connector) current() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// isTimeout reports whether an error is a read deadline expiry.
func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
