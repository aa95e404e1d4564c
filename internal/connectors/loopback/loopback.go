// Package loopback provides an in-memory connector for rigs and tests
// that need a channel without hardware behind it.
//
// A standalone loopback echoes: frames sent reappear on its own receive
// side. NewPair cross-links two connectors instead, so frames sent on one
// end surface on the other - a virtual point-to-point link.
package loopback

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
	"github.com/nerrad567/testrig-core/internal/fifo"
)

// Connector is an in-memory component.Connector.
//
// All public methods are thread-safe.
type Connector struct {
	mu   sync.Mutex
	open bool
	in   *fifo.Queue

	// peer receives what this end sends. For an echo connector the peer
	// is the connector itself.
	peer *Connector
}

// New creates an echo loopback: its own sends come back on Receive.
func New() *Connector {
	c := &Connector{in: fifo.New()}
	c.peer = c
	return c
}

// NewPair creates two cross-linked connectors forming a virtual
// point-to-point link.
func NewPair() (*Connector, *Connector) {
	a := &Connector{in: fifo.New()}
	b := &Connector{in: fifo.New()}
	a.peer = b
	b.peer = a
	return a, b
}

// Factory constructs a loopback connector from config. It ignores the
// config map; a loopback has nothing to configure.
func Factory(_ map[string]any) (component.Connector, error) {
	return New(), nil
}

// Open marks the connector usable.
func (c *Connector) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	return nil
}

// Close drops buffered frames and marks the connector closed.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.in = fifo.New()
	return nil
}

// Send delivers a copy of the frame to the peer's inbound buffer.
// Sends on a closed connector are dropped.
func (c *Connector) Send(f *component.Frame) error {
	c.mu.Lock()
	open := c.open
	peer := c.peer
	c.mu.Unlock()

	if !open {
		return nil
	}
	peer.mu.Lock()
	in := peer.in
	peer.mu.Unlock()
	in.Push(f.Clone())
	return nil
}

// Receive returns the oldest inbound frame, waiting up to timeout.
func (c *Connector) Receive(timeout time.Duration) (*component.Frame, error) {
	c.mu.Lock()
	in := c.in
	c.mu.Unlock()
	return in.Pop(timeout), nil
}

// Inject places a frame directly on this connector's inbound side, as if
// the wire had produced it. Tests and simulated peers use this.
func (c *Connector) Inject(f *component.Frame) {
	c.mu.Lock()
	in := c.in
	c.mu.Unlock()
	in.Push(f)
}
