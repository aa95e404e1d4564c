package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
	"github.com/nerrad567/testrig-core/internal/fifo"
)

// Logger defines the logging interface used by proxy channels and owners.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TxCallback receives a channel's outbound frames. At most one callback is
// attached at a time; the owner attaches its forwarding callback when the
// channel is attached to it.
type TxCallback func(ch *Channel, f *component.Frame)

// Channel is the thread-shared proxy channel: a virtual connector that
// behaves as though its consumer owned the physical channel.
//
// Inbound frames are buffered in an unbounded FIFO filled by the owner's
// broadcast. Outbound frames go to the single attached transmit callback,
// invoked synchronously by Send. The callback slot has single-owner
// semantics: attaching while one is attached replaces it with a notice,
// never leaving two live.
//
// All public methods are thread-safe. The callback mutex serializes
// attach/detach but never holds up Send or Receive beyond its critical
// section.
type Channel struct {
	name   string
	logger Logger

	mu   sync.Mutex
	open bool
	in   *fifo.Queue

	cbMu sync.Mutex
	cb   TxCallback
}

// NewChannel creates a closed channel with the given name. The name only
// identifies the channel in logs and owner warnings.
func NewChannel(name string) *Channel {
	return &Channel{
		name:   name,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the channel.
func (c *Channel) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Open readies the channel with a fresh, empty inbound FIFO.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return ErrAlreadyOpen
	}
	c.open = true
	c.in = fifo.New()
	return nil
}

// Close releases the channel. The inbound FIFO is discarded: buffered,
// undelivered frames are lost so a later Open never delivers stale frames.
// Closing a closed channel is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = false
	c.in = nil
	return nil
}

// IsOpen reports whether the channel is open.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// AttachTxCallback installs the transmit callback. An already-attached
// callback is replaced, with a notice logged - the previous owner loses the
// slot rather than both staying live.
func (c *Channel) AttachTxCallback(cb TxCallback) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()

	if c.cb != nil {
		c.logger.Info("replacing attached tx callback", "channel", c.name)
	}
	c.cb = cb
}

// DetachTxCallback removes the transmit callback. Detaching with nothing
// attached logs a warning and is a no-op.
func (c *Channel) DetachTxCallback() {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()

	if c.cb == nil {
		c.logger.Warn("detach with no tx callback attached", "channel", c.name)
		return
	}
	c.cb = nil
}

// Send hands a frame to the attached transmit callback, synchronously.
// With no callback attached the frame is silently dropped: the consumer
// behaves as though it owned the physical channel, and an unowned channel
// simply goes nowhere.
func (c *Channel) Send(f *component.Frame) error {
	c.cbMu.Lock()
	cb := c.cb
	c.cbMu.Unlock()

	if cb == nil {
		return nil
	}
	cb(c, f)
	return nil
}

// Receive returns the oldest inbound frame, waiting up to timeout.
// It returns (nil, nil) when nothing arrived in time or the channel is
// closed - emptiness is a sentinel, not an error.
func (c *Channel) Receive(timeout time.Duration) (*component.Frame, error) {
	c.mu.Lock()
	in := c.in
	c.mu.Unlock()

	if in == nil {
		return nil, nil
	}
	return in.Pop(timeout), nil
}

// deliver is the owner-side inbound path: it buffers a frame for this
// channel's consumer. Delivery to a closed channel is an error the owner
// logs and skips.
func (c *Channel) deliver(f *component.Frame) error {
	c.mu.Lock()
	in := c.in
	open := c.open
	c.mu.Unlock()

	if !open || in == nil {
		return ErrChannelClosed
	}
	in.Push(f)
	return nil
}
