package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nerrad567/testrig-core/internal/component"
	"github.com/nerrad567/testrig-core/internal/mpqueue"
)

// MpChannel is the multiprocess proxy channel: the same contract as
// Channel, generalized across a process boundary.
//
// Two unbounded process-safe queues replace the callback-plus-FIFO design:
// outbound carries the channel's requests to the owner, which polls it;
// inbound carries the owner's broadcast toward the channel's consumer.
//
// Queue identity is the channel's identity. Open and Close only toggle the
// open flag - they never reallocate the queues, because the peer process's
// handles would become invalid. Serializing the channel (to hand it to a
// worker process) transfers both queue handles verbatim; deserializing
// restores handles onto the same queues, never new ones. Both queues are
// allocated at construction, before any peer process is spawned.
//
// All public methods are thread-safe.
type MpChannel struct {
	name   string
	logger Logger

	// outbound: channel -> owner. inbound: owner -> channel.
	outbound *mpqueue.Queue
	inbound  *mpqueue.Queue

	mu   sync.Mutex
	open bool
}

// mpChannelWire is the serialized attribute set of an MpChannel.
type mpChannelWire struct {
	Name     string `msgpack:"name"`
	Outbound []byte `msgpack:"outbound"`
	Inbound  []byte `msgpack:"inbound"`
}

// NewMpChannel creates a closed multiprocess channel, hosting both queues
// under dir (empty dir uses the system temp directory).
func NewMpChannel(name, dir string) (*MpChannel, error) {
	outbound, err := mpqueue.New(dir)
	if err != nil {
		return nil, fmt.Errorf("creating outbound queue: %w", err)
	}
	inbound, err := mpqueue.New(dir)
	if err != nil {
		_ = outbound.Close()
		return nil, fmt.Errorf("creating inbound queue: %w", err)
	}

	return &MpChannel{
		name:     name,
		logger:   noopLogger{},
		outbound: outbound,
		inbound:  inbound,
	}, nil
}

// SetLogger sets the logger for the channel.
func (c *MpChannel) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// Name returns the channel name.
func (c *MpChannel) Name() string {
	return c.name
}

// Open readies the channel. The queues are untouched: frames buffered
// while closed stay queued and are delivered after reopening.
func (c *MpChannel) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return ErrAlreadyOpen
	}
	c.open = true
	return nil
}

// Close releases the channel without touching the queues, preserving their
// identity for the peer process. Closing a closed channel is a no-op.
func (c *MpChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = false
	return nil
}

// IsOpen reports whether the channel is open.
func (c *MpChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Send enqueues a frame onto the outbound queue for the owner to poll.
func (c *MpChannel) Send(f *component.Frame) error {
	return c.outbound.Put(f)
}

// Receive dequeues the oldest inbound frame, waiting up to timeout.
//
// raw selects whether routing metadata is included: a non-raw receive
// strips the remote identifier, a raw receive returns the envelope as the
// owner delivered it. Timeout or an empty queue yields (nil, nil) with no
// routing metadata set.
func (c *MpChannel) Receive(timeout time.Duration, raw bool) (*component.Frame, error) {
	f, err := c.inbound.Get(timeout)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	if !raw {
		f = &component.Frame{Payload: f.Payload}
	}
	return f, nil
}

// Outbound returns the channel-to-owner queue.
func (c *MpChannel) Outbound() *mpqueue.Queue {
	return c.outbound
}

// Inbound returns the owner-to-channel queue.
func (c *MpChannel) Inbound() *mpqueue.Queue {
	return c.inbound
}

// MarshalBinary serializes the channel's full attribute set, including
// both queue handles verbatim.
func (c *MpChannel) MarshalBinary() ([]byte, error) {
	out, err := c.outbound.MarshalBinary()
	if err != nil {
		return nil, err
	}
	in, err := c.inbound.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&mpChannelWire{
		Name:     c.name,
		Outbound: out,
		Inbound:  in,
	})
}

// UnmarshalBinary restores a channel whose queue handles reference the
// same queues as the originating process - both sides observe one logical
// queue pair.
func (c *MpChannel) UnmarshalBinary(data []byte) error {
	var wire mpChannelWire
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decoding mp channel: %w", err)
	}

	c.name = wire.Name
	c.logger = noopLogger{}
	c.open = false

	c.outbound = &mpqueue.Queue{}
	if err := c.outbound.UnmarshalBinary(wire.Outbound); err != nil {
		return fmt.Errorf("restoring outbound queue: %w", err)
	}
	c.inbound = &mpqueue.Queue{}
	if err := c.inbound.UnmarshalBinary(wire.Inbound); err != nil {
		return fmt.Errorf("restoring inbound queue: %w", err)
	}
	return nil
}

// deliver is the owner-side inbound path: it enqueues a frame toward the
// channel's consumer, which may live in another process.
func (c *MpChannel) deliver(f *component.Frame) error {
	return c.inbound.Put(f)
}

// pollOutbound is the owner-side outbound path: it drains one pending
// request if any, without waiting.
func (c *MpChannel) pollOutbound() (*component.Frame, error) {
	return c.outbound.Get(0)
}
