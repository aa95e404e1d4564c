package proxy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
)

// Owner loop timing constants.
const (
	// defaultRecvTimeout bounds each wait on the physical connector so
	// the broadcast loop can notice shutdown.
	defaultRecvTimeout = 100 * time.Millisecond

	// outboundIdleDelay is the pause between outbound poll sweeps when
	// no multiprocess channel had a pending request.
	outboundIdleDelay = 10 * time.Millisecond
)

// endpoint is the owner's view of an attached channel: a name for
// warnings and an inbound delivery function.
type endpoint interface {
	Name() string
	deliver(f *component.Frame) error
}

// attachment pairs an endpoint with its variant-specific wiring.
type attachment struct {
	ep endpoint

	// thread is set for a thread channel so Detach can remove the
	// owner's tx callback.
	thread *Channel

	// mp is set for a multiprocess channel the owner must poll.
	mp *MpChannel
}

// Owner bridges exactly one physical connector to zero or more attached
// proxy channels, thread and multiprocess variants mixed freely.
//
// Inbound, a dedicated goroutine receives from the physical connector and
// broadcasts a copy of each frame into every attached channel - FIFO per
// channel, no ordering across channels. A channel that fails mid-broadcast
// is skipped with a warning, never fatal to the rest.
//
// Outbound, thread channels forward synchronously through the tx callback
// the owner attaches; multiprocess channels are polled by a second
// goroutine. Frames reach the physical connector without batching or
// reordering.
//
// Attach and detach are safe at any time, including during an active
// broadcast. Suspend stops broadcasting without closing the physical
// connector; Resume restarts it.
type Owner struct {
	conn        component.Connector
	recvTimeout time.Duration
	logger      Logger

	mu       sync.RWMutex
	attached map[string]*attachment

	// sess is the current Start-to-Stop run, nil when stopped.
	sess *session

	suspended atomic.Bool

	// Counters for telemetry, updated atomically.
	rxFrames atomic.Uint64
	txFrames atomic.Uint64
	rxBytes  atomic.Uint64
	txBytes  atomic.Uint64
}

// session bundles the shutdown state of one Start-to-Stop run. Stop
// operates on the session it captured, so a stale Stop that loses a
// race against Stop-then-Start cannot close the new run's channel.
type session struct {
	done chan struct{}
	stop sync.Once
	wg   sync.WaitGroup
}

// Stats is a snapshot of the owner's traffic counters.
type Stats struct {
	RxFrames uint64
	TxFrames uint64
	RxBytes  uint64
	TxBytes  uint64
	Attached int
}

// NewOwner creates an owner for the given physical connector. The
// connector must already be open; the owner does not manage its lifecycle.
func NewOwner(conn component.Connector) *Owner {
	return &Owner{
		conn:        conn,
		recvTimeout: defaultRecvTimeout,
		logger:      noopLogger{},
		attached:    make(map[string]*attachment),
	}
}

// SetLogger sets the logger for the owner.
func (o *Owner) SetLogger(logger Logger) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logger = logger
}

// Attach wires a thread channel to the owner: inbound broadcast delivery
// plus the owner's forwarding tx callback. Channel names must be unique
// per owner.
func (o *Owner) Attach(ch *Channel) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.attached[ch.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyAttached, ch.Name())
	}
	o.attached[ch.Name()] = &attachment{ep: ch, thread: ch}
	ch.AttachTxCallback(o.forward)
	o.logger.Debug("channel attached", "channel", ch.Name(), "variant", "thread")
	return nil
}

// AttachMp wires a multiprocess channel to the owner: inbound broadcast
// delivery into its inbound queue plus outbound queue polling.
func (o *Owner) AttachMp(ch *MpChannel) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.attached[ch.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyAttached, ch.Name())
	}
	o.attached[ch.Name()] = &attachment{ep: ch, mp: ch}
	o.logger.Debug("channel attached", "channel", ch.Name(), "variant", "multiprocess")
	return nil
}

// Detach removes an attached channel by name. Unknown names are a logged
// no-op, matching the tolerance required of detach during teardown races.
func (o *Owner) Detach(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	att, ok := o.attached[name]
	if !ok {
		o.logger.Warn("detach of unattached channel", "channel", name)
		return
	}
	delete(o.attached, name)
	if att.thread != nil {
		att.thread.DetachTxCallback()
	}
	o.logger.Debug("channel detached", "channel", name)
}

// Start launches the receive-and-broadcast and outbound-poll goroutines.
func (o *Owner) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess != nil {
		return ErrOwnerRunning
	}
	s := &session{done: make(chan struct{})}
	o.sess = s

	s.wg.Add(2)
	go o.broadcastLoop(s)
	go o.outboundLoop(s)

	o.logger.Info("proxy owner started")
	return nil
}

// Stop halts both loops and waits for them. The physical connector stays
// open; closing it is the caller's responsibility. Concurrent Stops all
// wind down the session they observed, so one that resumes after a
// restart is a no-op for the new session.
func (o *Owner) Stop() {
	o.mu.Lock()
	s := o.sess
	o.mu.Unlock()
	if s == nil {
		return
	}

	s.stop.Do(func() {
		close(s.done)
	})
	s.wg.Wait()

	o.mu.Lock()
	if o.sess == s {
		o.sess = nil
	}
	o.mu.Unlock()

	o.logger.Info("proxy owner stopped")
}

// Suspend stops broadcasting without closing the physical connector.
// Frames received while suspended are dropped.
func (o *Owner) Suspend() {
	o.suspended.Store(true)
	o.logger.Info("proxy owner suspended")
}

// Resume restarts broadcasting after a Suspend.
func (o *Owner) Resume() {
	o.suspended.Store(false)
	o.logger.Info("proxy owner resumed")
}

// IsSuspended reports whether broadcasting is suspended.
func (o *Owner) IsSuspended() bool {
	return o.suspended.Load()
}

// Stats returns a snapshot of the owner's traffic counters.
func (o *Owner) Stats() Stats {
	o.mu.RLock()
	attached := len(o.attached)
	o.mu.RUnlock()

	return Stats{
		RxFrames: o.rxFrames.Load(),
		TxFrames: o.txFrames.Load(),
		RxBytes:  o.rxBytes.Load(),
		TxBytes:  o.txBytes.Load(),
		Attached: attached,
	}
}

// forward is the tx callback attached to every thread channel: it pushes
// the channel's outbound frame straight to the physical connector.
func (o *Owner) forward(ch *Channel, f *component.Frame) {
	if err := o.conn.Send(f); err != nil {
		o.logger.Warn("forward to physical connector failed", "channel", ch.Name(), "error", err)
		return
	}
	o.txFrames.Add(1)
	o.txBytes.Add(uint64(len(f.Payload)))
}

// broadcastLoop receives from the physical connector and fans each frame
// out to every attached channel.
func (o *Owner) broadcastLoop(s *session) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		f, err := o.conn.Receive(o.recvTimeout)
		if err != nil {
			o.logger.Warn("physical connector receive failed", "error", err)
			continue
		}
		if f == nil {
			continue
		}

		o.rxFrames.Add(1)
		o.rxBytes.Add(uint64(len(f.Payload)))

		if o.suspended.Load() {
			continue
		}
		o.broadcast(f)
	}
}

// broadcast copies a frame into every attached channel's inbound side.
// A failing channel is skipped with a warning; the rest still get the
// frame.
func (o *Owner) broadcast(f *component.Frame) {
	o.mu.RLock()
	targets := make([]*attachment, 0, len(o.attached))
	for _, att := range o.attached {
		targets = append(targets, att)
	}
	o.mu.RUnlock()

	for _, att := range targets {
		if err := att.ep.deliver(f.Clone()); err != nil {
			o.logger.Warn("broadcast delivery failed, skipping channel",
				"channel", att.ep.Name(), "error", err)
		}
	}
}

// outboundLoop polls every attached multiprocess channel's outbound queue
// and forwards pending requests to the physical connector.
func (o *Owner) outboundLoop(s *session) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if !o.sweepOutbound() {
			select {
			case <-s.done:
				return
			case <-time.After(outboundIdleDelay):
			}
		}
	}
}

// sweepOutbound drains at most one pending request per multiprocess
// channel, preserving each channel's own ordering. It reports whether any
// frame was forwarded.
func (o *Owner) sweepOutbound() bool {
	o.mu.RLock()
	mps := make([]*MpChannel, 0, len(o.attached))
	for _, att := range o.attached {
		if att.mp != nil {
			mps = append(mps, att.mp)
		}
	}
	o.mu.RUnlock()

	forwarded := false
	for _, ch := range mps {
		f, err := ch.pollOutbound()
		if err != nil {
			o.logger.Warn("outbound poll failed", "channel", ch.Name(), "error", err)
			continue
		}
		if f == nil {
			continue
		}
		if err := o.conn.Send(f); err != nil {
			o.logger.Warn("forward to physical connector failed", "channel", ch.Name(), "error", err)
			continue
		}
		o.txFrames.Add(1)
		o.txBytes.Add(uint64(len(f.Payload)))
		forwarded = true
	}
	return forwarded
}
