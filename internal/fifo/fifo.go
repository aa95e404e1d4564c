// Package fifo provides an unbounded, thread-safe frame queue with a
// timeout-bounded pop. It is the inbound buffer used by proxy channels,
// queue hosts, and in-memory connectors.
package fifo

import (
	"sync"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
)

// Queue is an unbounded FIFO of frames.
//
// Push never blocks. Pop waits up to a timeout for a frame and returns nil
// when nothing arrived in time - the empty queue is not an error condition.
// Queue is safe for any number of concurrent producers and consumers;
// per-producer insertion order is preserved.
type Queue struct {
	mu    sync.Mutex
	items []*component.Frame

	// ready carries a wake-up hint to a blocked Pop. Capacity 1: a
	// pending hint is enough, Pop re-checks the buffer in a loop.
	ready chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

// Push appends a frame to the queue.
func (q *Queue) Push(f *component.Frame) {
	q.mu.Lock()
	q.items = append(q.items, f)
	q.mu.Unlock()
	q.signal()
}

// Pop removes and returns the oldest frame, waiting up to timeout.
// It returns nil if no frame arrived in time. A non-positive timeout polls
// without waiting.
func (q *Queue) Pop(timeout time.Duration) *component.Frame {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			f := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// Wake the next waiter; our hint may have been
				// the only one pending.
				q.signal()
			}
			return f
		}
		q.mu.Unlock()

		if deadline == nil {
			return nil
		}
		select {
		case <-q.ready:
		case <-deadline:
			return nil
		}
	}
}

// Len returns the number of buffered frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// signal leaves a wake-up hint for one blocked Pop without ever blocking
// the producer.
func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
