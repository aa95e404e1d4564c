// Package com provides the basic communication auxiliary: test-facing
// send/receive over one bound connector.
//
// The auxiliary does not interpret payloads and adds no protocol policy.
// It exists so test code talks to a named, configured component instead of
// a raw connector, and so several auxiliaries can demonstrably share one
// connector instance.
package com

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/testrig-core/internal/component"
)

// RoleCom is the connector role name the auxiliary binds.
const RoleCom = "com"

// Domain errors for the com package.
var (
	// ErrMissingConnector is returned when the "com" role is not bound.
	ErrMissingConnector = errors.New("com: connector role not bound")

	// ErrNotStarted is returned when using an auxiliary before Start.
	ErrNotStarted = errors.New("com: auxiliary not started")
)

// Auxiliary exposes control/send/receive operations over its bound
// connector. The connector reference is non-owning: the binder may hand
// the same connector instance to any number of auxiliaries.
//
// All public methods are thread-safe.
type Auxiliary struct {
	conn component.Connector

	mu      sync.Mutex
	started bool
}

// New creates an auxiliary over the given connector.
func New(conn component.Connector) *Auxiliary {
	return &Auxiliary{conn: conn}
}

// Factory constructs a com auxiliary from its bound connectors.
// The "com" role is required; config carries no keys today.
func Factory(_ map[string]any, conns map[string]component.Connector) (component.Auxiliary, error) {
	conn, ok := conns[RoleCom]
	if !ok {
		return nil, ErrMissingConnector
	}
	return New(conn), nil
}

// Start brings the auxiliary into service. The bound connector is already
// open when the binder calls this.
func (a *Auxiliary) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = true
	return nil
}

// Stop takes the auxiliary out of service without closing the bound
// connector, which the binder owns.
func (a *Auxiliary) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = false
	return nil
}

// SendMessage transmits a payload, optionally routed to a remote
// identifier (pass nil for none).
func (a *Auxiliary) SendMessage(payload []byte, remoteID *uint32) error {
	if !a.isStarted() {
		return ErrNotStarted
	}
	return a.conn.Send(&component.Frame{Payload: payload, RemoteID: remoteID, Raw: true})
}

// ReceiveMessage returns the oldest pending frame, waiting up to timeout.
// It returns (nil, nil) when nothing arrived in time.
func (a *Auxiliary) ReceiveMessage(timeout time.Duration) (*component.Frame, error) {
	if !a.isStarted() {
		return nil, ErrNotStarted
	}
	return a.conn.Receive(timeout)
}

// Connector returns the bound connector instance. Two auxiliaries
// configured against the same connector entry return the identical
// instance here.
func (a *Auxiliary) Connector() component.Connector {
	return a.conn
}

func (a *Auxiliary) isStarted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}
