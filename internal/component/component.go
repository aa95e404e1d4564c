package component

import (
	"context"
	"time"
)

// Connector wraps a physical or virtual communication channel.
//
// Implementations must be safe for one producer and one consumer operating
// concurrently. Receive blocks for at most the given timeout and returns
// (nil, nil) when no frame arrived in time - an empty channel is not an
// error condition.
type Connector interface {
	// Open prepares the channel for use. Opening an already-open
	// connector is an error.
	Open(ctx context.Context) error

	// Close releases the channel. Closing an already-closed connector
	// is a no-op.
	Close() error

	// Send transmits a frame. It never blocks beyond the cost of the
	// underlying enqueue or write.
	Send(f *Frame) error

	// Receive returns the oldest pending frame, waiting up to timeout.
	// A nil frame with a nil error means nothing arrived in time.
	Receive(timeout time.Duration) (*Frame, error)
}

// Auxiliary is a test-facing component bound to one or more connectors.
// Auxiliaries hold non-owning references to their connectors; the binder
// owns connector lifecycle and may share one connector instance across
// several auxiliaries.
type Auxiliary interface {
	// Start brings the auxiliary into service. The bound connectors are
	// already open when Start is called.
	Start(ctx context.Context) error

	// Stop takes the auxiliary out of service. Stop must not close the
	// bound connectors.
	Stop() error
}

// Kind discriminates the two component categories a Spec can describe.
type Kind string

const (
	KindConnector Kind = "connector"
	KindAuxiliary Kind = "auxiliary"
)

// Spec describes one configured component entry.
type Spec struct {
	// Name is the unique entry name components are resolved by.
	Name string

	// Kind says whether this entry is a connector or an auxiliary.
	Kind Kind

	// Type is the locator string, "<module/path>:<TypeName>".
	Type string

	// Config holds static constructor arguments, passed verbatim to the
	// factory.
	Config map[string]any

	// Connectors maps a logical role name to a connector entry name.
	// Only meaningful for auxiliaries.
	Connectors map[string]string
}
