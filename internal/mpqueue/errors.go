package mpqueue

import "errors"

// Domain errors for the mpqueue package.
var (
	// ErrClosed is returned when operating on a closed queue handle.
	ErrClosed = errors.New("mpqueue: queue closed")

	// ErrDialFailed is returned when an attached handle cannot reach the
	// hosting process.
	ErrDialFailed = errors.New("mpqueue: cannot reach queue host")

	// ErrProtocol is returned on a malformed wire exchange.
	ErrProtocol = errors.New("mpqueue: protocol error")
)
