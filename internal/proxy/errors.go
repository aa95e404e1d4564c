package proxy

import "errors"

// Domain errors for the proxy package.
var (
	// ErrChannelClosed is returned when delivering into a channel that
	// is not open.
	ErrChannelClosed = errors.New("proxy: channel closed")

	// ErrAlreadyOpen is returned when opening a channel that is open.
	ErrAlreadyOpen = errors.New("proxy: channel already open")

	// ErrOwnerRunning is returned when starting an owner whose loop is
	// already running.
	ErrOwnerRunning = errors.New("proxy: owner already running")

	// ErrAlreadyAttached is returned when attaching a channel that is
	// already attached to the owner.
	ErrAlreadyAttached = errors.New("proxy: channel already attached")
)
