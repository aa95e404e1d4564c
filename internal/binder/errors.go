package binder

import "errors"

// Domain errors for the binder package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, binder.ErrEntryNotFound) {
//	    // handle unconfigured name
//	}
var (
	// ErrNotInstalled is returned when resolving through a binder or
	// namespace handle that is not (or no longer) installed.
	ErrNotInstalled = errors.New("binder: not installed")

	// ErrAlreadyInstalled is returned when Install is called on a binder
	// that is already installed. Re-entering the installing state is a
	// programmer error.
	ErrAlreadyInstalled = errors.New("binder: already installed")

	// ErrBinderActive is returned when Install is called while a
	// different binder is installed in this process.
	ErrBinderActive = errors.New("binder: another binder is installed in this process")

	// ErrEntryNotFound is returned when a name has no configured entry.
	ErrEntryNotFound = errors.New("binder: entry not found")

	// ErrDuplicateEntry is returned at install time when two entries
	// share a name.
	ErrDuplicateEntry = errors.New("binder: duplicate entry name")

	// ErrLinkFailure is returned at install time when an auxiliary
	// references a connector entry that does not exist.
	ErrLinkFailure = errors.New("binder: auxiliary references unknown connector")

	// ErrWrongKind is returned when a name resolves to a component of a
	// different kind than requested.
	ErrWrongKind = errors.New("binder: entry has different component kind")
)
