package locator

import "errors"

// Domain errors for the locator package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, locator.ErrModuleNotFound) {
//	    // handle unresolvable module path
//	}
var (
	// ErrInvalidLocator is returned when a locator string is malformed.
	ErrInvalidLocator = errors.New("locator: invalid locator string")

	// ErrModuleNotFound is returned when a locator's module path is not
	// registered.
	ErrModuleNotFound = errors.New("locator: module not found")

	// ErrTypeNotFound is returned when the module path is registered but
	// the type name is not.
	ErrTypeNotFound = errors.New("locator: type not found")
)
