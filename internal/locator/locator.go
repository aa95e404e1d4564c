package locator

import (
	"fmt"
	"strings"
)

// Locator identifies where to find and how to construct a named component
// type: a module path and a type name within that module.
type Locator struct {
	Module string
	Type   string
}

// Parse splits a "<module/path>:<TypeName>" locator string.
//
// Both sides are trimmed of surrounding whitespace, so "connectors/tcpraw :
// TCPRaw" parses the same as the compact form. Either side being empty is a
// malformed locator.
func Parse(s string) (Locator, error) {
	module, typeName, found := strings.Cut(s, ":")
	if !found {
		return Locator{}, fmt.Errorf("%w: %q (want \"module/path:TypeName\")", ErrInvalidLocator, s)
	}

	loc := Locator{
		Module: strings.TrimSpace(module),
		Type:   strings.TrimSpace(typeName),
	}
	if loc.Module == "" || loc.Type == "" {
		return Locator{}, fmt.Errorf("%w: %q (empty module or type)", ErrInvalidLocator, s)
	}
	if strings.Contains(loc.Type, ":") {
		return Locator{}, fmt.Errorf("%w: %q (multiple separators)", ErrInvalidLocator, s)
	}

	return loc, nil
}

// String returns the canonical "<module/path>:<TypeName>" form.
func (l Locator) String() string {
	return l.Module + ":" + l.Type
}
