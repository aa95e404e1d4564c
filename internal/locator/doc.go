// Package locator resolves component type locators into constructor
// factories.
//
// A locator is the string form "<module/path>:<TypeName>" used in the
// components section of config.yaml, e.g.
// "connectors/tcpraw:TCPRaw" or "auxiliary/com:Com".
//
// There is no reflective code loading. Built-in component packages register
// their factories against a Registry at startup; resolution is a plain
// two-level table lookup. Unknown module paths and unknown type names are
// distinguishable failures (ErrModuleNotFound vs ErrTypeNotFound) so that
// a typo in the path reads differently from a typo in the type name.
package locator
