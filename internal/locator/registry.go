package locator

import (
	"fmt"
	"sync"

	"github.com/nerrad567/testrig-core/internal/component"
)

// ConnectorFactory constructs a connector from its static config arguments.
type ConnectorFactory func(config map[string]any) (component.Connector, error)

// AuxiliaryFactory constructs an auxiliary from its static config arguments
// and its bound connector instances, keyed by logical role name.
type AuxiliaryFactory func(config map[string]any, conns map[string]component.Connector) (component.Auxiliary, error)

// Registry is the locator -> factory lookup table.
//
// Factories are registered once at startup and looked up on every lazy
// construction, so registration panics on duplicates (a programmer error)
// while resolution returns errors (a configuration error).
//
// All public methods are thread-safe.
type Registry struct {
	mu          sync.RWMutex
	connectors  map[string]map[string]ConnectorFactory
	auxiliaries map[string]map[string]AuxiliaryFactory
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{
		connectors:  make(map[string]map[string]ConnectorFactory),
		auxiliaries: make(map[string]map[string]AuxiliaryFactory),
	}
}

// RegisterConnector registers a connector factory under module/typeName.
// Registering the same locator twice panics.
func (r *Registry) RegisterConnector(module, typeName string, factory ConnectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	types, ok := r.connectors[module]
	if !ok {
		types = make(map[string]ConnectorFactory)
		r.connectors[module] = types
	}
	if _, exists := types[typeName]; exists {
		panic(fmt.Sprintf("locator: connector factory %s:%s already registered", module, typeName))
	}
	types[typeName] = factory
}

// RegisterAuxiliary registers an auxiliary factory under module/typeName.
// Registering the same locator twice panics.
func (r *Registry) RegisterAuxiliary(module, typeName string, factory AuxiliaryFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	types, ok := r.auxiliaries[module]
	if !ok {
		types = make(map[string]AuxiliaryFactory)
		r.auxiliaries[module] = types
	}
	if _, exists := types[typeName]; exists {
		panic(fmt.Sprintf("locator: auxiliary factory %s:%s already registered", module, typeName))
	}
	types[typeName] = factory
}

// ResolveConnector looks up the connector factory for a locator.
//
// An unknown module path yields ErrModuleNotFound; a known module without
// the requested type yields ErrTypeNotFound. A module registered only with
// auxiliary factories still counts as found, so asking for a connector from
// an auxiliary module reads as a type error rather than a missing module.
func (r *Registry) ResolveConnector(loc Locator) (ConnectorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types, ok := r.connectors[loc.Module]
	if !ok {
		if !r.moduleKnownLocked(loc.Module) {
			return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, loc.Module)
		}
		return nil, fmt.Errorf("%w: %q has no connector type %q", ErrTypeNotFound, loc.Module, loc.Type)
	}

	factory, ok := types[loc.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no connector type %q", ErrTypeNotFound, loc.Module, loc.Type)
	}
	return factory, nil
}

// ResolveAuxiliary looks up the auxiliary factory for a locator, with the
// same error distinction as ResolveConnector.
func (r *Registry) ResolveAuxiliary(loc Locator) (AuxiliaryFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types, ok := r.auxiliaries[loc.Module]
	if !ok {
		if !r.moduleKnownLocked(loc.Module) {
			return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, loc.Module)
		}
		return nil, fmt.Errorf("%w: %q has no auxiliary type %q", ErrTypeNotFound, loc.Module, loc.Type)
	}

	factory, ok := types[loc.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no auxiliary type %q", ErrTypeNotFound, loc.Module, loc.Type)
	}
	return factory, nil
}

// moduleKnownLocked reports whether a module path is registered in either
// table. Callers must hold r.mu.
func (r *Registry) moduleKnownLocked(module string) bool {
	if _, ok := r.connectors[module]; ok {
		return true
	}
	_, ok := r.auxiliaries[module]
	return ok
}
