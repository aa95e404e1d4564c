package binder

import (
	"context"
	"fmt"

	"github.com/nerrad567/testrig-core/internal/component"
)

// Namespace is the lookup surface handed to consumers of configured
// components. It is an explicit handle, not ambient process state: code
// that needs resolution receives a Namespace at construction time.
//
// A handle is bound to the install session it was issued under via a
// generation counter. After uninstall every resolution through an old
// handle fails with ErrNotInstalled, even if the binder is installed again
// later.
type Namespace struct {
	binder *Binder
	gen    uint64
}

// Connector resolves an entry name to its singleton connector instance,
// constructing and opening it on first access.
func (ns *Namespace) Connector(ctx context.Context, name string) (component.Connector, error) {
	b := ns.binder
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ns.checkLocked(); err != nil {
		return nil, err
	}
	return b.connectorLocked(ctx, name)
}

// Auxiliary resolves an entry name to its singleton auxiliary instance,
// constructing its bound connectors first on initial access.
func (ns *Namespace) Auxiliary(ctx context.Context, name string) (component.Auxiliary, error) {
	b := ns.binder
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ns.checkLocked(); err != nil {
		return nil, err
	}
	return b.auxiliaryLocked(ctx, name)
}

// Resolve resolves an entry name without the caller knowing its kind.
func (ns *Namespace) Resolve(ctx context.Context, name string) (any, error) {
	b := ns.binder
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ns.checkLocked(); err != nil {
		return nil, err
	}

	spec, ok := b.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, name)
	}
	if spec.Kind == component.KindConnector {
		return b.connectorLocked(ctx, name)
	}
	return b.auxiliaryLocked(ctx, name)
}

// Names returns the configured entry names, in no particular order.
func (ns *Namespace) Names() []string {
	b := ns.binder
	b.mu.Lock()
	defer b.mu.Unlock()

	if ns.checkLocked() != nil {
		return nil
	}
	names := make([]string, 0, len(b.specs))
	for name := range b.specs {
		names = append(names, name)
	}
	return names
}

// checkLocked verifies the handle's session is still the installed one.
// Callers must hold b.mu.
func (ns *Namespace) checkLocked() error {
	if ns.binder.state != StateInstalled || ns.binder.gen != ns.gen {
		return ErrNotInstalled
	}
	return nil
}
