package binder

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/testrig-core/internal/component"
	"github.com/nerrad567/testrig-core/internal/locator"
)

// Logger defines the logging interface used by the Binder.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// State is the binder lifecycle state.
type State string

const (
	StateUninstalled  State = "uninstalled"
	StateInstalling   State = "installing"
	StateInstalled    State = "installed"
	StateUninstalling State = "uninstalling"
)

// active tracks the one binder allowed to be installed in this process.
var (
	activeMu sync.Mutex
	active   *Binder
)

// Active returns the binder currently installed in this process, or nil.
// Configured entry names resolve through this binder and nowhere else.
func Active() *Binder {
	activeMu.Lock()
	defer activeMu.Unlock()
	return active
}

// Binder resolves configured component names into singleton instances for
// the duration of an install session.
//
// Construction is lazy: an instance is built on first access through a
// Namespace, with an auxiliary's bound connectors built first. The instance
// registry is append-only while installed and fully cleared on uninstall.
//
// All public methods are thread-safe.
type Binder struct {
	locators *locator.Registry
	logger   Logger

	mu    sync.Mutex
	state State
	gen   uint64
	specs map[string]component.Spec

	// Constructed singletons, by entry name. Cleared on uninstall.
	connectors  map[string]component.Connector
	auxiliaries map[string]component.Auxiliary

	// Names in construction order, for teardown in reverse.
	connOrder []string
	auxOrder  []string
}

// New creates a binder resolving locators through the given registry.
func New(locators *locator.Registry) *Binder {
	return &Binder{
		locators: locators,
		logger:   noopLogger{},
		state:    StateUninstalled,
	}
}

// SetLogger sets the logger for the binder.
func (b *Binder) SetLogger(logger Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

// State returns the current lifecycle state.
func (b *Binder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Install validates the specs and makes every configured name resolvable
// through the Namespace.
//
// Validation covers what must fail loudly before any test runs: duplicate
// entry names, auxiliary link references to connector entries that do not
// exist or are not connectors. Locator resolution is deferred to first
// access, where module-not-found and type-not-found surface.
//
// Install on an installed binder is a programmer error and returns
// ErrAlreadyInstalled. Install while a different binder is installed in
// this process returns ErrBinderActive.
func (b *Binder) Install(ctx context.Context, specs []component.Spec) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateUninstalled:
		// OK
	case StateInstalled, StateInstalling:
		return ErrAlreadyInstalled
	default:
		return fmt.Errorf("%w: install during %s", ErrAlreadyInstalled, b.state)
	}

	if err := b.claimActive(); err != nil {
		return err
	}
	b.state = StateInstalling

	byName := make(map[string]component.Spec, len(specs))
	for _, spec := range specs {
		if _, dup := byName[spec.Name]; dup {
			b.abortInstallLocked()
			return fmt.Errorf("%w: %q", ErrDuplicateEntry, spec.Name)
		}
		byName[spec.Name] = spec
	}

	// Link check: every auxiliary connector reference must name a
	// configured connector entry. Reported here, never deferred to
	// first use.
	for _, spec := range specs {
		if spec.Kind != component.KindAuxiliary {
			continue
		}
		for role, connName := range spec.Connectors {
			target, ok := byName[connName]
			if !ok {
				b.abortInstallLocked()
				return fmt.Errorf("%w: %q role %q -> %q", ErrLinkFailure, spec.Name, role, connName)
			}
			if target.Kind != component.KindConnector {
				b.abortInstallLocked()
				return fmt.Errorf("%w: %q role %q -> %q is not a connector", ErrLinkFailure, spec.Name, role, connName)
			}
		}
	}

	b.specs = byName
	b.connectors = make(map[string]component.Connector)
	b.auxiliaries = make(map[string]component.Auxiliary)
	b.connOrder = nil
	b.auxOrder = nil
	b.state = StateInstalled

	b.logger.Info("components installed", "entries", len(byName), "generation", b.gen)
	return nil
}

// Uninstall stops every constructed auxiliary, closes every constructed
// connector, clears the registry, and invalidates all issued Namespace
// handles.
//
// It is safe to call on a binder whose install partially failed and on an
// already-uninstalled binder (a no-op). Teardown continues past individual
// stop/close failures; the first error is returned after everything has
// been attempted.
func (b *Binder) Uninstall(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateUninstalled {
		return nil
	}
	b.state = StateUninstalling

	var firstErr error

	// Auxiliaries stop before the connectors they depend on close,
	// newest first.
	for i := len(b.auxOrder) - 1; i >= 0; i-- {
		name := b.auxOrder[i]
		aux, ok := b.auxiliaries[name]
		if !ok {
			continue
		}
		if err := aux.Stop(); err != nil {
			b.logger.Warn("auxiliary stop failed during uninstall", "name", name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("stopping auxiliary %q: %w", name, err)
			}
		}
	}
	for i := len(b.connOrder) - 1; i >= 0; i-- {
		name := b.connOrder[i]
		conn, ok := b.connectors[name]
		if !ok {
			continue
		}
		if err := conn.Close(); err != nil {
			b.logger.Warn("connector close failed during uninstall", "name", name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("closing connector %q: %w", name, err)
			}
		}
	}

	b.specs = nil
	b.connectors = nil
	b.auxiliaries = nil
	b.connOrder = nil
	b.auxOrder = nil
	b.gen++
	b.state = StateUninstalled
	b.releaseActive()

	b.logger.Info("components uninstalled", "generation", b.gen)
	return firstErr
}

// Namespace returns a lookup handle bound to the current install session.
// The handle fails resolution once the session is uninstalled.
func (b *Binder) Namespace() *Namespace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Namespace{binder: b, gen: b.gen}
}

// claimActive marks this binder as the process-wide installed binder.
// Callers must hold b.mu.
func (b *Binder) claimActive() error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil && active != b {
		return ErrBinderActive
	}
	active = b
	return nil
}

// releaseActive clears the process-wide slot if this binder holds it.
// Callers must hold b.mu.
func (b *Binder) releaseActive() {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active == b {
		active = nil
	}
}

// abortInstallLocked rolls a failed install back to the uninstalled state.
// Callers must hold b.mu.
func (b *Binder) abortInstallLocked() {
	b.specs = nil
	b.connectors = nil
	b.auxiliaries = nil
	b.connOrder = nil
	b.auxOrder = nil
	b.state = StateUninstalled
	b.releaseActive()
}

// connectorLocked returns the singleton connector instance for an entry
// name, constructing it on first access. Callers must hold b.mu.
func (b *Binder) connectorLocked(ctx context.Context, name string) (component.Connector, error) {
	if conn, ok := b.connectors[name]; ok {
		return conn, nil
	}

	spec, ok := b.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, name)
	}
	if spec.Kind != component.KindConnector {
		return nil, fmt.Errorf("%w: %q is %s, want connector", ErrWrongKind, name, spec.Kind)
	}

	loc, err := locator.Parse(spec.Type)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}
	factory, err := b.locators.ResolveConnector(loc)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}

	conn, err := factory(spec.Config)
	if err != nil {
		return nil, fmt.Errorf("constructing connector %q: %w", name, err)
	}
	if err := conn.Open(ctx); err != nil {
		return nil, fmt.Errorf("opening connector %q: %w", name, err)
	}

	b.connectors[name] = conn
	b.connOrder = append(b.connOrder, name)
	b.logger.Debug("connector constructed", "name", name, "type", spec.Type)
	return conn, nil
}

// auxiliaryLocked returns the singleton auxiliary instance for an entry
// name, constructing its bound connectors first. Callers must hold b.mu.
func (b *Binder) auxiliaryLocked(ctx context.Context, name string) (component.Auxiliary, error) {
	if aux, ok := b.auxiliaries[name]; ok {
		return aux, nil
	}

	spec, ok := b.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, name)
	}
	if spec.Kind != component.KindAuxiliary {
		return nil, fmt.Errorf("%w: %q is %s, want auxiliary", ErrWrongKind, name, spec.Kind)
	}

	loc, err := locator.Parse(spec.Type)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}
	factory, err := b.locators.ResolveAuxiliary(loc)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}

	// Connectors before the auxiliary that references them.
	conns := make(map[string]component.Connector, len(spec.Connectors))
	for role, connName := range spec.Connectors {
		conn, err := b.connectorLocked(ctx, connName)
		if err != nil {
			return nil, fmt.Errorf("auxiliary %q role %q: %w", name, role, err)
		}
		conns[role] = conn
	}

	aux, err := factory(spec.Config, conns)
	if err != nil {
		return nil, fmt.Errorf("constructing auxiliary %q: %w", name, err)
	}
	if err := aux.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting auxiliary %q: %w", name, err)
	}

	b.auxiliaries[name] = aux
	b.auxOrder = append(b.auxOrder, name)
	b.logger.Debug("auxiliary constructed", "name", name, "type", spec.Type)
	return aux, nil
}
