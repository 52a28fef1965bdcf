package stack

import (
	"context"
	"errors"
	"fmt"

	"icebergtest/internal/component"
	"icebergtest/internal/dependency"
	"icebergtest/pkg/logging"
)

const stackSubsystem = "Stack"

// Running is an assembled stack. Catalog and QueryEngine are nil when they
// were not selected.
type Running struct {
	Selection   Selection
	Env         *component.Env
	Storage     component.Storage
	Catalog     component.Catalog
	QueryEngine component.QueryEngine
}

// Option customises an Assembler.
type Option func(*Assembler)

// WithStateChangeCallback is notified whenever a component changes state.
func WithStateChangeCallback(cb component.StateChangeCallback) Option {
	return func(a *Assembler) { a.onStateChange = cb }
}

// Assembler acquires and releases the components of one stack.
type Assembler struct {
	registry      *component.Registry
	env           *component.Env
	onStateChange component.StateChangeCallback
}

// New creates an assembler that builds components from reg.
func New(reg *component.Registry, env *component.Env, opts ...Option) *Assembler {
	a := &Assembler{registry: reg, env: env}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build constructs the selected components without starting any of them.
func (a *Assembler) Build(sel Selection) (*Running, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if err := a.registry.Check(sel.Storage, sel.Catalog, sel.QueryEngine); err != nil {
		return nil, err
	}

	r := &Running{Selection: sel, Env: a.env}
	var err error
	if r.Storage, err = a.registry.NewStorage(sel.Storage, a.env); err != nil {
		return nil, fmt.Errorf("failed to build storage %s: %w", sel.Storage, err)
	}
	if sel.Catalog != "" {
		if r.Catalog, err = a.registry.NewCatalog(sel.Catalog, a.env, r.Storage); err != nil {
			return nil, fmt.Errorf("failed to build catalog %s: %w", sel.Catalog, err)
		}
	}
	if sel.QueryEngine != "" {
		if r.QueryEngine, err = a.registry.NewQueryEngine(sel.QueryEngine, a.env, r.Storage, r.Catalog); err != nil {
			return nil, fmt.Errorf("failed to build query engine %s: %w", sel.QueryEngine, err)
		}
	}
	return r, nil
}

// graph describes the acquisition order of a running stack.
func graph(r *Running) (*dependency.Graph, map[dependency.NodeID]component.Component) {
	g := dependency.New()
	byID := map[dependency.NodeID]component.Component{}

	storageID := dependency.ID(dependency.KindStorage, r.Storage.Name())
	g.AddNode(dependency.Node{ID: storageID, FriendlyName: r.Storage.Name(), Kind: dependency.KindStorage, State: dependency.StatePending})
	byID[storageID] = r.Storage

	qeDeps := []dependency.NodeID{storageID}
	if r.Catalog != nil {
		catalogID := dependency.ID(dependency.KindCatalog, r.Catalog.Name())
		g.AddNode(dependency.Node{ID: catalogID, FriendlyName: r.Catalog.Name(), Kind: dependency.KindCatalog, DependsOn: []dependency.NodeID{storageID}, State: dependency.StatePending})
		byID[catalogID] = r.Catalog
		qeDeps = append(qeDeps, catalogID)
	}
	if r.QueryEngine != nil {
		qeID := dependency.ID(dependency.KindQueryEngine, r.QueryEngine.Name())
		g.AddNode(dependency.Node{ID: qeID, FriendlyName: r.QueryEngine.Name(), Kind: dependency.KindQueryEngine, DependsOn: qeDeps, State: dependency.StatePending})
		byID[qeID] = r.QueryEngine
	}
	return g, byID
}

func (a *Assembler) setState(c component.Component, state component.State, err error) {
	if su, ok := c.(component.StateUpdater); ok {
		if a.onStateChange != nil {
			su.SetStateChangeCallback(a.onStateChange)
		}
		su.UpdateState(state, err)
	}
}

// Run builds the selection, sets every component up in dependency order,
// calls fn with the running stack and tears everything down again. The
// returned error is the first setup failure or fn's error; teardown
// failures are only logged.
func (a *Assembler) Run(ctx context.Context, sel Selection, fn func(ctx context.Context, r *Running) error) error {
	r, err := a.Build(sel)
	if err != nil {
		return err
	}
	return a.RunBuilt(ctx, r, fn)
}

// RunBuilt is Run for components that were already built.
func (a *Assembler) RunBuilt(ctx context.Context, r *Running, fn func(ctx context.Context, r *Running) error) error {
	g, byID := graph(r)
	order, err := g.TopologicalOrder()
	if err != nil {
		return err
	}

	var acquired []dependency.NodeID
	defer func() {
		a.unwind(ctx, g, byID, acquired)
	}()

	for _, id := range order {
		c := byID[id]
		acquired = append(acquired, id)

		logging.Info(stackSubsystem, "Setting up %s", id)
		g.SetState(id, dependency.StateStarting)
		a.setState(c, component.StateStarting, nil)
		if err := c.Setup(ctx); err != nil {
			g.SetState(id, dependency.StateError)
			a.setState(c, component.StateFailed, err)
			return fmt.Errorf("failed to set up %s: %w", id, err)
		}
		g.SetState(id, dependency.StateReady)
		a.setState(c, component.StateReady, nil)
		logging.Info(stackSubsystem, "%s is ready", id)
	}

	return fn(ctx, r)
}

// unwind tears down acquired components in reverse order. Each teardown gets
// its own bounded context detached from ctx.
func (a *Assembler) unwind(ctx context.Context, g *dependency.Graph, byID map[dependency.NodeID]component.Component, acquired []dependency.NodeID) {
	timeout := a.env.Settings.TeardownTimeout
	for i := len(acquired) - 1; i >= 0; i-- {
		id := acquired[i]
		c := byID[id]

		failed := g.Get(id).State == dependency.StateError
		if !failed {
			a.setState(c, component.StateStopping, nil)
		}
		logging.Info(stackSubsystem, "Tearing down %s", id)

		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		err := teardown(tctx, c)
		cancel()

		if err != nil {
			logging.Warn(stackSubsystem, "Teardown of %s failed: %v", id, err)
			if !failed {
				a.setState(c, component.StateFailed, err)
			}
			continue
		}
		g.SetState(id, dependency.StateReleased)
		if !failed {
			a.setState(c, component.StateStopped, nil)
		}
	}
}

// teardown converts a panicking Teardown into an error so the remaining
// components are still released.
func teardown(ctx context.Context, c component.Component) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("teardown panicked: %v", p)
		}
	}()
	return c.Teardown(ctx)
}

// IsConfigurationError reports whether err happened before any resource was
// touched: an invalid selection or an unknown component key.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidSelection) || component.IsUnknownComponent(err)
}
