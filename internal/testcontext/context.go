package testcontext

import (
	"context"
	"fmt"
	"sync"
	"time"

	"icebergtest/pkg/logging"

	"github.com/google/uuid"
)

const testContextSubsystem = "TestContext"

// DefaultNetworkPrefix is prepended to the run name to form the network name.
const DefaultNetworkPrefix = "iceberg-test"

// NetworkProvider manages isolated networks on the container host.
type NetworkProvider interface {
	NetworkExists(ctx context.Context, name string) (bool, error)
	CreateNetwork(ctx context.Context, name string) error
	RemoveNetwork(ctx context.Context, name string) error
}

// State is the lifecycle position of a TestContext.
type State string

const (
	StateUninitialized  State = "Uninitialized"
	StateNetworkCreated State = "NetworkCreated"
	StateDestroyed      State = "Destroyed"
)

// TestContext is the isolation scope shared by every component of one stack.
// It owns a uniquely named network that is created on first use and removed
// once, after every component has been released.
type TestContext struct {
	mu       sync.Mutex
	runName  string
	network  string
	provider NetworkProvider
	state    State
	created  bool
}

// Option customises a TestContext.
type Option func(*TestContext)

// WithRunName overrides the generated run name.
func WithRunName(name string) Option {
	return func(tc *TestContext) { tc.runName = name }
}

// WithNetworkPrefix overrides DefaultNetworkPrefix.
func WithNetworkPrefix(prefix string) Option {
	return func(tc *TestContext) { tc.network = prefix }
}

// New creates a TestContext with a fresh run name. No network is created
// until EnsureNetwork is called.
func New(provider NetworkProvider, opts ...Option) *TestContext {
	tc := &TestContext{
		runName:  NewRunName(),
		network:  DefaultNetworkPrefix,
		provider: provider,
		state:    StateUninitialized,
	}
	for _, opt := range opts {
		opt(tc)
	}
	tc.network = fmt.Sprintf("%s-%s", tc.network, tc.runName)
	return tc
}

// NewRunName returns a short random identifier.
func NewRunName() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:4])
}

// RunName identifies this test run. It is embedded in bucket, project and
// network names.
func (tc *TestContext) RunName() string {
	return tc.runName
}

// NetworkName is the name of the shared network.
func (tc *TestContext) NetworkName() string {
	return tc.network
}

// State returns the current lifecycle state.
func (tc *TestContext) State() State {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.state
}

// EnsureNetwork creates the network if this context has not done so yet.
// An existing network with the same name is adopted.
func (tc *TestContext) EnsureNetwork(ctx context.Context) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.created {
		return nil
	}
	if tc.state == StateDestroyed {
		return fmt.Errorf("test context %s has already been destroyed", tc.runName)
	}

	exists, err := tc.provider.NetworkExists(ctx, tc.network)
	if err != nil {
		return fmt.Errorf("failed to inspect network %s: %w", tc.network, err)
	}
	if !exists {
		logging.Info(testContextSubsystem, "Creating network %s", tc.network)
		if err := tc.provider.CreateNetwork(ctx, tc.network); err != nil {
			return fmt.Errorf("failed to create network %s: %w", tc.network, err)
		}
	} else {
		logging.Debug(testContextSubsystem, "Network %s already exists", tc.network)
	}

	tc.created = true
	tc.state = StateNetworkCreated
	return nil
}

// CleanupNetwork removes the network if this context created it. Failures
// are logged and swallowed so the remaining teardown can proceed. Calling
// it again is a no-op.
func (tc *TestContext) CleanupNetwork(ctx context.Context) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if !tc.created {
		if tc.state == StateUninitialized {
			tc.state = StateDestroyed
		}
		return
	}

	logging.Info(testContextSubsystem, "Removing network %s", tc.network)
	if err := tc.provider.RemoveNetwork(ctx, tc.network); err != nil {
		logging.Warn(testContextSubsystem, "Failed to remove network %s: %v", tc.network, err)
	}
	tc.created = false
	tc.state = StateDestroyed
}

// With creates a TestContext and runs fn inside it through Scope.
func With(ctx context.Context, provider NetworkProvider, cleanupTimeout time.Duration, fn func(ctx context.Context, tc *TestContext) error, opts ...Option) error {
	tc := New(provider, opts...)
	return tc.Scope(ctx, cleanupTimeout, func(ctx context.Context) error {
		return fn(ctx, tc)
	})
}

// Scope ensures the network and runs fn. The network is cleaned up on every
// exit path, including a panic in fn. Cleanup runs on a context detached
// from ctx and bounded by cleanupTimeout, so it still happens after ctx is
// cancelled.
func (tc *TestContext) Scope(ctx context.Context, cleanupTimeout time.Duration, fn func(ctx context.Context) error) error {
	defer func() {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		tc.CleanupNetwork(cctx)
	}()

	if err := tc.EnsureNetwork(ctx); err != nil {
		return err
	}
	return fn(ctx)
}
