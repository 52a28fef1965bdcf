package component

import (
	"sync"
)

// State is the lifecycle state of a component instance.
type State string

const (
	StatePending  State = "pending"
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// StateChangeCallback is called when a component's state changes.
type StateChangeCallback func(name string, role Role, oldState, newState State, err error)

// StateUpdater is implemented by components that embed Base. The assembler
// uses it to record progress.
type StateUpdater interface {
	State() State
	LastError() error
	UpdateState(state State, err error)
	SetStateChangeCallback(callback StateChangeCallback)
}

// Base provides the bookkeeping every component shares. Embed it to get
// Name and the StateUpdater methods.
type Base struct {
	mu            sync.RWMutex
	name          string
	role          Role
	state         State
	lastError     error
	stateChangeCb StateChangeCallback
}

// NewBase creates a pending Base.
func NewBase(name string, role Role) *Base {
	return &Base{
		name:  name,
		role:  role,
		state: StatePending,
	}
}

// Name returns the component key.
func (b *Base) Name() string {
	return b.name
}

// Role returns the component role.
func (b *Base) Role() Role {
	return b.role
}

// State returns the current state.
func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// LastError returns the error recorded with the last state change.
func (b *Base) LastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastError
}

// SetStateChangeCallback sets the state change callback.
func (b *Base) SetStateChangeCallback(callback StateChangeCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stateChangeCb = callback
}

// UpdateState records a new state and notifies the callback when it changed.
func (b *Base) UpdateState(newState State, err error) {
	b.mu.Lock()
	oldState := b.state
	b.state = newState
	b.lastError = err
	callback := b.stateChangeCb
	b.mu.Unlock()

	// outside the lock so callbacks may query the component
	if callback != nil && oldState != newState {
		callback(b.name, b.role, oldState, newState, err)
	}
}
