package cartsync

import (
	"context"
	"sync"
)

// State is where a cart mutation is in its life:
// Idle -> Patched -> (Reconciled | RolledBack), or Idle -> (Reconciled | Failed)
// for mutations that never patch the cache.
type State int

const (
	StateIdle State = iota
	StatePatched
	StateReconciled
	StateRolledBack
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePatched:
		return "patched"
	case StateReconciled:
		return "reconciled"
	case StateRolledBack:
		return "rolled_back"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateReconciled || s == StateRolledBack || s == StateFailed
}

// Mutation tracks one cart change whose remote call runs in the background.
type Mutation struct {
	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newMutation(initial State) *Mutation {
	return &Mutation{state: initial, done: make(chan struct{})}
}

func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the remote error, if the mutation ended in RolledBack or Failed.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed once the mutation has settled and the cart was refetched.
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mutation settles or ctx ends, and returns the remote
// error.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) finish(state State, err error) {
	m.mu.Lock()
	m.state = state
	m.err = err
	m.mu.Unlock()
	close(m.done)
}
