package fixtures

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrReleased is returned when a resource is used after it has been released.
	ErrReleased = errors.New("resource has already been released")

	// ErrWrongLoop is returned when a loop-bound resource is used from a task that is not running
	// on the loop the resource was created for.
	ErrWrongLoop = errors.New("resource is bound to a different event loop")
)

// State is the lifecycle position of a Resource.
type State int

const (
	// Unacquired means the resource has not been acquired yet, or acquisition failed.
	Unacquired State = iota

	// Acquired means the resource holds a live value.
	Acquired

	// Released is terminal.
	Released
)

func (s State) String() string {
	switch s {
	case Unacquired:
		return "unacquired"
	case Acquired:
		return "acquired"
	case Released:
		return "released"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// AcquireFunc produces the value of a resource.
type AcquireFunc[V any] func(ctx context.Context) (V, error)

// ReleaseFunc disposes of a resource. acquired says whether AcquireFunc ever succeeded; if it is
// false, value is the zero value.
type ReleaseFunc[V any] func(ctx context.Context, value V, acquired bool) error

// Resource is a scope guard: a value that is acquired at most once, either eagerly by a fixture
// or lazily on first use, and released exactly once when the scope that owns it ends.
//
// A Resource belongs to one test and is not safe for concurrent use. It may be used from tasks
// on an event loop, since those run one at a time.
type Resource[V any] struct {
	state   State
	value   V
	acquire AcquireFunc[V]
	release ReleaseFunc[V]
}

// NewResource creates a Resource in the Unacquired state.
func NewResource[V any](acquire AcquireFunc[V], release ReleaseFunc[V]) *Resource[V] {
	return &Resource[V]{acquire: acquire, release: release}
}

// State returns the current lifecycle state.
func (r *Resource[V]) State() State { return r.state }

// Get returns the value, acquiring it first if necessary. If acquisition fails the resource stays
// Unacquired and a later Get tries again.
func (r *Resource[V]) Get(ctx context.Context) (V, error) {
	switch r.state {
	case Acquired:
		return r.value, nil
	case Released:
		var empty V
		return empty, ErrReleased
	}
	v, err := r.acquire(ctx)
	if err != nil {
		var empty V
		return empty, err
	}
	r.value, r.state = v, Acquired
	return v, nil
}

// Acquire is Get for callers that only care whether acquisition worked.
func (r *Resource[V]) Acquire(ctx context.Context) error {
	_, err := r.Get(ctx)
	return err
}

// Release moves the resource to Released and runs the release function. Only the first call does
// anything; later calls return nil.
func (r *Resource[V]) Release(ctx context.Context) error {
	if r.state == Released {
		return nil
	}
	acquired := r.state == Acquired
	value := r.value
	var empty V
	r.state, r.value = Released, empty
	if r.release == nil {
		return nil
	}
	return r.release(ctx, value, acquired)
}
