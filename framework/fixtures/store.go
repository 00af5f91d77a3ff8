package fixtures

import (
	"context"
	"errors"

	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/stores"
)

// StoreResource is a persistent store bound to an event loop. Unlike RedisConn it is opened
// eagerly by Setup, so that the store is already empty when the test body starts; it is reset
// again and closed at teardown.
type StoreResource struct {
	loop    *eventloop.Loop
	factory stores.Factory
	res     *Resource[stores.Store]
}

// NewStoreResource creates an unopened store resource.
func NewStoreResource(loop *eventloop.Loop, factory stores.Factory) *StoreResource {
	s := &StoreResource{loop: loop, factory: factory}
	s.res = NewResource(s.open, s.close)
	return s
}

// State returns the resource state.
func (s *StoreResource) State() State { return s.res.State() }

// Setup opens and resets the store by running a task on the loop. The loop must not be running.
func (s *StoreResource) Setup() error {
	return s.loop.RunTask(context.Background(), s.res.Acquire)
}

// Get returns the store. It must be called from a task running on the resource's loop.
func (s *StoreResource) Get(ctx context.Context) (stores.Store, error) {
	if lp, ok := eventloop.FromContext(ctx); !ok {
		return nil, eventloop.ErrNoTask
	} else if lp != s.loop {
		return nil, ErrWrongLoop
	}
	return s.res.Get(ctx)
}

// Teardown resets and closes the store if it was opened.
func (s *StoreResource) Teardown() error {
	if s.res.State() != Acquired {
		return s.res.Release(context.Background())
	}
	return s.loop.RunTask(context.Background(), s.res.Release)
}

func (s *StoreResource) open(ctx context.Context) (stores.Store, error) {
	return eventloop.Call(ctx, func() (stores.Store, error) {
		store, err := s.factory(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.Reset(ctx); err != nil {
			return nil, errors.Join(err, store.Close())
		}
		return store, nil
	})
}

func (s *StoreResource) close(ctx context.Context, store stores.Store, acquired bool) error {
	if !acquired {
		return nil
	}
	_, err := eventloop.Call(ctx, func() (struct{}, error) {
		return struct{}{}, errors.Join(store.Reset(ctx), store.Close())
	})
	return err
}
