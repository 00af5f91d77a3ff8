package eventloop

import (
	"context"
	"time"
)

// Future is a result that will be resolved later on a loop. Resolve and the accessors must be
// called on the loop, that is, from a loop callback or from a task body.
type Future[V any] struct {
	loop      *Loop
	done      bool
	value     V
	err       error
	callbacks []func()
}

// NewFuture creates an unresolved Future belonging to l.
func NewFuture[V any](l *Loop) *Future[V] {
	return &Future[V]{loop: l}
}

// Resolve sets the result and schedules the done callbacks. Only the first call has any effect.
func (f *Future[V]) Resolve(value V, err error) {
	if f.done {
		return
	}
	f.done = true
	f.value, f.err = value, err
	callbacks := f.callbacks
	f.callbacks = nil
	for _, cb := range callbacks {
		_ = f.loop.CallSoon(cb)
	}
}

// Done returns true if the future has been resolved.
func (f *Future[V]) Done() bool { return f.done }

// Result returns the resolved value and error, or zero values if unresolved.
func (f *Future[V]) Result() (V, error) { return f.value, f.err }

// AddDoneCallback schedules fn on the loop once the future is resolved.
func (f *Future[V]) AddDoneCallback(fn func()) {
	if f.done {
		_ = f.loop.CallSoon(fn)
		return
	}
	f.callbacks = append(f.callbacks, fn)
}

// Await suspends the calling task until f is resolved, then returns its result.
func Await[V any](ctx context.Context, f *Future[V]) (V, error) {
	var empty V
	t, err := runningTask(ctx)
	if err != nil {
		return empty, err
	}
	for !f.done {
		if err := t.suspend(func(wake func()) error {
			f.AddDoneCallback(wake)
			return nil
		}); err != nil {
			return empty, err
		}
	}
	return f.value, f.err
}

// Yield suspends the calling task for one loop iteration, letting every other ready callback run.
func Yield(ctx context.Context) error {
	t, err := runningTask(ctx)
	if err != nil {
		return err
	}
	return t.suspend(t.loop.CallSoon)
}

// Sleep suspends the calling task for at least d.
func Sleep(ctx context.Context, d time.Duration) error {
	t, err := runningTask(ctx)
	if err != nil {
		return err
	}
	f := NewFuture[struct{}](t.loop)
	if err := t.loop.beginExternal(); err != nil {
		return err
	}
	timer := time.AfterFunc(d, func() {
		t.loop.finishExternal(func() { f.Resolve(struct{}{}, nil) })
	})
	if _, err := Await(ctx, f); err != nil {
		timer.Stop()
		return err
	}
	return nil
}

type callOutcome[V any] struct {
	value      V
	panicked   bool
	panicValue interface{}
}

// Call runs fn on a helper goroutine and suspends the calling task until it returns. This is the
// way to perform blocking work, such as a network round trip, without stopping the loop. A panic
// in fn is raised again in the calling task with the same value.
func Call[V any](ctx context.Context, fn func() (V, error)) (V, error) {
	var empty V
	t, err := runningTask(ctx)
	if err != nil {
		return empty, err
	}
	f := NewFuture[callOutcome[V]](t.loop)
	if err := t.loop.beginExternal(); err != nil {
		return empty, err
	}
	go func() {
		var out callOutcome[V]
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					out.panicked, out.panicValue = true, r
				}
			}()
			out.value, err = fn()
		}()
		t.loop.finishExternal(func() { f.Resolve(out, err) })
	}()
	out, err := Await(ctx, f)
	if out.panicked {
		panic(out.panicValue)
	}
	return out.value, err
}
