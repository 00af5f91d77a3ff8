package eventloop

import (
	"context"
)

// Coroutine is the body of a Task. It may suspend at any of the package's suspension points by
// passing along the context it was given.
type Coroutine func(ctx context.Context) error

type taskKey struct{}

// Task is one scheduled Coroutine. Its fields are only touched by whichever side (loop or task
// body) currently holds control, and control is always handed over through a channel, so no
// further locking is needed.
type Task struct {
	loop       *Loop
	ctx        context.Context
	cancelCtx  context.CancelFunc
	fn         Coroutine
	resume     chan struct{}
	yielded    chan struct{}
	epoch      uint64
	started    bool
	suspended  bool
	cancelled  bool
	done       bool
	err        error
	panicked   bool
	panicValue interface{}
	callbacks  []func()
}

func newTask(l *Loop, parent context.Context, fn Coroutine) *Task {
	t := &Task{
		loop:    l,
		fn:      fn,
		resume:  make(chan struct{}),
		yielded: make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(parent)
	t.ctx = context.WithValue(ctx, taskKey{}, t)
	t.cancelCtx = cancel
	return t
}

// Done returns true once the task body has returned, panicked, or been cancelled before it
// started. It must be called from the goroutine driving the loop.
func (t *Task) Done() bool {
	return t.done
}

// Result returns the error returned by the task body. If the body panicked, Result panics with
// the same value. Calling Result before the task is done returns nil.
func (t *Task) Result() error {
	if t.panicked {
		panic(t.panicValue)
	}
	return t.err
}

// AddDoneCallback arranges for fn to be scheduled on the loop when the task finishes. If the task
// is already done, fn is scheduled right away.
func (t *Task) AddDoneCallback(fn func()) {
	if t.done {
		_ = t.loop.CallSoon(fn)
		return
	}
	t.callbacks = append(t.callbacks, fn)
}

func (t *Task) start() {
	if t.started || t.done {
		return
	}
	t.step()
}

// step hands control to the task body and blocks until the body suspends or finishes.
func (t *Task) step() {
	if !t.started {
		t.started = true
		go t.main()
	} else {
		t.resume <- struct{}{}
	}
	<-t.yielded
	if t.done {
		t.finish()
	}
}

func (t *Task) main() {
	defer func() {
		if r := recover(); r != nil {
			t.panicked = true
			t.panicValue = r
		}
		t.done = true
		t.yielded <- struct{}{}
	}()
	t.err = t.fn(t.ctx)
}

func (t *Task) finish() {
	t.cancelCtx()
	t.loop.forget(t)
	callbacks := t.callbacks
	t.callbacks = nil
	for _, cb := range callbacks {
		_ = t.loop.CallSoon(cb)
	}
}

// suspend gives control back to the loop. register is called first with a wake function that
// resumes this particular suspension; wake functions from earlier suspensions are ignored.
func (t *Task) suspend(register func(wake func()) error) error {
	t.epoch++
	epoch := t.epoch
	wake := func() {
		if t.suspended && t.epoch == epoch {
			t.step()
		}
	}
	if err := register(wake); err != nil {
		return err
	}
	t.suspended = true
	t.yielded <- struct{}{}
	<-t.resume
	t.suspended = false
	if t.cancelled {
		return ErrCancelled
	}
	return nil
}

// cancel is called by Loop.Close, never while the loop is running.
func (t *Task) cancel() {
	t.cancelled = true
	t.cancelCtx()
	if !t.started {
		t.done = true
		t.err = ErrCancelled
		return
	}
	for !t.done {
		t.resume <- struct{}{}
		<-t.yielded
	}
}

func runningTask(ctx context.Context) (*Task, error) {
	t, ok := ctx.Value(taskKey{}).(*Task)
	if !ok || t == nil {
		return nil, ErrNoTask
	}
	if t.cancelled {
		return nil, ErrCancelled
	}
	return t, nil
}

// FromContext returns the loop that is running the task ctx belongs to.
func FromContext(ctx context.Context) (*Loop, bool) {
	t, ok := ctx.Value(taskKey{}).(*Task)
	if !ok || t == nil {
		return nil, false
	}
	return t.loop, true
}
