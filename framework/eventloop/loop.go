package eventloop

import (
	"context"
	"errors"
	"sync"
)

// Loop is a single-threaded cooperative scheduler. See package comments.
//
// The zero value is not usable; call New.
type Loop struct {
	lock     sync.Mutex
	ready    []func()
	wake     chan struct{}
	pending  int
	tasks    map[*Task]struct{}
	running  bool
	stopping bool
	closed   bool
}

// New creates a loop that is not yet running.
func New() *Loop {
	return &Loop{
		wake:  make(chan struct{}, 1),
		tasks: make(map[*Task]struct{}),
	}
}

// CallSoon schedules fn to run on the loop during its next iteration. It is safe to call from
// any goroutine. It returns ErrClosed if the loop has been closed.
func (l *Loop) CallSoon(fn func()) error {
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		return ErrClosed
	}
	l.ready = append(l.ready, fn)
	l.lock.Unlock()
	l.signal()
	return nil
}

// CreateTask wraps fn in a Task and schedules its first step. The task's context is derived
// from ctx and is cancelled when the task finishes or the loop is closed.
//
// If the loop is already closed, the returned task is already done with ErrClosed.
func (l *Loop) CreateTask(ctx context.Context, fn Coroutine) *Task {
	t := newTask(l, ctx, fn)
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		t.done = true
		t.err = ErrClosed
		t.cancelCtx()
		return t
	}
	l.tasks[t] = struct{}{}
	l.ready = append(l.ready, t.start)
	l.lock.Unlock()
	l.signal()
	return t
}

// RunUntilComplete drives the loop until task is done, then returns the task's error. If the
// task's body panicked, the same panic value is raised again here, on the driving goroutine.
//
// It returns ErrRunning if some other caller is already driving the loop, and ErrDeadlock if the
// task can never finish because nothing is ready and nothing is pending.
func (l *Loop) RunUntilComplete(task *Task) error {
	if task.loop != l {
		return errors.New("task was created on a different event loop")
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()
	for !task.done {
		if !l.runOnce(false) {
			return ErrDeadlock
		}
	}
	return task.Result()
}

// RunTask is a shortcut for RunUntilComplete(CreateTask(ctx, fn)).
func (l *Loop) RunTask(ctx context.Context, fn Coroutine) error {
	return l.RunUntilComplete(l.CreateTask(ctx, fn))
}

// RunForever drives the loop until Stop is called. If Stop was called before RunForever, the
// loop runs exactly one iteration, which executes every callback that was ready at that point,
// and then returns. This is how an owned loop is drained before being closed.
func (l *Loop) RunForever() error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()
	for {
		l.lock.Lock()
		stopping := l.stopping
		l.lock.Unlock()
		l.runOnce(!stopping)
		if stopping {
			l.lock.Lock()
			l.stopping = false
			l.lock.Unlock()
			return nil
		}
	}
}

// Stop asks RunForever to return after finishing its current iteration. It is safe to call from
// any goroutine.
func (l *Loop) Stop() {
	l.lock.Lock()
	l.stopping = true
	l.lock.Unlock()
	l.signal()
}

// Close releases the loop. Pending callbacks are discarded, and any task that is still suspended
// is cancelled: its current suspension point returns ErrCancelled and it is allowed to run to
// the end of its body before Close returns. Closing a closed loop is a no-op; closing a running
// loop returns ErrRunning.
func (l *Loop) Close() error {
	l.lock.Lock()
	if l.running {
		l.lock.Unlock()
		return ErrRunning
	}
	if l.closed {
		l.lock.Unlock()
		return nil
	}
	l.closed = true
	l.ready = nil
	tasks := make([]*Task, 0, len(l.tasks))
	for t := range l.tasks {
		tasks = append(tasks, t)
	}
	l.tasks = make(map[*Task]struct{})
	l.lock.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	return nil
}

// Shutdown is the full teardown sequence for a loop owned by its caller: Stop, one draining
// iteration of RunForever, then Close.
func (l *Loop) Shutdown() error {
	if l.IsClosed() {
		return nil
	}
	l.Stop()
	if err := l.RunForever(); err != nil {
		return err
	}
	return l.Close()
}

// IsRunning returns true while some goroutine is driving the loop.
func (l *Loop) IsRunning() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.running
}

// IsClosed returns true once Close has been called.
func (l *Loop) IsClosed() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.closed
}

func (l *Loop) enter() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.running {
		return ErrRunning
	}
	l.running = true
	return nil
}

func (l *Loop) leave() {
	l.lock.Lock()
	l.running = false
	l.lock.Unlock()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// runOnce runs every callback that is ready right now. If none are ready it waits for a wakeup,
// but only if block is true or something is pending off-loop; otherwise it returns false
// because nothing could ever become ready.
func (l *Loop) runOnce(block bool) bool {
	l.lock.Lock()
	batch := l.ready
	l.ready = nil
	pending := l.pending
	l.lock.Unlock()

	if len(batch) == 0 {
		if !block && pending == 0 {
			return false
		}
		<-l.wake
		return true
	}
	for _, fn := range batch {
		fn()
	}
	return true
}

// beginExternal records that some goroutine outside the loop will later deliver a callback with
// finishExternal. While anything is pending, an idle loop waits instead of reporting deadlock.
func (l *Loop) beginExternal() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.pending++
	return nil
}

func (l *Loop) finishExternal(fn func()) {
	l.lock.Lock()
	l.pending--
	if l.closed {
		l.lock.Unlock()
		return
	}
	l.ready = append(l.ready, fn)
	l.lock.Unlock()
	l.signal()
}

func (l *Loop) forget(t *Task) {
	l.lock.Lock()
	delete(l.tasks, t)
	l.lock.Unlock()
}
