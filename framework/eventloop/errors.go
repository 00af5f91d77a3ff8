package eventloop

import "errors"

var (
	// ErrClosed is returned when scheduling work on, or running, a loop that has been closed.
	ErrClosed = errors.New("event loop is closed")

	// ErrRunning is returned by RunUntilComplete, RunForever, and Close when the loop is
	// already being driven. A loop never runs two drivers at once.
	ErrRunning = errors.New("event loop is already running")

	// ErrNoTask is returned by the suspension functions when the context does not belong to a
	// task running on a loop.
	ErrNoTask = errors.New("not called from within an event loop task")

	// ErrDeadlock is returned by RunUntilComplete when the task has not finished but nothing is
	// ready to run and nothing is pending that could ever wake it.
	ErrDeadlock = errors.New("event loop has nothing left to run but the task is not done")

	// ErrCancelled is returned from a suspension point in a task that was cancelled because its
	// loop was closed while the task was still suspended.
	ErrCancelled = errors.New("task was cancelled")
)
