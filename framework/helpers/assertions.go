// Package helpers contains assertions for coroutine tests that wait for a condition without
// stopping the event loop.
package helpers

import (
	"context"
	"time"

	"github.com/launchdarkly/async-test-harness/framework/eventloop"
)

// PollForSpecificResultValue calls testFn at intervals until it returns expectedValue or the
// timeout elapses. It must be called from a task: between calls the task sleeps on its loop, so
// other tasks keep running. It returns true if the value was seen, and false on timeout or if
// the task could not sleep.
func PollForSpecificResultValue[V comparable](
	ctx context.Context,
	testFn func() V,
	timeout time.Duration,
	interval time.Duration,
	expectedValue V,
) bool {
	deadline := time.Now().Add(timeout)
	for {
		if testFn() == expectedValue {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		if err := eventloop.Sleep(ctx, interval); err != nil {
			return false
		}
	}
}

// AssertEventually calls testFn at intervals until it returns true; if the timeout elapses
// first, the test fails. It is the loop-friendly equivalent of assert.Eventually, which would
// call testFn from another goroutine while the loop is blocked.
func AssertEventually(
	ctx context.Context,
	t TestContext,
	testFn func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) bool {
	if PollForSpecificResultValue(ctx, testFn, timeout, interval, true) {
		return true
	}
	t.Errorf(failureMsgFormat, failureMsgArgs...)
	return false
}

// RequireEventually is AssertEventually followed by FailNow on failure.
func RequireEventually(
	ctx context.Context,
	t TestContext,
	testFn func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) {
	if !AssertEventually(ctx, t, testFn, timeout, interval, failureMsgFormat, failureMsgArgs...) {
		t.FailNow()
	}
}

// AssertNever calls testFn at intervals until the timeout elapses; if it ever returns true, the
// test fails.
func AssertNever(
	ctx context.Context,
	t TestContext,
	testFn func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) bool {
	if PollForSpecificResultValue(ctx, testFn, timeout, interval, true) {
		t.Errorf(failureMsgFormat, failureMsgArgs...)
		return false
	}
	return true
}

// RequireNever is AssertNever followed by FailNow on failure.
func RequireNever(
	ctx context.Context,
	t TestContext,
	testFn func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) {
	if !AssertNever(ctx, t, testFn, timeout, interval, failureMsgFormat, failureMsgArgs...) {
		t.FailNow()
	}
}
