// Package asynctest lets ldtest suites contain coroutine test functions.
//
// Without this package the runner refuses to run functions registered with ldtest.AsyncTest.
// Installing Plugin makes the collector generate items for them exactly as it does for ordinary
// functions, and runs each such item as a single task on an event loop: either the loop that
// the test received from the "loop" fixture, or a loop created for that one call and shut down
// afterward.
package asynctest

import (
	"context"

	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"
	o "github.com/launchdarkly/async-test-harness/framework/opt"
)

// LoopFixtureName is the fixture name under which a test can receive an event loop.
const LoopFixtureName = "loop"

// Plugin implements ldtest.Plugin for coroutine test functions.
type Plugin struct{}

// Install adds the plugin to s and registers a test-scoped loop fixture. A suite that wants all
// of its tests to share one loop can register LoopFixture(ldtest.ScopeSuite) afterward.
func Install(s *ldtest.Suite) *ldtest.Suite {
	s.Fixtures().Register(LoopFixture(ldtest.ScopeTest))
	return s.Use(Plugin{})
}

// MakeItems claims coroutine functions whose names pass the collector's filter, and generates
// one item per parametrization. Anything else, or a call without a collector, is left to the
// default collector.
func (Plugin) MakeItems(c *ldtest.Collector, name string, fn *ldtest.TestFunc) ([]ldtest.Item, bool) {
	if c == nil || fn == nil || fn.Kind() != ldtest.Async || !c.FuncNameFilter(name) {
		return nil, false
	}
	return c.GenFunctions(name, fn), true
}

// CallItem runs a coroutine item to completion on an event loop. It returns false for anything
// else, so that the runner calls the function synchronously.
//
// A panic in the test body, including the one T.FailNow uses, is raised again here with the
// same value. If the loop cannot run the task, that is reported as a test failure.
func (Plugin) CallItem(t *ldtest.T, inv *ldtest.Invocation) bool {
	if inv.Item.Func.Kind() != ldtest.Async {
		return false
	}
	borrowed, ok := ldtest.ArgAs[*eventloop.Loop](inv.Args, LoopFixtureName)
	existing := o.FromLookup(borrowed, ok)
	args := inv.TestArgs()
	err := WithLoop(existing, func(loop *eventloop.Loop) error {
		task := loop.CreateTask(context.Background(), func(ctx context.Context) error {
			inv.Item.Func.CallAsync(ctx, t, args)
			return nil
		})
		return loop.RunUntilComplete(task)
	})
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
	return true
}

// WithLoop calls action with existing if it is defined, and otherwise with a new loop that is
// shut down after action returns or panics. An existing loop is never stopped or closed here.
func WithLoop(existing o.Maybe[*eventloop.Loop], action func(*eventloop.Loop) error) (err error) {
	if existing.IsDefined() {
		return action(existing.Value())
	}
	loop := eventloop.New()
	defer func() {
		if shutdownErr := loop.Shutdown(); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()
	return action(loop)
}

// LoopFixture returns the fixture that provides an event loop in the given scope. The loop is
// shut down when the scope ends.
func LoopFixture(scope ldtest.Scope) ldtest.Fixture {
	return ldtest.Fixture{
		Name:  LoopFixtureName,
		Scope: scope,
		Setup: func(t *ldtest.T, _ ldtest.Args) (interface{}, error) {
			loop := eventloop.New()
			t.Defer(func() {
				if err := loop.Shutdown(); err != nil {
					t.Errorf("shutting down event loop: %s", err)
				}
			})
			return loop, nil
		},
	}
}
