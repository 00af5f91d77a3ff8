package harnesstests

import (
	"context"
	"errors"
	"time"

	"github.com/launchdarkly/async-test-harness/framework/asynctest"
	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/helpers"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

func loopTests() []*ldtest.TestFunc {
	return []*ldtest.TestFunc{
		ldtest.AsyncTest("loop runs test as task", func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
			loop, ok := eventloop.FromContext(ctx)
			m.In(t).For("running on a loop").Require(ok, m.Equal(true))
			m.In(t).For("loop is running").Assert(loop.IsRunning(), m.Equal(true))
			m.In(t).For("loop fixture").Assert(loop == args[asynctest.LoopFixtureName], m.Equal(true))
		}).Uses(asynctest.LoopFixtureName),

		ldtest.AsyncTest("loop tasks interleave", func(ctx context.Context, t *ldtest.T, _ ldtest.Args) {
			loop, _ := eventloop.FromContext(ctx)
			var order []string
			other := loop.CreateTask(ctx, func(ctx context.Context) error {
				order = append(order, "other started")
				if err := eventloop.Yield(ctx); err != nil {
					return err
				}
				order = append(order, "other finished")
				return nil
			})
			order = append(order, "test created task")
			m.In(t).Require(eventloop.Yield(ctx), m.BeNil())
			order = append(order, "test resumed")
			for !other.Done() {
				m.In(t).Require(eventloop.Yield(ctx), m.BeNil())
			}
			m.In(t).Assert(other.Result(), m.BeNil())
			m.In(t).Assert(order, m.Items(
				m.Equal("test created task"),
				m.Equal("other started"),
				m.Equal("test resumed"),
				m.Equal("other finished"),
			))
		}),

		ldtest.AsyncTest("loop sleep", func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
			d := args["delay"].(time.Duration)
			start := time.Now()
			m.In(t).Require(eventloop.Sleep(ctx, d), m.BeNil())
			m.In(t).For("elapsed at least delay").Assert(time.Since(start) >= d, m.Equal(true))
		}).Parametrize(
			ldtest.Case("zero", ldtest.Args{"delay": time.Duration(0)}),
			ldtest.Case("short", ldtest.Args{"delay": 20 * time.Millisecond}),
		),

		ldtest.AsyncTest("loop future resolved by other task", func(ctx context.Context, t *ldtest.T, _ ldtest.Args) {
			loop, _ := eventloop.FromContext(ctx)
			f := eventloop.NewFuture[string](loop)
			loop.CreateTask(ctx, func(ctx context.Context) error {
				if err := eventloop.Sleep(ctx, time.Millisecond); err != nil {
					return err
				}
				f.Resolve("done", nil)
				return nil
			})
			value, err := eventloop.Await(ctx, f)
			m.In(t).Require(err, m.BeNil())
			m.In(t).Assert(value, m.Equal("done"))
		}),

		ldtest.AsyncTest("loop background task observed by polling", func(ctx context.Context, t *ldtest.T, _ ldtest.Args) {
			loop, _ := eventloop.FromContext(ctx)
			ticks := 0
			loop.CreateTask(ctx, func(ctx context.Context) error {
				for i := 0; i < 3; i++ {
					if err := eventloop.Sleep(ctx, time.Millisecond); err != nil {
						return err
					}
					ticks++
				}
				return nil
			})
			helpers.RequireEventually(ctx, t, func() bool { return ticks == 3 }, time.Second, time.Millisecond,
				"background task did not finish")
			helpers.AssertNever(ctx, t, func() bool { return ticks > 3 }, 10*time.Millisecond, time.Millisecond,
				"background task kept running")
		}),

		ldtest.AsyncTest("loop call returns error", func(ctx context.Context, t *ldtest.T, _ ldtest.Args) {
			failure := errors.New("sorry")
			_, err := eventloop.Call(ctx, func() (int, error) { return 0, failure })
			m.In(t).Assert(errors.Is(err, failure), m.Equal(true))
		}),

		ldtest.Test("loop sync test runs without loop", func(t *ldtest.T, args ldtest.Args) {
			_, ok := args[asynctest.LoopFixtureName]
			m.In(t).For("no loop argument").Assert(ok, m.Equal(false))
		}),
	}
}

func sharedLoopTests() []*ldtest.TestFunc {
	var first *eventloop.Loop
	sameLoop := func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
		loop := ldtest.MustArg[*eventloop.Loop](t, args, asynctest.LoopFixtureName)
		current, _ := eventloop.FromContext(ctx)
		m.In(t).For("task runs on fixture loop").Assert(current == loop, m.Equal(true))
		if first == nil {
			first = loop
			return
		}
		m.In(t).For("same loop as earlier test").Assert(loop == first, m.Equal(true))
		m.In(t).For("loop still open").Assert(loop.IsClosed(), m.Equal(false))
	}
	return []*ldtest.TestFunc{
		ldtest.AsyncTest("loop shared", sameLoop).
			Uses(asynctest.LoopFixtureName).
			Parametrize(ldtest.Case("first", nil), ldtest.Case("second", nil)),
	}
}
