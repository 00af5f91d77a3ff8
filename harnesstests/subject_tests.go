package harnesstests

import (
	"context"

	"github.com/launchdarkly/async-test-harness/demo"
	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/fixtures"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"go.uber.org/zap/zapcore"
)

func subjectTests() []*ldtest.TestFunc {
	return []*ldtest.TestFunc{
		ldtest.AsyncTest("subject enqueues jobs", func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
			logcap := ldtest.MustArg[*fixtures.LogCapture](t, args, fixtures.LogCaptureFixture)
			logcap.SetLogger(demo.LoggerName, zapcore.DebugLevel)
			resource := ldtest.MustArg[*fixtures.SubjectResource](t, args, fixtures.SubjectFixture)
			conn := ldtest.MustArg[*fixtures.RedisConn](t, args, fixtures.RedisConnFixture)

			client, err := conn.Get(ctx)
			m.In(t).Require(err, m.BeNil())
			subject, err := resource.Create(ctx)
			m.In(t).Require(err, m.BeNil())
			actor := subject.(*demo.Actor)

			jobArgs := args["args"].([]ldvalue.Value)
			m.In(t).Require(actor.Enqueue(ctx, "job", jobArgs...), m.BeNil())

			jobs, err := actor.Jobs(ctx)
			m.In(t).Require(err, m.BeNil())
			m.In(t).Require(jobs, m.Length().Should(m.Equal(1)))
			m.In(t).Assert(jobs[0].Name, m.Equal("job"))
			m.In(t).Assert(jobs[0].Args.Count(), m.Equal(len(jobArgs)))

			raw, err := eventloop.Call(ctx, func() (string, error) {
				return client.LIndex(ctx, actor.Queue(), 0).Result()
			})
			m.In(t).Require(err, m.BeNil())
			m.In(t).For("queued job").Assert(raw, m.StringHasPrefix(`{"name":"job","args":`))

			m.In(t).For("log").Assert(logcap.Log(), m.AllOf(
				m.StringHasPrefix("actor started"),
				m.StringContains(`enqueued job {"job": "job", "queued": 1}`),
			))
		}).Uses(fixtures.LogCaptureFixture, fixtures.SubjectFixture, fixtures.RedisConnFixture).Parametrize(
			ldtest.Case("no args", ldtest.Args{"args": []ldvalue.Value(nil)}),
			ldtest.Case("mixed args", ldtest.Args{"args": []ldvalue.Value{
				ldvalue.String("a"), ldvalue.Int(2), ldvalue.Bool(true),
			}}),
		),

		ldtest.AsyncTest("subject is not created unless asked", func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
			resource := ldtest.MustArg[*fixtures.SubjectResource](t, args, fixtures.SubjectFixture)
			m.In(t).Assert(resource.State(), m.Equal(fixtures.Unacquired))
		}).Uses(fixtures.SubjectFixture),
	}
}
