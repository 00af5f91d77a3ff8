package harnesstests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/fixtures"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"
	"github.com/launchdarkly/async-test-harness/framework/logging"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const testKeyPrefix = "harness:"

func fixtureTests() []*ldtest.TestFunc {
	return []*ldtest.TestFunc{
		ldtest.Test("tmpworkdir changes directory", func(t *ldtest.T, args ldtest.Args) {
			w := ldtest.MustArg[*fixtures.WorkDir](t, args, fixtures.WorkDirFixture)
			cwd, err := os.Getwd()
			m.In(t).Require(err, m.BeNil())
			m.In(t).For("working directory").Assert(sameDir(cwd, w.Path()), m.Equal(true))
			m.In(t).Require(os.WriteFile(filepath.Join(w.Path(), "scratch.txt"), []byte("x"), 0o600), m.BeNil())
		}).Uses(fixtures.WorkDirFixture),

		ldtest.AsyncTest("logcap captures bound logger", func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
			logcap := ldtest.MustArg[*fixtures.LogCapture](t, args, fixtures.LogCaptureFixture)
			registry := ldtest.MustArg[*logging.Registry](t, args, fixtures.LogRegistryFixture)
			name := args["logger"].(string)
			logcap.SetLogger(name, zapcore.InfoLevel)

			log := registry.Logger(name)
			log.Debug("below level")
			log.Info("first", zap.Int("n", 1))
			m.In(t).Require(eventloop.Yield(ctx), m.BeNil())
			log.Warn("second")

			m.In(t).Assert(logcap.Log(), m.Equal("first {\"n\": 1}\nsecond\n"))
		}).Uses(fixtures.LogCaptureFixture, fixtures.LogRegistryFixture).Parametrize(
			ldtest.Case("root", ldtest.Args{"logger": ""}),
			ldtest.Case("named", ldtest.Args{"logger": "harness.logcap"}),
		),

		ldtest.Test("debug_logger writes to test output", func(t *ldtest.T, args ldtest.Args) {
			log := ldtest.MustArg[*zap.Logger](t, args, fixtures.DebugLoggerFixture)
			log.Debug("debug logger attached")
		}).Uses(fixtures.DebugLoggerFixture),

		ldtest.AsyncTest("redis_conn is flushed", func(ctx context.Context, t *ldtest.T, args ldtest.Args) {
			conn := ldtest.MustArg[*fixtures.RedisConn](t, args, fixtures.RedisConnFixture)
			m.In(t).For("state before use").Assert(conn.State(), m.Equal(fixtures.Unacquired))
			client, err := conn.Get(ctx)
			m.In(t).Require(err, m.BeNil())

			keys, err := eventloop.Call(ctx, func() ([]string, error) {
				return client.Keys(ctx, "*").Result()
			})
			m.In(t).Require(err, m.BeNil())
			m.In(t).For("keys at start").Assert(keys, m.Length().Should(m.Equal(0)))

			count := args["keys"].(int)
			for i := 0; i < count; i++ {
				key := fmt.Sprintf("%s%d", testKeyPrefix, i)
				_, err := eventloop.Call(ctx, func() (string, error) {
					return client.Set(ctx, key, i, 0).Result()
				})
				m.In(t).Require(err, m.BeNil())
			}
			size, err := eventloop.Call(ctx, func() (int64, error) { return client.DBSize(ctx).Result() })
			m.In(t).Require(err, m.BeNil())
			m.In(t).Assert(size, m.Equal(int64(count)))
		}).Uses(fixtures.RedisConnFixture).Parametrize(
			ldtest.Case("one key", ldtest.Args{"keys": 1}),
			ldtest.Case("many keys", ldtest.Args{"keys": 25}),
		),
	}
}

func sameDir(a, b string) bool {
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}
