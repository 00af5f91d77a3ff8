package fixtures

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/launchdarkly/async-test-harness/framework"
	"github.com/launchdarkly/async-test-harness/framework/asynctest"
	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"
	"github.com/launchdarkly/async-test-harness/framework/logging"
	"github.com/launchdarkly/async-test-harness/framework/stores"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type debugOutputLogger struct {
	outputs map[string]framework.CapturedOutput
}

func (l *debugOutputLogger) TestStarted(ldtest.TestID)      {}
func (l *debugOutputLogger) TestError(ldtest.TestID, error) {}
func (l *debugOutputLogger) TestFinished(id ldtest.TestID, _ ldtest.TestResult, out framework.CapturedOutput) {
	l.outputs[id.String()] = out
}
func (l *debugOutputLogger) TestSkipped(ldtest.TestID, string) {}
func (l *debugOutputLogger) EndLog(ldtest.Results) error       { return nil }

func newSuite(cfg Config, tests ...*ldtest.TestFunc) *ldtest.Suite {
	s := asynctest.Install(ldtest.NewSuite("fixtures"))
	Register(s.Fixtures(), cfg)
	return s.Add(tests...)
}

func runSuite(s *ldtest.Suite) ldtest.Results {
	return ldtest.Run(ldtest.TestConfiguration{}, s.Run)
}

func redisOptions(server *miniredis.Miniredis) *redis.Options {
	return &redis.Options{Addr: server.Addr()}
}

func TestRedisConnFlushesAtFirstUseAndTeardown(t *testing.T) {
	server := miniredis.RunT(t)
	require.NoError(t, server.Set("stale", "x"))

	var conn *RedisConn
	result := runSuite(newSuite(Config{Redis: redisOptions(server)},
		ldtest.AsyncTest("uses redis", func(ctx context.Context, lt *ldtest.T, args ldtest.Args) {
			conn = ldtest.MustArg[*RedisConn](lt, args, RedisConnFixture)
			assert.Equal(lt, Unacquired, conn.State())

			client, err := conn.Get(ctx)
			require.NoError(lt, err)
			assert.False(lt, server.Exists("stale"))

			_, err = eventloop.Call(ctx, func() (string, error) {
				return client.Set(ctx, "mine", "1", 0).Result()
			})
			require.NoError(lt, err)
			assert.True(lt, server.Exists("mine"))

			again, err := conn.Get(ctx)
			require.NoError(lt, err)
			assert.Same(lt, client, again)
		}).Uses(RedisConnFixture),
	))

	assert.True(t, result.OK(), "%+v", result.Failures)
	require.NotNil(t, conn)
	assert.Equal(t, Released, conn.State())
	assert.False(t, server.Exists("mine"))
}

func TestRedisConnTeardownFlushesEvenIfNeverUsed(t *testing.T) {
	server := miniredis.RunT(t)
	require.NoError(t, server.Set("stale", "x"))

	result := runSuite(newSuite(Config{Redis: redisOptions(server)},
		ldtest.AsyncTest("ignores redis", func(context.Context, *ldtest.T, ldtest.Args) {}).
			Uses(RedisConnFixture),
	))

	assert.True(t, result.OK(), "%+v", result.Failures)
	assert.False(t, server.Exists("stale"))
}

func TestRedisConnTeardownFailureIsReported(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	result := runSuite(newSuite(Config{Redis: &redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: time.Second}},
		ldtest.AsyncTest("ignores redis", func(context.Context, *ldtest.T, ldtest.Args) {}).
			Uses(RedisConnFixture),
	))

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "fixtures/ignores redis", result.Failures[0].TestID.String())
	require.Len(t, result.Failures[0].Errors, 1)
	assert.Contains(t, result.Failures[0].Errors[0].Error(), `tearing down fixture "redis_conn"`)
	assert.Contains(t, result.Failures[0].Errors[0].Error(), "connecting to redis at "+addr)
}

func TestRedisConnRejectsOtherLoop(t *testing.T) {
	server := miniredis.RunT(t)
	conn := NewRedisConn(eventloop.New(), redisOptions(server))
	assert.Equal(t, server.Addr(), conn.Addr())

	other := eventloop.New()
	defer other.Shutdown()
	err := other.RunTask(context.Background(), func(ctx context.Context) error {
		_, err := conn.Get(ctx)
		return err
	})
	assert.True(t, errors.Is(err, ErrWrongLoop))

	_, err = conn.Get(context.Background())
	assert.True(t, errors.Is(err, eventloop.ErrNoTask))
	assert.Equal(t, Unacquired, conn.State())
}

func TestNewRedisConnDefaultAddress(t *testing.T) {
	assert.Equal(t, DefaultRedisAddr, NewRedisConn(eventloop.New(), nil).Addr())
}

func TestWorkDirFixture(t *testing.T) {
	original := mustGetwd(t)
	var dir string
	result := runSuite(newSuite(Config{},
		ldtest.Test("moves around", func(lt *ldtest.T, args ldtest.Args) {
			w := ldtest.MustArg[*WorkDir](lt, args, WorkDirFixture)
			dir = w.Path()
			require.NoError(lt, os.Mkdir("inner", 0o700))
			require.NoError(lt, os.Chdir("inner"))
		}).Uses(WorkDirFixture),
	))

	assert.True(t, result.OK(), "%+v", result.Failures)
	assertSameDir(t, original, mustGetwd(t))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestDebugLoggerWritesToTestOutput(t *testing.T) {
	registry := logging.NewRegistry()
	output := &debugOutputLogger{outputs: map[string]framework.CapturedOutput{}}
	s := newSuite(Config{Logs: registry, DebugLogger: "diag"},
		ldtest.Test("logs", func(lt *ldtest.T, args ldtest.Args) {
			logger := ldtest.MustArg[*zap.Logger](lt, args, DebugLoggerFixture)
			logger.Debug("hello")
			registry.Logger("diag.child").Info("from child")
			registry.Logger("elsewhere").Info("not shown")
		}).Uses(DebugLoggerFixture),
	)

	result := ldtest.Run(ldtest.TestConfiguration{TestLogger: output}, s.Run)
	assert.True(t, result.OK(), "%+v", result.Failures)

	var messages []string
	for _, m := range output.outputs["fixtures/logs"] {
		messages = append(messages, m.Message)
	}
	assert.Equal(t, []string{"DEBUG diag hello", "INFO diag.child from child"}, messages)
	assert.Equal(t, 0, registry.HandlerCount("diag"))
	_, set := registry.Level("diag")
	assert.False(t, set)
}

func TestLogRegistryIsSharedAcrossSuite(t *testing.T) {
	var seen []*logging.Registry
	body := func(lt *ldtest.T, args ldtest.Args) {
		seen = append(seen, ldtest.MustArg[*logging.Registry](lt, args, LogRegistryFixture))
	}
	result := runSuite(newSuite(Config{},
		ldtest.Test("one", body).Uses(LogRegistryFixture),
		ldtest.Test("two", body).Uses(LogRegistryFixture),
	))
	assert.True(t, result.OK(), "%+v", result.Failures)
	require.Len(t, seen, 2)
	assert.Same(t, seen[0], seen[1])
}

type fakeSubject struct {
	loop   *eventloop.Loop
	closed int
}

func (s *fakeSubject) Close(ctx context.Context) error {
	if lp, ok := eventloop.FromContext(ctx); !ok || lp != s.loop {
		return errors.New("closed off the loop")
	}
	s.closed++
	return nil
}

func TestSubjectClosedOnlyIfCreated(t *testing.T) {
	var created []*fakeSubject
	factory := func(ctx context.Context, env SubjectEnv) (Subject, error) {
		s := &fakeSubject{loop: env.Loop}
		created = append(created, s)
		return s, nil
	}
	result := runSuite(newSuite(Config{Subject: factory},
		ldtest.AsyncTest("creates", func(ctx context.Context, lt *ldtest.T, args ldtest.Args) {
			res := ldtest.MustArg[*SubjectResource](lt, args, SubjectFixture)
			first, err := res.Create(ctx)
			require.NoError(lt, err)
			second, err := res.Create(ctx)
			require.NoError(lt, err)
			assert.Same(lt, first, second)
		}).Uses(SubjectFixture),
		ldtest.AsyncTest("fails early", func(_ context.Context, lt *ldtest.T, _ ldtest.Args) {
			lt.Errorf("early failure")
			lt.FailNow()
		}).Uses(SubjectFixture),
	))

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "fixtures/fails early", result.Failures[0].TestID.String())
	require.Len(t, result.Failures[0].Errors, 1)
	require.Len(t, created, 1)
	assert.Equal(t, 1, created[0].closed)
}

func TestSubjectFactoryErrorIsReturned(t *testing.T) {
	factory := func(context.Context, SubjectEnv) (Subject, error) { return nil, errors.New("boom") }
	loop := eventloop.New()
	defer loop.Shutdown()
	res := NewSubjectResource(SubjectEnv{Loop: loop}, factory)

	err := loop.RunTask(context.Background(), func(ctx context.Context) error {
		_, err := res.Create(ctx)
		return err
	})
	assert.EqualError(t, err, "boom")
	assert.NoError(t, res.Teardown())
	assert.Equal(t, Released, res.State())
}

func TestStoreFixtureResetsAroundTest(t *testing.T) {
	server := miniredis.RunT(t)
	require.NoError(t, server.Set("stale", "x"))
	factory := stores.FactoryFor(stores.Config{Type: stores.Redis, RedisAddr: server.Addr()})

	var res *StoreResource
	result := runSuite(newSuite(Config{Store: factory},
		ldtest.AsyncTest("writes", func(ctx context.Context, lt *ldtest.T, args ldtest.Args) {
			res = ldtest.MustArg[*StoreResource](lt, args, StoreFixture)
			assert.Equal(lt, Acquired, res.State())
			assert.False(lt, server.Exists("stale"))

			store, err := res.Get(ctx)
			require.NoError(lt, err)
			_, err = eventloop.Call(ctx, func() (struct{}, error) {
				return struct{}{}, store.WriteData(ctx, "items", map[string]string{"a": "1"})
			})
			require.NoError(lt, err)
			assert.True(lt, server.Exists("items"))
		}).Uses(StoreFixture),
	))

	assert.True(t, result.OK(), "%+v", result.Failures)
	assert.Equal(t, Released, res.State())
	assert.False(t, server.Exists("items"))
}

func TestStoreFixtureSetupFailure(t *testing.T) {
	factory := stores.FactoryFor(stores.Config{Type: "nope"})
	bodyRan := false
	result := runSuite(newSuite(Config{Store: factory},
		ldtest.AsyncTest("never runs", func(context.Context, *ldtest.T, ldtest.Args) { bodyRan = true }).
			Uses(StoreFixture),
	))

	assert.False(t, bodyRan)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Errors[0].Error(), `setting up fixture "store"`)
	assert.Contains(t, result.Failures[0].Errors[0].Error(), stores.ErrUnknownType.Error())
}

func TestStoreFixtureCanBeNonCritical(t *testing.T) {
	factory := stores.FactoryFor(stores.Config{Type: "nope"})
	result := runSuite(newSuite(Config{Store: factory, StoreNonCritical: "optional backend"},
		ldtest.AsyncTest("uses store", func(context.Context, *ldtest.T, ldtest.Args) {}).
			Uses(StoreFixture),
		ldtest.AsyncTest("no store", func(context.Context, *ldtest.T, ldtest.Args) {}),
	))

	assert.True(t, result.OK())
	assert.Len(t, result.Failures, 0)
	require.Len(t, result.NonCriticalFailures, 1)
	assert.Equal(t, "fixtures/uses store", result.NonCriticalFailures[0].TestID.String())
	assert.Equal(t, "optional backend", result.NonCriticalFailures[0].Explanation)
}
