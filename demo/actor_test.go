package demo

import (
	"context"
	"testing"
	"time"

	"github.com/launchdarkly/async-test-harness/framework/asynctest"
	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/fixtures"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"

	"github.com/alicebob/miniredis/v2"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestJobEncoding(t *testing.T) {
	when := time.UnixMilli(1700000000123)
	job := Job{Name: "send", Args: ldvalue.ArrayOf(ldvalue.String("a"), ldvalue.Int(2)), EnqueuedAt: when}

	data := MarshalJob(job)
	assert.JSONEq(t, `{"name":"send","args":["a",2],"enqueued_ms":1700000000123}`, string(data))

	decoded, err := UnmarshalJob(data)
	require.NoError(t, err)
	assert.Equal(t, "send", decoded.Name)
	assert.True(t, job.Args.Equal(decoded.Args))
	assert.True(t, when.Equal(decoded.EnqueuedAt))
}

func TestJobEncodingKeepsDistantTimestamps(t *testing.T) {
	when := time.Date(2500, time.January, 2, 3, 4, 5, 678000000, time.UTC)

	data := MarshalJob(Job{Name: "later", EnqueuedAt: when})
	assert.JSONEq(t, `{"name":"later","args":null,"enqueued_ms":16725323045678}`, string(data))

	decoded, err := UnmarshalJob(data)
	require.NoError(t, err)
	assert.True(t, when.Equal(decoded.EnqueuedAt), "got %s", decoded.EnqueuedAt)
}

func TestUnmarshalJobErrors(t *testing.T) {
	_, err := UnmarshalJob([]byte(`{"name":`))
	assert.ErrorContains(t, err, "malformed job JSON")

	_, err = UnmarshalJob([]byte(`{"args":[]}`))
	assert.ErrorContains(t, err, "job has no name")
}

func newSuite(server *miniredis.Miniredis, tests ...*ldtest.TestFunc) *ldtest.Suite {
	s := asynctest.Install(ldtest.NewSuite("demo"))
	opts := &redis.Options{Addr: server.Addr()}
	fixtures.Register(s.Fixtures(), fixtures.Config{Redis: opts, Subject: Factory(Config{Redis: opts})})
	return s.Add(tests...)
}

func TestActorEnqueuesAndLogs(t *testing.T) {
	server := miniredis.RunT(t)
	var logged string
	result := ldtest.Run(ldtest.TestConfiguration{}, newSuite(server,
		ldtest.AsyncTest("enqueue", func(ctx context.Context, lt *ldtest.T, args ldtest.Args) {
			logcap := ldtest.MustArg[*fixtures.LogCapture](lt, args, fixtures.LogCaptureFixture)
			logcap.SetLogger(LoggerName, zapcore.DebugLevel)

			subject, err := ldtest.MustArg[*fixtures.SubjectResource](lt, args, fixtures.SubjectFixture).Create(ctx)
			require.NoError(lt, err)
			actor := subject.(*Actor)
			assert.Equal(lt, DefaultQueue, actor.Queue())

			require.NoError(lt, actor.Enqueue(ctx, "first", ldvalue.Int(1)))
			require.NoError(lt, actor.Enqueue(ctx, "second"))

			n, err := actor.Len(ctx)
			require.NoError(lt, err)
			assert.Equal(lt, int64(2), n)

			jobs, err := actor.Jobs(ctx)
			require.NoError(lt, err)
			require.Len(lt, jobs, 2)
			assert.Equal(lt, "first", jobs[0].Name)
			assert.Equal(lt, "second", jobs[1].Name)
			assert.Equal(lt, 0, jobs[1].Args.Count())

			logged = logcap.Log()
		}).Uses(fixtures.LogCaptureFixture, fixtures.SubjectFixture),
	).Run)

	assert.True(t, result.OK(), "%+v", result.Failures)
	assert.Contains(t, logged, "actor started {\"queue\": \"demo:queue:default\"}\n")
	assert.Contains(t, logged, "enqueued job {\"job\": \"first\", \"queued\": 1}\n")
	assert.Contains(t, logged, "enqueued job {\"job\": \"second\", \"queued\": 2}\n")
}

func TestActorClose(t *testing.T) {
	server := miniredis.RunT(t)
	loop := eventloop.New()
	defer loop.Shutdown()

	err := loop.RunTask(context.Background(), func(ctx context.Context) error {
		actor, err := New(ctx, fixtures.SubjectEnv{Loop: loop}, Config{Redis: &redis.Options{Addr: server.Addr()}, Queue: "q"})
		if err != nil {
			return err
		}
		if err := actor.Close(ctx); err != nil {
			return err
		}
		assert.NoError(t, actor.Close(ctx))
		assert.ErrorIs(t, actor.Enqueue(ctx, "late"), ErrClosed)
		_, err = actor.Len(ctx)
		assert.ErrorIs(t, err, ErrClosed)
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, server.Exists("q"))
}

func TestNewRequiresItsLoop(t *testing.T) {
	loop, other := eventloop.New(), eventloop.New()
	defer loop.Shutdown()
	defer other.Shutdown()

	err := other.RunTask(context.Background(), func(ctx context.Context) error {
		_, err := New(ctx, fixtures.SubjectEnv{Loop: loop}, Config{})
		return err
	})
	assert.ErrorIs(t, err, fixtures.ErrWrongLoop)
}

func TestNewFailsWithoutRedis(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()
	loop := eventloop.New()
	defer loop.Shutdown()

	err := loop.RunTask(context.Background(), func(ctx context.Context) error {
		_, err := New(ctx, fixtures.SubjectEnv{Loop: loop}, Config{Redis: &redis.Options{Addr: addr, MaxRetries: -1}})
		return err
	})
	assert.ErrorContains(t, err, "actor could not reach redis at "+addr)
}
