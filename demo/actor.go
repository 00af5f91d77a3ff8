// Package demo is a small job-queue actor that pushes jobs onto a redis list. It is the
// application under test for the bundled self-check suite.
package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/launchdarkly/async-test-harness/framework/eventloop"
	"github.com/launchdarkly/async-test-harness/framework/fixtures"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultQueue is the redis list that jobs go to unless configured otherwise.
	DefaultQueue = "demo:queue:default"

	// LoggerName is the registry logger the actor writes to.
	LoggerName = "demo"
)

// ErrClosed is returned by the methods of an Actor that has been closed.
var ErrClosed = errors.New("actor is closed")

type Config struct {
	Redis *redis.Options
	Queue string
}

// Actor enqueues jobs. Its methods must be called from tasks on the loop it was created on.
type Actor struct {
	loop   *eventloop.Loop
	client *redis.Client
	queue  string
	log    *zap.Logger
	closed bool
	now    func() time.Time
}

// New connects to redis and returns an actor bound to env.Loop. It must be called from a task
// on that loop.
func New(ctx context.Context, env fixtures.SubjectEnv, cfg Config) (*Actor, error) {
	if lp, ok := eventloop.FromContext(ctx); !ok || lp != env.Loop {
		return nil, fixtures.ErrWrongLoop
	}
	opts := redis.Options{}
	if cfg.Redis != nil {
		opts = *cfg.Redis
	}
	if opts.Addr == "" {
		opts.Addr = fixtures.DefaultRedisAddr
	}
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	a := &Actor{
		loop:   env.Loop,
		client: redis.NewClient(&opts),
		queue:  queue,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	if env.Logs != nil {
		a.log = env.Logs.Logger(LoggerName)
	}
	if _, err := eventloop.Call(ctx, func() (string, error) {
		return a.client.Ping(ctx).Result()
	}); err != nil {
		_ = a.client.Close()
		return nil, fmt.Errorf("actor could not reach redis at %s: %w", opts.Addr, err)
	}
	a.log.Info("actor started", zap.String("queue", queue))
	return a, nil
}

// Factory returns a SubjectFactory that creates actors with cfg.
func Factory(cfg Config) fixtures.SubjectFactory {
	return func(ctx context.Context, env fixtures.SubjectEnv) (fixtures.Subject, error) {
		a, err := New(ctx, env, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

// Queue returns the name of the redis list.
func (a *Actor) Queue() string { return a.queue }

// Enqueue appends a job to the queue.
func (a *Actor) Enqueue(ctx context.Context, name string, args ...ldvalue.Value) error {
	if a.closed {
		return ErrClosed
	}
	job := Job{Name: name, Args: ldvalue.ArrayOf(args...), EnqueuedAt: a.now()}
	data := MarshalJob(job)
	n, err := eventloop.Call(ctx, func() (int64, error) {
		return a.client.RPush(ctx, a.queue, data).Result()
	})
	if err != nil {
		return err
	}
	a.log.Debug("enqueued job", zap.String("job", name), zap.Int64("queued", n))
	return nil
}

// Len returns the number of jobs in the queue.
func (a *Actor) Len(ctx context.Context) (int64, error) {
	if a.closed {
		return 0, ErrClosed
	}
	return eventloop.Call(ctx, func() (int64, error) {
		return a.client.LLen(ctx, a.queue).Result()
	})
}

// Jobs returns the queued jobs, oldest first, without removing them.
func (a *Actor) Jobs(ctx context.Context) ([]Job, error) {
	if a.closed {
		return nil, ErrClosed
	}
	raw, err := eventloop.Call(ctx, func() ([]string, error) {
		return a.client.LRange(ctx, a.queue, 0, -1).Result()
	})
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(raw))
	for _, r := range raw {
		j, err := UnmarshalJob([]byte(r))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Close disconnects from redis. Closing twice is not an error.
func (a *Actor) Close(ctx context.Context) error {
	if a.closed {
		return nil
	}
	a.closed = true
	_, err := eventloop.Call(ctx, func() (struct{}, error) {
		return struct{}{}, a.client.Close()
	})
	a.log.Info("actor closed")
	return err
}
