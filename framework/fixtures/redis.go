package fixtures

import (
	"context"
	"errors"
	"fmt"

	"github.com/launchdarkly/async-test-harness/framework/eventloop"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisAddr is the address the redis_conn fixture connects to unless configured otherwise.
const DefaultRedisAddr = "localhost:6379"

// RedisConn is a lazily opened redis connection bound to an event loop. The database is flushed
// when the connection is first opened and again at teardown, so a test never sees data left by
// another test and never leaves any behind.
//
// Teardown always flushes, which means it opens a connection if the test never did. A test that
// declares redis_conn therefore requires a reachable server even if it never calls Get.
type RedisConn struct {
	loop *eventloop.Loop
	opts redis.Options
	res  *Resource[*redis.Client]
}

// NewRedisConn creates an unopened connection for loop. A nil opts means DefaultRedisAddr.
func NewRedisConn(loop *eventloop.Loop, opts *redis.Options) *RedisConn {
	c := &RedisConn{loop: loop}
	if opts != nil {
		c.opts = *opts
	}
	if c.opts.Addr == "" {
		c.opts.Addr = DefaultRedisAddr
	}
	c.res = NewResource(c.open, c.close)
	return c
}

// Loop returns the loop the connection is bound to.
func (c *RedisConn) Loop() *eventloop.Loop { return c.loop }

// Addr returns the server address.
func (c *RedisConn) Addr() string { return c.opts.Addr }

// State returns the resource state.
func (c *RedisConn) State() State { return c.res.State() }

// Get returns the client, opening and flushing it on first use. It must be called from a task
// running on the connection's loop.
func (c *RedisConn) Get(ctx context.Context) (*redis.Client, error) {
	if err := c.checkLoop(ctx); err != nil {
		return nil, err
	}
	return c.res.Get(ctx)
}

// Teardown flushes and closes the connection by running a task on the bound loop, and waits for
// that to finish. The loop must not be running.
func (c *RedisConn) Teardown() error {
	return c.loop.RunTask(context.Background(), c.res.Release)
}

func (c *RedisConn) checkLoop(ctx context.Context) error {
	lp, ok := eventloop.FromContext(ctx)
	if !ok {
		return eventloop.ErrNoTask
	}
	if lp != c.loop {
		return ErrWrongLoop
	}
	return nil
}

func (c *RedisConn) open(ctx context.Context) (*redis.Client, error) {
	opts := c.opts
	client := redis.NewClient(&opts)
	_, err := eventloop.Call(ctx, func() (struct{}, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, client.FlushAll(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", c.opts.Addr, err)
	}
	return client, nil
}

func (c *RedisConn) close(ctx context.Context, client *redis.Client, acquired bool) error {
	if !acquired {
		var err error
		if client, err = c.open(ctx); err != nil {
			return err
		}
	}
	_, err := eventloop.Call(ctx, func() (struct{}, error) {
		flushErr := client.FlushAll(ctx).Err()
		return struct{}{}, errors.Join(flushErr, client.Close())
	})
	return err
}
