package stores

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a client; no connection is made until it is used. An empty addr leaves
// go-redis to pick its own default, which matches the redis_conn fixture's.
func NewRedisStore(addr string, db int, password string) *RedisStore {
	return &RedisStore{redis: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (r *RedisStore) Type() Type { return Redis }

func (r *RedisStore) DSN() string {
	return fmt.Sprintf("redis://%s", r.redis.Options().Addr)
}

func (r *RedisStore) Reset(ctx context.Context) error {
	return r.redis.FlushAll(ctx).Err()
}

func (r *RedisStore) WriteData(ctx context.Context, key string, data map[string]string) error {
	_, err := r.redis.HSet(ctx, key, data).Result()
	return err
}

func (r *RedisStore) ReadData(ctx context.Context, key string) (map[string]string, error) {
	return r.redis.HGetAll(ctx, key).Result()
}

func (r *RedisStore) Close() error {
	return r.redis.Close()
}
