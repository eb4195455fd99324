// Package cache implements the cache adapter. The Redis-backed Store wires
// the teacher's unused go-redis dependency; the in-process Store mirrors the
// teacher's infrastructure/cache.Cache TTL-map shape for local runs and tests.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

// RedisStore implements storage.CacheAdapter over go-redis/redis/v8.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials url (e.g. "redis://localhost:6379/0").
func NewRedisStore(url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: redis.NewClient(opt)}, nil
}

var _ storage.CacheAdapter = (*RedisStore)(nil)

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *RedisStore) ListPushBounded(ctx context.Context, key, value string, maxLen int) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, int64(maxLen-1))
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) ListRange(ctx context.Context, key string) ([]string, error) {
	return r.client.LRange(ctx, key, 0, -1).Result()
}

func (r *RedisStore) Health(ctx context.Context) storage.Health {
	start := time.Now()
	err := r.client.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return storage.Health{OK: false, LatencyMS: latency, Detail: err.Error()}
	}
	return storage.Health{OK: true, LatencyMS: latency}
}
