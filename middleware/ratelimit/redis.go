package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares counters between instances. Each key holds the count
// and expires with its window (INCR + EXPIRE NX).
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ecostep:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFromURL connects to url (redis://host:port/db) and checks the
// connection.
func NewRedisStoreFromURL(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(client, ""), nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string) (int, time.Time, bool, error) {
	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, s.key(key))
	ttl := pipe.PTTL(ctx, s.key(key))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, time.Time{}, false, err
	}

	count, err := get.Int()
	if errors.Is(err, redis.Nil) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, err
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		return 0, time.Time{}, false, nil
	}
	return count, time.Now().Add(remaining), true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, count int, resetTime time.Time) error {
	ttl := time.Until(resetTime)
	if ttl <= 0 {
		return s.Reset(ctx, key)
	}
	return s.client.Set(ctx, s.key(key), count, ttl).Err()
}

// Increment bumps the counter and opens the window in one MULTI/EXEC.
// EXPIRE NX only applies to a key without a TTL, so it starts the window on
// the first hit and repairs a key that somehow lost its expiry. Needs
// Redis 7.0 or newer.
func (s *RedisStore) Increment(ctx context.Context, key string, resetTime time.Time) (int, error) {
	ttl := time.Until(resetTime)
	if ttl < time.Second {
		ttl = time.Second
	}
	// EXPIRE takes whole seconds
	ttl = (ttl + time.Second - 1).Truncate(time.Second)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, s.key(key))
	pipe.ExpireNX(ctx, s.key(key), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return int(incr.Val()), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
