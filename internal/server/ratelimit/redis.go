package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// counterStore is the subset of *redis.Client the limiter needs.
type counterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter is a fixed-window counter shared by every server instance
// that points at the same Redis.
type RedisLimiter struct {
	store  counterStore
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(store counterStore, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{store: store, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.prefix + key

	count, err := l.store.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("redis error: %w", err)
	}
	if count == 1 {
		if err := l.store.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("redis error: %w", err)
		}
	}

	ttl, err := l.store.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("redis error: %w", err)
	}
	// a key left without expiry would block the client forever
	if ttl < 0 {
		if err := l.store.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("redis error: %w", err)
		}
		ttl = l.window
	}

	return Result{
		Allowed:    count <= int64(l.limit),
		Limit:      l.limit,
		Remaining:  remaining(l.limit, count),
		ResetAfter: ttl,
	}, nil
}
