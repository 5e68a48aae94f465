// Package ratelimit implements the per-client request budget applied to
// /api routes: a fixed window counted in Redis, and an in-process token
// bucket used when Redis is not available.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the state of a key after one request was counted.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter counts a request against key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Failover asks primary first and falls back to secondary when primary
// returns an error. OnError, if set, sees every primary failure.
type Failover struct {
	Primary   Limiter
	Secondary Limiter
	OnError   func(ctx context.Context, err error)
}

func (f *Failover) Allow(ctx context.Context, key string) (Result, error) {
	res, err := f.Primary.Allow(ctx, key)
	if err == nil {
		return res, nil
	}
	if f.OnError != nil {
		f.OnError(ctx, err)
	}
	return f.Secondary.Allow(ctx, key)
}

func remaining(limit int, used int64) int {
	if r := int64(limit) - used; r > 0 {
		return int(r)
	}
	return 0
}
