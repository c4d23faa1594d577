// Package ratelimit implements a fixed-window request limiter backed by
// Redis, keyed per caller identity. A nil Redis client disables limiting.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts requests per identity within a rolling window.
type Limiter struct {
	Rdb    *redis.Client
	Limit  int
	Window time.Duration
}

// Allow reports whether the identity may proceed. The counter for a new
// window is created with an expiry so stale keys clean themselves up.
// Redis errors fail open: a broken limiter must not take the API down.
func (l *Limiter) Allow(ctx context.Context, identity string) (bool, error) {
	if l == nil || l.Rdb == nil || l.Limit <= 0 || l.Window <= 0 {
		return true, nil
	}
	key := bucketKey(identity, time.Now(), l.Window)
	n, err := l.Rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		l.Rdb.Expire(ctx, key, l.Window)
	}
	return n <= int64(l.Limit), nil
}

// bucketKey buckets time in window-sized slots. Nanosecond arithmetic
// keeps sub-second windows valid.
func bucketKey(identity string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("ratelimit:%s:%d", identity, now.UnixNano()/int64(window))
}
