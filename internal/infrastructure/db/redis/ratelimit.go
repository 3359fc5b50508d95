package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindowLimiter allows up to limit calls per key per window, counted in
// Redis so the budget is shared by every API replica.
// Key format: ratelimit:<key>:<window_start_unix>
type FixedWindowLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewFixedWindowLimiter creates a limiter wrapping the given Redis client.
func NewFixedWindowLimiter(client *redis.Client, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: client, limit: int64(limit), window: window, now: time.Now}
}

// Allow increments the caller's counter for the current window.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	start := now.Truncate(l.window)
	k := l.key(key, start)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit: %w", err)
	}

	if incr.Val() > l.limit {
		return false, start.Add(l.window).Sub(now), nil
	}
	return true, 0, nil
}

func (l *FixedWindowLimiter) key(key string, start time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", key, start.Unix())
}
