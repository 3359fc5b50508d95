package ports

import (
	"context"
	"time"
)

// RateLimiter decides whether the caller identified by key may proceed.
// When it may not, retryAfter says how long to wait.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}
