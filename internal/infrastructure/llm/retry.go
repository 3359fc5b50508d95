package llm

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy controls how often a failed provider call is attempted.
// The zero value makes a single attempt.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 || p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = 10 * p.InitialBackoff
	}
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.InitialBackoff)
	b = retry.WithCappedDuration(p.MaxBackoff, b)
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}
