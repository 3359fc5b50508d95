// Package ratelimit provides an in-process per-key token bucket limiter.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyLimiter holds one caller's bucket and when it was last used.
type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter allows perMinute calls per key with a burst of the same size.
// Buckets idle for longer than idleTTL are dropped by a background sweep.
type MemoryLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*keyLimiter
	idleTTL  time.Duration
	now      func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter starts the cleanup goroutine; call Stop to end it.
func NewMemoryLimiter(perMinute int, cleanupInterval time.Duration) *MemoryLimiter {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	l := &MemoryLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		limiters: make(map[string]*keyLimiter),
		idleTTL:  2 * cleanupInterval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop(cleanupInterval)
	return l
}

// Allow consumes one token from key's bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	kl := l.get(key, now)

	r := kl.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func (l *MemoryLimiter) get(key string, now time.Time) *keyLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = kl
	}
	kl.lastAccess = now
	return kl
}

// Stop ends the background cleanup.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *MemoryLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

func (l *MemoryLimiter) sweep() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, kl := range l.limiters {
		if kl.lastAccess.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}
