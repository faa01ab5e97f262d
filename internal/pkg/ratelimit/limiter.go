package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait before the window resets.
func (d Decision) RetryAfter() time.Duration {
	wait := time.Until(d.ResetAt)
	if wait < 0 {
		return 0
	}
	return wait
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

func newDecision(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

type InMemoryLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	items     map[string]window
	nextSweep time.Time
	now       func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

func NewInMemory(limit int, w time.Duration) *InMemoryLimiter {
	if limit <= 0 {
		limit = 1
	}
	if w <= 0 {
		w = time.Minute
	}
	return &InMemoryLimiter{
		limit:  limit,
		window: w,
		items:  make(map[string]window),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *InMemoryLimiter) Allow(_ context.Context, key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Expired keys are dropped at most once per window.
	if !now.Before(l.nextSweep) {
		for k, v := range l.items {
			if now.After(v.resetAt) {
				delete(l.items, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}

	curr, ok := l.items[key]
	if !ok || now.After(curr.resetAt) {
		curr = window{resetAt: now.Add(l.window)}
	}
	curr.count++
	l.items[key] = curr

	return newDecision(curr.count, l.limit, curr.resetAt)
}
