package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"golang.org/x/time/rate"
)

// MemoryLimiter keeps one token bucket per key. A bucket holds limit tokens
// and refills fully over one window.
type MemoryLimiter struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	items  map[string]*bucket
}

type bucket struct {
	limit    int
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemory(window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		window: window,
		now:    time.Now,
		items:  make(map[string]*bucket),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) domain.LimitDecision {
	if limit <= 0 {
		limit = 1
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanup(now)

	b, ok := l.items[key]
	if !ok || b.limit != limit {
		b = &bucket{
			limit:   limit,
			limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(limit)), limit),
		}
		l.items[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	resetAt := now
	if !allowed {
		resetAt = now.Add(l.window / time.Duration(limit))
	}
	return domain.LimitDecision{Allowed: allowed, Remaining: remaining, ResetAt: resetAt}
}

// cleanup drops buckets idle for longer than a window; they would be full again.
func (l *MemoryLimiter) cleanup(now time.Time) {
	for key, b := range l.items {
		if now.Sub(b.lastSeen) > l.window {
			delete(l.items, key)
		}
	}
}
