package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter counts attempts per key in a fixed window shared by every
// server instance. When Redis is unreachable it defers to Fallback.
type RedisLimiter struct {
	Client   redis.UniversalClient
	Window   time.Duration
	Prefix   string
	Fallback domain.Limiter
}

func NewRedis(client redis.UniversalClient, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		Client:   client,
		Window:   window,
		Prefix:   "accessdesk:rl:",
		Fallback: NewMemory(window),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) domain.LimitDecision {
	if limit <= 0 {
		limit = 1
	}
	if l.Client == nil {
		return l.fallback(ctx, key, limit)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, l.Client, []string{l.Prefix + key}, l.Window.Milliseconds()).Result()
	if err != nil {
		log.Printf("ratelimit: redis unavailable, using fallback: %v", err)
		return l.fallback(ctx, key, limit)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return l.fallback(ctx, key, limit)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = l.Window.Milliseconds()
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return domain.LimitDecision{
		Allowed:   int(count) <= limit,
		Remaining: remaining,
		ResetAt:   time.Now().UTC().Add(time.Duration(ttlMs) * time.Millisecond),
	}
}

func (l *RedisLimiter) fallback(ctx context.Context, key string, limit int) domain.LimitDecision {
	if l.Fallback != nil {
		return l.Fallback.Allow(ctx, key, limit)
	}
	return domain.LimitDecision{Allowed: true, Remaining: limit, ResetAt: time.Now().UTC().Add(l.Window)}
}
