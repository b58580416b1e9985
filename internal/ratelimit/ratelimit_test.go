package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterBurstThenDeny(t *testing.T) {
	ctx := context.Background()
	lim := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lim.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if d := lim.Allow(ctx, "1.2.3.4|alice", 3); !d.Allowed {
			t.Fatalf("attempt %d should pass: %+v", i+1, d)
		}
	}
	denied := lim.Allow(ctx, "1.2.3.4|alice", 3)
	if denied.Allowed || denied.Remaining != 0 {
		t.Fatalf("fourth attempt should be denied, got %+v", denied)
	}
	if !denied.ResetAt.After(now) {
		t.Fatalf("expected reset in the future, got %v", denied.ResetAt)
	}
	if d := lim.Allow(ctx, "1.2.3.4|bob", 3); !d.Allowed {
		t.Fatalf("other keys are independent: %+v", d)
	}

	now = now.Add(20 * time.Second)
	if d := lim.Allow(ctx, "1.2.3.4|alice", 3); !d.Allowed {
		t.Fatalf("one token should refill after a third of the window: %+v", d)
	}
}

func TestMemoryLimiterEvictsIdleKeys(t *testing.T) {
	ctx := context.Background()
	lim := NewMemory(time.Second)
	now := time.Now()
	lim.now = func() time.Time { return now }

	lim.Allow(ctx, "a", 1)
	now = now.Add(2 * time.Second)
	lim.Allow(ctx, "b", 1)
	if _, ok := lim.items["a"]; ok {
		t.Fatal("expected idle key to be evicted")
	}
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	lim := NewRedis(client, time.Minute)

	for i := 0; i < 2; i++ {
		if d := lim.Allow(ctx, "k", 2); !d.Allowed {
			t.Fatalf("attempt %d should pass: %+v", i+1, d)
		}
	}
	d := lim.Allow(ctx, "k", 2)
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("third attempt should be denied, got %+v", d)
	}
	if !d.ResetAt.After(time.Now()) {
		t.Fatalf("expected reset in the future, got %v", d.ResetAt)
	}

	mr.FastForward(time.Minute + time.Second)
	if d := lim.Allow(ctx, "k", 2); !d.Allowed {
		t.Fatalf("window should have rolled over: %+v", d)
	}
}

func TestRedisLimiterFallsBackWhenUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   -1,
	})
	defer client.Close()

	ctx := context.Background()
	lim := NewRedis(client, time.Minute)
	if d := lim.Allow(ctx, "k", 1); !d.Allowed {
		t.Fatalf("first attempt should pass through fallback: %+v", d)
	}
	if d := lim.Allow(ctx, "k", 1); d.Allowed {
		t.Fatalf("fallback limiter should enforce the limit: %+v", d)
	}

	open := &RedisLimiter{Window: time.Minute}
	if d := open.Allow(ctx, "k", 1); !d.Allowed || d.Remaining != 1 {
		t.Fatalf("no client and no fallback is permissive, got %+v", d)
	}
}
