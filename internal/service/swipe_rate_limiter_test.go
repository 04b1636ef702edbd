package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	count      int64
	pttl       int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal([]interface{}{m.count, m.pttl})
	return cmd
}

func TestRedisSwipeRateLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("empty user rejected", func(t *testing.T) {
		mock := &mockRedisEvaler{count: 1}
		l := newRedisSwipeRateLimiter(mock, zap.NewNop(), time.Minute, 3)
		if l.Allow(ctx, "   ").Allowed {
			t.Fatalf("expected empty user to be rejected")
		}
		if mock.lastScript != "" {
			t.Fatalf("redis must not be called for an empty user")
		}
	})

	t.Run("allow within window", func(t *testing.T) {
		mock := &mockRedisEvaler{count: 3, pttl: 90000}
		l := newRedisSwipeRateLimiter(mock, zap.NewNop(), 2*time.Minute, 3)
		got := l.Allow(ctx, " u1 ")
		if !got.Allowed || got.Remaining != 0 {
			t.Fatalf("expected allow with 0 remaining, got %+v", got)
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "swipe:window:u1" {
			t.Fatalf("unexpected key, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != int64(120000) {
			t.Fatalf("expected window in ms=120000, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisSwipeWindowScript {
			t.Fatalf("expected window script")
		}
	})

	t.Run("deny reports time left in window", func(t *testing.T) {
		l := newRedisSwipeRateLimiter(&mockRedisEvaler{count: 4, pttl: 1500}, zap.NewNop(), time.Minute, 3)
		got := l.Allow(ctx, "u1")
		if got.Allowed {
			t.Fatalf("expected deny when count > max")
		}
		if got.RetryAfter != 1500*time.Millisecond {
			t.Fatalf("expected retry after 1.5s, got %s", got.RetryAfter)
		}
	})

	t.Run("missing ttl falls back to the window", func(t *testing.T) {
		l := newRedisSwipeRateLimiter(&mockRedisEvaler{count: 9, pttl: -1}, zap.NewNop(), time.Minute, 3)
		if got := l.Allow(ctx, "u1"); got.RetryAfter != time.Minute {
			t.Fatalf("expected retry after the full window, got %s", got.RetryAfter)
		}
	})

	t.Run("redis error lets the swipe through", func(t *testing.T) {
		l := newRedisSwipeRateLimiter(&mockRedisEvaler{err: errors.New("redis down")}, zap.NewNop(), time.Minute, 3)
		if !l.Allow(ctx, "u1").Allowed {
			t.Fatalf("expected allow on redis error")
		}
	})
}

func TestMemorySwipeRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newMemorySwipeRateLimiter(time.Minute, 2, func() time.Time { return now })

	if !l.Allow(ctx, "u1").Allowed || !l.Allow(ctx, "u1").Allowed {
		t.Fatalf("expected first two swipes allowed")
	}
	now = now.Add(20 * time.Second)
	denied := l.Allow(ctx, "u1")
	if denied.Allowed {
		t.Fatalf("expected third swipe in window denied")
	}
	if denied.RetryAfter != 40*time.Second {
		t.Fatalf("expected retry after 40s, got %s", denied.RetryAfter)
	}
	if !l.Allow(ctx, "u2").Allowed {
		t.Fatalf("expected other user unaffected")
	}

	now = now.Add(40 * time.Second)
	if !l.Allow(ctx, "u1").Allowed {
		t.Fatalf("expected new window to allow")
	}
}

func TestMemorySwipeRateLimiterEvictsExpiredWindows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newMemorySwipeRateLimiter(time.Minute, 5, func() time.Time { return now })

	for i := 0; i < 100; i++ {
		l.Allow(ctx, fmt.Sprintf("user-%d", i))
	}
	if got := l.size(); got != 100 {
		t.Fatalf("expected 100 live windows, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	l.Allow(ctx, "late")
	if got := l.size(); got != 1 {
		t.Fatalf("expected expired windows evicted, %d entries left", got)
	}
}
