package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrSwipeRateLimited = errors.New("too many swipes")

// SwipeRateLimitedError lleva cuánto falta para que se abra la próxima ventana.
type SwipeRateLimitedError struct {
	RetryAfter time.Duration
}

func (e *SwipeRateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrSwipeRateLimited, e.RetryAfter)
}

func (e *SwipeRateLimitedError) Unwrap() error {
	return ErrSwipeRateLimited
}

// SwipeAllowance es la respuesta del limitador para un swipe.
type SwipeAllowance struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// SwipeRateLimiter acota ráfagas de swipes por usuario con una ventana fija.
// Es independiente de la cuota diaria de ranking.
type SwipeRateLimiter interface {
	Allow(ctx context.Context, userID string) SwipeAllowance
}

// Devuelve {contador, ms hasta que expire la ventana}. La ventana arranca con el primer swipe.
const redisSwipeWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisSwipeRateLimiter struct {
	client redisEvaler
	logger *zap.Logger
	window time.Duration
	max    int
	prefix string
}

func NewRedisSwipeRateLimiter(client *redis.Client, logger *zap.Logger, window time.Duration, max int) SwipeRateLimiter {
	if client == nil {
		return nil
	}
	return newRedisSwipeRateLimiter(client, logger, window, max)
}

func newRedisSwipeRateLimiter(client redisEvaler, logger *zap.Logger, window time.Duration, max int) *redisSwipeRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	window, max = swipeLimits(window, max)
	return &redisSwipeRateLimiter{
		client: client,
		logger: logger,
		window: window,
		max:    max,
		prefix: "swipe:window:",
	}
}

// Allow deja pasar el swipe si Redis falla: el limitador frena abuso, no es la cuota del producto.
func (l *redisSwipeRateLimiter) Allow(ctx context.Context, userID string) SwipeAllowance {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SwipeAllowance{}
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	res, err := l.client.Eval(ctx, redisSwipeWindowScript, []string{l.prefix + userID}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		l.logger.Warn("swipe rate limiter unavailable", zap.String("user_id", userID), zap.Error(err))
		return SwipeAllowance{Allowed: true, Remaining: -1}
	}
	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}
	return allowance(count, l.max, ttl)
}

// memorySwipeRateLimiter es la versión de proceso único. Las ventanas vencidas se barren
// a lo sumo una vez por ventana, así el mapa no crece con cada usuario que alguna vez hizo swipe.
type memorySwipeRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]swipeWindow
}

type swipeWindow struct {
	start time.Time
	count int
}

func NewMemorySwipeRateLimiter(window time.Duration, max int) SwipeRateLimiter {
	return newMemorySwipeRateLimiter(window, max, time.Now)
}

func newMemorySwipeRateLimiter(window time.Duration, max int, now func() time.Time) *memorySwipeRateLimiter {
	window, max = swipeLimits(window, max)
	return &memorySwipeRateLimiter{
		window:  window,
		max:     max,
		now:     now,
		entries: make(map[string]swipeWindow),
	}
}

func (l *memorySwipeRateLimiter) Allow(_ context.Context, userID string) SwipeAllowance {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SwipeAllowance{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	entry, ok := l.entries[userID]
	if !ok || l.expired(entry, now) {
		entry = swipeWindow{start: now}
	}
	entry.count++
	l.entries[userID] = entry
	return allowance(entry.count, l.max, entry.start.Add(l.window).Sub(now))
}

func (l *memorySwipeRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for id, entry := range l.entries {
		if l.expired(entry, now) {
			delete(l.entries, id)
		}
	}
	l.lastSweep = now
}

func (l *memorySwipeRateLimiter) expired(entry swipeWindow, now time.Time) bool {
	return now.Sub(entry.start) >= l.window
}

func (l *memorySwipeRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func swipeLimits(window time.Duration, max int) (time.Duration, int) {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return window, max
}

func allowance(count, max int, retryAfter time.Duration) SwipeAllowance {
	if count <= max {
		return SwipeAllowance{Allowed: true, Remaining: max - count}
	}
	return SwipeAllowance{RetryAfter: retryAfter}
}
