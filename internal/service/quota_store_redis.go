package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// El script hace check-and-increment en una sola ejecución: dos pedidos concurrentes
// nunca ven allowed=1 cuando queda un solo lugar.
const redisQuotaConsumeScript = `
local limit = tonumber(ARGV[1])
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if limit >= 0 and current >= limit then
  return {0, current}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return {1, current}
`

// Las claves viven dos días para cubrir cualquier offset de zona horaria; luego expiran solas.
const redisQuotaKeyTTL = 48 * time.Hour

type redisQuotaClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisQuotaStore struct {
	client redisQuotaClient
	prefix string
	ttl    time.Duration
}

func NewRedisQuotaStore(client *redis.Client) QuotaStore {
	if client == nil {
		return nil
	}
	return &redisQuotaStore{
		client: client,
		prefix: "quota:daily:",
		ttl:    redisQuotaKeyTTL,
	}
}

func (s *redisQuotaStore) key(userID, day string) string {
	return s.prefix + strings.TrimSpace(userID) + ":" + day
}

func (s *redisQuotaStore) Consume(ctx context.Context, userID, day string, limit int) (int, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(s.ttl.Seconds())
	if seconds <= 0 {
		seconds = int(redisQuotaKeyTTL.Seconds())
	}
	vals, err := s.client.Eval(ctx, redisQuotaConsumeScript, []string{s.key(userID, day)}, limit, seconds).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(vals) != 2 {
		return 0, false, fmt.Errorf("unexpected quota script reply: %v", vals)
	}
	return int(vals[1]), vals[0] == 1, nil
}

func (s *redisQuotaStore) Usage(ctx context.Context, userID, day string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	n, err := s.client.Get(ctx, s.key(userID, day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}
