package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window keys expire shortly after the window closes so idle users leave
// nothing behind.
const redisKeyTTLSeconds = 2

var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter is a fixed-window limiter shared across instances through
// Redis. Counting is atomic via a small INCR+EXPIRE script.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow counts the request against the key's current one-second window.
// A non-positive limit means unlimited.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if l == nil || l.client == nil || key == "" || limit <= 0 {
		return Result{Allowed: true}, nil
	}
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()
	raw, errRun := fixedWindowScript.Run(ctx, l.client, []string{l.windowKey(key, sec)}, redisKeyTTLSeconds).Result()
	if errRun != nil {
		return Result{}, errRun
	}
	var count int64
	switch v := raw.(type) {
	case int64:
		count = v
	case int:
		count = int64(v)
	case uint64:
		count = int64(v)
	default:
		return Result{}, fmt.Errorf("rate limit redis: unexpected reply type %T", raw)
	}
	if count > int64(limit) {
		return Result{Allowed: false, Reset: reset}, nil
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}

func (l *RedisLimiter) windowKey(key string, sec int64) string {
	if l.prefix == "" {
		return fmt.Sprintf("%s:%d", key, sec)
	}
	return fmt.Sprintf("%s:%s:%d", l.prefix, key, sec)
}
