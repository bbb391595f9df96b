package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/member-directory/internal/clock"
)

var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisCounter shares counters between processes through Redis.
type RedisCounter struct {
	client redis.Scripter
	clock  clock.Clock
}

// NewRedisCounter builds a counter on client. A nil clock uses the system clock.
func NewRedisCounter(client redis.Scripter, clk clock.Clock) *RedisCounter {
	if clk == nil {
		clk = clock.System()
	}
	return &RedisCounter{client: client, clock: clk}
}

// CheckAndConsume runs one INCR+PEXPIRE script per call.
func (c *RedisCounter) CheckAndConsume(ctx context.Context, client, endpoint string, quota Quota) (bool, error) {
	if quota.Unlimited() {
		return true, nil
	}
	now := c.clock.Now()
	start := windowStart(now, quota.Window)
	ttl := start.Add(quota.Window).Sub(now)
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	key := windowKey(client, endpoint, quota.Window, start)
	count, err := incrExpireScript.Run(ctx, c.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return count <= int64(quota.Limit), nil
}
