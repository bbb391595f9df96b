package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/member-directory/internal/clock"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCounterRejectsAfterLimit(t *testing.T) {
	_, client := newTestRedis(t)
	clk := clock.NewManual(windowOrigin.Add(10 * time.Second))
	counter := NewRedisCounter(client, clk)
	quota := Quota{Limit: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := counter.CheckAndConsume(ctx, "10.0.0.1", "password_reset_request", quota)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := counter.CheckAndConsume(ctx, "10.0.0.1", "password_reset_request", quota)
	require.NoError(t, err)
	assert.False(t, allowed)

	clk.Advance(time.Minute)
	allowed, err = counter.CheckAndConsume(ctx, "10.0.0.1", "password_reset_request", quota)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisCounterSetsExpiryToWindowEnd(t *testing.T) {
	mr, client := newTestRedis(t)
	clk := clock.NewManual(windowOrigin.Add(20 * time.Minute))
	counter := NewRedisCounter(client, clk)

	_, err := counter.CheckAndConsume(context.Background(), "c", "global", Quota{Limit: 50, Window: time.Hour})
	require.NoError(t, err)

	key := windowKey("c", "global", time.Hour, windowOrigin)
	require.True(t, mr.Exists(key))
	assert.Equal(t, 40*time.Minute, mr.TTL(key))

	val, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestRedisCounterBackendError(t *testing.T) {
	mr, client := newTestRedis(t)
	counter := NewRedisCounter(client, clock.NewManual(windowOrigin))
	mr.Close()

	_, err := counter.CheckAndConsume(context.Background(), "c", "e", Quota{Limit: 1, Window: time.Minute})
	assert.Error(t, err)
}
