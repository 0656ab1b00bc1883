package ratelimit_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dropbox/godropbox/time2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/ratelimit"
)

func TestInMemory(t *testing.T) {
	clock := time2.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	limiter := ratelimit.NewInMemory(clock, 2, time.Minute)

	first := limiter.Allow(t.Context(), "a")
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	assert.True(t, limiter.Allow(t.Context(), "a").Allowed)

	third := limiter.Allow(t.Context(), "a")
	assert.False(t, third.Allowed)
	assert.Equal(t, 3, third.Count)
	assert.Equal(t, 0, third.Remaining)

	// keys are independent
	assert.True(t, limiter.Allow(t.Context(), "b").Allowed)

	clock.Advance(time.Minute)
	assert.True(t, limiter.Allow(t.Context(), "a").Allowed, "a new window starts")
}

func TestInMemoryRealClock(t *testing.T) {
	limiter := ratelimit.NewInMemory(nil, 1, time.Hour)

	first := limiter.Allow(t.Context(), "a")
	require.True(t, first.Allowed)
	assert.WithinDuration(t, time.Now().Add(time.Hour), first.ResetAt, time.Minute)

	assert.False(t, limiter.Allow(t.Context(), "a").Allowed)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := ratelimit.NewRedis(client, 2, time.Minute)

	assert.True(t, limiter.Allow(t.Context(), "a").Allowed)
	assert.True(t, limiter.Allow(t.Context(), "a").Allowed)
	assert.False(t, limiter.Allow(t.Context(), "a").Allowed)
	assert.True(t, limiter.Allow(t.Context(), "b").Allowed)

	// a second limiter sharing the Redis sees the same counters
	other := ratelimit.NewRedis(client, 2, time.Minute)
	assert.False(t, other.Allow(t.Context(), "a").Allowed)

	ttl := mr.TTL(ratelimit.DefaultPrefix + "a")
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute)
	assert.True(t, limiter.Allow(t.Context(), "a").Allowed)
}

func TestRedisFallback(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	limiter := ratelimit.NewRedis(client, 1, time.Minute)
	mr.Close()

	first := limiter.Allow(t.Context(), "a")
	require.True(t, first.Allowed)
	assert.False(t, limiter.Allow(t.Context(), "a").Allowed, "the local limiter still enforces")
}
