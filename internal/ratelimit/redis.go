package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPrefix = "gateway:rl:"
	redisTimeout  = 2 * time.Second
)

// INCR and arm the expiry on first use; return the count and the remaining ttl in ms.
var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// Redis is a fixed window limiter shared by every gateway using the same Redis. When Redis
// cannot be reached the decision falls back to a process local limiter.
type Redis struct {
	client   redis.Scripter
	limit    int
	window   time.Duration
	prefix   string
	fallback *InMemory
}

// NewRedis creates a limiter allowing limit attempts per key and window.
func NewRedis(client redis.Scripter, limit int, window time.Duration) *Redis {
	return &Redis{
		client:   client,
		limit:    max(limit, 1),
		window:   window,
		prefix:   DefaultPrefix,
		fallback: NewInMemory(nil, limit, window),
	}
}

func (l *Redis) Allow(ctx context.Context, key string) Decision {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := windowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(res) < 2 {
		log.Warn().Err(err).Str("key", key).Msg("Redis rate limiter unavailable, using local limiter")
		return l.fallback.Allow(ctx, key)
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}

	return decide(int(res[0]), l.limit, time.Now().UTC().Add(ttl))
}
