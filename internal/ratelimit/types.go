package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one admission attempt.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter admits at most a fixed number of attempts per key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

func decide(count int, limit int, resetAt time.Time) Decision {
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
}
