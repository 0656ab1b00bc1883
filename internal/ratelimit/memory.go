package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
)

// InMemory is a fixed window limiter local to this process.
type InMemory struct {
	clock  time2.Clock
	limit  int
	window time.Duration

	mu    sync.Mutex
	items map[string]entry
}

type entry struct {
	count   int
	resetAt time.Time
}

// NewInMemory creates a limiter allowing limit attempts per key and window. A nil clock
// uses the real clock.
func NewInMemory(clock time2.Clock, limit int, window time.Duration) *InMemory {
	if clock == nil {
		clock = time2.DefaultClock
	}

	return &InMemory{
		clock:  clock,
		limit:  max(limit, 1),
		window: window,
		items:  make(map[string]entry),
	}
}

func (l *InMemory) Allow(_ context.Context, key string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, v := range l.items {
		if !now.Before(v.resetAt) {
			delete(l.items, k)
		}
	}

	curr, ok := l.items[key]
	if !ok {
		curr = entry{resetAt: now.Add(l.window)}
	}

	curr.count++
	l.items[key] = curr

	return decide(curr.count, l.limit, curr.resetAt)
}
