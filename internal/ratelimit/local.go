package ratelimit

import (
	"context"
	"sync"
	"time"
)

type localWindow struct {
	start time.Time
	count int
}

// LocalCounter is a process-local fixed-window counter. It is advisory: each
// worker counts only the traffic it sees, so a fleet of workers will admit
// more than the configured limit in aggregate.
type LocalCounter struct {
	mu      sync.Mutex
	windows map[string]*localWindow
	now     func() time.Time
}

func NewLocalCounter() *LocalCounter {
	return &LocalCounter{
		windows: make(map[string]*localWindow),
		now:     time.Now,
	}
}

func (c *LocalCounter) Check(ctx context.Context, key string, limit int, window time.Duration, cost int) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	w, ok := c.windows[key]
	if !ok || now.Sub(w.start) >= window {
		w = &localWindow{start: now}
		c.windows[key] = w
	}

	reset := w.start.Add(window)

	if w.count+cost > limit {
		return &Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  max(limit-w.count, 0),
			Reset:      reset,
			RetryAfter: reset.Sub(now),
		}, nil
	}

	w.count += cost

	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.count,
		Reset:     reset,
	}, nil
}
