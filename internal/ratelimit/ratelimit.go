// Package ratelimit provides per-key fixed-window request counting. The
// authoritative counter is a single-owner service reached over the network
// (RemoteCounter); LocalCounter is a best-effort in-process fallback that may
// under- or over-count relative to it. Failover selects between them per
// call, so the choice of counter is configuration, not a hidden global.
package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
	// RetryAfter is positive only when the request was denied.
	RetryAfter time.Duration
}

type Strategy interface {
	Check(ctx context.Context, key string, limit int, window time.Duration, cost int) (*Result, error)
}
