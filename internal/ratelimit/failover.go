package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Failover consults the authoritative strategy and falls back to the local
// one only when it is unreachable. The fallback result may disagree with the
// authoritative count; that degradation is accepted rather than failing the
// request closed.
type Failover struct {
	Primary  Strategy
	Fallback Strategy
	logger   *slog.Logger
}

func NewFailover(primary, fallback Strategy, logger *slog.Logger) *Failover {
	return &Failover{Primary: primary, Fallback: fallback, logger: logger}
}

func (f *Failover) Check(ctx context.Context, key string, limit int, window time.Duration, cost int) (*Result, error) {
	res, err := f.Primary.Check(ctx, key, limit, window, cost)
	if err == nil {
		return res, nil
	}

	if f.logger != nil {
		f.logger.Warn("rate limit counter unreachable, using local fallback", "error", err)
	}

	return f.Fallback.Check(ctx, key, limit, window, cost)
}
