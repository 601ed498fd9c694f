package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/espelita/portfolio/backend/internal/config"
)

// evictor drops whatever was last used before cutoff.
type evictor interface {
	Evict(cutoff time.Time) int
}

// sweepIdle evicts idle conversations and visitor scopes every interval
// until ctx ends. A zero interval or TTL disables the sweep.
func sweepIdle(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger, evictors ...evictor) {
	if cfg.SweepInterval <= 0 || cfg.IdleTTL <= 0 {
		logger.Warn("idle session sweep disabled, memory grows with every visitor")
		return
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Add(-cfg.IdleTTL)
			evicted := 0
			for _, e := range evictors {
				evicted += e.Evict(cutoff)
			}
			if evicted > 0 {
				logger.Debug("idle sweep finished", zap.Int("evicted", evicted))
			}
		}
	}
}
