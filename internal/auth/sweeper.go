package auth

import (
	"context"
	"time"

	"github.com/upsolucions/up-control-access/internal/obs"
)

// DefaultSweepInterval is how often idle sessions are collected.
const DefaultSweepInterval = time.Minute

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, s.now())
			if err != nil {
				obs.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				obs.Info("idle sessions removed", "count", n)
			}
		}
	}
}
