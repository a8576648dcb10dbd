package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/HollandReese/bulwark/internal/detection"
	"github.com/HollandReese/bulwark/internal/services"
)

// Sweeper periodically deactivates expired block records and drops stale
// in-memory rate windows. One instance runs per process.
type Sweeper struct {
	blocks   *services.BlockService
	rates    *detection.RateTracker
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(blocks *services.BlockService, rates *detection.RateTracker, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		blocks:   blocks,
		rates:    rates,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		}
	}
}

// runSweep performs one pass over both stores
func (s *Sweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deactivated, err := s.blocks.SweepExpired(sweepCtx)
	if err != nil {
		s.logger.Error("expired block sweep failed", slog.Any("error", err))
	}

	removed := s.rates.Sweep(time.Now())

	if deactivated > 0 || removed > 0 {
		s.logger.Info("sweep completed",
			slog.Int64("blocks_deactivated", deactivated),
			slog.Int("rate_windows_removed", removed))
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
