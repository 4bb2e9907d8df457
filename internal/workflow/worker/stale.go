// Package worker runs background maintenance for the workflow orchestrator.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is implemented by the workflow service.
type Sweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

// StaleSweeper periodically flags awaiting-authority steps nobody has heard
// back about. Run it once per process; sweeps are idempotent so overlapping
// deployments are harmless.
type StaleSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewStaleSweeper(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *StaleSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &StaleSweeper{sweeper: sweeper, interval: interval, logger: logger}
}

// Run blocks until the context is cancelled. One sweep fires immediately so
// a restart does not postpone escalations by a full interval.
func (w *StaleSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *StaleSweeper) sweep(ctx context.Context) {
	flagged, err := w.sweeper.SweepStale(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "stale sweep failed", "error", err)
		return
	}
	if flagged > 0 {
		w.logger.InfoContext(ctx, "stale sweep flagged steps", "count", flagged)
	}
}
