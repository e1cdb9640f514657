// Package worker runs the periodic background loops: CCL rate refresh and
// daily snapshot generation.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mervalstat/cedearstat/internal/fx"
)

// RateRefresher defines the interface for refreshing the stored CCL rate.
type RateRefresher interface {
	Refresh(ctx context.Context) (fx.Rate, error)
}

// RateWorker periodically refreshes the CCL rate.
type RateWorker struct {
	refresher RateRefresher
	interval  time.Duration
}

// NewRateWorker creates a new RateWorker.
func NewRateWorker(refresher RateRefresher, interval time.Duration) *RateWorker {
	return &RateWorker{
		refresher: refresher,
		interval:  interval,
	}
}

// Run starts the rate worker loop. It blocks until the context is cancelled.
func (w *RateWorker) Run(ctx context.Context) {
	slog.Info("RateWorker: starting")

	// Refresh immediately on startup
	if _, err := w.refresher.Refresh(ctx); err != nil {
		slog.Error("RateWorker: initial refresh failed", "error", err)
	} else {
		slog.Info("RateWorker: initial refresh completed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RateWorker: shutting down")
			return
		case <-ticker.C:
			if _, err := w.refresher.Refresh(ctx); err != nil {
				slog.Error("RateWorker: refresh failed", "error", err)
			} else {
				slog.Info("RateWorker: refresh completed")
			}
		}
	}
}
