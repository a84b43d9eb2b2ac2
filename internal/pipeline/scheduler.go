package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives the engine on a periodic interval. The engine never
// reads the clock on its own; every tick is one explicit "resample up
// to now" call, so time only passes when the scheduler says so.
type Scheduler struct {
	interval time.Duration
	engine   *Engine
}

// NewScheduler creates a periodic flush driver for the engine.
func NewScheduler(interval time.Duration, engine *Engine) *Scheduler {
	return &Scheduler{interval: interval, engine: engine}
}

// Start flushes periodically until the context is cancelled, then runs
// one final flush so buckets completed since the last tick are not
// dropped on shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting resample scheduler",
		"interval", s.interval,
		"series_count", len(s.engine.order),
	)

	for {
		select {
		case <-ticker.C:
			s.flush(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			slog.Info("[Scheduler] Running final flush before shutdown...")
			s.flush(shutdownCtx)
			slog.Info("[Scheduler] Final flush complete")

			return nil
		}
	}
}

func (s *Scheduler) flush(ctx context.Context) {
	if _, err := s.engine.Flush(ctx); err != nil {
		slog.Error("[Scheduler] Flush failed", "error", err)
	}
}
