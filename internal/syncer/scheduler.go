package syncer

import (
	"context"
	"time"

	"dryad/internal/contextutil"
)

// Syncer runs one bounded sync invocation.
type Syncer interface {
	Sync(ctx context.Context) (Result, error)
}

// Scheduler drives a Syncer on a fixed interval and on demand. After an
// invocation that reports more work it invokes again immediately.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	trigger  chan struct{}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(s Syncer, interval time.Duration) *Scheduler {
	return &Scheduler{
		syncer:   s,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a run as soon as the scheduler is free. Triggers that
// arrive while one is already queued are merged.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is canceled. The first run starts immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "sync scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runUntilDone(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "sync scheduler stopped")
			return nil
		case <-ticker.C:
		case <-s.trigger:
		}
		s.runUntilDone(ctx)
	}
}

// runUntilDone re-invokes Sync while it reports more work. Errors end the
// round; the next tick or trigger retries.
func (s *Scheduler) runUntilDone(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)

	for ctx.Err() == nil {
		result, err := s.syncer.Sync(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.ErrorContext(ctx, "sync failed", "error", err, "phase", result.Phase, "commit", result.Commit)
			}
			return
		}
		logger.DebugContext(ctx, "sync step finished",
			"phase", result.Phase,
			"commit", result.Commit,
			"indexed", result.Indexed,
			"reclaimed", result.Reclaimed,
			"done", result.Done,
		)
		if result.Done {
			return
		}
	}
}
