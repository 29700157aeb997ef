package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// InterruptedMarker is appended to messages that were stuck in the streaming
// state when the sweep finalized them (e.g. the process died mid-stream).
const InterruptedMarker = "[interrupted]"

// StaleFinalizer is the slice of the store the reaper needs.
type StaleFinalizer interface {
	FinalizeStaleMessages(ctx context.Context, olderThan time.Duration, marker string) (int, error)
}

// Reaper periodically finalizes messages left in the streaming state longer
// than maxAge. The persistence bridge already finalizes on every in-process
// outcome; the reaper covers crashes and lost streams.
type Reaper struct {
	store  StaleFinalizer
	logger *slog.Logger
	maxAge time.Duration
	cron   *cron.Cron
}

// NewReaper creates a reaper. maxAge <= 0 defaults to 10 minutes.
func NewReaper(store StaleFinalizer, maxAge time.Duration, logger *slog.Logger) *Reaper {
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	return &Reaper{store: store, logger: logger, maxAge: maxAge}
}

// Start schedules the sweep on the given cron spec (e.g. "@every 5m") and
// returns a stop function that waits for a running sweep to finish.
func (r *Reaper) Start(schedule string) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.Sweep(context.Background()); err != nil {
			r.logger.Error("stale message sweep failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	r.cron = c
	return func() {
		ctx := c.Stop()
		<-ctx.Done()
	}, nil
}

// Sweep runs one finalization pass and returns how many messages it fixed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	n, err := r.store.FinalizeStaleMessages(ctx, r.maxAge, InterruptedMarker)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info("finalized stale streaming messages", "count", n)
	}
	return n, nil
}
