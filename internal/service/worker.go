package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Worker polls for pending jobs and drives them through the processor, one
// job at a time per worker. Run several workers for cross-job concurrency;
// the atomic claim keeps them off each other's jobs.
type Worker struct {
	store        Store
	processor    *Processor
	pollInterval time.Duration

	// staleThreshold, when positive, enables the supervisory sweep that
	// force-fails jobs stuck in processing (e.g. after a worker crash).
	staleThreshold time.Duration

	logger *slog.Logger
}

// NewWorker creates a polling worker.
func NewWorker(store Store, processor *Processor, pollInterval, staleThreshold time.Duration, logger *slog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:          store,
		processor:      processor,
		pollInterval:   pollInterval,
		staleThreshold: staleThreshold,
		logger:         logger,
	}
}

// Run claims and processes jobs until the context is cancelled. The job in
// flight when cancellation arrives finishes via the processor's own
// cooperative checks; Run returns after the current claim drains.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Sweep roughly once a minute, decoupled from the claim cadence.
	var sweep <-chan time.Time
	if w.staleThreshold > 0 {
		sweepTicker := time.NewTicker(time.Minute)
		defer sweepTicker.Stop()
		sweep = sweepTicker.C
	}

	w.logger.Info("worker started", "poll_interval", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return ctx.Err()
		case <-sweep:
			w.reconcile(ctx)
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes claimable jobs until none are pending.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.store.ClaimNextJob(ctx)
		if err != nil {
			w.logger.Error("claim failed", "error", err)
			return
		}
		if job == nil {
			return
		}

		if err := w.processor.ProcessClaimed(ctx, job); err != nil {
			// Already surfaced as a failed job; log and move on.
			w.logger.Error("job processing failed", "error", err)
		}
	}
}

func (w *Worker) reconcile(ctx context.Context) {
	threshold := fmt.Sprintf("%ds", int(w.staleThreshold.Seconds()))
	ids, err := w.store.ReconcileStale(ctx, threshold)
	if err != nil {
		w.logger.Error("stale sweep failed", "error", err)
		return
	}
	if len(ids) > 0 {
		w.logger.Warn("force-failed stale jobs", "job_ids", ids, "threshold", threshold)
	}
}
