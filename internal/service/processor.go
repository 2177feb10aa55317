package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/reweave-go/internal/metrics"
	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/raphaelgruber/reweave-go/internal/ops"
)

// Processor executes one job at a time: sequential per-item dispatch with
// partial-failure tolerance. Concurrency across distinct jobs is handled by
// running multiple processors; items within one job are never concurrent so
// the current_item_id and progress signals stay meaningful.
type Processor struct {
	store    Store
	registry *ops.Registry
	lineage  *LineageService
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewProcessor creates a job processor. collector may be nil.
func NewProcessor(store Store, registry *ops.Registry, lineage *LineageService, collector *metrics.Collector, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:    store,
		registry: registry,
		lineage:  lineage,
		metrics:  collector,
		logger:   logger,
	}
}

// fatalError marks an infrastructure failure that must abort the whole job
// (store unavailable, lineage write lost). Per-item handler errors never
// take this path.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Run processes one job to a terminal state. Re-invoking on a job that is
// already processing or terminal is a no-op, so duplicate triggers are safe.
func (p *Processor) Run(ctx context.Context, jobID string) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	started, err := p.store.StartJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	if !started {
		p.logger.Info("job not pending, skipping", "job_id", jobID, "status", job.Status)
		return nil
	}

	return p.ProcessClaimed(ctx, job)
}

// ProcessClaimed runs the per-item loop for a job whose pending->processing
// transition the caller already performed (the worker claim path).
func (p *Processor) ProcessClaimed(ctx context.Context, job *models.TransformJob) error {
	jobID := models.MustRecordIDString(job.ID)
	log := p.logger.With("job_id", jobID, "type", job.JobType)
	log.Info("job started", "total_items", job.TotalItems)

	// Defended against even though creation validates it: a frozen empty
	// list means the job can never make progress.
	if len(job.SourceChunkIDs) == 0 {
		if err := p.store.FinishJob(ctx, jobID, models.JobStatusFailed, "job has no source chunks"); err != nil {
			return fmt.Errorf("finish job: %w", err)
		}
		return nil
	}

	total := len(job.SourceChunkIDs)
	processed, failed, errorCount := 0, 0, 0

	for i, chunkID := range job.SourceChunkIDs {
		// Cooperative cancellation: observed between items, never mid-item.
		status, err := p.store.JobStatus(ctx, jobID)
		if err != nil {
			return p.abort(ctx, jobID, fmt.Errorf("poll job status: %w", err))
		}
		if status == models.JobStatusCancelled {
			log.Info("job cancelled, stopping", "processed", processed, "failed", failed)
			return nil
		}

		// Best-effort progress pointer; losing it is not worth failing the item.
		if err := p.store.SetCurrentItem(ctx, jobID, chunkID); err != nil {
			log.Warn("failed to publish current item", "chunk_id", chunkID, "error", err)
		}

		itemErr, fatal := p.processItem(ctx, job, jobID, chunkID, i)
		if fatal != nil {
			return p.abort(ctx, jobID, fatal)
		}
		if itemErr != nil {
			failed++
			errorCount++
			log.Warn("item failed", "chunk_id", chunkID, "sequence", i, "error", itemErr)
		} else {
			processed++
		}

		progress := float64(processed) / float64(total) * 100
		if err := p.store.UpdateJobProgress(ctx, jobID, processed, failed, errorCount, progress); err != nil {
			return p.abort(ctx, jobID, fmt.Errorf("persist progress: %w", err))
		}
	}

	// A job with some failures but at least one success completes; failure
	// is reported through failed_items, not hidden.
	status, message := models.JobStatusCompleted, ""
	if processed == 0 && failed > 0 {
		status, message = models.JobStatusFailed, fmt.Sprintf("All %d items failed to process", failed)
	}

	if err := p.store.FinishJob(ctx, jobID, status, message); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}

	log.Info("job finished", "status", status, "processed", processed, "failed", failed)
	return nil
}

// processItem dispatches one source chunk through the job's operation. The
// first return value is a per-item failure (isolated, counted, the loop
// continues); the second aborts the job.
func (p *Processor) processItem(ctx context.Context, job *models.TransformJob, jobID, chunkID string, sequence int) (error, error) {
	source, err := p.store.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, &fatalError{err: fmt.Errorf("load chunk %s: %w", chunkID, err)}
	}
	if source == nil {
		p.recordFailure(ctx, job, jobID, chunkID, sequence, 0, "source chunk not found")
		return fmt.Errorf("source chunk not found"), nil
	}

	handler, ok := p.registry.Lookup(job.JobType)
	if !ok {
		// Unknown operation is a per-item failure, not a job-level crash.
		p.recordFailure(ctx, job, jobID, chunkID, sequence, 0, fmt.Sprintf("unknown operation: %s", job.JobType))
		return fmt.Errorf("unknown operation: %s", job.JobType), nil
	}

	start := time.Now()
	result, err := handler.Apply(ctx, *source, job.Config)
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordApply(job.JobType, elapsed, int64(result.TokensUsed), err != nil)
	}

	if err != nil {
		p.recordFailure(ctx, job, jobID, chunkID, sequence, elapsed, err.Error())
		return err, nil
	}

	resultChunk, err := p.store.CreateChunk(ctx, models.ChunkInput{
		Content:     result.Content,
		ContainerID: source.ContainerID,
		Position:    source.Position,
	})
	if err != nil {
		return nil, &fatalError{err: fmt.Errorf("persist result chunk: %w", err)}
	}
	resultID := models.MustRecordIDString(resultChunk.ID)

	parameters := job.Config
	if len(result.Metadata) > 0 {
		parameters = make(map[string]any, len(job.Config)+len(result.Metadata))
		for k, v := range job.Config {
			parameters[k] = v
		}
		for k, v := range result.Metadata {
			parameters[k] = v
		}
	}

	err = p.store.CreateRecord(ctx, models.TransformationRecord{
		JobID:            jobID,
		SourceChunkID:    chunkID,
		ResultChunkID:    resultID,
		OperationType:    job.JobType,
		Parameters:       parameters,
		TokensUsed:       result.TokensUsed,
		ProcessingTimeMs: int(elapsed.Milliseconds()),
		SequenceNumber:   sequence,
		Status:           models.RecordStatusCompleted,
	})
	if err != nil {
		return nil, &fatalError{err: fmt.Errorf("persist transformation record: %w", err)}
	}

	err = p.lineage.RecordTransformation(ctx, TransformationEvent{
		SourceChunkID: chunkID,
		ResultChunkID: resultID,
		Operation:     job.JobType,
		SessionID:     job.SessionID,
		JobID:         jobID,
		TokensUsed:    result.TokensUsed,
	})
	if err != nil {
		return nil, &fatalError{err: fmt.Errorf("update lineage: %w", err)}
	}

	return nil, nil
}

// recordFailure writes the failed audit row. Best-effort: a broken store
// will surface on the next progress checkpoint anyway.
func (p *Processor) recordFailure(ctx context.Context, job *models.TransformJob, jobID, chunkID string, sequence int, elapsed time.Duration, reason string) {
	err := p.store.CreateRecord(ctx, models.TransformationRecord{
		JobID:            jobID,
		SourceChunkID:    chunkID,
		OperationType:    job.JobType,
		Parameters:       job.Config,
		ProcessingTimeMs: int(elapsed.Milliseconds()),
		SequenceNumber:   sequence,
		Status:           models.RecordStatusFailed,
		Error:            reason,
	})
	if err != nil {
		p.logger.Warn("failed to persist failure record", "job_id", jobID, "chunk_id", chunkID, "error", err)
	}
}

// abort fails the whole job with the underlying cause preserved. Silent
// partial state is worse than a visibly failed job.
func (p *Processor) abort(ctx context.Context, jobID string, cause error) error {
	p.logger.Error("job aborted", "job_id", jobID, "error", cause)
	if err := p.store.FinishJob(ctx, jobID, models.JobStatusFailed, cause.Error()); err != nil {
		p.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
	}
	return cause
}
