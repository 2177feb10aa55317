package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/raphaelgruber/reweave-go/internal/db"
	"github.com/raphaelgruber/reweave-go/internal/models"
)

// JobService creates and manages transformation jobs.
type JobService struct {
	store  Store
	logger *slog.Logger
}

// NewJobService creates a new job service.
func NewJobService(store Store, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{store: store, logger: logger}
}

// CreateJobRequest describes a new job. Sources may be named explicitly
// (ChunkIDs), as container references (ContainerIDs), or both; they are
// unioned and deduplicated before the job is frozen.
type CreateJobRequest struct {
	SessionID    string
	JobType      string
	Config       map[string]any
	Priority     int
	ChunkIDs     []string
	ContainerIDs []string
	Metadata     map[string]any
}

// Create resolves and deduplicates the source selectors and persists one
// pending job. Fails with ValidationError (nothing persisted) when the
// request names no operation or resolves to zero chunks.
func (s *JobService) Create(ctx context.Context, req CreateJobRequest) (*models.TransformJob, error) {
	if req.JobType == "" {
		return nil, &ValidationError{Msg: "job type is required"}
	}

	sources, err := s.resolveSources(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, &ValidationError{Msg: "no source chunks resolved"}
	}

	job, err := s.store.CreateJob(ctx, models.JobInput{
		ID:             uuid.New().String()[:8], // Short ID for convenience
		SessionID:      req.SessionID,
		JobType:        req.JobType,
		Config:         req.Config,
		Priority:       req.Priority,
		SourceChunkIDs: sources,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}

	s.logger.Info("job created",
		"job_id", models.MustRecordIDString(job.ID),
		"type", job.JobType,
		"total_items", job.TotalItems)
	return job, nil
}

// resolveSources unions explicit chunk IDs with resolved container contents
// and deduplicates preserving first-seen order.
func (s *JobService) resolveSources(ctx context.Context, req CreateJobRequest) ([]string, error) {
	seen := make(map[string]struct{})
	sources := make([]string, 0, len(req.ChunkIDs))

	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		sources = append(sources, id)
	}

	for _, id := range req.ChunkIDs {
		add(id)
	}
	for _, containerID := range req.ContainerIDs {
		ids, err := s.store.ResolveContainer(ctx, containerID)
		if err != nil {
			return nil, fmt.Errorf("resolve container %s: %w", containerID, err)
		}
		for _, id := range ids {
			add(id)
		}
	}

	return sources, nil
}

// Get retrieves a job by ID. Returns db.ErrNotFound when missing.
func (s *JobService) Get(ctx context.Context, id string) (*models.TransformJob, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", id, db.ErrNotFound)
	}
	return job, nil
}

// List returns jobs matching the filter, most recent first.
func (s *JobService) List(ctx context.Context, filter db.JobFilter) ([]models.TransformJob, error) {
	return s.store.ListJobs(ctx, filter)
}

// Records returns a job's transformation audit rows in item order.
func (s *JobService) Records(ctx context.Context, id string) ([]models.TransformationRecord, error) {
	return s.store.RecordsForJob(ctx, id)
}

// Cancel requests cooperative cancellation. The processor observes the
// status flip before starting its next item. Returns db.ErrNotFound for
// missing jobs and an error for jobs already terminal.
func (s *JobService) Cancel(ctx context.Context, id string) error {
	ok, err := s.store.CancelJob(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		job, err := s.store.GetJob(ctx, id)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("job %s: %w", id, db.ErrNotFound)
		}
		return fmt.Errorf("job %s is already %s", id, job.Status)
	}

	s.logger.Info("job cancelled", "job_id", id)
	return nil
}

// ReapplyTarget names the sources the cloned job is rebound to.
type ReapplyTarget struct {
	ChunkIDs     []string
	ContainerIDs []string
}

// Reapply clones an existing job's operation type and configuration verbatim
// onto a new target, producing an independent pending job that records the
// originating job in its metadata. The original job and its history are
// never mutated.
func (s *JobService) Reapply(ctx context.Context, jobID string, target ReapplyTarget) (*models.TransformJob, error) {
	orig, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if orig == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, db.ErrNotFound)
	}

	var cfg map[string]any
	if orig.Config != nil {
		cfg = maps.Clone(orig.Config)
	}

	job, err := s.Create(ctx, CreateJobRequest{
		SessionID:    orig.SessionID,
		JobType:      orig.JobType,
		Config:       cfg,
		Priority:     orig.Priority,
		ChunkIDs:     target.ChunkIDs,
		ContainerIDs: target.ContainerIDs,
		Metadata:     map[string]any{"reapplied_from": jobID},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job reapplied",
		"origin_job_id", jobID,
		"job_id", models.MustRecordIDString(job.ID))
	return job, nil
}
