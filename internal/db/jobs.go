package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// JobFilter narrows ListJobs results.
type JobFilter struct {
	Status  models.JobStatus // "" matches all
	JobType string           // "" matches all
	Limit   int              // 0 means default (50)
	Offset  int
}

// CreateJob persists a new job in pending status with zeroed progress.
func (c *Client) CreateJob(ctx context.Context, input models.JobInput) (*models.TransformJob, error) {
	results, err := surrealdb.Query[[]models.TransformJob](ctx, c.db, `
		CREATE type::record("transform_job", $id) SET
			session_id = $session,
			job_type = $job_type,
			config = $config,
			priority = $priority,
			source_chunk_ids = $sources,
			status = "pending",
			total_items = $total,
			processed_items = 0,
			failed_items = 0,
			progress_percentage = 0.0,
			error_count = 0,
			metadata = $metadata
	`, map[string]any{
		"id":       input.ID,
		"session":  optString(input.SessionID),
		"job_type": input.JobType,
		"config":   input.Config,
		"priority": input.Priority,
		"sources":  input.SourceChunkIDs,
		"total":    len(input.SourceChunkIDs),
		"metadata": input.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create job: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// GetJob retrieves a job by ID. Returns nil if not found.
func (c *Client) GetJob(ctx context.Context, id string) (*models.TransformJob, error) {
	results, err := surrealdb.Query[[]models.TransformJob](ctx, c.db, `
		SELECT * FROM type::record("transform_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListJobs returns jobs matching the filter, most recent first.
func (c *Client) ListJobs(ctx context.Context, filter JobFilter) ([]models.TransformJob, error) {
	clauses := []string{}
	vars := map[string]any{}

	if filter.Status != "" {
		clauses = append(clauses, "status = $status")
		vars["status"] = string(filter.Status)
	}
	if filter.JobType != "" {
		clauses = append(clauses, "job_type = $job_type")
		vars["job_type"] = filter.JobType
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	vars["limit"] = limit
	vars["offset"] = filter.Offset

	sql := fmt.Sprintf(`
		SELECT * FROM transform_job %s
		ORDER BY created_at DESC
		LIMIT $limit START $offset
	`, where)

	results, err := surrealdb.Query[[]models.TransformJob](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.TransformJob{}, nil
	}
	return (*results)[0].Result, nil
}

// StartJob atomically transitions a job from pending to processing and stamps
// started_at. Returns false when the job is not pending (already started,
// terminal, or missing) so duplicate triggers degrade to a no-op.
func (c *Client) StartJob(ctx context.Context, id string) (bool, error) {
	results, err := surrealdb.Query[[]models.TransformJob](ctx, c.db, `
		UPDATE type::record("transform_job", $id) SET
			status = "processing",
			started_at = time::now()
		WHERE status = "pending"
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("start job: %w", wrapQueryError(err))
	}

	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}

// ClaimNextJob picks the highest-priority oldest pending job and transitions
// it to processing. The WHERE guard on the update makes the claim atomic:
// a concurrent worker racing on the same candidate loses and gets nil.
func (c *Client) ClaimNextJob(ctx context.Context) (*models.TransformJob, error) {
	candidates, err := surrealdb.Query[[]models.TransformJob](ctx, c.db, `
		SELECT * FROM transform_job
		WHERE status = "pending"
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", wrapQueryError(err))
	}
	if candidates == nil || len(*candidates) == 0 || len((*candidates)[0].Result) == 0 {
		return nil, nil
	}

	id, err := models.RecordIDString((*candidates)[0].Result[0].ID)
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}

	ok, err := c.StartJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race; caller polls again
		return nil, nil
	}
	return c.GetJob(ctx, id)
}

// SetCurrentItem publishes the chunk currently in flight for progress UIs.
func (c *Client) SetCurrentItem(ctx context.Context, id, chunkID string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("transform_job", $id) SET current_item_id = $chunk
	`, map[string]any{"id": id, "chunk": optString(chunkID)})
	if err != nil {
		return fmt.Errorf("set current item: %w", wrapQueryError(err))
	}
	return nil
}

// UpdateJobProgress persists the per-item durable checkpoint.
func (c *Client) UpdateJobProgress(ctx context.Context, id string, processed, failed, errorCount int, progress float64) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("transform_job", $id) SET
			processed_items = $processed,
			failed_items = $failed,
			error_count = $errors,
			progress_percentage = $progress
	`, map[string]any{
		"id":        id,
		"processed": processed,
		"failed":    failed,
		"errors":    errorCount,
		"progress":  progress,
	})
	if err != nil {
		return fmt.Errorf("update job progress: %w", wrapQueryError(err))
	}
	return nil
}

// FinishJob assigns a terminal status, stamps completed_at and clears the
// in-flight pointer. errorMessage may be empty.
func (c *Client) FinishJob(ctx context.Context, id string, status models.JobStatus, errorMessage string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("transform_job", $id) SET
			status = $status,
			error_message = $message,
			current_item_id = NONE,
			completed_at = time::now()
	`, map[string]any{
		"id":      id,
		"status":  string(status),
		"message": optString(errorMessage),
	})
	if err != nil {
		return fmt.Errorf("finish job: %w", wrapQueryError(err))
	}
	return nil
}

// JobStatus returns only the status field; the processor polls this between
// items to observe cooperative cancellation cheaply.
func (c *Client) JobStatus(ctx context.Context, id string) (models.JobStatus, error) {
	type statusRow struct {
		Status string `json:"status"`
	}
	results, err := surrealdb.Query[[]statusRow](ctx, c.db, `
		SELECT status FROM type::record("transform_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return "", fmt.Errorf("job status: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", ErrNotFound
	}
	return models.JobStatus((*results)[0].Result[0].Status), nil
}

// CancelJob sets cancelled on a pending or processing job. Returns false when
// the job is already terminal or missing.
func (c *Client) CancelJob(ctx context.Context, id string) (bool, error) {
	results, err := surrealdb.Query[[]models.TransformJob](ctx, c.db, `
		UPDATE type::record("transform_job", $id) SET
			status = "cancelled",
			completed_at = time::now()
		WHERE status IN ["pending", "processing"]
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", wrapQueryError(err))
	}

	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}

// ReconcileStale force-fails jobs stuck in processing longer than threshold.
// Returns the IDs of the jobs it failed. Supervisory sweep, not part of the
// processor's own contract.
func (c *Client) ReconcileStale(ctx context.Context, threshold string) ([]string, error) {
	results, err := surrealdb.Query[[]models.TransformJob](ctx, c.db, `
		UPDATE transform_job SET
			status = "failed",
			error_message = "job exceeded processing deadline",
			completed_at = time::now()
		WHERE status = "processing"
			AND started_at != NONE
			AND started_at < (time::now() - type::duration($threshold))
	`, map[string]any{"threshold": threshold})
	if err != nil {
		return nil, fmt.Errorf("reconcile stale: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return nil, nil
	}

	jobs := (*results)[0].Result
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		id, err := models.RecordIDString(j.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
