package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateRecord inserts one transformation audit row.
func (c *Client) CreateRecord(ctx context.Context, rec models.TransformationRecord) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE transformation_record SET
			job_id = $job,
			source_chunk_id = $source,
			result_chunk_id = $result,
			operation_type = $operation,
			parameters = $parameters,
			tokens_used = $tokens,
			processing_time_ms = $elapsed,
			sequence_number = $seq,
			status = $status,
			error = $error
	`, map[string]any{
		"job":        rec.JobID,
		"source":     rec.SourceChunkID,
		"result":     optString(rec.ResultChunkID),
		"operation":  rec.OperationType,
		"parameters": rec.Parameters,
		"tokens":     rec.TokensUsed,
		"elapsed":    rec.ProcessingTimeMs,
		"seq":        rec.SequenceNumber,
		"status":     string(rec.Status),
		"error":      optString(rec.Error),
	})
	if err != nil {
		return fmt.Errorf("create record: %w", wrapQueryError(err))
	}
	return nil
}

// RecordsForJob returns a job's transformation records in item order.
func (c *Client) RecordsForJob(ctx context.Context, jobID string) ([]models.TransformationRecord, error) {
	results, err := surrealdb.Query[[]models.TransformationRecord](ctx, c.db, `
		SELECT * FROM transformation_record
		WHERE job_id = $job
		ORDER BY sequence_number ASC
	`, map[string]any{"job": jobID})
	if err != nil {
		return nil, fmt.Errorf("records for job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.TransformationRecord{}, nil
	}
	return (*results)[0].Result, nil
}

// RecordsForChunk returns every record where the chunk appears as source or
// result, oldest first. Used by audit views.
func (c *Client) RecordsForChunk(ctx context.Context, chunkID string) ([]models.TransformationRecord, error) {
	results, err := surrealdb.Query[[]models.TransformationRecord](ctx, c.db, `
		SELECT * FROM transformation_record
		WHERE source_chunk_id = $chunk OR result_chunk_id = $chunk
		ORDER BY completed_at ASC
	`, map[string]any{"chunk": chunkID})
	if err != nil {
		return nil, fmt.Errorf("records for chunk: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.TransformationRecord{}, nil
	}
	return (*results)[0].Result, nil
}
