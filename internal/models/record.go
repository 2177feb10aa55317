package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordStatus is the outcome of a single item within a job.
type RecordStatus string

const (
	RecordStatusCompleted RecordStatus = "completed"
	RecordStatusFailed    RecordStatus = "failed"
)

// TransformationRecord is the audit row for one (source, result) pair
// produced by a job. Failed items get a row with no result chunk so the
// per-item failure reason is queryable after the fact.
type TransformationRecord struct {
	ID surrealmodels.RecordID `json:"id"`

	JobID         string `json:"job_id"`
	SourceChunkID string `json:"source_chunk_id"`
	ResultChunkID string `json:"result_chunk_id,omitempty"` // Empty on failure

	OperationType string         `json:"operation_type"`
	Parameters    map[string]any `json:"parameters,omitempty"`

	TokensUsed       int `json:"tokens_used"`
	ProcessingTimeMs int `json:"processing_time_ms"`
	SequenceNumber   int `json:"sequence_number"` // Item position within the job

	Status RecordStatus `json:"status"`
	Error  string       `json:"error,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}
