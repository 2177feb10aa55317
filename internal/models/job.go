package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus represents the lifecycle state of a transformation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// TransformJob represents a persisted batch transformation job: one operation
// applied to a frozen, deduplicated set of source chunks.
type TransformJob struct {
	ID surrealmodels.RecordID `json:"id"`

	SessionID string         `json:"session_id,omitempty"`
	JobType   string         `json:"job_type"` // Operation dispatch key
	Config    map[string]any `json:"config,omitempty"`
	Priority  int            `json:"priority"` // Higher claimed first (scheduling hint)

	// Frozen at creation; never changes afterwards.
	SourceChunkIDs []string `json:"source_chunk_ids"`

	Status             JobStatus `json:"status"`
	TotalItems         int       `json:"total_items"`
	ProcessedItems     int       `json:"processed_items"` // Successes only
	FailedItems        int       `json:"failed_items"`
	CurrentItemID      string    `json:"current_item_id,omitempty"` // Best-effort in-flight pointer
	ProgressPercentage float64   `json:"progress_percentage"`

	ErrorMessage string `json:"error_message,omitempty"`
	ErrorCount   int    `json:"error_count"`

	// Metadata carries audit extras, e.g. "reapplied_from" on cloned jobs.
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobInput is the input structure for persisting a new job. SourceChunkIDs
// must already be resolved and deduplicated; the job is frozen at creation.
type JobInput struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id,omitempty"`
	JobType        string         `json:"job_type"`
	Config         map[string]any `json:"config,omitempty"`
	Priority       int            `json:"priority"`
	SourceChunkIDs []string       `json:"source_chunk_ids"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ReappliedFrom returns the originating job ID for cloned jobs, or "".
func (j *TransformJob) ReappliedFrom() string {
	if j.Metadata == nil {
		return ""
	}
	if id, ok := j.Metadata["reapplied_from"].(string); ok {
		return id
	}
	return ""
}
