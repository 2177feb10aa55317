// Package service provides the job engine: creation, processing and
// provenance tracking of chunk transformations.
package service

import (
	"context"

	"github.com/raphaelgruber/reweave-go/internal/db"
	"github.com/raphaelgruber/reweave-go/internal/models"
)

// Store is the persistence surface the engine needs. *db.Client implements
// it; tests substitute an in-memory fake.
type Store interface {
	// Chunks
	CreateChunk(ctx context.Context, input models.ChunkInput) (*models.Chunk, error)
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	ResolveContainer(ctx context.Context, containerID string) ([]string, error)

	// Jobs
	CreateJob(ctx context.Context, input models.JobInput) (*models.TransformJob, error)
	GetJob(ctx context.Context, id string) (*models.TransformJob, error)
	ListJobs(ctx context.Context, filter db.JobFilter) ([]models.TransformJob, error)
	StartJob(ctx context.Context, id string) (bool, error)
	ClaimNextJob(ctx context.Context) (*models.TransformJob, error)
	SetCurrentItem(ctx context.Context, id, chunkID string) error
	UpdateJobProgress(ctx context.Context, id string, processed, failed, errorCount int, progress float64) error
	FinishJob(ctx context.Context, id string, status models.JobStatus, errorMessage string) error
	JobStatus(ctx context.Context, id string) (models.JobStatus, error)
	CancelJob(ctx context.Context, id string) (bool, error)
	ReconcileStale(ctx context.Context, threshold string) ([]string, error)

	// Transformation records
	CreateRecord(ctx context.Context, rec models.TransformationRecord) error
	RecordsForJob(ctx context.Context, jobID string) ([]models.TransformationRecord, error)

	// Lineage
	GetLineageNode(ctx context.Context, chunkID string) (*models.LineageNode, error)
	InsertLineageNode(ctx context.Context, node models.LineageNode) (*models.LineageNode, error)
	MergeLineageNode(ctx context.Context, chunkID string, sessionIDs, jobIDs []string, tokens int) error
	LineageByRoot(ctx context.Context, rootChunkID string) ([]models.LineageNode, error)
}

var _ Store = (*db.Client)(nil)
