package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/reweave-go/internal/db"
	"github.com/raphaelgruber/reweave-go/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// testLogger discards output so test logs stay readable.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory Store for unit tests. All maps are keyed by
// string IDs, mirroring the flat-table layout of the real client.
type fakeStore struct {
	mu sync.Mutex

	chunks     map[string]*models.Chunk
	chunkOrder []string
	jobs       map[string]*models.TransformJob
	jobOrder   []string
	records    []models.TransformationRecord
	lineage    map[string]*models.LineageNode

	// Error injection
	failCreateChunk    error
	failCreateRecord   error
	failUpdateProgress error
	failGetChunk       error

	// onJobStatus runs inside JobStatus before the status is read, letting
	// tests flip state mid-loop (e.g. cooperative cancellation).
	onJobStatus func(id string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chunks:  make(map[string]*models.Chunk),
		jobs:    make(map[string]*models.TransformJob),
		lineage: make(map[string]*models.LineageNode),
	}
}

func recordID(table, id string) surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: table, ID: id}
}

// addChunk seeds a chunk directly, bypassing CreateChunk bookkeeping.
func (f *fakeStore) addChunk(id, content, containerID string, position int) *models.Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()

	chunk := &models.Chunk{
		ID:          recordID("chunk", id),
		Content:     content,
		ContainerID: containerID,
		Position:    position,
		CreatedAt:   time.Now(),
	}
	f.chunks[id] = chunk
	f.chunkOrder = append(f.chunkOrder, id)
	return chunk
}

func (f *fakeStore) CreateChunk(_ context.Context, input models.ChunkInput) (*models.Chunk, error) {
	if f.failCreateChunk != nil {
		return nil, f.failCreateChunk
	}

	id := input.ID
	if id == "" {
		id = uuid.New().String()[:8]
	}
	return f.addChunk(id, input.Content, input.ContainerID, input.Position), nil
}

func (f *fakeStore) GetChunk(_ context.Context, id string) (*models.Chunk, error) {
	if f.failGetChunk != nil {
		return nil, f.failGetChunk
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	chunk, ok := f.chunks[id]
	if !ok {
		return nil, nil
	}
	copied := *chunk
	return &copied, nil
}

func (f *fakeStore) ResolveContainer(_ context.Context, containerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for _, id := range f.chunkOrder {
		if f.chunks[id].ContainerID == containerID {
			ids = append(ids, id)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return f.chunks[ids[i]].Position < f.chunks[ids[j]].Position
	})
	return ids, nil
}

func (f *fakeStore) CreateJob(_ context.Context, input models.JobInput) (*models.TransformJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := input.ID
	if id == "" {
		id = uuid.New().String()[:8]
	}
	job := &models.TransformJob{
		ID:             recordID("transform_job", id),
		SessionID:      input.SessionID,
		JobType:        input.JobType,
		Config:         input.Config,
		Priority:       input.Priority,
		SourceChunkIDs: slices.Clone(input.SourceChunkIDs),
		Status:         models.JobStatusPending,
		TotalItems:     len(input.SourceChunkIDs),
		Metadata:       input.Metadata,
		CreatedAt:      time.Now(),
	}
	f.jobs[id] = job
	f.jobOrder = append(f.jobOrder, id)
	return job, nil
}

func (f *fakeStore) GetJob(_ context.Context, id string) (*models.TransformJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) ListJobs(_ context.Context, filter db.JobFilter) ([]models.TransformJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.TransformJob
	for i := len(f.jobOrder) - 1; i >= 0; i-- {
		job := f.jobs[f.jobOrder[i]]
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && job.JobType != filter.JobType {
			continue
		}
		out = append(out, *job)
	}
	return out, nil
}

func (f *fakeStore) StartJob(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return false, nil
	}
	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &now
	return true, nil
}

func (f *fakeStore) ClaimNextJob(ctx context.Context) (*models.TransformJob, error) {
	f.mu.Lock()

	var best *models.TransformJob
	for _, id := range f.jobOrder {
		job := f.jobs[id]
		if job.Status != models.JobStatusPending {
			continue
		}
		if best == nil || job.Priority > best.Priority {
			best = job
		}
	}
	f.mu.Unlock()

	if best == nil {
		return nil, nil
	}
	if _, err := f.StartJob(ctx, models.MustRecordIDString(best.ID)); err != nil {
		return nil, err
	}
	return f.GetJob(ctx, models.MustRecordIDString(best.ID))
}

func (f *fakeStore) SetCurrentItem(_ context.Context, id, chunkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if job, ok := f.jobs[id]; ok {
		job.CurrentItemID = chunkID
	}
	return nil
}

func (f *fakeStore) UpdateJobProgress(_ context.Context, id string, processed, failed, errorCount int, progress float64) error {
	if f.failUpdateProgress != nil {
		return f.failUpdateProgress
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.ProcessedItems = processed
	job.FailedItems = failed
	job.ErrorCount = errorCount
	job.ProgressPercentage = progress
	return nil
}

func (f *fakeStore) FinishJob(_ context.Context, id string, status models.JobStatus, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	now := time.Now()
	job.Status = status
	job.ErrorMessage = errorMessage
	job.CurrentItemID = ""
	job.CompletedAt = &now
	return nil
}

func (f *fakeStore) JobStatus(_ context.Context, id string) (models.JobStatus, error) {
	if f.onJobStatus != nil {
		f.onJobStatus(id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return "", db.ErrNotFound
	}
	return job.Status, nil
}

func (f *fakeStore) CancelJob(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return false, nil
	}
	if job.Status != models.JobStatusPending && job.Status != models.JobStatusProcessing {
		return false, nil
	}
	now := time.Now()
	job.Status = models.JobStatusCancelled
	job.CompletedAt = &now
	return true, nil
}

func (f *fakeStore) ReconcileStale(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) CreateRecord(_ context.Context, rec models.TransformationRecord) error {
	if f.failCreateRecord != nil {
		return f.failCreateRecord
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rec.ID = recordID("transformation_record", uuid.New().String()[:8])
	rec.CompletedAt = time.Now()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) RecordsForJob(_ context.Context, jobID string) ([]models.TransformationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.TransformationRecord
	for _, rec := range f.records {
		if rec.JobID == jobID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SequenceNumber < out[j].SequenceNumber
	})
	return out, nil
}

func (f *fakeStore) GetLineageNode(_ context.Context, chunkID string) (*models.LineageNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	node, ok := f.lineage[chunkID]
	if !ok {
		return nil, nil
	}
	copied := *node
	copied.TransformationPath = slices.Clone(node.TransformationPath)
	copied.SessionIDs = slices.Clone(node.SessionIDs)
	copied.JobIDs = slices.Clone(node.JobIDs)
	return &copied, nil
}

func (f *fakeStore) InsertLineageNode(_ context.Context, node models.LineageNode) (*models.LineageNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.lineage[node.ChunkID]; ok {
		return nil, db.ErrAlreadyExists
	}
	node.ID = recordID("lineage_node", uuid.New().String()[:8])
	now := time.Now()
	node.CreatedAt = now
	node.UpdatedAt = now
	stored := node
	f.lineage[node.ChunkID] = &stored
	copied := stored
	return &copied, nil
}

func (f *fakeStore) MergeLineageNode(_ context.Context, chunkID string, sessionIDs, jobIDs []string, tokens int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	node, ok := f.lineage[chunkID]
	if !ok {
		return db.ErrNotFound
	}
	for _, s := range sessionIDs {
		if !slices.Contains(node.SessionIDs, s) {
			node.SessionIDs = append(node.SessionIDs, s)
		}
	}
	for _, j := range jobIDs {
		if !slices.Contains(node.JobIDs, j) {
			node.JobIDs = append(node.JobIDs, j)
		}
	}
	node.TotalTransformations++
	node.TotalTokensUsed += tokens
	node.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) LineageByRoot(_ context.Context, rootChunkID string) ([]models.LineageNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.LineageNode
	for _, node := range f.lineage {
		if node.RootChunkID == rootChunkID {
			out = append(out, *node)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Generation != out[j].Generation {
			return out[i].Generation < out[j].Generation
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out, nil
}

func (f *fakeStore) LineageChildren(_ context.Context, chunkID string) ([]models.LineageNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.LineageNode
	for _, node := range f.lineage {
		if node.ParentChunkID == chunkID {
			out = append(out, *node)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChunkID < out[j].ChunkID
	})
	return out, nil
}

var _ Store = (*fakeStore)(nil)
