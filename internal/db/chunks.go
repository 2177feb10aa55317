package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateChunk persists a new content chunk. When input.ID is empty a UUID is
// generated. Returns the created chunk.
func (c *Client) CreateChunk(ctx context.Context, input models.ChunkInput) (*models.Chunk, error) {
	id := input.ID
	if id == "" {
		id = uuid.New().String()
	}

	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		CREATE type::record("chunk", $id) SET
			content = $content,
			container_id = $container,
			position = $position
	`, map[string]any{
		"id":        id,
		"content":   input.Content,
		"container": optString(input.ContainerID),
		"position":  input.Position,
	})
	if err != nil {
		return nil, fmt.Errorf("create chunk: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create chunk: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// GetChunk retrieves a chunk by ID. Returns nil if not found.
func (c *Client) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		SELECT * FROM type::record("chunk", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ResolveContainer expands a container reference into the ordered list of
// chunk IDs it holds.
func (c *Client) ResolveContainer(ctx context.Context, containerID string) ([]string, error) {
	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		SELECT * FROM chunk WHERE container_id = $container ORDER BY position ASC
	`, map[string]any{"container": containerID})
	if err != nil {
		return nil, fmt.Errorf("resolve container: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}

	chunks := (*results)[0].Result
	ids := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		id, err := models.RecordIDString(ch.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve container: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optString maps "" to nil for option<string> fields.
func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
