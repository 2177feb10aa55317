package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// GetLineageNode retrieves the lineage node for a chunk. Returns nil if the
// chunk has never been part of a transformation.
func (c *Client) GetLineageNode(ctx context.Context, chunkID string) (*models.LineageNode, error) {
	results, err := surrealdb.Query[[]models.LineageNode](ctx, c.db, `
		SELECT * FROM lineage_node WHERE chunk_id = $chunk LIMIT 1
	`, map[string]any{"chunk": chunkID})
	if err != nil {
		return nil, fmt.Errorf("get lineage node: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// InsertLineageNode creates a new lineage node. The unique index on chunk_id
// turns a concurrent double-insert into ErrAlreadyExists so callers can fall
// back to MergeLineageNode.
func (c *Client) InsertLineageNode(ctx context.Context, node models.LineageNode) (*models.LineageNode, error) {
	path := node.TransformationPath
	if path == nil {
		path = []string{}
	}

	results, err := surrealdb.Query[[]models.LineageNode](ctx, c.db, `
		CREATE lineage_node SET
			chunk_id = $chunk,
			root_chunk_id = $root,
			parent_chunk_id = $parent,
			generation = $generation,
			transformation_path = $path,
			depth = $generation,
			session_ids = $sessions,
			job_ids = $jobs,
			total_transformations = $transformations,
			total_tokens_used = $tokens
	`, map[string]any{
		"chunk":           node.ChunkID,
		"root":            node.RootChunkID,
		"parent":          optString(node.ParentChunkID),
		"generation":      node.Generation,
		"path":            path,
		"sessions":        emptyIfNil(node.SessionIDs),
		"jobs":            emptyIfNil(node.JobIDs),
		"transformations": node.TotalTransformations,
		"tokens":          node.TotalTokensUsed,
	})
	if err != nil {
		return nil, fmt.Errorf("insert lineage node: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("insert lineage node: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// MergeLineageNode accumulates aggregates on an existing node: set-union of
// session/job IDs, transformation count, token sum. Structural fields are
// deliberately untouched (first-writer-wins).
func (c *Client) MergeLineageNode(ctx context.Context, chunkID string, sessionIDs, jobIDs []string, tokens int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE lineage_node SET
			session_ids = array::union(session_ids, $sessions),
			job_ids = array::union(job_ids, $jobs),
			total_transformations += 1,
			total_tokens_used += $tokens,
			updated_at = time::now()
		WHERE chunk_id = $chunk
	`, map[string]any{
		"chunk":    chunkID,
		"sessions": emptyIfNil(sessionIDs),
		"jobs":     emptyIfNil(jobIDs),
		"tokens":   tokens,
	})
	if err != nil {
		return fmt.Errorf("merge lineage node: %w", wrapQueryError(err))
	}
	return nil
}

// LineageByRoot returns every node of one provenance tree, generation-ordered.
func (c *Client) LineageByRoot(ctx context.Context, rootChunkID string) ([]models.LineageNode, error) {
	results, err := surrealdb.Query[[]models.LineageNode](ctx, c.db, `
		SELECT * FROM lineage_node
		WHERE root_chunk_id = $root
		ORDER BY generation ASC, chunk_id ASC
	`, map[string]any{"root": rootChunkID})
	if err != nil {
		return nil, fmt.Errorf("lineage by root: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.LineageNode{}, nil
	}
	return (*results)[0].Result, nil
}

// LineageChildren returns the direct children of a chunk's lineage node.
func (c *Client) LineageChildren(ctx context.Context, chunkID string) ([]models.LineageNode, error) {
	results, err := surrealdb.Query[[]models.LineageNode](ctx, c.db, `
		SELECT * FROM lineage_node
		WHERE parent_chunk_id = $chunk
		ORDER BY chunk_id ASC
	`, map[string]any{"chunk": chunkID})
	if err != nil {
		return nil, fmt.Errorf("lineage children: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.LineageNode{}, nil
	}
	return (*results)[0].Result, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
