package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/raphaelgruber/reweave-go/internal/db"
	"github.com/raphaelgruber/reweave-go/internal/models"
)

const previewLength = 80

// LineageService maintains the provenance forest and serves its read-side
// projections.
type LineageService struct {
	store  Store
	logger *slog.Logger
}

// NewLineageService creates a new lineage service.
func NewLineageService(store Store, logger *slog.Logger) *LineageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineageService{store: store, logger: logger}
}

// TransformationEvent describes one successfully completed transformation.
type TransformationEvent struct {
	SourceChunkID string
	ResultChunkID string
	Operation     string
	SessionID     string
	JobID         string
	TokensUsed    int
}

// RecordTransformation ensures consistent lineage nodes exist for both sides
// of a transformation.
//
// The source gets a generation-0 node lazily, the first time anything is
// derived from it. The result node propagates the source's root, extends its
// path by one operation and points back at the source. If the result already
// has a node (re-applied operation onto a pre-existing chunk, or a lost
// insert race), structural fields stay as first written and only the
// aggregates accumulate.
func (s *LineageService) RecordTransformation(ctx context.Context, ev TransformationEvent) error {
	source, err := s.sourceNode(ctx, ev)
	if err != nil {
		return err
	}

	path := make([]string, 0, len(source.TransformationPath)+1)
	path = append(path, source.TransformationPath...)
	path = append(path, ev.Operation)

	result := models.LineageNode{
		ChunkID:              ev.ResultChunkID,
		RootChunkID:          source.RootChunkID,
		ParentChunkID:        source.ChunkID,
		Generation:           source.Generation + 1,
		TransformationPath:   path,
		Depth:                source.Generation + 1,
		SessionIDs:           membership(ev.SessionID),
		JobIDs:               membership(ev.JobID),
		TotalTransformations: 1,
		TotalTokensUsed:      ev.TokensUsed,
	}

	existing, err := s.store.GetLineageNode(ctx, ev.ResultChunkID)
	if err != nil {
		return fmt.Errorf("lookup result lineage: %w", err)
	}
	if existing != nil {
		return s.merge(ctx, ev)
	}

	if _, err := s.store.InsertLineageNode(ctx, result); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) || errors.Is(err, db.ErrTransactionConflict) {
			// Lost a concurrent create race; the winner's structure stands.
			return s.merge(ctx, ev)
		}
		return fmt.Errorf("insert result lineage: %w", err)
	}

	return nil
}

// sourceNode fetches the source's lineage node, lazily creating the
// generation-0 node when the chunk has never been touched before.
func (s *LineageService) sourceNode(ctx context.Context, ev TransformationEvent) (*models.LineageNode, error) {
	node, err := s.store.GetLineageNode(ctx, ev.SourceChunkID)
	if err != nil {
		return nil, fmt.Errorf("lookup source lineage: %w", err)
	}
	if node != nil {
		return node, nil
	}

	created, err := s.store.InsertLineageNode(ctx, models.LineageNode{
		ChunkID:            ev.SourceChunkID,
		RootChunkID:        ev.SourceChunkID,
		Generation:         0,
		TransformationPath: []string{},
		SessionIDs:         membership(ev.SessionID),
		JobIDs:             membership(ev.JobID),
	})
	if err != nil {
		if errors.Is(err, db.ErrAlreadyExists) || errors.Is(err, db.ErrTransactionConflict) {
			// Concurrent job created it first; use theirs.
			return s.store.GetLineageNode(ctx, ev.SourceChunkID)
		}
		return nil, fmt.Errorf("insert source lineage: %w", err)
	}
	return created, nil
}

func (s *LineageService) merge(ctx context.Context, ev TransformationEvent) error {
	err := s.store.MergeLineageNode(ctx, ev.ResultChunkID,
		membership(ev.SessionID), membership(ev.JobID), ev.TokensUsed)
	if err != nil {
		return fmt.Errorf("merge result lineage: %w", err)
	}
	return nil
}

func membership(id string) []string {
	if id == "" {
		return []string{}
	}
	return []string{id}
}

// Lineage returns the full ancestry view for one chunk: its node, ancestors
// up to the root, descendants, and the deepest generation under the root.
func (s *LineageService) Lineage(ctx context.Context, chunkID string) (*models.Lineage, error) {
	node, err := s.store.GetLineageNode(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("lineage for chunk %s: %w", chunkID, db.ErrNotFound)
	}

	tree, err := s.store.LineageByRoot(ctx, node.RootChunkID)
	if err != nil {
		return nil, err
	}

	byChunk := make(map[string]models.LineageNode, len(tree))
	generations := 0
	for _, n := range tree {
		byChunk[n.ChunkID] = n
		if n.Generation > generations {
			generations = n.Generation
		}
	}

	// Ancestors by following parent pointers; generations strictly decrease
	// so the walk always terminates at the root.
	var ancestors []models.LineageNode
	for parent := node.ParentChunkID; parent != ""; {
		p, ok := byChunk[parent]
		if !ok {
			s.logger.Warn("broken parent pointer", "chunk_id", chunkID, "parent", parent)
			break
		}
		ancestors = append(ancestors, p)
		parent = p.ParentChunkID
	}

	// Descendants: nodes whose ancestry passes through this chunk.
	var descendants []models.LineageNode
	for _, n := range tree {
		if n.ChunkID == chunkID {
			continue
		}
		for parent := n.ParentChunkID; parent != ""; {
			if parent == chunkID {
				descendants = append(descendants, n)
				break
			}
			p, ok := byChunk[parent]
			if !ok {
				break
			}
			parent = p.ParentChunkID
		}
	}
	slices.SortFunc(descendants, func(a, b models.LineageNode) int {
		if a.Generation != b.Generation {
			return a.Generation - b.Generation
		}
		return compareStrings(a.ChunkID, b.ChunkID)
	})

	return &models.Lineage{
		Node:        *node,
		Ancestors:   ancestors,
		Descendants: descendants,
		Generations: generations,
	}, nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// GraphOptions narrows a provenance graph projection.
type GraphOptions struct {
	// MaxGeneration drops nodes deeper than this; negative means no limit.
	MaxGeneration int

	// Operation keeps only nodes whose triggering operation matches.
	// Generation-0 roots are always kept so the graph stays rooted.
	// "" disables the filter.
	Operation string
}

// BuildGraph projects one provenance tree into a node/edge graph for
// visualization. Read-only; lineage nodes are never mutated.
func (s *LineageService) BuildGraph(ctx context.Context, rootChunkID string, opts GraphOptions) (*models.ProvenanceGraph, error) {
	tree, err := s.store.LineageByRoot(ctx, rootChunkID)
	if err != nil {
		return nil, err
	}

	kept := make([]models.LineageNode, 0, len(tree))
	for _, n := range tree {
		if opts.MaxGeneration >= 0 && n.Generation > opts.MaxGeneration {
			continue
		}
		if opts.Operation != "" && n.Generation > 0 && n.LastOperation() != opts.Operation {
			continue
		}
		kept = append(kept, n)
	}

	graph := &models.ProvenanceGraph{
		RootChunkID: rootChunkID,
		Nodes:       make([]models.ProvenanceNode, 0, len(kept)),
		Edges:       []models.ProvenanceEdge{},
	}

	lineageIDs := make(map[string]string, len(kept)) // chunk id -> lineage id
	for _, n := range kept {
		id, err := models.RecordIDString(n.ID)
		if err != nil {
			return nil, fmt.Errorf("lineage node for %s: %w", n.ChunkID, err)
		}
		lineageIDs[n.ChunkID] = id
	}

	for _, n := range kept {
		preview := ""
		chunk, err := s.store.GetChunk(ctx, n.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("load chunk %s: %w", n.ChunkID, err)
		}
		if chunk != nil {
			preview = chunk.Preview(previewLength)
		}

		graph.Nodes = append(graph.Nodes, models.ProvenanceNode{
			LineageID:      lineageIDs[n.ChunkID],
			ChunkID:        n.ChunkID,
			ContentPreview: preview,
			Generation:     n.Generation,
			Operation:      n.LastOperation(),
		})

		// Edges only between surviving endpoints: pruning never leaves a
		// dangling edge.
		if n.ParentChunkID != "" {
			if parentID, ok := lineageIDs[n.ParentChunkID]; ok {
				graph.Edges = append(graph.Edges, models.ProvenanceEdge{
					FromLineageID: parentID,
					ToLineageID:   lineageIDs[n.ChunkID],
					Label:         n.LastOperation(),
				})
			}
		}
	}

	return graph, nil
}
