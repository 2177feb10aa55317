package service

import (
	"context"
	"testing"

	"github.com/raphaelgruber/reweave-go/internal/db"
	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordEvent(t *testing.T, svc *LineageService, source, result, op, job string) {
	t.Helper()

	err := svc.RecordTransformation(context.Background(), TransformationEvent{
		SourceChunkID: source,
		ResultChunkID: result,
		Operation:     op,
		SessionID:     "session-1",
		JobID:         job,
		TokensUsed:    10,
	})
	require.NoError(t, err)
}

func TestRecordTransformationCreatesRootLazily(t *testing.T) {
	store := newFakeStore()
	svc := NewLineageService(store, testLogger())
	ctx := context.Background()

	recordEvent(t, svc, "root", "child", "persona", "job-1")

	src, err := store.GetLineageNode(ctx, "root")
	require.NoError(t, err)
	require.NotNil(t, src, "source gets a node the first time it is transformed")
	assert.Equal(t, 0, src.Generation)
	assert.Equal(t, "root", src.RootChunkID, "generation 0 is its own root")
	assert.Empty(t, src.ParentChunkID)
	assert.Empty(t, src.TransformationPath)

	res, err := store.GetLineageNode(ctx, "child")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Generation)
	assert.Equal(t, "root", res.RootChunkID)
	assert.Equal(t, "root", res.ParentChunkID)
	assert.Equal(t, []string{"persona"}, res.TransformationPath)
	assert.Equal(t, []string{"job-1"}, res.JobIDs)
	assert.Equal(t, 1, res.TotalTransformations)
	assert.Equal(t, 10, res.TotalTokensUsed)
}

func TestRecordTransformationChainPropagatesRoot(t *testing.T) {
	store := newFakeStore()
	svc := NewLineageService(store, testLogger())
	ctx := context.Background()

	recordEvent(t, svc, "a", "b", "persona", "job-1")
	recordEvent(t, svc, "b", "c", "format", "job-2")
	recordEvent(t, svc, "c", "d", "detect", "job-3")

	d, err := store.GetLineageNode(ctx, "d")
	require.NoError(t, err)
	require.NotNil(t, d)

	// Root propagates through every generation; path length tracks depth
	assert.Equal(t, "a", d.RootChunkID)
	assert.Equal(t, 3, d.Generation)
	assert.Equal(t, []string{"persona", "format", "detect"}, d.TransformationPath)
	assert.Len(t, d.TransformationPath, d.Generation)
	assert.Equal(t, "c", d.ParentChunkID)
}

func TestRecordTransformationMergesExistingResult(t *testing.T) {
	store := newFakeStore()
	svc := NewLineageService(store, testLogger())
	ctx := context.Background()

	recordEvent(t, svc, "a", "b", "persona", "job-1")

	// A second event landing on the same result chunk keeps the first
	// writer's structure and only accumulates membership and totals.
	err := svc.RecordTransformation(ctx, TransformationEvent{
		SourceChunkID: "other-source",
		ResultChunkID: "b",
		Operation:     "format",
		SessionID:     "session-2",
		JobID:         "job-2",
		TokensUsed:    5,
	})
	require.NoError(t, err)

	b, err := store.GetLineageNode(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "a", b.ParentChunkID, "structure stays as first written")
	assert.Equal(t, []string{"persona"}, b.TransformationPath)
	assert.Equal(t, 1, b.Generation)
	assert.ElementsMatch(t, []string{"job-1", "job-2"}, b.JobIDs)
	assert.ElementsMatch(t, []string{"session-1", "session-2"}, b.SessionIDs)
	assert.Equal(t, 2, b.TotalTransformations)
	assert.Equal(t, 15, b.TotalTokensUsed)
}

func TestRecordTransformationMergeDeduplicatesMembership(t *testing.T) {
	store := newFakeStore()
	svc := NewLineageService(store, testLogger())
	ctx := context.Background()

	recordEvent(t, svc, "a", "b", "persona", "job-1")
	recordEvent(t, svc, "a", "b", "persona", "job-1")

	b, err := store.GetLineageNode(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, b.JobIDs, "repeat membership unions away")
	assert.Equal(t, 2, b.TotalTransformations, "counts still accumulate")
}

func TestLineageView(t *testing.T) {
	store := newFakeStore()
	svc := NewLineageService(store, testLogger())
	ctx := context.Background()

	// Build a small tree:
	//   a -> b -> d
	//     -> c
	recordEvent(t, svc, "a", "b", "persona", "job-1")
	recordEvent(t, svc, "a", "c", "format", "job-2")
	recordEvent(t, svc, "b", "d", "detect", "job-3")

	t.Run("middle node", func(t *testing.T) {
		lin, err := svc.Lineage(ctx, "b")
		require.NoError(t, err)

		assert.Equal(t, "b", lin.Node.ChunkID)
		require.Len(t, lin.Ancestors, 1)
		assert.Equal(t, "a", lin.Ancestors[0].ChunkID)
		require.Len(t, lin.Descendants, 1)
		assert.Equal(t, "d", lin.Descendants[0].ChunkID)
		assert.Equal(t, 2, lin.Generations, "deepest generation under the root")
	})

	t.Run("root node", func(t *testing.T) {
		lin, err := svc.Lineage(ctx, "a")
		require.NoError(t, err)

		assert.Empty(t, lin.Ancestors)
		require.Len(t, lin.Descendants, 3)
		// Sorted by generation, then chunk ID
		assert.Equal(t, "b", lin.Descendants[0].ChunkID)
		assert.Equal(t, "c", lin.Descendants[1].ChunkID)
		assert.Equal(t, "d", lin.Descendants[2].ChunkID)
	})

	t.Run("leaf node", func(t *testing.T) {
		lin, err := svc.Lineage(ctx, "d")
		require.NoError(t, err)

		require.Len(t, lin.Ancestors, 2)
		assert.Equal(t, "b", lin.Ancestors[0].ChunkID, "nearest ancestor first")
		assert.Equal(t, "a", lin.Ancestors[1].ChunkID)
		assert.Empty(t, lin.Descendants)
	})

	t.Run("sibling excluded", func(t *testing.T) {
		lin, err := svc.Lineage(ctx, "c")
		require.NoError(t, err)
		assert.Empty(t, lin.Descendants, "sibling branches are not descendants")
	})

	t.Run("unknown chunk", func(t *testing.T) {
		_, err := svc.Lineage(ctx, "ghost")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
}

func buildGraphFixture(t *testing.T) (*fakeStore, *LineageService) {
	t.Helper()

	store := newFakeStore()
	svc := NewLineageService(store, testLogger())

	store.addChunk("a", "the original text of the root chunk", "", 0)
	store.addChunk("b", "persona rendition", "", 0)
	store.addChunk("c", "formatted rendition", "", 0)
	store.addChunk("d", "second generation persona", "", 0)

	recordEvent(t, svc, "a", "b", "persona", "job-1")
	recordEvent(t, svc, "a", "c", "format", "job-2")
	recordEvent(t, svc, "b", "d", "persona", "job-3")

	return store, svc
}

func TestBuildGraphFull(t *testing.T) {
	_, svc := buildGraphFixture(t)

	graph, err := svc.BuildGraph(context.Background(), "a", GraphOptions{MaxGeneration: -1})
	require.NoError(t, err)

	assert.Equal(t, "a", graph.RootChunkID)
	require.Len(t, graph.Nodes, 4)
	require.Len(t, graph.Edges, 3)

	byChunk := make(map[string]models.ProvenanceNode)
	for _, n := range graph.Nodes {
		byChunk[n.ChunkID] = n
	}
	assert.Equal(t, 0, byChunk["a"].Generation)
	assert.Equal(t, models.OriginalOperation, byChunk["a"].Operation)
	assert.Equal(t, "persona", byChunk["d"].Operation)
	assert.Contains(t, byChunk["a"].ContentPreview, "the original text")

	// Every edge references nodes present in the graph
	present := make(map[string]bool)
	for _, n := range graph.Nodes {
		present[n.LineageID] = true
	}
	for _, e := range graph.Edges {
		assert.True(t, present[e.FromLineageID], "edge source must survive")
		assert.True(t, present[e.ToLineageID], "edge target must survive")
	}
}

func TestBuildGraphMaxGeneration(t *testing.T) {
	_, svc := buildGraphFixture(t)

	graph, err := svc.BuildGraph(context.Background(), "a", GraphOptions{MaxGeneration: 1})
	require.NoError(t, err)

	// d (generation 2) pruned, along with its incoming edge
	require.Len(t, graph.Nodes, 3)
	require.Len(t, graph.Edges, 2)
	for _, n := range graph.Nodes {
		assert.LessOrEqual(t, n.Generation, 1)
	}

	present := make(map[string]bool)
	for _, n := range graph.Nodes {
		present[n.LineageID] = true
	}
	for _, e := range graph.Edges {
		assert.True(t, present[e.FromLineageID])
		assert.True(t, present[e.ToLineageID])
	}
}

func TestBuildGraphOperationFilter(t *testing.T) {
	_, svc := buildGraphFixture(t)

	graph, err := svc.BuildGraph(context.Background(), "a", GraphOptions{
		MaxGeneration: -1,
		Operation:     "persona",
	})
	require.NoError(t, err)

	// Root survives regardless of the filter; c (format) is dropped
	chunks := make([]string, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		chunks = append(chunks, n.ChunkID)
	}
	assert.ElementsMatch(t, []string{"a", "b", "d"}, chunks)
	require.Len(t, graph.Edges, 2)
}

func TestBuildGraphEmptyTree(t *testing.T) {
	store := newFakeStore()
	svc := NewLineageService(store, testLogger())

	graph, err := svc.BuildGraph(context.Background(), "nothing-here", GraphOptions{MaxGeneration: -1})
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
}
