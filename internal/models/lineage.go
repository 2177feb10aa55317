package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// OriginalOperation labels generation-0 nodes in graph views.
const OriginalOperation = "original"

// LineageNode is the provenance record for exactly one chunk: where it sits
// in its transformation tree and which sessions/jobs have touched it.
//
// Structural fields (RootChunkID, ParentChunkID, Generation,
// TransformationPath) are write-once; only the aggregate counters are
// updated when a chunk is re-touched.
type LineageNode struct {
	ID surrealmodels.RecordID `json:"id"`

	ChunkID       string `json:"chunk_id"`        // 1:1 with the chunk it describes
	RootChunkID   string `json:"root_chunk_id"`   // Tree root; own chunk ID at generation 0
	ParentChunkID string `json:"parent_chunk_id,omitempty"` // Empty only at generation 0

	Generation         int      `json:"generation"`
	TransformationPath []string `json:"transformation_path"` // len == Generation
	Depth              int      `json:"depth"`               // Mirrors Generation

	SessionIDs []string `json:"session_ids,omitempty"`
	JobIDs     []string `json:"job_ids,omitempty"`

	TotalTransformations int `json:"total_transformations"`
	TotalTokensUsed      int `json:"total_tokens_used"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastOperation returns the operation that produced this chunk, or
// OriginalOperation for generation-0 roots.
func (n *LineageNode) LastOperation() string {
	if len(n.TransformationPath) == 0 {
		return OriginalOperation
	}
	return n.TransformationPath[len(n.TransformationPath)-1]
}

// ProvenanceNode is one node of a rendered provenance graph.
type ProvenanceNode struct {
	LineageID      string `json:"lineage_id"`
	ChunkID        string `json:"chunk_id"`
	ContentPreview string `json:"content_preview"`
	Generation     int    `json:"generation"`
	Operation      string `json:"operation"` // Dominant (most recent) operation
}

// ProvenanceEdge links a parent node to the child it produced.
type ProvenanceEdge struct {
	FromLineageID string `json:"from_lineage_id"`
	ToLineageID   string `json:"to_lineage_id"`
	Label         string `json:"label"` // Triggering operation
}

// ProvenanceGraph is the read-side projection of one provenance tree.
type ProvenanceGraph struct {
	RootChunkID string           `json:"root_chunk_id"`
	Nodes       []ProvenanceNode `json:"nodes"`
	Edges       []ProvenanceEdge `json:"edges"`
}

// Lineage is the full ancestry view for a single chunk.
type Lineage struct {
	Node        LineageNode   `json:"node"`
	Ancestors   []LineageNode `json:"ancestors"`   // Parent first, root last
	Descendants []LineageNode `json:"descendants"` // Generation-ordered
	Generations int           `json:"generations"` // Deepest generation under the same root
}
