// Package models defines data structures for the Reweave transformation engine.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Chunk represents one immutable content unit. Transformations never edit a
// chunk in place; each result is a new chunk row.
type Chunk struct {
	ID surrealmodels.RecordID `json:"id"`

	Content     string `json:"content"`
	ContainerID string `json:"container_id,omitempty"` // Owning document/collection
	Position    int    `json:"position"`               // Order within container

	CreatedAt time.Time `json:"created_at"`
}

// ChunkInput is the input structure for creating chunks.
type ChunkInput struct {
	ID          string `json:"id,omitempty"` // Optional; generated when empty
	Content     string `json:"content"`
	ContainerID string `json:"container_id,omitempty"`
	Position    int    `json:"position"`
}

// Preview returns the first n characters of the chunk content, for graph
// node labels and log lines.
func (c Chunk) Preview(n int) string {
	runes := []rune(c.Content)
	if len(runes) <= n {
		return c.Content
	}
	return string(runes[:n]) + "..."
}
