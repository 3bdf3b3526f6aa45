package models

import "time"

// LinkType classifies why a memory is associated with a chunk.
type LinkType string

const (
	LinkSemantic LinkType = "semantic"
	LinkAnchor   LinkType = "anchor"
	LinkMotif    LinkType = "motif"
)

// MemoryChunkLink asserts that a memory is substantiated by a specific
// chunk. At most one link exists per (MemoryID, ChunkID) pair; re-linking
// overwrites the previous record.
type MemoryChunkLink struct {
	MemoryID   string            `json:"memory_id"`
	ChunkID    string            `json:"chunk_id"`
	Type       LinkType          `json:"type"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
