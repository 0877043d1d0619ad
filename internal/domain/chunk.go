package domain

import (
	"fmt"
	"time"
)

// Chunk represents one split of a chunked source. Chunks are owned
// exclusively by their source and are deleted with it; chunk_index orders
// them deterministically within the source, independent of similarity.
type Chunk struct {
	ID         string
	SourceID   string
	AgentID    string
	ChunkIndex int
	Content    string
	Embedding  []float32
	TokenCount int
	Metadata   map[string]any
	CreatedAt  time.Time
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.SourceID == "" {
		return fmt.Errorf("chunk SourceID is required")
	}

	if c.AgentID == "" {
		return fmt.Errorf("chunk AgentID is required")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex cannot be negative")
	}

	return nil
}
