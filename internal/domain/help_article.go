package domain

import (
	"fmt"
	"time"
)

// HelpArticle represents a help-center article searchable as its own tier.
// Article embeddings come from a different provider than source/chunk
// embeddings and carry a different dimensionality; the two vector spaces are
// never comparable.
type HelpArticle struct {
	ID         string
	AgentID    string
	CategoryID string
	Title      string
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Searchable reports whether the article is eligible for similarity search.
func (a *HelpArticle) Searchable() bool {
	return len(a.Embedding) > 0
}

// ValidateHelpArticle validates a HelpArticle instance
func ValidateHelpArticle(a *HelpArticle) error {
	if a == nil {
		return fmt.Errorf("help article cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("help article ID is required")
	}

	if a.AgentID == "" {
		return fmt.Errorf("help article AgentID is required")
	}

	if a.Title == "" {
		return fmt.Errorf("help article Title is required")
	}

	return nil
}
