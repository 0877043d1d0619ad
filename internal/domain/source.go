package domain

import (
	"fmt"
	"time"
)

// SourceType represents how a source was ingested
type SourceType string

const (
	SourceTypeDocument SourceType = "document"
	SourceTypeURL      SourceType = "url"
	SourceTypeSitemap  SourceType = "sitemap"
	SourceTypeText     SourceType = "text"
)

// SourceStatus represents the ingestion lifecycle state of a source
type SourceStatus string

const (
	SourceStatusProcessing SourceStatus = "processing"
	SourceStatusReady      SourceStatus = "ready"
	SourceStatusError      SourceStatus = "error"
)

// Metadata keys written by the ingestion pipeline and the watchdog.
const (
	MetadataKeyParentSource = "parent_source_id"
	MetadataKeyError        = "error"
)

// StuckProcessingMessage is the standard diagnostic written by the lifecycle
// watchdog when it fails a record stuck in processing.
const StuckProcessingMessage = "ingestion timed out: source stuck in processing"

// Source represents a whole-document knowledge source owned by an agent.
// The ingestion pipeline creates sources in processing state and flips them
// to ready (embedding populated) or error exactly once.
type Source struct {
	ID        string
	AgentID   string
	Type      SourceType
	Origin    string
	Content   string
	Status    SourceStatus
	Embedding []float32
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSource creates a new Source in processing state
func NewSource(id, agentID string, sourceType SourceType, origin, content string, createdAt time.Time) *Source {
	return &Source{
		ID:        id,
		AgentID:   agentID,
		Type:      sourceType,
		Origin:    origin,
		Content:   content,
		Status:    SourceStatusProcessing,
		Metadata:  map[string]any{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ParentSourceID returns the hierarchical parent recorded in metadata, if any
// (e.g. the sitemap a page was discovered through).
func (s *Source) ParentSourceID() string {
	if s.Metadata == nil {
		return ""
	}
	parent, _ := s.Metadata[MetadataKeyParentSource].(string)
	return parent
}

// Searchable reports whether the source is eligible for similarity search.
func (s *Source) Searchable() bool {
	return s.Status == SourceStatusReady && len(s.Embedding) > 0
}

// ValidateSource validates a Source instance
func ValidateSource(s *Source) error {
	if s == nil {
		return fmt.Errorf("source cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("source ID is required")
	}

	if s.AgentID == "" {
		return fmt.Errorf("source AgentID is required")
	}

	if !isValidSourceStatus(s.Status) {
		return fmt.Errorf("source Status is invalid: %s", s.Status)
	}

	return nil
}

func isValidSourceStatus(s SourceStatus) bool {
	switch s {
	case SourceStatusProcessing, SourceStatusReady, SourceStatusError:
		return true
	}
	return false
}
