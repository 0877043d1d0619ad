package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSource(t *testing.T) {
	now := time.Now().UTC()
	s := NewSource("src-1", "agent-1", SourceTypeURL, "https://example.com/docs", "page content", now)

	assert.Equal(t, "src-1", s.ID)
	assert.Equal(t, "agent-1", s.AgentID)
	assert.Equal(t, SourceTypeURL, s.Type)
	assert.Equal(t, SourceStatusProcessing, s.Status)
	assert.Nil(t, s.Embedding)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now, s.UpdatedAt)
}

func TestSource_Searchable(t *testing.T) {
	s := &Source{Status: SourceStatusReady, Embedding: []float32{0.1}}
	assert.True(t, s.Searchable())

	s.Status = SourceStatusProcessing
	assert.False(t, s.Searchable())

	s.Status = SourceStatusReady
	s.Embedding = nil
	assert.False(t, s.Searchable())
}

func TestSource_ParentSourceID(t *testing.T) {
	s := &Source{Metadata: map[string]any{MetadataKeyParentSource: "sitemap-1"}}
	assert.Equal(t, "sitemap-1", s.ParentSourceID())

	assert.Empty(t, (&Source{}).ParentSourceID())
	assert.Empty(t, (&Source{Metadata: map[string]any{}}).ParentSourceID())
}

func TestValidateSource(t *testing.T) {
	now := time.Now().UTC()

	valid := NewSource("src-1", "agent-1", SourceTypeText, "", "content", now)
	assert.NoError(t, ValidateSource(valid))

	assert.Error(t, ValidateSource(nil))

	missingID := *valid
	missingID.ID = ""
	assert.Error(t, ValidateSource(&missingID))

	missingAgent := *valid
	missingAgent.AgentID = ""
	assert.Error(t, ValidateSource(&missingAgent))

	badStatus := *valid
	badStatus.Status = SourceStatus("archived")
	assert.Error(t, ValidateSource(&badStatus))
}
