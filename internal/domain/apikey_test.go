package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAPIKey(t *testing.T) {
	now := time.Now()
	apiKey := NewAPIKey("key1", "Test Key", "hash123", "agent-1", now, nil)

	assert.Equal(t, "key1", apiKey.ID)
	assert.Equal(t, "Test Key", apiKey.Name)
	assert.Equal(t, "hash123", apiKey.KeyHash)
	assert.Equal(t, "agent-1", apiKey.AgentID)
	assert.Equal(t, now, apiKey.CreatedAt)
	assert.Nil(t, apiKey.RevokedAt)
}

func TestAPIKey_IsRevoked(t *testing.T) {
	now := time.Now()
	key := NewAPIKey("key1", "Test Key", "hash123", "", now, nil)
	assert.False(t, key.IsRevoked())

	revokedAt := now.Add(time.Hour)
	key.RevokedAt = &revokedAt
	assert.True(t, key.IsRevoked())
}

func TestAPIKey_AllowsAgent(t *testing.T) {
	scoped := &APIKey{ID: "k1", AgentID: "agent-1"}
	assert.True(t, scoped.AllowsAgent("agent-1"))
	assert.False(t, scoped.AllowsAgent("agent-2"))

	unscoped := &APIKey{ID: "k2"}
	assert.True(t, unscoped.AllowsAgent("agent-1"))
	assert.True(t, unscoped.AllowsAgent("agent-2"))
}

func TestValidateAPIKey(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		apiKey  *APIKey
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid api key",
			apiKey: &APIKey{
				ID:        "key1",
				Name:      "Test Key",
				KeyHash:   "hash123",
				CreatedAt: now,
			},
			wantErr: false,
		},
		{
			name: "valid unscoped key",
			apiKey: &APIKey{
				ID:        "key1",
				Name:      "Test Key",
				KeyHash:   "hash123",
				AgentID:   "",
				CreatedAt: now,
			},
			wantErr: false,
		},
		{
			name:    "nil api key",
			apiKey:  nil,
			wantErr: true,
			errMsg:  "cannot be nil",
		},
		{
			name: "missing ID",
			apiKey: &APIKey{
				Name:    "Test Key",
				KeyHash: "hash123",
			},
			wantErr: true,
			errMsg:  "ID is required",
		},
		{
			name: "missing name",
			apiKey: &APIKey{
				ID:      "key1",
				KeyHash: "hash123",
			},
			wantErr: true,
			errMsg:  "Name is required",
		},
		{
			name: "missing hash",
			apiKey: &APIKey{
				ID:   "key1",
				Name: "Test Key",
			},
			wantErr: true,
			errMsg:  "KeyHash is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
