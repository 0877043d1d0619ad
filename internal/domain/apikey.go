package domain

import (
	"fmt"
	"time"
)

// APIKey represents an API key for authentication. A key is scoped either to
// a single agent or, when AgentID is empty, to all agents.
type APIKey struct {
	ID        string
	Name      string
	KeyHash   string // Never store plaintext keys
	AgentID   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// NewAPIKey creates a new APIKey instance
func NewAPIKey(id, name, keyHash, agentID string, createdAt time.Time, revokedAt *time.Time) *APIKey {
	return &APIKey{
		ID:        id,
		Name:      name,
		KeyHash:   keyHash,
		AgentID:   agentID,
		CreatedAt: createdAt,
		RevokedAt: revokedAt,
	}
}

// IsRevoked returns true if the API key has been revoked
func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// AllowsAgent reports whether the key may act on behalf of the given agent.
func (a *APIKey) AllowsAgent(agentID string) bool {
	return a.AgentID == "" || a.AgentID == agentID
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return fmt.Errorf("api key cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("api key ID is required")
	}

	if a.Name == "" {
		return fmt.Errorf("api key Name is required")
	}

	if a.KeyHash == "" {
		return fmt.Errorf("api key KeyHash is required")
	}

	return nil
}
