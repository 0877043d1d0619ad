package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/parkwebdev/recall/internal/domain"
)

const apiKeyPrefix = "rcl_"

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// AuthService issues and validates API keys and answers the agent-access
// predicate consulted before every search or cache operation. A key scoped
// to an agent may only act on that agent; an unscoped key may act on all.
type AuthService struct {
	keyRepo APIKeyRepository
	uuidGen UUIDGenerator
}

func NewAuthService(keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		keyRepo: keyRepo,
		uuidGen: uuidGen,
	}
}

// CreateAPIKey mints a new key, optionally scoped to a single agent, and
// returns the plaintext token exactly once.
func (s *AuthService) CreateAPIKey(ctx context.Context, name, agentID string) (string, error) {
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	hash := hashToken(token)

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		Name:      name,
		KeyHash:   hash,
		AgentID:   agentID,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return "", err
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateAPIKey resolves a bearer token to its key record.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (*domain.APIKey, error) {
	if !IsValidAPIToken(token) {
		return nil, domain.ErrInvalidAPIKey
	}

	hash := hashToken(token)

	key, err := s.keyRepo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return nil, domain.ErrInvalidAPIKey
		}
		return nil, err
	}

	if key.IsRevoked() {
		return nil, domain.ErrAPIKeyRevoked
	}

	return key, nil
}

// CanAccessAgent is the authorization predicate: given a validated key and a
// target agent, allow or deny. The retrieval core itself performs no other
// identity checks.
func (s *AuthService) CanAccessAgent(key *domain.APIKey, agentID string) bool {
	if key == nil || agentID == "" {
		return false
	}
	return key.AllowsAgent(agentID)
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
