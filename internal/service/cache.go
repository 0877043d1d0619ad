package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/parkwebdev/recall/internal/domain"
)

// DefaultCacheTTL is the absolute expiry applied on every cache write.
// Expiry is measured from the last write, never extended by reads, so an
// entry's lifetime stays deterministic and auditable.
const DefaultCacheTTL = 7 * 24 * time.Hour

// EmbeddingCacheRepositoryInterface defines persistence for cached query
// embeddings.
type EmbeddingCacheRepositoryInterface interface {
	Get(ctx context.Context, agentID, queryKey string) (*domain.EmbeddingCacheEntry, error)
	Put(ctx context.Context, agentID, queryKey string, embedding []float32, expiresAt time.Time) error
}

// ResponseCacheRepositoryInterface defines persistence for cached responses.
type ResponseCacheRepositoryInterface interface {
	Get(ctx context.Context, agentID, fingerprint string) (*domain.ResponseCacheEntry, error)
	Put(ctx context.Context, agentID, fingerprint, response string, expiresAt time.Time) error
}

// EmbeddingCacheService memoizes text-to-vector results per agent.
type EmbeddingCacheService struct {
	repo EmbeddingCacheRepositoryInterface
	ttl  time.Duration
	now  func() time.Time
}

func NewEmbeddingCacheService(repo EmbeddingCacheRepositoryInterface, ttl time.Duration) *EmbeddingCacheService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &EmbeddingCacheService{repo: repo, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the cached embedding, or (nil, nil) on miss. A miss is the
// normal compute-and-store trigger, never an error.
func (s *EmbeddingCacheService) Get(ctx context.Context, agentID, queryKey string) (*domain.EmbeddingCacheEntry, error) {
	if agentID == "" {
		return nil, domain.ErrMissingAgentID
	}
	if queryKey == "" {
		return nil, domain.ErrMissingQueryKey
	}

	entry, err := s.repo.Get(ctx, agentID, queryKey)
	if err != nil {
		return nil, classifyStoreError("embedding cache read failed", err)
	}
	return entry, nil
}

// Put stores the embedding with a fresh absolute TTL, overwriting any
// previous entry for the same key.
func (s *EmbeddingCacheService) Put(ctx context.Context, agentID, queryKey string, embedding []float32) error {
	if agentID == "" {
		return domain.ErrMissingAgentID
	}
	if queryKey == "" {
		return domain.ErrMissingQueryKey
	}
	if len(embedding) == 0 {
		return domain.ErrEmptyQueryEmbedding
	}

	expiresAt := s.now().Add(s.ttl)
	if err := s.repo.Put(ctx, agentID, queryKey, embedding, expiresAt); err != nil {
		return classifyStoreError("embedding cache write failed", err)
	}
	return nil
}

// ResponseCacheService memoizes generated answers per agent.
type ResponseCacheService struct {
	repo ResponseCacheRepositoryInterface
	ttl  time.Duration
	now  func() time.Time
}

func NewResponseCacheService(repo ResponseCacheRepositoryInterface, ttl time.Duration) *ResponseCacheService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCacheService{repo: repo, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the cached response, or (nil, nil) on miss.
func (s *ResponseCacheService) Get(ctx context.Context, agentID, fingerprint string) (*domain.ResponseCacheEntry, error) {
	if agentID == "" {
		return nil, domain.ErrMissingAgentID
	}
	if fingerprint == "" {
		return nil, domain.ErrMissingFingerprint
	}

	entry, err := s.repo.Get(ctx, agentID, fingerprint)
	if err != nil {
		return nil, classifyStoreError("response cache read failed", err)
	}
	return entry, nil
}

// Put stores the response with a fresh absolute TTL.
func (s *ResponseCacheService) Put(ctx context.Context, agentID, fingerprint, response string) error {
	if agentID == "" {
		return domain.ErrMissingAgentID
	}
	if fingerprint == "" {
		return domain.ErrMissingFingerprint
	}

	expiresAt := s.now().Add(s.ttl)
	if err := s.repo.Put(ctx, agentID, fingerprint, response, expiresAt); err != nil {
		return classifyStoreError("response cache write failed", err)
	}
	return nil
}

// NormalizeQueryKey derives the embedding-cache key from raw query text:
// whitespace is collapsed, case folded, and the result hashed so semantically
// identical queries share a key regardless of formatting.
func NormalizeQueryKey(queryText string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(queryText), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Fingerprint derives a deterministic response-cache key from the query text
// plus any context parts that affect the answer (tier, conversation state).
func Fingerprint(queryText string, contextParts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.Join(strings.Fields(queryText), " "))))
	for _, part := range contextParts {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
