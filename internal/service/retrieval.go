package service

import (
	"context"
	"log"

	"github.com/parkwebdev/recall/internal/domain"
	"github.com/parkwebdev/recall/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// TierSearcher is the per-tier search surface the retrieval pipeline
// composes over.
type TierSearcher interface {
	SearchChunks(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
	SearchSources(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
	SearchHelpArticles(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
}

// RetrievalInput is one natural-language query against an agent's knowledge.
type RetrievalInput struct {
	AgentID string
	Query   string
}

// RetrievalOutput is the assembled context for the generation step. When the
// response cache already holds an answer for the query fingerprint, Response
// carries it and no search runs. Otherwise Results holds the ranked context
// and Fingerprint the key the generated answer should be written back under.
type RetrievalOutput struct {
	Results     []*domain.SearchResult
	Tier        domain.Tier
	Fingerprint string
	Response    string
	CacheHit    bool
}

// RetrievalService composes the full pipeline: response cache, embedding
// cache, embedding provider, then the tier cascade. Chunks go first (finest
// granularity), whole sources on an empty result, help articles last. The
// help tier uses its own embedding provider since its vector space differs
// from the source/chunk space.
type RetrievalService struct {
	search         TierSearcher
	embeddingCache *EmbeddingCacheService
	responseCache  *ResponseCacheService
	embedder       EmbeddingClient
	helpEmbedder   EmbeddingClient
}

func NewRetrievalService(
	search TierSearcher,
	embeddingCache *EmbeddingCacheService,
	responseCache *ResponseCacheService,
	embedder EmbeddingClient,
	helpEmbedder EmbeddingClient,
) *RetrievalService {
	return &RetrievalService{
		search:         search,
		embeddingCache: embeddingCache,
		responseCache:  responseCache,
		embedder:       embedder,
		helpEmbedder:   helpEmbedder,
	}
}

// Retrieve runs the retrieval pipeline for one query.
func (s *RetrievalService) Retrieve(ctx context.Context, input RetrievalInput) (*RetrievalOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		AgentID:   input.AgentID,
		Operation: "retrieve",
	})
	defer span.End()

	if input.AgentID == "" {
		return nil, domain.ErrMissingAgentID
	}
	if input.Query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}

	fingerprint := Fingerprint(input.Query)

	cached, err := s.responseCache.Get(ctx, input.AgentID, fingerprint)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return &RetrievalOutput{
			Fingerprint: fingerprint,
			Response:    cached.Response,
			CacheHit:    true,
		}, nil
	}

	embedding, err := s.queryEmbedding(ctx, input.AgentID, input.Query)
	if err != nil {
		return nil, err
	}

	results, err := s.search.SearchChunks(ctx, domain.SearchParams{
		AgentID:        input.AgentID,
		QueryEmbedding: embedding,
		Threshold:      domain.DefaultChunkThreshold,
		Limit:          domain.DefaultChunkLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return &RetrievalOutput{Results: results, Tier: domain.TierChunk, Fingerprint: fingerprint}, nil
	}

	results, err = s.search.SearchSources(ctx, domain.SearchParams{
		AgentID:        input.AgentID,
		QueryEmbedding: embedding,
		Threshold:      domain.DefaultSourceThreshold,
		Limit:          domain.DefaultSourceLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return &RetrievalOutput{Results: results, Tier: domain.TierSource, Fingerprint: fingerprint}, nil
	}

	if s.helpEmbedder != nil {
		helpEmbedding, err := s.helpEmbedder.GenerateEmbedding(ctx, input.Query)
		if err != nil {
			return nil, classifyStoreError("help article embedding failed", err)
		}
		results, err = s.search.SearchHelpArticles(ctx, domain.SearchParams{
			AgentID:        input.AgentID,
			QueryEmbedding: helpEmbedding,
			Threshold:      domain.DefaultHelpArticleThreshold,
			Limit:          domain.DefaultHelpArticleLimit,
		})
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			return &RetrievalOutput{Results: results, Tier: domain.TierHelpArticle, Fingerprint: fingerprint}, nil
		}
	}

	return &RetrievalOutput{Results: []*domain.SearchResult{}, Fingerprint: fingerprint}, nil
}

// queryEmbedding resolves the source/chunk-tier embedding for the query,
// preferring the cache and falling back to the provider on a miss. The cache
// write after a provider call is best-effort: a failed write must not fail
// the retrieval.
func (s *RetrievalService) queryEmbedding(ctx context.Context, agentID, query string) ([]float32, error) {
	queryKey := NormalizeQueryKey(query)

	entry, err := s.embeddingCache.Get(ctx, agentID, queryKey)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return entry.Embedding, nil
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, classifyStoreError("query embedding failed", err)
	}

	if err := s.embeddingCache.Put(ctx, agentID, queryKey, embedding); err != nil {
		log.Printf("retrieval: embedding cache write failed: %v", err)
	}

	return embedding, nil
}
