package service

import (
	"context"

	"github.com/parkwebdev/recall/internal/domain"
	"github.com/parkwebdev/recall/internal/telemetry"
)

// SearchRepositoryInterface defines the per-tier ANN query surface.
type SearchRepositoryInterface interface {
	SearchChunks(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
	SearchSources(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
	SearchHelpArticles(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
}

// TierDimensions holds the stored embedding dimensionality per tier. Sources
// and chunks share one embedding provider; help articles use another, so the
// two vector spaces are never comparable and a query vector is only valid
// for the tier it was produced for.
type TierDimensions struct {
	Source      int
	HelpArticle int
}

// DefaultTierDimensions matches the providers the ingestion pipeline uses.
func DefaultTierDimensions() TierDimensions {
	return TierDimensions{Source: 1536, HelpArticle: 768}
}

// SearchService validates caller inputs and executes tier searches.
type SearchService struct {
	repo SearchRepositoryInterface
	dims TierDimensions
}

func NewSearchService(repo SearchRepositoryInterface, dims TierDimensions) *SearchService {
	if dims.Source <= 0 || dims.HelpArticle <= 0 {
		dims = DefaultTierDimensions()
	}
	return &SearchService{repo: repo, dims: dims}
}

// SearchChunks searches the chunk tier for an agent.
func (s *SearchService) SearchChunks(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	return s.search(ctx, domain.TierChunk, p, s.repo.SearchChunks)
}

// SearchSources searches the whole-document source tier for an agent.
func (s *SearchService) SearchSources(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	return s.search(ctx, domain.TierSource, p, s.repo.SearchSources)
}

// SearchHelpArticles searches the help-center article tier for an agent.
func (s *SearchService) SearchHelpArticles(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	return s.search(ctx, domain.TierHelpArticle, p, s.repo.SearchHelpArticles)
}

func (s *SearchService) search(
	ctx context.Context,
	tier domain.Tier,
	p domain.SearchParams,
	run func(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error),
) ([]*domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		AgentID:   p.AgentID,
		Tier:      string(tier),
		Operation: "search",
	})
	defer span.End()

	if err := domain.ValidateSearchParams(p); err != nil {
		return nil, err
	}

	var want int
	switch tier {
	case domain.TierChunk, domain.TierSource:
		want = s.dims.Source
	case domain.TierHelpArticle:
		want = s.dims.HelpArticle
	default:
		return nil, domain.ErrInvalidTier
	}
	if len(p.QueryEmbedding) != want {
		return nil, domain.NewDimensionMismatchError(tier, want, len(p.QueryEmbedding))
	}

	// A limit of zero is a legal request for nothing.
	if p.Limit == 0 {
		return []*domain.SearchResult{}, nil
	}

	results, err := run(ctx, p)
	if err != nil {
		return nil, classifyStoreError("similarity search failed", err)
	}
	return results, nil
}
