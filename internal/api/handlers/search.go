package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/parkwebdev/recall/internal/api"
	"github.com/parkwebdev/recall/internal/api/middleware"
	"github.com/parkwebdev/recall/internal/domain"
)

type SearchService interface {
	SearchChunks(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
	SearchSources(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
	SearchHelpArticles(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// SearchRequest carries an explicit agent scope plus the tier query inputs.
// Threshold and limit are pointers so an omitted field takes the tier
// default while an explicit zero is passed through untouched.
type SearchRequest struct {
	AgentID   string    `json:"agent_id"`
	Embedding []float32 `json:"embedding"`
	Threshold *float64  `json:"threshold"`
	Limit     *int      `json:"limit"`
}

type SearchResultResponse struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`

	SourceID   string `json:"source_id,omitempty"`
	ChunkIndex *int   `json:"chunk_index,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	SourceType string `json:"source_type,omitempty"`

	Title      string `json:"title,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

func searchResultsToResponse(tier domain.Tier, results []*domain.SearchResult) []*SearchResultResponse {
	out := make([]*SearchResultResponse, 0, len(results))
	for _, r := range results {
		item := &SearchResultResponse{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
			SourceID:   r.SourceID,
			SourceName: r.SourceName,
			SourceType: string(r.SourceType),
			Title:      r.Title,
			CategoryID: r.CategoryID,
		}
		if tier == domain.TierChunk {
			idx := r.ChunkIndex
			item.ChunkIndex = &idx
		}
		out = append(out, item)
	}
	return out
}

// Chunks handles POST /search/chunks
func (h *SearchHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, domain.TierChunk, domain.DefaultChunkThreshold, domain.DefaultChunkLimit, h.svc.SearchChunks)
}

// Sources handles POST /search/sources
func (h *SearchHandler) Sources(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, domain.TierSource, domain.DefaultSourceThreshold, domain.DefaultSourceLimit, h.svc.SearchSources)
}

// HelpArticles handles POST /search/help-articles
func (h *SearchHandler) HelpArticles(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, domain.TierHelpArticle, domain.DefaultHelpArticleThreshold, domain.DefaultHelpArticleLimit, h.svc.SearchHelpArticles)
}

func (h *SearchHandler) search(
	w http.ResponseWriter,
	r *http.Request,
	tier domain.Tier,
	defaultThreshold float64,
	defaultLimit int,
	run func(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error),
) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !authorizeAgent(w, r, req.AgentID) {
		return
	}

	params := domain.SearchParams{
		AgentID:        req.AgentID,
		QueryEmbedding: req.Embedding,
		Threshold:      defaultThreshold,
		Limit:          defaultLimit,
	}
	if req.Threshold != nil {
		params.Threshold = *req.Threshold
	}
	if req.Limit != nil {
		params.Limit = *req.Limit
	}

	results, err := run(r.Context(), params)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, searchResultsToResponse(tier, results))
}

// authorizeAgent evaluates the agent-access predicate for the authenticated
// key. Every search and cache operation requires it; nothing here relies on
// ambient tenant context.
func authorizeAgent(w http.ResponseWriter, r *http.Request, agentID string) bool {
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agent_id is required")
		return false
	}

	key := middleware.GetAPIKey(r.Context())
	if key == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return false
	}

	if !key.AllowsAgent(agentID) {
		api.Error(w, http.StatusForbidden, "api key not authorized for agent")
		return false
	}

	return true
}
