package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/parkwebdev/recall/internal/api"
	"github.com/parkwebdev/recall/internal/domain"
)

type EmbeddingCacheService interface {
	Get(ctx context.Context, agentID, queryKey string) (*domain.EmbeddingCacheEntry, error)
	Put(ctx context.Context, agentID, queryKey string, embedding []float32) error
}

type ResponseCacheService interface {
	Get(ctx context.Context, agentID, fingerprint string) (*domain.ResponseCacheEntry, error)
	Put(ctx context.Context, agentID, fingerprint, response string) error
}

// CacheHandler exposes both tenant-scoped caches. Lookups run as POSTs since
// cache keys are request-body material, and a miss is a normal 200 with
// found=false rather than an error.
type CacheHandler struct {
	embeddings EmbeddingCacheService
	responses  ResponseCacheService
}

func NewCacheHandler(embeddings EmbeddingCacheService, responses ResponseCacheService) *CacheHandler {
	return &CacheHandler{embeddings: embeddings, responses: responses}
}

type EmbeddingLookupRequest struct {
	AgentID  string `json:"agent_id"`
	QueryKey string `json:"query_key"`
}

type EmbeddingLookupResponse struct {
	Found      bool      `json:"found"`
	Embedding  []float32 `json:"embedding,omitempty"`
	LastUsedAt string    `json:"last_used_at,omitempty"`
	ExpiresAt  string    `json:"expires_at,omitempty"`
}

type EmbeddingPutRequest struct {
	AgentID   string    `json:"agent_id"`
	QueryKey  string    `json:"query_key"`
	Embedding []float32 `json:"embedding"`
}

type ResponseLookupRequest struct {
	AgentID     string `json:"agent_id"`
	Fingerprint string `json:"fingerprint"`
}

type ResponseLookupResponse struct {
	Found     bool   `json:"found"`
	Response  string `json:"response,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

type ResponsePutRequest struct {
	AgentID     string `json:"agent_id"`
	Fingerprint string `json:"fingerprint"`
	Response    string `json:"response"`
}

// EmbeddingLookup handles POST /cache/embeddings/lookup
func (h *CacheHandler) EmbeddingLookup(w http.ResponseWriter, r *http.Request) {
	var req EmbeddingLookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !authorizeAgent(w, r, req.AgentID) {
		return
	}

	entry, err := h.embeddings.Get(r.Context(), req.AgentID, req.QueryKey)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if entry == nil {
		api.Success(w, http.StatusOK, EmbeddingLookupResponse{Found: false})
		return
	}

	api.Success(w, http.StatusOK, EmbeddingLookupResponse{
		Found:      true,
		Embedding:  entry.Embedding,
		LastUsedAt: entry.LastUsedAt.Format(time.RFC3339),
		ExpiresAt:  entry.ExpiresAt.Format(time.RFC3339),
	})
}

// EmbeddingPut handles PUT /cache/embeddings
func (h *CacheHandler) EmbeddingPut(w http.ResponseWriter, r *http.Request) {
	var req EmbeddingPutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !authorizeAgent(w, r, req.AgentID) {
		return
	}

	if err := h.embeddings.Put(r.Context(), req.AgentID, req.QueryKey, req.Embedding); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, map[string]string{"status": "stored"})
}

// ResponseLookup handles POST /cache/responses/lookup
func (h *CacheHandler) ResponseLookup(w http.ResponseWriter, r *http.Request) {
	var req ResponseLookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !authorizeAgent(w, r, req.AgentID) {
		return
	}

	entry, err := h.responses.Get(r.Context(), req.AgentID, req.Fingerprint)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if entry == nil {
		api.Success(w, http.StatusOK, ResponseLookupResponse{Found: false})
		return
	}

	api.Success(w, http.StatusOK, ResponseLookupResponse{
		Found:     true,
		Response:  entry.Response,
		ExpiresAt: entry.ExpiresAt.Format(time.RFC3339),
	})
}

// ResponsePut handles PUT /cache/responses
func (h *CacheHandler) ResponsePut(w http.ResponseWriter, r *http.Request) {
	var req ResponsePutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !authorizeAgent(w, r, req.AgentID) {
		return
	}

	if err := h.responses.Put(r.Context(), req.AgentID, req.Fingerprint, req.Response); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, map[string]string{"status": "stored"})
}
