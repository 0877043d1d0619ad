package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/parkwebdev/recall/internal/api"
	"github.com/parkwebdev/recall/internal/service"
)

type RetrievalService interface {
	Retrieve(ctx context.Context, input service.RetrievalInput) (*service.RetrievalOutput, error)
}

type RetrieveHandler struct {
	svc RetrievalService
}

func NewRetrieveHandler(svc RetrievalService) *RetrieveHandler {
	return &RetrieveHandler{svc: svc}
}

type RetrieveRequest struct {
	AgentID string `json:"agent_id"`
	Query   string `json:"query"`
}

type RetrieveResponse struct {
	Tier        string                  `json:"tier,omitempty"`
	Results     []*SearchResultResponse `json:"results"`
	Fingerprint string                  `json:"fingerprint"`
	Response    string                  `json:"response,omitempty"`
	CacheHit    bool                    `json:"cache_hit"`
}

// Retrieve handles POST /retrieve: the full pipeline from query text to
// ranked context, with both caches consulted along the way.
func (h *RetrieveHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !authorizeAgent(w, r, req.AgentID) {
		return
	}

	output, err := h.svc.Retrieve(r.Context(), service.RetrievalInput{
		AgentID: req.AgentID,
		Query:   req.Query,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RetrieveResponse{
		Tier:        string(output.Tier),
		Results:     searchResultsToResponse(output.Tier, output.Results),
		Fingerprint: output.Fingerprint,
		Response:    output.Response,
		CacheHit:    output.CacheHit,
	})
}
