package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parkwebdev/recall/internal/api/middleware"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/stretchr/testify/require"
)

// newRequest builds a JSON request carrying an authenticated key in the
// context, the way the auth middleware would after token validation. A nil
// key simulates a request that bypassed the middleware entirely.
func newRequest(t *testing.T, method, target string, body any, key *domain.APIKey) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if key != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.APIKeyContextKey, key))
	}
	return req
}

func unscopedKey() *domain.APIKey {
	return &domain.APIKey{ID: "key-1", Name: "test"}
}

func scopedKey(agentID string) *domain.APIKey {
	return &domain.APIKey{ID: "key-1", Name: "test", AgentID: agentID}
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Data
}
