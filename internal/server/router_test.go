package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parkwebdev/recall/internal/api/handlers"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/parkwebdev/recall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateAPIKey(ctx context.Context, token string) (*domain.APIKey, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) SearchChunks(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func (m *MockSearchService) SearchSources(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func (m *MockSearchService) SearchHelpArticles(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Retrieve(ctx context.Context, input service.RetrievalInput) (*service.RetrievalOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RetrievalOutput), args.Error(1)
}

type MockEmbeddingCacheService struct {
	mock.Mock
}

func (m *MockEmbeddingCacheService) Get(ctx context.Context, agentID, queryKey string) (*domain.EmbeddingCacheEntry, error) {
	args := m.Called(ctx, agentID, queryKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmbeddingCacheEntry), args.Error(1)
}

func (m *MockEmbeddingCacheService) Put(ctx context.Context, agentID, queryKey string, embedding []float32) error {
	args := m.Called(ctx, agentID, queryKey, embedding)
	return args.Error(0)
}

type MockResponseCacheService struct {
	mock.Mock
}

func (m *MockResponseCacheService) Get(ctx context.Context, agentID, fingerprint string) (*domain.ResponseCacheEntry, error) {
	args := m.Called(ctx, agentID, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResponseCacheEntry), args.Error(1)
}

func (m *MockResponseCacheService) Put(ctx context.Context, agentID, fingerprint, response string) error {
	args := m.Called(ctx, agentID, fingerprint, response)
	return args.Error(0)
}

type MockJanitor struct {
	mock.Mock
}

func (m *MockJanitor) CleanupExpiredCaches(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockWatchdog struct {
	mock.Mock
}

func (m *MockWatchdog) FailStuckSources(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func setupRouter() (http.Handler, *MockAuthValidator, *MockSearchService, *MockRetrievalService, *MockJanitor, *MockWatchdog) {
	authValidator := new(MockAuthValidator)
	searchSvc := new(MockSearchService)
	retrievalSvc := new(MockRetrievalService)
	embeddingCacheSvc := new(MockEmbeddingCacheService)
	responseCacheSvc := new(MockResponseCacheService)
	janitor := new(MockJanitor)
	watchdog := new(MockWatchdog)

	cfg := RouterConfig{
		AuthValidator:      authValidator,
		SearchHandler:      handlers.NewSearchHandler(searchSvc),
		RetrieveHandler:    handlers.NewRetrieveHandler(retrievalSvc),
		CacheHandler:       handlers.NewCacheHandler(embeddingCacheSvc, responseCacheSvc),
		MaintenanceHandler: handlers.NewMaintenanceHandler(janitor, watchdog),
	}

	router := NewRouter(cfg)
	return router, authValidator, searchSvc, retrievalSvc, janitor, watchdog
}

const testToken = "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func testAPIKey(agentID string) *domain.APIKey {
	return &domain.APIKey{
		ID:        "key-1",
		Name:      "test",
		KeyHash:   "hash",
		AgentID:   agentID,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, authValidator, _, _, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/search/chunks"},
		{http.MethodPost, "/search/sources"},
		{http.MethodPost, "/search/help-articles"},
		{http.MethodPost, "/retrieve"},
		{http.MethodPost, "/cache/embeddings/lookup"},
		{http.MethodPut, "/cache/embeddings"},
		{http.MethodPost, "/cache/responses/lookup"},
		{http.MethodPut, "/cache/responses"},
		{http.MethodPost, "/maintenance/cache-cleanup"},
		{http.MethodPost, "/maintenance/fail-stuck"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	authValidator.AssertExpectations(t)
}

func TestRouter_SearchChunks_WithValidAuth(t *testing.T) {
	router, authValidator, searchSvc, _, _, _ := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return(testAPIKey(""), nil)
	searchSvc.On("SearchChunks", mock.Anything, mock.Anything).Return([]*domain.SearchResult{
		{ID: "c-1", Content: "hello", Similarity: 0.91},
	}, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"agent_id":  "agent-1",
		"embedding": []float32{0.1, 0.2},
	})
	req := httptest.NewRequest(http.MethodPost, "/search/chunks", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	authValidator.AssertExpectations(t)
	searchSvc.AssertExpectations(t)
}

func TestRouter_Search_ForbiddenForOtherAgent(t *testing.T) {
	router, authValidator, _, _, _, _ := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return(testAPIKey("agent-1"), nil)

	body, _ := json.Marshal(map[string]interface{}{
		"agent_id":  "agent-2",
		"embedding": []float32{0.1, 0.2},
	})
	req := httptest.NewRequest(http.MethodPost, "/search/chunks", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_MaintenanceEndpoints(t *testing.T) {
	router, authValidator, _, _, janitor, watchdog := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return(testAPIKey(""), nil)
	janitor.On("CleanupExpiredCaches", mock.Anything).Return(nil)
	watchdog.On("FailStuckSources", mock.Anything).Return(int64(3), nil)

	req := httptest.NewRequest(http.MethodPost, "/maintenance/cache-cleanup", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/maintenance/fail-stuck", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["failed"])

	janitor.AssertExpectations(t)
	watchdog.AssertExpectations(t)
}

func TestRouter_Retrieve_CacheHit(t *testing.T) {
	router, authValidator, _, retrievalSvc, _, _ := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return(testAPIKey("agent-1"), nil)
	retrievalSvc.On("Retrieve", mock.Anything, service.RetrievalInput{AgentID: "agent-1", Query: "how do refunds work"}).
		Return(&service.RetrievalOutput{
			Fingerprint: "fp-1",
			Response:    "cached answer",
			CacheHit:    true,
		}, nil)

	body, _ := json.Marshal(map[string]string{
		"agent_id": "agent-1",
		"query":    "how do refunds work",
	})
	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["cache_hit"])
	assert.Equal(t, "cached answer", data["response"])

	retrievalSvc.AssertExpectations(t)
}
