//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parkwebdev/recall/internal/api/handlers"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/parkwebdev/recall/internal/repository"
	"github.com/parkwebdev/recall/internal/server"
	"github.com/parkwebdev/recall/internal/service"
	"github.com/parkwebdev/recall/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	AuthSvc      *service.AuthService
	AuthToken    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a container-backed
// database and an in-process server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser, authSvc := startServer(t, pool, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		AuthSvc:      authSvc,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	env.Bootstrap()
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap mints an unscoped API key for the test run.
func (e *E2ETestEnv) Bootstrap() {
	token, err := e.AuthSvc.CreateAPIKey(e.Ctx, "e2e-test-key", "")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	e.AuthToken = token
}

// SeedReadySource inserts a ready source with the given embedding and
// returns its ID.
func (e *E2ETestEnv) SeedReadySource(agentID string, embedding []float32) string {
	repo := repository.NewSourceRepository(e.Pool)
	src := domain.NewSource(uuid.NewString(), agentID, domain.SourceTypeText, "e2e", "seeded source content", time.Now().UTC())
	if err := repo.Create(e.Ctx, src); err != nil {
		e.T.Fatalf("failed to seed source: %v", err)
	}
	ok, err := repo.MarkReady(e.Ctx, src.ID, embedding)
	if err != nil || !ok {
		e.T.Fatalf("failed to mark source ready: ok=%v err=%v", ok, err)
	}
	return src.ID
}

// SeedChunks replaces the chunks of a source with the given embeddings.
func (e *E2ETestEnv) SeedChunks(sourceID, agentID string, embeddings [][]float32) {
	repo := repository.NewChunkRepository(e.Pool)
	chunks := make([]domain.Chunk, len(embeddings))
	for i, emb := range embeddings {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			SourceID:   sourceID,
			AgentID:    agentID,
			ChunkIndex: i,
			Content:    fmt.Sprintf("chunk %d", i),
			Embedding:  emb,
			TokenCount: 8,
		}
	}
	if err := repo.ReplaceChunks(e.Ctx, sourceID, chunks); err != nil {
		e.T.Fatalf("failed to seed chunks: %v", err)
	}
}

// SeedHelpArticle inserts a help article with the given embedding.
func (e *E2ETestEnv) SeedHelpArticle(agentID string, embedding []float32) string {
	repo := repository.NewHelpArticleRepository(e.Pool)
	article := &domain.HelpArticle{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Title:     "seeded article",
		Content:   "seeded article content",
		Embedding: embedding,
	}
	if err := repo.Upsert(e.Ctx, article); err != nil {
		e.T.Fatalf("failed to seed help article: %v", err)
	}
	return article.ID
}

// unitVec builds a dims-length unit vector pointing along axis idx.
func unitVec(dims, idx int) []float32 {
	v := make([]float32, dims)
	v[idx%dims] = 1
	return v
}

// blendVec builds a dims-length vector between axes a and b; weight 1 is all
// a, weight 0 is all b. Cosine similarity against unitVec(dims, a) rises
// with the weight.
func blendVec(dims, a, b int, weight float32) []float32 {
	v := make([]float32, dims)
	v[a%dims] = weight
	v[b%dims] = 1 - weight
	return v
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// stubEmbedder returns a fixed vector for every query so retrieval hits
// against seeded rows are deterministic.
type stubEmbedder struct {
	vector []float32
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return s.vector, nil
}

// startServer starts the HTTP server with real repositories and a stub
// embedding provider.
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func(), *service.AuthService) {
	searchRepo := repository.NewSearchRepository(pool, repository.DefaultProbes)
	sourceRepo := repository.NewSourceRepository(pool)
	embeddingCacheRepo := repository.NewEmbeddingCacheRepository(pool)
	responseCacheRepo := repository.NewResponseCacheRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(apiKeyRepo, uuidGen)
	searchSvc := service.NewSearchService(searchRepo, service.DefaultTierDimensions())
	embeddingCacheSvc := service.NewEmbeddingCacheService(embeddingCacheRepo, service.DefaultCacheTTL)
	responseCacheSvc := service.NewResponseCacheService(responseCacheRepo, service.DefaultCacheTTL)
	janitorSvc := service.NewJanitorService(embeddingCacheRepo, responseCacheRepo)
	watchdogSvc := service.NewWatchdogService(sourceRepo, service.DefaultStuckTimeout)

	embedder := &stubEmbedder{vector: unitVec(1536, 0)}
	helpEmbedder := &stubEmbedder{vector: unitVec(768, 0)}
	retrievalSvc := service.NewRetrievalService(searchSvc, embeddingCacheSvc, responseCacheSvc, embedder, helpEmbedder)

	cfg := server.RouterConfig{
		AuthValidator:      authSvc,
		SearchHandler:      handlers.NewSearchHandler(searchSvc),
		RetrieveHandler:    handlers.NewRetrieveHandler(retrievalSvc),
		CacheHandler:       handlers.NewCacheHandler(embeddingCacheSvc, responseCacheSvc),
		MaintenanceHandler: handlers.NewMaintenanceHandler(janitorSvc, watchdogSvc),
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, authSvc
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
