package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parkwebdev/recall/internal/api"
	"github.com/parkwebdev/recall/internal/api/handlers"
	"github.com/parkwebdev/recall/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator      middleware.AuthValidator
	SearchHandler      *handlers.SearchHandler
	RetrieveHandler    *handlers.RetrieveHandler
	CacheHandler       *handlers.CacheHandler
	MaintenanceHandler *handlers.MaintenanceHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/search", func(r chi.Router) {
			r.Post("/chunks", cfg.SearchHandler.Chunks)
			r.Post("/sources", cfg.SearchHandler.Sources)
			r.Post("/help-articles", cfg.SearchHandler.HelpArticles)
		})

		r.Post("/retrieve", cfg.RetrieveHandler.Retrieve)

		r.Route("/cache", func(r chi.Router) {
			r.Post("/embeddings/lookup", cfg.CacheHandler.EmbeddingLookup)
			r.Put("/embeddings", cfg.CacheHandler.EmbeddingPut)
			r.Post("/responses/lookup", cfg.CacheHandler.ResponseLookup)
			r.Put("/responses", cfg.CacheHandler.ResponsePut)
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/cache-cleanup", cfg.MaintenanceHandler.CacheCleanup)
			r.Post("/fail-stuck", cfg.MaintenanceHandler.FailStuck)
		})
	})

	return r
}
