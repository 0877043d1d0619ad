package handlers

import (
	"context"
	"net/http"

	"github.com/parkwebdev/recall/internal/api"
)

type CacheJanitor interface {
	CleanupExpiredCaches(ctx context.Context) error
}

type SourceWatchdog interface {
	FailStuckSources(ctx context.Context) (int64, error)
}

// MaintenanceHandler exposes the background sweeps as on-demand endpoints so
// operators can trigger them outside the worker schedule.
type MaintenanceHandler struct {
	janitor  CacheJanitor
	watchdog SourceWatchdog
}

func NewMaintenanceHandler(janitor CacheJanitor, watchdog SourceWatchdog) *MaintenanceHandler {
	return &MaintenanceHandler{janitor: janitor, watchdog: watchdog}
}

// CacheCleanup handles POST /maintenance/cache-cleanup
func (h *MaintenanceHandler) CacheCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.janitor.CleanupExpiredCaches(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FailStuck handles POST /maintenance/fail-stuck
func (h *MaintenanceHandler) FailStuck(w http.ResponseWriter, r *http.Request) {
	failed, err := h.watchdog.FailStuckSources(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]int64{"failed": failed})
}
