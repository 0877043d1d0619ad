package jobs

import "context"

// CacheJanitor is the cache-eviction entry point the janitor task invokes.
type CacheJanitor interface {
	CleanupExpiredCaches(ctx context.Context) error
}

// SourceWatchdog is the stuck-record sweep the watchdog task invokes.
type SourceWatchdog interface {
	FailStuckSources(ctx context.Context) (int64, error)
}

// JanitorTask runs the cache janitor sweep. The sweep itself is idempotent,
// so an in-process schedule and an external scheduler hitting the
// maintenance endpoint can coexist.
type JanitorTask struct {
	janitor CacheJanitor
}

func NewJanitorTask(janitor CacheJanitor) *JanitorTask {
	return &JanitorTask{janitor: janitor}
}

func (t *JanitorTask) Name() string { return "janitor" }

func (t *JanitorTask) Run(ctx context.Context) error {
	return t.janitor.CleanupExpiredCaches(ctx)
}

// WatchdogTask runs the ingestion-lifecycle watchdog sweep.
type WatchdogTask struct {
	watchdog SourceWatchdog
}

func NewWatchdogTask(watchdog SourceWatchdog) *WatchdogTask {
	return &WatchdogTask{watchdog: watchdog}
}

func (t *WatchdogTask) Name() string { return "watchdog" }

func (t *WatchdogTask) Run(ctx context.Context) error {
	_, err := t.watchdog.FailStuckSources(ctx)
	return err
}
