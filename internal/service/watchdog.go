package service

import (
	"context"
	"log"
	"time"

	"github.com/parkwebdev/recall/internal/domain"
)

// DefaultStuckTimeout is how long a source may sit in processing before the
// watchdog fails it.
const DefaultStuckTimeout = 2 * time.Hour

// WatchdogSourceRepository is the lifecycle surface the watchdog needs.
type WatchdogSourceRepository interface {
	FailStuck(ctx context.Context, cutoff time.Time, message string) (int64, error)
}

// WatchdogService detects sources stuck in processing and forces them to a
// terminal error state. The guarded update in the repository makes the sweep
// race-safe against late-arriving ingestion results: whichever transition
// lands first is final, and re-running on terminal rows is a no-op.
type WatchdogService struct {
	sources WatchdogSourceRepository
	timeout time.Duration
	now     func() time.Time
}

func NewWatchdogService(sources WatchdogSourceRepository, timeout time.Duration) *WatchdogService {
	if timeout <= 0 {
		timeout = DefaultStuckTimeout
	}
	return &WatchdogService{
		sources: sources,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FailStuckSources marks every source stuck in processing for longer than
// the configured timeout as errored, with the standard diagnostic message.
// Best-effort: an error here is reported but never fatal to the rest of the
// system.
func (s *WatchdogService) FailStuckSources(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.timeout)

	failed, err := s.sources.FailStuck(ctx, cutoff, domain.StuckProcessingMessage)
	if err != nil {
		return 0, classifyStoreError("watchdog sweep failed", err)
	}
	if failed > 0 {
		log.Printf("watchdog: failed %d sources stuck in processing for over %v", failed, s.timeout)
	}
	return failed, nil
}
