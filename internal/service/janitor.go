package service

import (
	"context"
	"errors"
	"log"
	"time"
)

// CacheCleaner is the eviction surface each cache repository exposes.
type CacheCleaner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// JanitorService evicts expired entries from both caches. The sweep is
// idempotent and safe to run concurrently with get/put traffic; it relies on
// the store's read consistency rather than explicit locking.
type JanitorService struct {
	embeddingCache CacheCleaner
	responseCache  CacheCleaner
	now            func() time.Time
}

func NewJanitorService(embeddingCache, responseCache CacheCleaner) *JanitorService {
	return &JanitorService{
		embeddingCache: embeddingCache,
		responseCache:  responseCache,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CleanupExpiredCaches deletes all expired rows from both caches. Each cache
// is cleaned independently: a failure evicting one never blocks the other.
func (s *JanitorService) CleanupExpiredCaches(ctx context.Context) error {
	now := s.now()

	var errs []error

	embeddingEvicted, err := s.embeddingCache.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, classifyStoreError("embedding cache cleanup failed", err))
	} else if embeddingEvicted > 0 {
		log.Printf("janitor: evicted %d expired embedding cache entries", embeddingEvicted)
	}

	responseEvicted, err := s.responseCache.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, classifyStoreError("response cache cleanup failed", err))
	} else if responseEvicted > 0 {
		log.Printf("janitor: evicted %d expired response cache entries", responseEvicted)
	}

	return errors.Join(errs...)
}
