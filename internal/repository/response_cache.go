package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parkwebdev/recall/internal/domain"
)

// ResponseCacheRepository memoizes generated answers per agent.
type ResponseCacheRepository struct {
	db dbtx
}

func NewResponseCacheRepository(pool *pgxpool.Pool) *ResponseCacheRepository {
	return &ResponseCacheRepository{db: pool}
}

// Get returns the cached response for (agentID, fingerprint). An expired row
// is a miss. A miss returns (nil, nil).
func (r *ResponseCacheRepository) Get(ctx context.Context, agentID, fingerprint string) (*domain.ResponseCacheEntry, error) {
	var entry domain.ResponseCacheEntry
	err := r.db.QueryRow(ctx,
		`SELECT agent_id, fingerprint, response, created_at, expires_at
		 FROM response_cache
		 WHERE agent_id = $1 AND fingerprint = $2 AND expires_at > $3`,
		agentID, fingerprint, time.Now().UTC(),
	).Scan(&entry.AgentID, &entry.Fingerprint, &entry.Response, &entry.CreatedAt, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Put upserts the response for (agentID, fingerprint) with a fresh absolute
// expiry, atomically.
func (r *ResponseCacheRepository) Put(ctx context.Context, agentID, fingerprint, response string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO response_cache (agent_id, fingerprint, response, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (agent_id, fingerprint)
		 DO UPDATE SET response = EXCLUDED.response,
		               created_at = EXCLUDED.created_at,
		               expires_at = EXCLUDED.expires_at`,
		agentID, fingerprint, response, time.Now().UTC(), expiresAt,
	)
	return err
}

// DeleteExpired removes every entry whose expiry precedes now.
func (r *ResponseCacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM response_cache WHERE expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
