package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingCacheRepository memoizes query embeddings per agent.
type EmbeddingCacheRepository struct {
	db dbtx
}

func NewEmbeddingCacheRepository(pool *pgxpool.Pool) *EmbeddingCacheRepository {
	return &EmbeddingCacheRepository{db: pool}
}

// Get returns the cached embedding for (agentID, queryKey), touching
// last_used_at as a side effect. expires_at is never altered by reads; an
// expired row is a miss even before the janitor removes it. A miss returns
// (nil, nil).
func (r *EmbeddingCacheRepository) Get(ctx context.Context, agentID, queryKey string) (*domain.EmbeddingCacheEntry, error) {
	var entry domain.EmbeddingCacheEntry
	var embedding pgvector.Vector
	err := r.db.QueryRow(ctx,
		`UPDATE embedding_cache SET last_used_at = $1
		 WHERE agent_id = $2 AND query_key = $3 AND expires_at > $1
		 RETURNING agent_id, query_key, embedding, last_used_at, expires_at`,
		time.Now().UTC(), agentID, queryKey,
	).Scan(&entry.AgentID, &entry.QueryKey, &embedding, &entry.LastUsedAt, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	entry.Embedding = embedding.Slice()
	return &entry, nil
}

// Put upserts the embedding for (agentID, queryKey) with a fresh absolute
// expiry. The single INSERT ... ON CONFLICT statement keeps concurrent puts
// for the same key from ever creating duplicate rows.
func (r *EmbeddingCacheRepository) Put(ctx context.Context, agentID, queryKey string, embedding []float32, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO embedding_cache (agent_id, query_key, embedding, last_used_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (agent_id, query_key)
		 DO UPDATE SET embedding = EXCLUDED.embedding,
		               last_used_at = EXCLUDED.last_used_at,
		               expires_at = EXCLUDED.expires_at`,
		agentID, queryKey, pgvector.NewVector(embedding), time.Now().UTC(), expiresAt,
	)
	return err
}

// DeleteExpired removes every entry whose expiry precedes now and reports how
// many rows were evicted.
func (r *EmbeddingCacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM embedding_cache WHERE expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
