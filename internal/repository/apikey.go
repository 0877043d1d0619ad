package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parkwebdev/recall/internal/domain"
)

type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, agent_id, created_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Name, key.KeyHash, nullableString(key.AgentID), key.CreatedAt, key.RevokedAt,
	)
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	return r.getBy(ctx, `SELECT id, name, key_hash, agent_id, created_at, revoked_at FROM api_keys WHERE id = $1`, id)
}

func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	return r.getBy(ctx, `SELECT id, name, key_hash, agent_id, created_at, revoked_at FROM api_keys WHERE key_hash = $1`, hash)
}

func (r *APIKeyRepository) getBy(ctx context.Context, query, arg string) (*domain.APIKey, error) {
	var key domain.APIKey
	var agentID *string
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&key.ID, &key.Name, &key.KeyHash, &agentID, &key.CreatedAt, &key.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, err
	}
	if agentID != nil {
		key.AgentID = *agentID
	}
	return &key, nil
}

func (r *APIKeyRepository) List(ctx context.Context) ([]*domain.APIKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, key_hash, agent_id, created_at, revoked_at
		 FROM api_keys ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		var agentID *string
		if err := rows.Scan(&key.ID, &key.Name, &key.KeyHash, &agentID, &key.CreatedAt, &key.RevokedAt); err != nil {
			return nil, err
		}
		if agentID != nil {
			key.AgentID = *agentID
		}
		keys = append(keys, &key)
	}
	return keys, rows.Err()
}

func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	now := time.Now().UTC()
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		now, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM api_keys WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}
