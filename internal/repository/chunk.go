package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence of chunked source embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a source and inserts new ones.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM source_chunks WHERE source_id = $1`, sourceID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		metadata := c.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO source_chunks
				(id, source_id, agent_id, chunk_index, content, embedding, token_count, metadata, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID,
			c.SourceID,
			c.AgentID,
			c.ChunkIndex,
			c.Content,
			nullableVector(c.Embedding),
			c.TokenCount,
			metadata,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// ListBySource returns a source's chunks in deterministic chunk_index order.
func (r *ChunkRepository) ListBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, source_id, agent_id, chunk_index, content, embedding, token_count, metadata, created_at
		 FROM source_chunks WHERE source_id = $1 ORDER BY chunk_index ASC`,
		sourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embedding *pgvector.Vector
		if err := rows.Scan(&c.ID, &c.SourceID, &c.AgentID, &c.ChunkIndex, &c.Content, &embedding, &c.TokenCount, &c.Metadata, &c.CreatedAt); err != nil {
			return nil, err
		}
		if embedding != nil {
			c.Embedding = embedding.Slice()
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// CountByAgent returns the number of chunks owned by an agent across all
// sources.
func (r *ChunkRepository) CountByAgent(ctx context.Context, agentID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM source_chunks WHERE agent_id = $1`,
		agentID,
	).Scan(&count)
	return count, err
}
