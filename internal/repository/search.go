package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// DefaultProbes is the IVFFlat probe count used when none is configured.
// Probing too few lists silently drops true nearest neighbors, so the value
// stays an explicit tunable rather than a hidden constant.
const DefaultProbes = 10

// SearchRepository executes approximate nearest-neighbor queries per tier.
// Every query runs inside a short transaction so the probe count can be
// applied with SET LOCAL and scoped to that query alone.
type SearchRepository struct {
	pool   *pgxpool.Pool
	probes int
}

func NewSearchRepository(pool *pgxpool.Pool, probes int) *SearchRepository {
	if probes <= 0 {
		probes = DefaultProbes
	}
	return &SearchRepository{pool: pool, probes: probes}
}

// SearchChunks ranks ready chunks for an agent by cosine similarity to the
// query embedding. The parent source join both enriches results and excludes
// chunks whose source has been de-published: a chunk row with an embedding is
// still invisible while its parent is not ready.
func (r *SearchRepository) SearchChunks(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	const query = `
		SELECT c.id, c.source_id, c.chunk_index, c.content, s.origin, s.type,
		       1 - (c.embedding <=> $1) AS similarity
		FROM source_chunks c
		JOIN sources s ON s.id = c.source_id
		WHERE c.agent_id = $2
		  AND c.embedding IS NOT NULL
		  AND s.status = $3
		  AND 1 - (c.embedding <=> $1) > $4
		ORDER BY c.embedding <=> $1 ASC, c.id ASC
		LIMIT $5`

	return r.searchTx(ctx, func(tx pgx.Tx) (pgx.Rows, error) {
		return tx.Query(ctx, query,
			pgvector.NewVector(p.QueryEmbedding), p.AgentID, domain.SourceStatusReady, p.Threshold, p.Limit)
	}, scanChunkResults)
}

// SearchSources ranks ready whole-document sources for an agent.
func (r *SearchRepository) SearchSources(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	const query = `
		SELECT id, origin, type, content,
		       1 - (embedding <=> $1) AS similarity
		FROM sources
		WHERE agent_id = $2
		  AND status = $3
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $4
		ORDER BY embedding <=> $1 ASC, id ASC
		LIMIT $5`

	return r.searchTx(ctx, func(tx pgx.Tx) (pgx.Rows, error) {
		return tx.Query(ctx, query,
			pgvector.NewVector(p.QueryEmbedding), p.AgentID, domain.SourceStatusReady, p.Threshold, p.Limit)
	}, scanSourceResults)
}

// SearchHelpArticles ranks an agent's help-center articles. Articles have no
// lifecycle status; a non-null embedding is the readiness signal.
func (r *SearchRepository) SearchHelpArticles(ctx context.Context, p domain.SearchParams) ([]*domain.SearchResult, error) {
	const query = `
		SELECT id, category_id, title, content,
		       1 - (embedding <=> $1) AS similarity
		FROM help_articles
		WHERE agent_id = $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY embedding <=> $1 ASC, id ASC
		LIMIT $4`

	return r.searchTx(ctx, func(tx pgx.Tx) (pgx.Rows, error) {
		return tx.Query(ctx, query,
			pgvector.NewVector(p.QueryEmbedding), p.AgentID, p.Threshold, p.Limit)
	}, scanHelpArticleResults)
}

func (r *SearchRepository) searchTx(
	ctx context.Context,
	run func(tx pgx.Tx) (pgx.Rows, error),
	scan func(rows pgx.Rows) ([]*domain.SearchResult, error),
) ([]*domain.SearchResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// SET LOCAL does not take bind parameters; probes is validated at
	// construction and formatted as a bare integer.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL ivfflat.probes = %d", r.probes)); err != nil {
		return nil, err
	}

	rows, err := run(tx)
	if err != nil {
		return nil, err
	}
	results, err := scan(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func scanChunkResults(rows pgx.Rows) ([]*domain.SearchResult, error) {
	defer rows.Close()

	results := make([]*domain.SearchResult, 0)
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(&res.ID, &res.SourceID, &res.ChunkIndex, &res.Content, &res.SourceName, &res.SourceType, &res.Similarity); err != nil {
			return nil, err
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

func scanSourceResults(rows pgx.Rows) ([]*domain.SearchResult, error) {
	defer rows.Close()

	results := make([]*domain.SearchResult, 0)
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(&res.ID, &res.SourceName, &res.SourceType, &res.Content, &res.Similarity); err != nil {
			return nil, err
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

func scanHelpArticleResults(rows pgx.Rows) ([]*domain.SearchResult, error) {
	defer rows.Close()

	results := make([]*domain.SearchResult, 0)
	for rows.Next() {
		var res domain.SearchResult
		var categoryID *string
		if err := rows.Scan(&res.ID, &categoryID, &res.Title, &res.Content, &res.Similarity); err != nil {
			return nil, err
		}
		if categoryID != nil {
			res.CategoryID = *categoryID
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}
