//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChunk(ctx context.Context, t *testing.T, repo *ChunkRepository, src *domain.Source, chunks []domain.Chunk) {
	t.Helper()
	require.NoError(t, repo.ReplaceChunks(ctx, src.ID, chunks))
}

func TestSearchRepository_SearchChunks_RankingAndThreshold(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	sourceRepo := NewSourceRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	search := NewSearchRepository(pool, DefaultProbes)

	agentID := uuid.NewString()
	src := seedReadySource(ctx, t, sourceRepo, agentID, unitVec(1536, 0))

	best := uuid.NewString()
	good := uuid.NewString()
	far := uuid.NewString()
	seedChunk(ctx, t, chunkRepo, src, []domain.Chunk{
		{ID: far, SourceID: src.ID, AgentID: agentID, ChunkIndex: 2, Content: "unrelated", Embedding: blendVec(1536, 0, 1, 0.10)},
		{ID: best, SourceID: src.ID, AgentID: agentID, ChunkIndex: 0, Content: "exact match", Embedding: blendVec(1536, 0, 1, 0.95)},
		{ID: good, SourceID: src.ID, AgentID: agentID, ChunkIndex: 1, Content: "close match", Embedding: blendVec(1536, 0, 1, 0.80)},
	})

	results, err := search.SearchChunks(ctx, domain.SearchParams{
		AgentID:        agentID,
		QueryEmbedding: unitVec(1536, 0),
		Threshold:      0.7,
		Limit:          10,
	})
	require.NoError(t, err)

	// The far chunk scores ~0.11 and falls below the threshold.
	require.Len(t, results, 2)
	assert.Equal(t, best, results[0].ID)
	assert.Equal(t, good, results[1].ID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
	assert.Greater(t, results[1].Similarity, 0.7)

	// Chunk results carry the parent source join fields.
	assert.Equal(t, src.ID, results[0].SourceID)
	assert.Equal(t, "faq.md", results[0].SourceName)
	assert.Equal(t, domain.SourceTypeDocument, results[0].SourceType)
	assert.Equal(t, 0, results[0].ChunkIndex)
}

func TestSearchRepository_SearchChunks_AgentScoping(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	sourceRepo := NewSourceRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	search := NewSearchRepository(pool, DefaultProbes)

	agentA := uuid.NewString()
	agentB := uuid.NewString()
	src := seedReadySource(ctx, t, sourceRepo, agentA, unitVec(1536, 0))
	seedChunk(ctx, t, chunkRepo, src, []domain.Chunk{
		{ID: uuid.NewString(), SourceID: src.ID, AgentID: agentA, ChunkIndex: 0, Content: "a", Embedding: unitVec(1536, 0)},
	})

	results, err := search.SearchChunks(ctx, domain.SearchParams{
		AgentID:        agentB,
		QueryEmbedding: unitVec(1536, 0),
		Threshold:      0.5,
		Limit:          10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRepository_SearchChunks_ParentReadinessFilter(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	sourceRepo := NewSourceRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	search := NewSearchRepository(pool, DefaultProbes)

	agentID := uuid.NewString()
	processing := seedSource(ctx, t, sourceRepo, agentID)
	seedChunk(ctx, t, chunkRepo, processing, []domain.Chunk{
		{ID: uuid.NewString(), SourceID: processing.ID, AgentID: agentID, ChunkIndex: 0, Content: "hidden", Embedding: unitVec(1536, 0)},
	})

	// An embedded chunk stays invisible while its parent is not ready.
	results, err := search.SearchChunks(ctx, domain.SearchParams{
		AgentID:        agentID,
		QueryEmbedding: unitVec(1536, 0),
		Threshold:      0.5,
		Limit:          10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)

	ok, err := sourceRepo.MarkReady(ctx, processing.ID, unitVec(1536, 0))
	require.NoError(t, err)
	require.True(t, ok)

	results, err = search.SearchChunks(ctx, domain.SearchParams{
		AgentID:        agentID,
		QueryEmbedding: unitVec(1536, 0),
		Threshold:      0.5,
		Limit:          10,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchRepository_SearchChunks_LimitBound(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	sourceRepo := NewSourceRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	search := NewSearchRepository(pool, DefaultProbes)

	agentID := uuid.NewString()
	src := seedReadySource(ctx, t, sourceRepo, agentID, unitVec(1536, 0))

	var chunks []domain.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, domain.Chunk{
			ID: uuid.NewString(), SourceID: src.ID, AgentID: agentID, ChunkIndex: i,
			Content: "part", Embedding: blendVec(1536, 0, 1, 0.95),
		})
	}
	seedChunk(ctx, t, chunkRepo, src, chunks)

	results, err := search.SearchChunks(ctx, domain.SearchParams{
		AgentID:        agentID,
		QueryEmbedding: unitVec(1536, 0),
		Threshold:      0.5,
		Limit:          3,
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Equal similarities break ties by ascending id for a stable page.
	for i := 1; i < len(results); i++ {
		assert.Less(t, results[i-1].ID, results[i].ID)
	}
}

func TestSearchRepository_SearchSources(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	sourceRepo := NewSourceRepository(pool)
	search := NewSearchRepository(pool, DefaultProbes)

	agentID := uuid.NewString()
	ready := seedReadySource(ctx, t, sourceRepo, agentID, blendVec(1536, 0, 1, 0.9))
	seedSource(ctx, t, sourceRepo, agentID) // processing, no embedding

	results, err := search.SearchSources(ctx, domain.SearchParams{
		AgentID:        agentID,
		QueryEmbedding: unitVec(1536, 0),
		Threshold:      0.6,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ready.ID, results[0].ID)
	assert.Equal(t, "faq.md", results[0].SourceName)
	assert.Greater(t, results[0].Similarity, 0.6)
}

func TestSearchRepository_SearchHelpArticles(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	articleRepo := NewHelpArticleRepository(pool)
	search := NewSearchRepository(pool, DefaultProbes)

	agentID := uuid.NewString()
	categoryID := uuid.NewString()
	embedded := &domain.HelpArticle{
		ID: uuid.NewString(), AgentID: agentID, CategoryID: categoryID,
		Title: "Billing FAQ", Content: "how billing works", Embedding: blendVec(768, 0, 1, 0.9),
	}
	require.NoError(t, articleRepo.Upsert(ctx, embedded))

	// Articles without embeddings are invisible to search.
	require.NoError(t, articleRepo.Upsert(ctx, &domain.HelpArticle{
		ID: uuid.NewString(), AgentID: agentID, Title: "Draft",
	}))

	results, err := search.SearchHelpArticles(ctx, domain.SearchParams{
		AgentID:        agentID,
		QueryEmbedding: unitVec(768, 0),
		Threshold:      0.6,
		Limit:          5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, embedded.ID, results[0].ID)
	assert.Equal(t, "Billing FAQ", results[0].Title)
	assert.Equal(t, categoryID, results[0].CategoryID)
}

func TestSearchRepository_ThresholdIsStrict(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	sourceRepo := NewSourceRepository(pool)
	search := NewSearchRepository(pool, DefaultProbes)

	agentID := uuid.NewString()
	seedReadySource(ctx, t, sourceRepo, agentID, unitVec(1536, 1))

	// An orthogonal vector scores exactly 0; a threshold of 0 still
	// excludes it because the floor is strict.
	results, err := search.SearchSources(ctx, domain.SearchParams{
		AgentID:        agentID,
		QueryEmbedding: unitVec(1536, 0),
		Threshold:      0,
		Limit:          10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}
