//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/parkwebdev/recall/internal/testutil"
	"github.com/stretchr/testify/require"
)

// setupPool provisions a pgvector container with the full schema applied and
// registers cleanup on the test.
func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

// unitVec builds a unit vector along the given axis, sized for a tier.
func unitVec(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis] = 1
	return v
}

// blendVec mixes two axes so cosine similarity against unitVec(dims, a)
// lands at a predictable value between 0 and 1.
func blendVec(dims, a, b int, weight float64) []float32 {
	v := make([]float32, dims)
	v[a] = float32(weight)
	v[b] = float32(1 - weight)
	return v
}

func seedSource(ctx context.Context, t *testing.T, repo *SourceRepository, agentID string) *domain.Source {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	src := domain.NewSource(uuid.NewString(), agentID, domain.SourceTypeDocument, "faq.md", "refund policy", now)
	require.NoError(t, repo.Create(ctx, src))
	return src
}

func seedReadySource(ctx context.Context, t *testing.T, repo *SourceRepository, agentID string, embedding []float32) *domain.Source {
	t.Helper()

	src := seedSource(ctx, t, repo, agentID)
	ok, err := repo.MarkReady(ctx, src.ID, embedding)
	require.NoError(t, err)
	require.True(t, ok)
	src.Status = domain.SourceStatusReady
	src.Embedding = embedding
	return src
}
