package recipes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/recipes-assistant-backend/internal/data/repos/testutil"
	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/dbctx"
)

func unitVector(axis int) []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	v[axis] = 1
	return v
}

func TestPGVectorSearchAndCascade(t *testing.T) {
	gdb := testutil.PostgresDB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewResourceRepo(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	res, err := repo.InsertResource(dbc, "pg corpus")
	require.NoError(t, err)
	require.NoError(t, repo.InsertEmbeddings(dbc, res.ID, []domain.ChunkVector{
		{Content: "axis0", Vector: unitVector(0)},
		{Content: "axis1", Vector: unitVector(1)},
	}))

	got, err := repo.SearchBySimilarity(dbc, unitVector(0), 0.5, 4)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "axis0", got[0].Content)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-6)
	for _, m := range got {
		assert.Greater(t, m.Similarity, 0.5)
	}

	require.NoError(t, repo.DeleteResource(dbc, res.ID))
	n, err := repo.CountEmbeddings(dbc, res.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
