package vector

import (
	"context"
	"testing"

	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertThenGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Upsert(ctx, "mem_1", []float32{1, 0, 0}, "hello", map[string]interface{}{"user_id": "u1"})
	require.NoError(t, err)

	got, err := s.Get(ctx, []string{"mem_1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Document)
}

func TestQuery_RanksByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}, "a", map[string]interface{}{"user_id": "u1"}))
	require.NoError(t, s.Upsert(ctx, "b", []float32{0, 1}, "b", map[string]interface{}{"user_id": "u1"}))

	results, err := s.Query(ctx, []float32{1, 0}, storage.VectorFilter{UserID: "u1"}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
	assert.InDelta(t, 0.0, results[1].Score, 0.001)
}

func TestQuery_FiltersByUserID(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}, "a", map[string]interface{}{"user_id": "u1"}))
	require.NoError(t, s.Upsert(ctx, "b", []float32{1, 0}, "b", map[string]interface{}{"user_id": "u2"}))

	results, err := s.Query(ctx, []float32{1, 0}, storage.VectorFilter{UserID: "u1"}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Upsert(ctx, "a", []float32{1}, "a", nil))
	require.NoError(t, s.Delete(ctx, "a"))

	got, err := s.Get(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCosineDistance_IdenticalVectorsIsZero(t *testing.T) {
	d := CosineDistance([]float32{1, 2, 3}, []float32{1, 2, 3})
	assert.InDelta(t, 0.0, d, 0.0001)
}

func TestCosineDistance_OrthogonalVectorsIsOne(t *testing.T) {
	d := CosineDistance([]float32{1, 0}, []float32{0, 1})
	assert.InDelta(t, 1.0, d, 0.0001)
}

func TestHealth(t *testing.T) {
	h := New().Health(context.Background())
	assert.True(t, h.OK)
}
