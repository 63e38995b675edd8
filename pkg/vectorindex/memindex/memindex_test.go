package memindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmem/memstore/pkg/vectorindex"
)

func TestIndex_QueryOrdersByDistance(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionContent, "a", []float32{1, 0}, nil))
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionContent, "b", []float32{0, 1}, nil))
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionContent, "c", []float32{0.9, 0.1}, nil))

	matches, err := idx.Query(ctx, vectorindex.CollectionContent, []float32{1, 0}, 10, vectorindex.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "c", matches[1].ID)
	assert.Equal(t, "b", matches[2].ID)
}

func TestIndex_QueryRespectsTopK(t *testing.T) {
	idx := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionChunks, id, []float32{1, 0}, nil))
	}

	matches, err := idx.Query(ctx, vectorindex.CollectionChunks, []float32{1, 0}, 2, vectorindex.Filter{})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestIndex_DeleteRemovesFromResults(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionContent, "a", []float32{1, 0}, nil))
	require.NoError(t, idx.Delete(ctx, vectorindex.CollectionContent, "a"))

	matches, err := idx.Query(ctx, vectorindex.CollectionContent, []float32{1, 0}, 10, vectorindex.Filter{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_FilterBySource(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionContent, "a", []float32{1, 0}, map[string]any{"source": "meeting"}))
	require.NoError(t, idx.Upsert(ctx, vectorindex.CollectionContent, "b", []float32{1, 0}, map[string]any{"source": "email"}))

	matches, err := idx.Query(ctx, vectorindex.CollectionContent, []float32{1, 0}, 10, vectorindex.Filter{Source: []string{"meeting"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}
