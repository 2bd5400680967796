package pgvector

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeeper/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceSQL(t *testing.T) {
	op, expr := distanceSQL(storage.DistanceCosine)
	assert.Equal(t, "<=>", op)
	assert.Equal(t, "1 - (embedding <=> $%d)", expr)

	op, _ = distanceSQL(storage.DistanceEuclid)
	assert.Equal(t, "<->", op)

	op, _ = distanceSQL(storage.DistanceDot)
	assert.Equal(t, "<#>", op)
}

func TestWhereClause(t *testing.T) {
	where, args := whereClause("game_npcs", nil)
	assert.Equal(t, "collection = $1", where)
	assert.Equal(t, []any{"game_npcs"}, args)

	where, args = whereClause("game_npcs", storage.MatchFile("/a.md"))
	assert.Equal(t, "collection = $1 AND payload->>$2 = $3", where)
	assert.Equal(t, []any{"game_npcs", "file_path", "/a.md"}, args)
}

func TestNewStore_EmptyURL(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	require.Error(t, err)
}

// TestStore_Integration runs against a live database when
// LOREKEEPER_TEST_DATABASE_URL is set.
func TestStore_Integration(t *testing.T) {
	url := os.Getenv("LOREKEEPER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LOREKEEPER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	store, err := NewStore(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	collection := "test_" + uuid.NewString()[:8]
	require.NoError(t, store.EnsureCollection(ctx, collection, 3, storage.DistanceCosine))
	require.ErrorIs(t, store.EnsureCollection(ctx, collection, 4, storage.DistanceCosine), storage.ErrDimensionMismatch)

	require.NoError(t, store.Upsert(ctx, collection,
		storage.Point{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]any{"file_path": "/a.md"}},
		storage.Point{ID: "b", Vector: []float32{0, 1, 0}, Payload: map[string]any{"file_path": "/b.md"}},
	))

	ok, err := storage.Exists(ctx, store, collection, storage.MatchFile("/a.md"))
	require.NoError(t, err)
	assert.True(t, ok)

	hits, err := store.Search(ctx, collection, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)

	n, err := storage.DeleteWhere(ctx, store, collection, storage.MatchFile("/a.md"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := store.Stats(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PointCount)
}
