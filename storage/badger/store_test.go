package badger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/poiesic/lorekeeper/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.VectorStore {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func point(id, file string, vector ...float32) storage.Point {
	return storage.Point{
		ID:      id,
		Vector:  vector,
		Payload: map[string]any{storage.PayloadFilePath: file},
	}
}

func TestEnsureCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "game_rulebooks", 3, storage.DistanceCosine))
	// Idempotent with the same size
	require.NoError(t, store.EnsureCollection(ctx, "game_rulebooks", 3, storage.DistanceCosine))

	err := store.EnsureCollection(ctx, "game_rulebooks", 4, storage.DistanceCosine)
	require.ErrorIs(t, err, storage.ErrDimensionMismatch)

	err = store.EnsureCollection(ctx, "bad:name", 3, storage.DistanceCosine)
	require.ErrorIs(t, err, storage.ErrInvalidQuery)

	err = store.EnsureCollection(ctx, "game_npcs", 0, storage.DistanceCosine)
	require.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, "c", 2, storage.DistanceCosine))

	t.Run("unknown collection", func(t *testing.T) {
		err := store.Upsert(ctx, "missing", point("a", "/a.md", 1, 0))
		require.ErrorIs(t, err, storage.ErrCollectionNotFound)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		err := store.Upsert(ctx, "c", point("a", "/a.md", 1, 0, 0))
		require.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("missing id", func(t *testing.T) {
		err := store.Upsert(ctx, "c", point("", "/a.md", 1, 0))
		require.ErrorIs(t, err, storage.ErrInvalidQuery)
	})

	t.Run("replaces by id", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, "c", point("a", "/a.md", 1, 0)))
		require.NoError(t, store.Upsert(ctx, "c", point("a", "/b.md", 0, 1)))

		stats, err := store.Stats(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, 1, stats.PointCount)

		page, err := store.Scroll(ctx, "c", nil, 10, "")
		require.NoError(t, err)
		require.Len(t, page.Points, 1)
		assert.Equal(t, "/b.md", page.Points[0].Payload[storage.PayloadFilePath])
	})
}

func TestScroll_Pagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, "c", 1, storage.DistanceCosine))

	var points []storage.Point
	for i := 0; i < 7; i++ {
		file := "/even.md"
		if i%2 == 1 {
			file = "/odd.md"
		}
		points = append(points, point(fmt.Sprintf("p%02d", i), file, 1))
	}
	require.NoError(t, store.Upsert(ctx, "c", points...))

	page, err := store.Scroll(ctx, "c", storage.MatchFile("/even.md"), 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"p00", "p02"}, ids(page.Points))
	assert.Equal(t, "p04", page.Next)

	page, err = store.Scroll(ctx, "c", storage.MatchFile("/even.md"), 2, page.Next)
	require.NoError(t, err)
	assert.Equal(t, []string{"p04", "p06"}, ids(page.Points))
	assert.Empty(t, page.Next)

	all, err := storage.ScrollAll(ctx, store, "c", storage.MatchFile("/odd.md"))
	require.NoError(t, err)
	assert.Equal(t, []string{"p01", "p03", "p05"}, ids(all))

	_, err = store.Scroll(ctx, "c", nil, 0, "")
	require.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestExistsAndDeleteWhere(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, "c", 1, storage.DistanceCosine))
	require.NoError(t, store.Upsert(ctx, "c",
		point("a", "/a.md", 1), point("b", "/a.md", 1), point("c", "/b.md", 1)))

	ok, err := storage.Exists(ctx, store, "c", storage.MatchFile("/a.md"))
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := storage.DeleteWhere(ctx, store, "c", storage.MatchFile("/a.md"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err = storage.Exists(ctx, store, "c", storage.MatchFile("/a.md"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown ids are ignored
	require.NoError(t, store.Delete(ctx, "c", "nope"))

	stats, err := store.Stats(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PointCount)
	assert.Equal(t, 1, stats.VectorCount)
	assert.Equal(t, storage.StatusGreen, stats.Status)
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, "c", 3, storage.DistanceCosine))
	require.NoError(t, store.Upsert(ctx, "c",
		point("first", "/a.md", 1, 0, 0),
		point("second", "/a.md", 0.9, 0.1, 0),
		point("third", "/b.md", 0, 0, 1),
	))

	results, err := store.Search(ctx, "c", []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].ID)
	assert.Equal(t, "second", results[1].ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	results, err = store.Search(ctx, "c", []float32{1, 0, 0}, 10, storage.MatchFile("/b.md"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "third", results[0].ID)

	_, err = store.Search(ctx, "c", []float32{1, 0}, 10, nil)
	require.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestSearch_Euclid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, "c", 2, storage.DistanceEuclid))
	require.NoError(t, store.Upsert(ctx, "c", point("near", "/a.md", 1, 1), point("far", "/a.md", 10, 10)))

	results, err := store.Search(ctx, "c", []float32{0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].ID)
}

func TestStore_Closed(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.EnsureCollection(context.Background(), "c", 1, storage.DistanceCosine)
	require.ErrorIs(t, err, storage.ErrStorageClosed)
	// Closing twice is harmless
	require.NoError(t, store.Close())
}

func TestStore_OnDiskPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.EnsureCollection(ctx, "c", 1, storage.DistanceCosine))
	require.NoError(t, store.Upsert(ctx, "c", point("a", "/a.md", 1)))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	stats, err := store.Stats(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PointCount)
}

func TestStore_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	store := NewStoreWithBackend(backend)
	require.NoError(t, store.Close())
	assert.False(t, backend.IsClosed())
}

func ids(points []storage.Point) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.ID
	}
	return out
}

func TestStoreLogsSingleComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	store := newTestStore(t)
	require.NoError(t, store.EnsureCollection(context.Background(), "game_npcs", 3, storage.DistanceCosine))

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "created collection") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, `"component"`))
	assert.Contains(t, line, `"component":"badger-store"`)
}
