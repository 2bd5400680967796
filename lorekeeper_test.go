package lorekeeper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/lorekeeper/ai"
	"github.com/poiesic/lorekeeper/ai/mock"
	"github.com/poiesic/lorekeeper/config"
	"github.com/poiesic/lorekeeper/core"
	"github.com/poiesic/lorekeeper/ingestion"
	"github.com/poiesic/lorekeeper/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLibrary(t *testing.T, cfg config.Config) (*Library, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProvider().(*mock.MockProvider)
	lib, err := Open(context.Background(), cfg, WithProvider(provider))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib, provider
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default().WithStore(config.StoreBadger, filepath.Join(t.TempDir(), "db"))
	cfg.MaxRetries = 1
	return cfg
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpen(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		lib, _ := openTestLibrary(t, testConfig(t))

		assert.NotNil(t, lib.Store())
		assert.NotNil(t, lib.Pipeline())
		assert.Equal(t, "game", lib.Config().CollectionPrefix)
		assert.True(t, lib.Pipeline().ExtractionEnabled())
	})

	t.Run("invalid config fails fast", func(t *testing.T) {
		cfg := testConfig(t).WithChunking(100, 100)
		lib, err := Open(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
		require.ErrorIs(t, err, config.ErrInvalid)
		assert.Nil(t, lib)
	})

	t.Run("store path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("test"), 0o644))

		provider := mock.NewMockProvider().(*mock.MockProvider)
		lib, err := Open(context.Background(), testConfig(t).WithStore(config.StoreBadger, file), WithProvider(provider))
		assert.Error(t, err)
		assert.Nil(t, lib)
		assert.True(t, provider.Closed(), "injected provider is closed on failure")
	})

	t.Run("extraction disabled", func(t *testing.T) {
		lib, _ := openTestLibrary(t, testConfig(t).WithNPCExtraction(false))
		assert.False(t, lib.Pipeline().ExtractionEnabled())
	})
}

func TestLibrary_ImportStatsSearchPurge(t *testing.T) {
	lib, provider := openTestLibrary(t, testConfig(t))
	ctx := context.Background()
	dir := t.TempDir()

	dim, err := lib.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultDimension, dim)

	rules := writeDoc(t, dir, "Core Rulebook.md", "# Combat\n\nRules for grappling a creature.")
	writeDoc(t, dir, "Kingmaker Adventure Path.md", "# Part 1\n\nThe quest begins at the Stolen Lands.")

	results, err := lib.Import(ctx, dir, ingestion.DirectoryOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.True(t, r.Success, r.Error)
	}

	single, err := lib.Import(ctx, rules, ingestion.DirectoryOptions{FileOptions: ingestion.FileOptions{SkipIfExists: true}})
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.True(t, single[0].SkippedExisting)

	stats, err := lib.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, 1, stats[core.CategoryRulebook].PointCount)
	assert.Equal(t, 1, stats[core.CategoryAdventurePath].PointCount)
	assert.Zero(t, stats[core.CategoryNPC].PointCount)
	assert.Equal(t, "game_rulebooks", stats[core.CategoryRulebook].Name)

	hits, err := lib.Search(ctx, core.CategoryRulebook, "grappling", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, rules, hits[0].Payload[storage.PayloadFilePath])
	assert.Positive(t, provider.GetMockEmbedder().CallCount())

	_, err = lib.Search(ctx, core.Category(42), "x", 1)
	require.ErrorIs(t, err, core.ErrUnknownCategory)

	deleted, err := lib.Purge(ctx, rules)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted[core.CategoryRulebook])

	stats, err = lib.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats[core.CategoryRulebook].PointCount)
}

func TestLibrary_StatsBeforeInit(t *testing.T) {
	lib, _ := openTestLibrary(t, testConfig(t))
	_, err := lib.Stats(context.Background())
	require.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestLibrary_CloseIsIdempotent(t *testing.T) {
	lib, provider := openTestLibrary(t, testConfig(t))

	require.NoError(t, lib.Close())
	require.NoError(t, lib.Close())
	assert.True(t, provider.Closed())
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), ai.NewConfig())
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = NewProvider(context.Background(), ai.NewConfig(ai.WithProvider("bedrock")))
	require.ErrorIs(t, err, ai.ErrUnknownProvider)
}

func TestIsDirectory(t *testing.T) {
	dir := t.TempDir()
	file := writeDoc(t, dir, "a.md", "x")

	assert.True(t, isDirectory(dir))
	assert.False(t, isDirectory(file))
	assert.False(t, isDirectory(filepath.Join(dir, "missing.md")))
	assert.True(t, isDirectory("s3://books/core/"))
	assert.False(t, isDirectory("s3://books/core/Rules.md"))
}
