package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/lorekeeper/ai"
	"github.com/poiesic/lorekeeper/routing"
	"github.com/poiesic/lorekeeper/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupMap(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "game", cfg.CollectionPrefix)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.True(t, cfg.EnableNPCExtraction)
	assert.InDelta(t, 0.7, cfg.NPCConfidenceThreshold, 1e-9)
	assert.Equal(t, StoreBadger, cfg.StoreBackend)
	assert.Equal(t, 1, cfg.Workers)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(lookupMap(map[string]string{
		"LOREKEEPER_COLLECTION_PREFIX": "pf2e",
		"CHUNK_SIZE":                   "800",
		"CHUNK_OVERLAP":                "100",
		"ENABLE_NPC_EXTRACTION":        "false",
		"NPC_CONFIDENCE_THRESHOLD":     "0.5",
		"ROUTER_POLICY":                "phrase",
		"STORE_BACKEND":                "PGVector",
		"DATABASE_URL":                 "postgres://localhost/lore",
		"EMBED_TIMEOUT":                "45",
		"EXTRACT_TIMEOUT":              "2m",
		"WORKERS":                      " 4 ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "pf2e", cfg.CollectionPrefix)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.False(t, cfg.EnableNPCExtraction)
	assert.InDelta(t, 0.5, cfg.NPCConfidenceThreshold, 1e-9)
	assert.Equal(t, routing.PolicyPhrase, cfg.Policy())
	assert.Equal(t, StorePGVector, cfg.StoreBackend)
	assert.Equal(t, 45*time.Second, cfg.EmbedTimeout)
	assert.Equal(t, 2*time.Minute, cfg.ExtractTimeout)
	assert.Equal(t, 4, cfg.Workers)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_MalformedValuesReportedTogether(t *testing.T) {
	_, err := FromEnv(lookupMap(map[string]string{
		"CHUNK_SIZE":            "big",
		"ENABLE_NPC_EXTRACTION": "maybe",
		"RETRY_DELAY":           "soon",
	}))
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "CHUNK_SIZE")
	assert.Contains(t, err.Error(), "ENABLE_NPC_EXTRACTION")
	assert.Contains(t, err.Error(), "RETRY_DELAY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(Config) Config
		want   string
	}{
		{"zero chunk size", func(c Config) Config { return c.WithChunking(0, 0) }, "chunk size"},
		{"overlap not below size", func(c Config) Config { return c.WithChunking(100, 100) }, "overlap"},
		{"threshold above one", func(c Config) Config { return c.WithConfidenceThreshold(1.5) }, "NPC_CONFIDENCE_THRESHOLD"},
		{"unknown policy", func(c Config) Config { return c.WithRouterPolicy("fuzzy") }, "fuzzy"},
		{"unknown store", func(c Config) Config { return c.WithStore("qdrant", "x") }, "STORE_BACKEND"},
		{"pgvector without url", func(c Config) Config { return c.WithStore(StorePGVector, "") }, "DATABASE_URL"},
		{"no workers", func(c Config) Config { return c.WithWorkers(0) }, "WORKERS"},
		{"empty prefix", func(c Config) Config { return c.WithCollectionPrefix("") }, "PREFIX"},
		{"azure without credentials", func(c Config) Config {
			c.AIProvider = ai.ProviderAzure
			return c
		}, "missing credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.modify(Default()).Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default().WithChunking(0, 0).WithWorkers(0)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk size")
	assert.Contains(t, err.Error(), "WORKERS")
}

func TestWithMethodsCopy(t *testing.T) {
	base := Default()
	changed := base.WithChunking(500, 50).WithNPCExtraction(false).WithStore(StorePGVector, "postgres://x")

	assert.Equal(t, 1000, base.ChunkSize)
	assert.True(t, base.EnableNPCExtraction)
	assert.Equal(t, StoreBadger, base.StoreBackend)

	assert.Equal(t, 500, changed.ChunkSize)
	assert.False(t, changed.EnableNPCExtraction)
	assert.Equal(t, "postgres://x", changed.DatabaseURL)
}

func TestAIConfig(t *testing.T) {
	t.Run("openai compatible", func(t *testing.T) {
		cfg := Default()
		cfg.AIHost = "http://ollama:11434"
		aiCfg := cfg.AIConfig()
		require.NoError(t, aiCfg.Validate())
		assert.Equal(t, "http://ollama:11434/v1", aiCfg.EmbeddingHost)
		assert.Equal(t, "qwen2.5:3b", aiCfg.CompletionModel)
	})

	t.Run("azure deployments", func(t *testing.T) {
		cfg := Default()
		cfg.AIProvider = ai.ProviderAzure
		cfg.AIAPIKey = "secret"
		cfg.AzureEndpoint = "https://res.openai.azure.com/"
		cfg.AzureEmbeddingDeployment = "embed"
		cfg.AzureCompletionDeployment = "chat"

		aiCfg := cfg.AIConfig()
		require.NoError(t, aiCfg.Validate())
		assert.Equal(t, "embed", aiCfg.EmbeddingModel)
		assert.Equal(t, "chat", aiCfg.CompletionModel)
	})

	t.Run("gemini key", func(t *testing.T) {
		cfg := Default()
		cfg.AIProvider = ai.ProviderGemini
		cfg.GeminiAPIKey = "g-key"
		assert.Equal(t, "g-key", cfg.AIConfig().APIKey)
	})
}

func TestDistance(t *testing.T) {
	cfg := Default()
	assert.Equal(t, storage.DistanceCosine, cfg.Distance())
	cfg.VectorDistance = "dot"
	assert.Equal(t, storage.DistanceDot, cfg.Distance())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOREKEEPER_TEST_ONLY_PREFIX=ignored\nCHUNK_OVERLAP=150\n"), 0o644))
	t.Setenv("CHUNK_SIZE", "900")
	t.Setenv("CHUNK_OVERLAP", "")
	os.Unsetenv("CHUNK_OVERLAP")
	t.Cleanup(func() { os.Unsetenv("LOREKEEPER_TEST_ONLY_PREFIX") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.ChunkSize)
	assert.Equal(t, 150, cfg.ChunkOverlap)
}

func TestLoad_MissingFileTolerated(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
