// Package config loads lorekeeper's configuration from the environment.
//
// Load reads an optional .env file and the process environment once and
// returns a Config value. A Config is never mutated after Load; the With
// methods return modified copies, which is how command-line flags override
// environment settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/lorekeeper/ai"
	"github.com/poiesic/lorekeeper/core"
	"github.com/poiesic/lorekeeper/routing"
	"github.com/poiesic/lorekeeper/source"
	"github.com/poiesic/lorekeeper/storage"
)

// Store backends.
const (
	StoreBadger   = "badger"
	StorePGVector = "pgvector"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete application configuration.
type Config struct {
	CollectionPrefix string

	ChunkSize    int
	ChunkOverlap int

	EnableNPCExtraction    bool
	NPCConfidenceThreshold float64
	ExtractionRPS          float64

	// VectorDimension of zero means probe the embedder.
	VectorDimension int
	VectorDistance  string
	RouterPolicy    string

	StoreBackend string
	BadgerPath   string
	DatabaseURL  string
	RedisURL     string

	AIProvider                string
	AIHost                    string
	AIAPIKey                  string
	EmbeddingModel            string
	CompletionModel           string
	Temperature               float64
	AzureEndpoint             string
	AzureAPIVersion           string
	AzureEmbeddingDeployment  string
	AzureCompletionDeployment string
	GeminiAPIKey              string

	EmbedTimeout   time.Duration
	ExtractTimeout time.Duration
	StoreTimeout   time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	Workers        int

	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	S3Endpoint   string

	IncludeRichDocuments bool
	OutputDirectory      string
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		CollectionPrefix:       "game",
		ChunkSize:              1000,
		ChunkOverlap:           200,
		EnableNPCExtraction:    true,
		NPCConfidenceThreshold: 0.7,
		VectorDistance:         "cosine",
		RouterPolicy:           routing.PolicyBroad.String(),
		StoreBackend:           StoreBadger,
		BadgerPath:             "./lorekeeper-data",
		AIProvider:             ai.ProviderOpenAI,
		AIHost:                 "http://localhost:11434/v1",
		EmbeddingModel:         "embeddinggemma",
		CompletionModel:        "qwen2.5:3b",
		Temperature:            0.1,
		AzureAPIVersion:        "2024-02-01",
		EmbedTimeout:           60 * time.Second,
		ExtractTimeout:         90 * time.Second,
		StoreTimeout:           30 * time.Second,
		MaxRetries:             3,
		RetryDelay:             time.Second,
		Workers:                1,
		OutputDirectory:        "./import_logs",
	}
}

// Load reads envFile (".env" when empty) into the environment without
// overriding variables that are already set, then builds a Config. A missing
// file is not an error. Malformed values are reported together.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, falling back to Default for unset keys.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	d := Default()
	e := &env{lookup: lookup}

	cfg := Config{
		CollectionPrefix:       e.getEnv("LOREKEEPER_COLLECTION_PREFIX", d.CollectionPrefix),
		ChunkSize:              e.getEnvInt("CHUNK_SIZE", d.ChunkSize),
		ChunkOverlap:           e.getEnvInt("CHUNK_OVERLAP", d.ChunkOverlap),
		EnableNPCExtraction:    e.getEnvBool("ENABLE_NPC_EXTRACTION", d.EnableNPCExtraction),
		NPCConfidenceThreshold: e.getEnvFloat("NPC_CONFIDENCE_THRESHOLD", d.NPCConfidenceThreshold),
		ExtractionRPS:          e.getEnvFloat("EXTRACTION_RPS", d.ExtractionRPS),
		VectorDimension:        e.getEnvInt("VECTOR_DIMENSION", d.VectorDimension),
		VectorDistance:         e.getEnv("VECTOR_DISTANCE", d.VectorDistance),
		RouterPolicy:           e.getEnv("ROUTER_POLICY", d.RouterPolicy),

		StoreBackend: strings.ToLower(e.getEnv("STORE_BACKEND", d.StoreBackend)),
		BadgerPath:   e.getEnv("BADGER_PATH", d.BadgerPath),
		DatabaseURL:  e.getEnv("DATABASE_URL", d.DatabaseURL),
		RedisURL:     e.getEnv("REDIS_URL", d.RedisURL),

		AIProvider:                strings.ToLower(e.getEnv("AI_PROVIDER", d.AIProvider)),
		AIHost:                    e.getEnv("AI_HOST", d.AIHost),
		AIAPIKey:                  e.getEnv("AI_API_KEY", d.AIAPIKey),
		EmbeddingModel:            e.getEnv("EMBEDDING_MODEL", d.EmbeddingModel),
		CompletionModel:           e.getEnv("COMPLETION_MODEL", d.CompletionModel),
		Temperature:               e.getEnvFloat("AI_TEMPERATURE", d.Temperature),
		AzureEndpoint:             e.getEnv("AZURE_OPENAI_ENDPOINT", d.AzureEndpoint),
		AzureAPIVersion:           e.getEnv("AZURE_OPENAI_API_VERSION", d.AzureAPIVersion),
		AzureEmbeddingDeployment:  e.getEnv("AZURE_EMBEDDING_DEPLOYMENT", d.AzureEmbeddingDeployment),
		AzureCompletionDeployment: e.getEnv("AZURE_COMPLETION_DEPLOYMENT", d.AzureCompletionDeployment),
		GeminiAPIKey:              e.getEnv("GEMINI_API_KEY", d.GeminiAPIKey),

		EmbedTimeout:   e.getEnvDuration("EMBED_TIMEOUT", d.EmbedTimeout),
		ExtractTimeout: e.getEnvDuration("EXTRACT_TIMEOUT", d.ExtractTimeout),
		StoreTimeout:   e.getEnvDuration("STORE_TIMEOUT", d.StoreTimeout),
		MaxRetries:     e.getEnvInt("MAX_RETRIES", d.MaxRetries),
		RetryDelay:     e.getEnvDuration("RETRY_DELAY", d.RetryDelay),
		Workers:        e.getEnvInt("WORKERS", d.Workers),

		AWSRegion:    e.getEnv("AWS_REGION", d.AWSRegion),
		AWSAccessKey: e.getEnv("AWS_ACCESS_KEY", d.AWSAccessKey),
		AWSSecretKey: e.getEnv("AWS_SECRET_KEY", d.AWSSecretKey),
		S3Endpoint:   e.getEnv("S3_ENDPOINT", d.S3Endpoint),

		IncludeRichDocuments: e.getEnvBool("INCLUDE_RICH_DOCUMENTS", d.IncludeRichDocuments),
		OutputDirectory:      e.getEnv("OUTPUT_DIRECTORY", d.OutputDirectory),
	}

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.CollectionPrefix != "", "LOREKEEPER_COLLECTION_PREFIX is required")
	if err := core.ValidateChunkParams(c.ChunkSize, c.ChunkOverlap); err != nil {
		errs = append(errs, err)
	}
	check(c.NPCConfidenceThreshold >= 0 && c.NPCConfidenceThreshold <= 1,
		"NPC_CONFIDENCE_THRESHOLD must be between 0 and 1, got %v", c.NPCConfidenceThreshold)
	check(c.ExtractionRPS >= 0, "EXTRACTION_RPS must be >= 0")
	check(c.VectorDimension >= 0, "VECTOR_DIMENSION must be >= 0")
	if _, err := storage.ParseDistance(c.VectorDistance); err != nil {
		errs = append(errs, err)
	}
	if _, err := routing.ParsePolicy(c.RouterPolicy); err != nil {
		errs = append(errs, err)
	}

	switch c.StoreBackend {
	case StoreBadger:
		check(c.BadgerPath != "", "BADGER_PATH is required for the badger store")
	case StorePGVector:
		check(c.DatabaseURL != "", "DATABASE_URL is required for the pgvector store")
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	check(c.EmbedTimeout > 0, "EMBED_TIMEOUT must be positive")
	check(c.ExtractTimeout > 0, "EXTRACT_TIMEOUT must be positive")
	check(c.StoreTimeout > 0, "STORE_TIMEOUT must be positive")
	check(c.MaxRetries >= 1, "MAX_RETRIES must be >= 1")
	check(c.RetryDelay >= 0, "RETRY_DELAY must be >= 0")
	check(c.Workers >= 1, "WORKERS must be >= 1")

	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// AIConfig builds the provider configuration.
func (c Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithProvider(c.AIProvider),
		ai.WithHost(c.AIHost),
		ai.WithAPIKey(c.AIAPIKey),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithCompletionModel(c.CompletionModel),
		ai.WithTemperature(c.Temperature),
	}

	switch c.AIProvider {
	case ai.ProviderAzure:
		opts = append(opts, ai.WithAzure(c.AzureEndpoint, c.AzureAPIVersion))
		if c.AzureEmbeddingDeployment != "" {
			opts = append(opts, ai.WithEmbeddingModel(c.AzureEmbeddingDeployment))
		}
		if c.AzureCompletionDeployment != "" {
			opts = append(opts, ai.WithCompletionModel(c.AzureCompletionDeployment))
		}
	case ai.ProviderGemini:
		if c.GeminiAPIKey != "" {
			opts = append(opts, ai.WithAPIKey(c.GeminiAPIKey))
		}
	}

	return ai.NewConfig(opts...)
}

// S3Config returns the S3 source settings.
func (c Config) S3Config() source.S3Config {
	return source.S3Config{
		Region:    c.AWSRegion,
		AccessKey: c.AWSAccessKey,
		SecretKey: c.AWSSecretKey,
		Endpoint:  c.S3Endpoint,
	}
}

// Policy returns the parsed router policy. Call Validate first.
func (c Config) Policy() routing.Policy {
	p, _ := routing.ParsePolicy(c.RouterPolicy)
	return p
}

// Distance returns the parsed vector distance. Call Validate first.
func (c Config) Distance() storage.Distance {
	d, _ := storage.ParseDistance(c.VectorDistance)
	return d
}

// WithChunking returns a copy with the given chunk size and overlap.
func (c Config) WithChunking(size, overlap int) Config {
	c.ChunkSize = size
	c.ChunkOverlap = overlap
	return c
}

// WithCollectionPrefix returns a copy with prefix.
func (c Config) WithCollectionPrefix(prefix string) Config {
	c.CollectionPrefix = prefix
	return c
}

// WithNPCExtraction returns a copy with extraction enabled or disabled.
func (c Config) WithNPCExtraction(enabled bool) Config {
	c.EnableNPCExtraction = enabled
	return c
}

// WithConfidenceThreshold returns a copy with threshold.
func (c Config) WithConfidenceThreshold(threshold float64) Config {
	c.NPCConfidenceThreshold = threshold
	return c
}

// WithWorkers returns a copy with n workers.
func (c Config) WithWorkers(n int) Config {
	c.Workers = n
	return c
}

// WithRouterPolicy returns a copy with policy.
func (c Config) WithRouterPolicy(policy string) Config {
	c.RouterPolicy = policy
	return c
}

// WithStore returns a copy using backend at location, which is a badger
// directory or a database URL.
func (c Config) WithStore(backend, location string) Config {
	c.StoreBackend = strings.ToLower(backend)
	switch c.StoreBackend {
	case StoreBadger:
		c.BadgerPath = location
	case StorePGVector:
		c.DatabaseURL = location
	}
	return c
}

// env reads typed variables and collects parse failures.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) getEnv(key, fallback string) string {
	if value, exists := e.lookup(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

func (e *env) getEnvInt(key string, def int) int {
	v := e.getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not an integer", key, v))
		return def
	}
	return n
}

func (e *env) getEnvFloat(key string, def float64) float64 {
	v := e.getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not a number", key, v))
		return def
	}
	return f
}

func (e *env) getEnvBool(key string, def bool) bool {
	v := e.getEnv(key, "")
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	e.errs = append(e.errs, fmt.Errorf("%s=%q is not a boolean", key, v))
	return def
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func (e *env) getEnvDuration(key string, def time.Duration) time.Duration {
	v := e.getEnv(key, "")
	if v == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not a duration", key, v))
		return def
	}
	return d
}
