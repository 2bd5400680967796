// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lorekeeper wires configuration, vector store, AI provider, lock and
// ingestion pipeline into a single Library.
package lorekeeper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/poiesic/lorekeeper/ai"
	"github.com/poiesic/lorekeeper/ai/azure"
	"github.com/poiesic/lorekeeper/ai/gemini"
	"github.com/poiesic/lorekeeper/ai/openai"
	"github.com/poiesic/lorekeeper/chunking"
	"github.com/poiesic/lorekeeper/config"
	"github.com/poiesic/lorekeeper/core"
	"github.com/poiesic/lorekeeper/ingestion"
	"github.com/poiesic/lorekeeper/lock"
	redislock "github.com/poiesic/lorekeeper/lock/redis"
	"github.com/poiesic/lorekeeper/npc"
	"github.com/poiesic/lorekeeper/routing"
	"github.com/poiesic/lorekeeper/source"
	"github.com/poiesic/lorekeeper/storage"
	"github.com/poiesic/lorekeeper/storage/badger"
	"github.com/poiesic/lorekeeper/storage/pgvector"
	"golang.org/x/sync/errgroup"
)

// DefaultSearchLimit is used when Search is called with a non-positive limit.
const DefaultSearchLimit = 5

// Library is an opened lorekeeper installation.
type Library struct {
	cfg      config.Config
	store    storage.VectorStore
	provider ai.AIProvider
	locker   lock.Locker
	pipeline *ingestion.Pipeline
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Option configures Open.
type Option func(*options)

type options struct {
	store    storage.VectorStore
	provider ai.AIProvider
	locker   lock.Locker
	s3       source.Source
	progress io.Writer
	logger   *slog.Logger
}

// WithStore uses store instead of opening the configured backend.
func WithStore(store storage.VectorStore) Option {
	return func(o *options) { o.store = store }
}

// WithProvider uses provider instead of building the configured one.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithLocker uses locker instead of the configured one.
func WithLocker(locker lock.Locker) Option {
	return func(o *options) { o.locker = locker }
}

// WithS3Source uses src for s3:// paths.
func WithS3Source(src source.Source) Option {
	return func(o *options) { o.s3 = src }
}

// WithProgress reports directory progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open validates cfg and builds every component. Resources passed as options
// are owned by the Library afterwards and closed by Close.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Library, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	lib := &Library{
		cfg:      cfg,
		store:    o.store,
		provider: o.provider,
		locker:   o.locker,
		logger:   o.logger.With("component", "library"),
	}
	ok := false
	defer func() {
		if !ok {
			_ = lib.Close()
		}
	}()

	var err error
	if lib.store == nil {
		if lib.store, err = OpenStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	if lib.provider == nil {
		if lib.provider, err = NewProvider(ctx, cfg.AIConfig()); err != nil {
			return nil, err
		}
	}

	if lib.locker == nil {
		if lib.locker, err = newLocker(ctx, cfg, o.logger); err != nil {
			return nil, err
		}
	}

	if o.s3 == nil && cfg.AWSRegion != "" {
		if o.s3, err = source.NewS3(ctx, cfg.S3Config()); err != nil {
			return nil, err
		}
	}

	if lib.pipeline, err = newPipeline(cfg, lib.store, lib.provider, lib.locker, o); err != nil {
		return nil, err
	}

	ok = true
	return lib, nil
}

// OpenStore opens the configured vector store backend.
func OpenStore(ctx context.Context, cfg config.Config) (storage.VectorStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBadger:
		return badger.NewStore(cfg.BadgerPath)
	case config.StorePGVector:
		return pgvector.NewStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewProvider builds the AI provider selected by aiCfg.Provider.
func NewProvider(ctx context.Context, aiCfg *ai.Config) (ai.AIProvider, error) {
	if err := aiCfg.Validate(); err != nil {
		return nil, err
	}
	switch aiCfg.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(aiCfg)
	case ai.ProviderAzure:
		return azure.NewProvider(aiCfg)
	case ai.ProviderGemini:
		return gemini.NewProvider(ctx, aiCfg)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, aiCfg.Provider)
	}
}

func newLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (lock.Locker, error) {
	if cfg.RedisURL == "" {
		return lock.NewLocal(), nil
	}
	locker, err := redislock.Dial(ctx, cfg.RedisURL, redislock.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return locker, nil
}

func newPipeline(cfg config.Config, store storage.VectorStore, provider ai.AIProvider, locker lock.Locker, o *options) (*ingestion.Pipeline, error) {
	chunker, err := chunking.New(chunking.WithChunkSize(cfg.ChunkSize), chunking.WithOverlap(cfg.ChunkOverlap))
	if err != nil {
		return nil, err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(o.logger),
		ingestion.WithPoolSize(cfg.Workers),
		ingestion.WithChunker(chunker),
		ingestion.WithRouter(routing.New(cfg.Policy())),
		ingestion.WithCollectionPrefix(cfg.CollectionPrefix),
		ingestion.WithLocker(locker),
		ingestion.WithRichDocuments(cfg.IncludeRichDocuments),
		ingestion.WithVectorSize(cfg.VectorDimension),
		ingestion.WithDistance(cfg.Distance()),
		ingestion.WithEmbedRetry(ingestion.RetryPolicy{
			MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.RetryDelay, Timeout: cfg.EmbedTimeout,
		}),
		ingestion.WithStoreRetry(ingestion.RetryPolicy{
			MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.RetryDelay, Timeout: cfg.StoreTimeout,
		}),
	}
	if o.s3 != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithS3Source(o.s3))
	}
	if o.progress != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithProgress(o.progress))
	}

	if cfg.EnableNPCExtraction {
		extractor, err := npc.NewExtractor(provider.Completer(),
			npc.WithThreshold(cfg.NPCConfidenceThreshold),
			npc.WithTimeout(cfg.ExtractTimeout),
			npc.WithRateLimit(cfg.ExtractionRPS, 1),
			npc.WithLogger(o.logger),
		)
		if err != nil {
			return nil, err
		}
		pipelineOpts = append(pipelineOpts, ingestion.WithExtractor(extractor))
	}

	return ingestion.NewPipeline(store, provider.Embedder(), pipelineOpts...)
}

// Config returns the configuration the Library was opened with.
func (l *Library) Config() config.Config {
	return l.cfg
}

// Pipeline returns the ingestion pipeline.
func (l *Library) Pipeline() *ingestion.Pipeline {
	return l.pipeline
}

// Store returns the vector store.
func (l *Library) Store() storage.VectorStore {
	return l.store
}

// Init probes the embedder and ensures every collection exists. It returns
// the vector size in use.
func (l *Library) Init(ctx context.Context) (int, error) {
	if err := l.pipeline.Init(ctx); err != nil {
		return 0, err
	}
	return l.pipeline.VectorSize(), nil
}

// Import ingests target, which is a document or a directory (local path or
// s3:// prefix).
func (l *Library) Import(ctx context.Context, target string, opts ingestion.DirectoryOptions) ([]*ingestion.Result, error) {
	if !isDirectory(target) {
		return []*ingestion.Result{l.pipeline.ProcessFile(ctx, target, opts.FileOptions)}, nil
	}
	return l.pipeline.ProcessDirectory(ctx, target, opts)
}

func isDirectory(target string) bool {
	if source.IsS3(target) {
		return !source.ListOptions{Recursive: true, IncludeRich: true}.Matches(target)
	}
	info, err := os.Stat(target)
	return err == nil && info.IsDir()
}

// Stats returns the statistics of every destination collection, fetched concurrently.
func (l *Library) Stats(ctx context.Context) (map[core.Category]*storage.CollectionStats, error) {
	collections := l.pipeline.Collections()
	categories := core.Categories()
	stats := make([]*storage.CollectionStats, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			s, err := l.store.Stats(gctx, collections.Name(category))
			if err != nil {
				return fmt.Errorf("stats %s: %w", collections.Name(category), err)
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[core.Category]*storage.CollectionStats, len(categories))
	for i, category := range categories {
		out[category] = stats[i]
	}
	return out, nil
}

// Search embeds query and returns the closest points in category.
func (l *Library) Search(ctx context.Context, category core.Category, query string, limit int) ([]storage.ScoredPoint, error) {
	if err := core.ValidateCategory(category); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedCtx, cancel := context.WithTimeout(ctx, l.cfg.EmbedTimeout)
	defer cancel()
	vector, err := l.provider.Embedder().EmbedText(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ingestion.ErrEmbedding, err)
	}

	return l.store.Search(ctx, l.pipeline.Collections().Name(category), vector, limit, nil)
}

// Purge deletes every record imported from path.
func (l *Library) Purge(ctx context.Context, path string) (map[core.Category]int, error) {
	return l.pipeline.DeleteFile(ctx, path)
}

// Close releases the pipeline, provider, lock and store. It is safe to call
// more than once.
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		var errs []error
		if l.pipeline != nil {
			l.pipeline.Release()
		}
		if l.provider != nil {
			if err := l.provider.Close(); err != nil {
				l.logger.Error("error closing AI provider", "err", err)
				errs = append(errs, err)
			}
		}
		if c, ok := l.locker.(io.Closer); ok {
			if err := c.Close(); err != nil {
				l.logger.Error("error closing lock client", "err", err)
				errs = append(errs, err)
			}
		}
		if l.store != nil {
			if err := l.store.Close(); err != nil {
				l.logger.Error("error closing vector store", "err", err)
				errs = append(errs, err)
			}
		}
		l.closeErr = errors.Join(errs...)
	})
	return l.closeErr
}
