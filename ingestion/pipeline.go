package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lorekeeper/ai"
	"github.com/poiesic/lorekeeper/chunking"
	"github.com/poiesic/lorekeeper/core"
	"github.com/poiesic/lorekeeper/lock"
	"github.com/poiesic/lorekeeper/normalize"
	"github.com/poiesic/lorekeeper/npc"
	"github.com/poiesic/lorekeeper/routing"
	"github.com/poiesic/lorekeeper/source"
	"github.com/poiesic/lorekeeper/storage"
)

// DefaultCollectionPrefix is the collection-name prefix when none is configured.
const DefaultCollectionPrefix = "game"

const dimensionProbe = "dimension probe"

// Pipeline orchestrates the ingestion of documents into the vector store.
// It is safe for concurrent use; documents for the same path are serialized
// by the configured lock.Locker.
type Pipeline struct {
	store       storage.VectorStore
	embedder    ai.Embedder
	extractor   *npc.Extractor
	chunker     *chunking.Chunker
	router      routing.Router
	collections core.Collections
	sources     source.Router
	includeRich bool
	locker      lock.Locker
	pool        *ants.Pool
	progress    io.Writer

	extractionEnabled bool
	embedRetry        RetryPolicy
	storeRetry        RetryPolicy
	vectorSize        int
	distance          storage.Distance

	initMu      sync.Mutex
	initialized bool

	embeddingProc processor
	npcProc       processor
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of documents processed concurrently by
// ProcessFiles and ProcessDirectory. Default is 1, which is sequential.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunker sets the chunker. Default is chunking.New() with its defaults.
func WithChunker(chunker *chunking.Chunker) Option {
	return func(p *Pipeline) error {
		if chunker == nil {
			return errors.New("chunker cannot be nil")
		}
		p.chunker = chunker
		return nil
	}
}

// WithRouter sets the collection router. Default is routing.PolicyBroad.
func WithRouter(router routing.Router) Option {
	return func(p *Pipeline) error {
		p.router = router
		return nil
	}
}

// WithCollectionPrefix sets the prefix of every destination collection name.
func WithCollectionPrefix(prefix string) Option {
	return func(p *Pipeline) error {
		if prefix == "" {
			return errors.New("collection prefix cannot be empty")
		}
		p.collections = core.Collections{Prefix: prefix}
		return nil
	}
}

// WithExtractor enables NPC extraction with extractor.
func WithExtractor(extractor *npc.Extractor) Option {
	return func(p *Pipeline) error {
		p.extractor = extractor
		p.extractionEnabled = extractor != nil
		return nil
	}
}

// WithExtractionEnabled globally enables or disables NPC extraction.
// Enabling it has no effect without an extractor.
func WithExtractionEnabled(enabled bool) Option {
	return func(p *Pipeline) error {
		p.extractionEnabled = enabled
		return nil
	}
}

// WithS3Source enables s3:// paths.
func WithS3Source(src source.Source) Option {
	return func(p *Pipeline) error {
		p.sources.Remote = src
		return nil
	}
}

// WithLocalSource replaces the local filesystem source.
func WithLocalSource(src source.Source) Option {
	return func(p *Pipeline) error {
		p.sources.Local = src
		return nil
	}
}

// WithRichDocuments makes directory runs include docx, odt, rtf and html files.
func WithRichDocuments(include bool) Option {
	return func(p *Pipeline) error {
		p.includeRich = include
		return nil
	}
}

// WithLocker sets the per-path locker. Default is an in-process lock.Local.
func WithLocker(locker lock.Locker) Option {
	return func(p *Pipeline) error {
		if locker == nil {
			return errors.New("locker cannot be nil")
		}
		p.locker = locker
		return nil
	}
}

// WithEmbedRetry sets the retry policy for embedding calls.
func WithEmbedRetry(policy RetryPolicy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.embedRetry = policy
		return nil
	}
}

// WithStoreRetry sets the retry policy for vector store calls.
func WithStoreRetry(policy RetryPolicy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.storeRetry = policy
		return nil
	}
}

// WithVectorSize fixes the collection vector size. Zero probes the embedder in Init.
func WithVectorSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 0 {
			return fmt.Errorf("vector size must be >= 0, got %d", size)
		}
		p.vectorSize = size
		return nil
	}
}

// WithDistance sets the similarity metric for created collections. Default is cosine.
func WithDistance(distance storage.Distance) Option {
	return func(p *Pipeline) error {
		p.distance = distance
		return nil
	}
}

// WithProgress reports directory progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	chunker, err := chunking.New()
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:       store,
		embedder:    embedder,
		chunker:     chunker,
		router:      routing.New(routing.PolicyBroad),
		collections: core.Collections{Prefix: DefaultCollectionPrefix},
		sources:     source.Router{Local: source.FileSystem{}},
		locker:      lock.NewLocal(),
		pool:        pool,
		embedRetry:  RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Timeout: 60 * time.Second},
		storeRetry:  RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Timeout: 30 * time.Second},
		distance:    storage.DistanceCosine,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Processors are created after options so they get the final config.
	embeddingProc, err := newEmbeddingProcessor(store, embedder, p.embedRetry, p.storeRetry, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	if p.extractor != nil {
		npcProc, err := newNPCProcessor(store, embedder, p.extractor,
			p.collections.Name(core.CategoryNPC), p.embedRetry, p.storeRetry, p.logger)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.npcProc = npcProc
	}

	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Collections returns the destination collection names.
func (p *Pipeline) Collections() core.Collections {
	return p.collections
}

// Router returns the collection router.
func (p *Pipeline) Router() routing.Router {
	return p.router
}

// VectorSize returns the collection vector size. It is zero until Init probes
// the embedder, unless configured with WithVectorSize.
func (p *Pipeline) VectorSize() int {
	p.initMu.Lock()
	defer p.initMu.Unlock()
	return p.vectorSize
}

// ExtractionEnabled reports whether NPC extraction can run at all.
func (p *Pipeline) ExtractionEnabled() bool {
	return p.extractionEnabled && p.npcProc != nil
}

// Init determines the vector size and ensures every destination collection
// exists. It is called on first use and may be called again safely.
func (p *Pipeline) Init(ctx context.Context) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()
	if p.initialized {
		return nil
	}

	if p.vectorSize == 0 {
		vectors, err := embedAll(ctx, p.embedder, p.embedRetry, p.logger, []string{dimensionProbe})
		if err != nil {
			return fmt.Errorf("%w: probe dimension: %w", ErrEmbedding, err)
		}
		if len(vectors[0]) == 0 {
			return fmt.Errorf("%w: embedder returned an empty vector", ErrEmbedding)
		}
		p.vectorSize = len(vectors[0])
		p.logger.Info("probed embedding dimension", "dimension", p.vectorSize)
	}

	for _, category := range core.Categories() {
		name := p.collections.Name(category)
		err := p.storeRetry.Do(ctx, p.logger, func(ctx context.Context) error {
			return p.store.EnsureCollection(ctx, name, p.vectorSize, p.distance)
		})
		if err != nil {
			return fmt.Errorf("%w: ensure collection %s: %w", ErrStore, name, err)
		}
	}

	p.initialized = true
	return nil
}

// FileOptions controls the ingestion of one document.
type FileOptions struct {
	// SkipIfExists skips documents that already have points in their routed collection.
	SkipIfExists bool

	// ExtractNPCs requests NPC extraction. It is ignored when extraction is
	// disabled and for adventure path documents.
	ExtractNPCs bool
}

// DirectoryOptions controls a directory run.
type DirectoryOptions struct {
	FileOptions
	Recursive bool
}

// ProcessFile ingests one document. It never returns nil; failures are
// reported on the Result.
func (p *Pipeline) ProcessFile(ctx context.Context, path string, opts FileOptions) *Result {
	start := time.Now()
	category := p.router.Route(path)
	res := &Result{
		Path:       path,
		Category:   category,
		Collection: p.collections.Name(category),
	}
	defer func() {
		res.ProcessingTime = time.Since(start).Seconds()
	}()

	logger := p.logger.With("path", path)

	if err := p.Init(ctx); err != nil {
		logger.Error("pipeline initialization failed", "err", err)
		return failWith(res, StageCheck, err)
	}

	doc, err := p.read(ctx, path)
	if err != nil {
		logger.Error("error reading document", "err", err)
		return res.fail(StageRead, ErrRead, err)
	}

	chunks := p.chunker.Chunks(doc)
	if len(chunks) == 0 {
		logger.Warn("document produced no chunks")
		return res.fail(StageChunk, ErrEmptyDocument, nil)
	}

	unlock, err := p.locker.Lock(ctx, path)
	if err != nil {
		return res.fail(StageLock, ErrLock, err)
	}
	defer unlock()

	if opts.SkipIfExists {
		var exists bool
		err := p.storeRetry.Do(ctx, p.logger, func(ctx context.Context) error {
			var err error
			exists, err = storage.Exists(ctx, p.store, res.Collection, storage.MatchFile(path))
			return err
		})
		if err != nil {
			logger.Error("error checking existing records", "err", err)
			return res.fail(StageCheck, ErrStore, err)
		}
		if exists {
			logger.Info("skipping already imported document", "collection", res.Collection)
			res.Success = true
			res.Status = StatusSkipped
			res.SkippedExisting = true
			return res
		}
	}

	d := &document{
		doc:        doc,
		category:   category,
		collection: res.Collection,
		chunks:     chunks,
		importedAt: start.UTC(),
		result:     res,
	}

	if err := p.embeddingProc.process(ctx, d); err != nil {
		return failWith(res, StageEmbed, err)
	}

	switch {
	case !p.ExtractionEnabled():
		res.skipExtraction(SkipReasonDisabled)
	case !opts.ExtractNPCs:
		res.skipExtraction(SkipReasonNotRequested)
	case !p.router.ExtractionEligible(path):
		res.skipExtraction(SkipReasonAdventurePath)
	default:
		if err := p.npcProc.process(ctx, d); err != nil {
			return failWith(res, StageExtract, err)
		}
	}

	res.Success = true
	res.Status = StatusDone
	logger.Info("document imported",
		"category", category,
		"chunks", res.ChunksCreated,
		"npcs", res.NPCsExtracted,
		"elapsed", time.Since(start))
	return res
}

func (p *Pipeline) read(ctx context.Context, path string) (*core.Document, error) {
	src, err := p.sources.For(path)
	if err != nil {
		return nil, err
	}
	raw, err := src.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	text, err := source.Decode(path, raw)
	if err != nil {
		return nil, err
	}
	doc := normalize.Document(path, text)
	// Hash the bytes as stored, not the decoded text.
	doc.Metadata.ContentHash = core.ContentHash(raw)
	return doc, nil
}

// ProcessFiles ingests paths on the worker pool. Results are returned in the
// order of paths regardless of completion order.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string, opts FileOptions) []*Result {
	results := make([]*Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(paths), 1)
		tracker.Start()
		defer tracker.Finish()
	}

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = p.ProcessFile(ctx, path, opts)
			if tracker != nil {
				tracker.Increment(1)
			}
		}
		if err := p.pool.Submit(task); err != nil {
			p.logger.Warn("worker pool rejected task, running inline", "path", path, "err", err)
			task()
		}
	}
	wg.Wait()

	return results
}

// ProcessDirectory enumerates root (an s3:// prefix or a local directory),
// sorts the matching documents and ingests each one independently.
// The error is non-nil only when enumeration fails.
func (p *Pipeline) ProcessDirectory(ctx context.Context, root string, opts DirectoryOptions) ([]*Result, error) {
	src, err := p.sources.For(root)
	if err != nil {
		return nil, err
	}
	paths, err := src.List(ctx, root, source.ListOptions{
		Recursive:   opts.Recursive,
		IncludeRich: p.includeRich,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	p.logger.Info("processing directory", "root", root, "files", len(paths), "recursive", opts.Recursive)
	return p.ProcessFiles(ctx, paths, opts.FileOptions), nil
}

// DeleteFile removes every point whose file_path is path from all destination
// collections and returns the number deleted per category.
func (p *Pipeline) DeleteFile(ctx context.Context, path string) (map[core.Category]int, error) {
	unlock, err := p.locker.Lock(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLock, err)
	}
	defer unlock()

	deleted := make(map[core.Category]int, len(core.Categories()))
	for _, category := range core.Categories() {
		name := p.collections.Name(category)
		var n int
		err := p.storeRetry.Do(ctx, p.logger, func(ctx context.Context) error {
			var err error
			n, err = storage.DeleteWhere(ctx, p.store, name, storage.MatchFile(path))
			return err
		})
		if errors.Is(err, storage.ErrCollectionNotFound) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("%w: delete from %s: %w", ErrStore, name, err)
		}
		deleted[category] = n
	}

	p.logger.Info("deleted document records", "path", path, "deleted", deleted)
	return deleted, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
