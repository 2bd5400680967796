package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeeper/ai"
	"github.com/poiesic/lorekeeper/storage"
)

// Payload keys written on every chunk point.
const (
	PayloadText        = "text"
	PayloadFilename    = "filename"
	PayloadChunkIndex  = "chunk_index"
	PayloadTotalChunks = "total_chunks"
	PayloadCategory    = "category"
	PayloadHints       = "content_hints"
	PayloadTitle       = "title"
	PayloadContentHash = "content_hash"
	PayloadImportedAt  = "imported_at"
)

// embeddingProcessor embeds a document's chunks in one batch and upserts
// one point per chunk into the document's collection.
type embeddingProcessor struct {
	store      storage.VectorStore
	embedder   ai.Embedder
	embedRetry RetryPolicy
	storeRetry RetryPolicy
	logger     *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(store storage.VectorStore, embedder ai.Embedder, embedRetry, storeRetry RetryPolicy, logger *slog.Logger) (*embeddingProcessor, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		store:      store,
		embedder:   embedder,
		embedRetry: embedRetry,
		storeRetry: storeRetry,
		logger:     logger.With("processor", "embeddings"),
	}, nil
}

func (ep *embeddingProcessor) process(ctx context.Context, d *document) error {
	texts := d.texts()

	ep.logger.Debug("generating embeddings for chunks", "path", d.doc.Path, "chunks", len(texts))
	vectors, err := embedAll(ctx, ep.embedder, ep.embedRetry, ep.logger, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "path", d.doc.Path, "err", err)
		return newStageError(StageEmbed, ErrEmbedding, err)
	}

	meta := d.doc.Metadata
	points := make([]storage.Point, len(d.chunks))
	for i, chunk := range d.chunks {
		points[i] = storage.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				PayloadText:             chunk.Text,
				storage.PayloadFilePath: chunk.FilePath,
				PayloadFilename:         chunk.Filename,
				PayloadChunkIndex:       chunk.Index,
				PayloadTotalChunks:      chunk.Total,
				PayloadCategory:         d.category.String(),
				PayloadHints:            chunk.Hints.Tags(),
				PayloadTitle:            meta.Title,
				PayloadContentHash:      meta.ContentHash,
				PayloadImportedAt:       d.importedAt.Format(time.RFC3339),
			},
		}
	}

	err = ep.storeRetry.Do(ctx, ep.logger, func(ctx context.Context) error {
		return ep.store.Upsert(ctx, d.collection, points...)
	})
	if err != nil {
		ep.logger.Error("error upserting chunks", "path", d.doc.Path, "collection", d.collection, "err", err)
		return newStageError(StageUpsert, ErrStore, err)
	}

	d.result.ChunksCreated = len(points)
	return nil
}

// embedAll embeds texts in one provider call under policy and checks the result shape.
func embedAll(ctx context.Context, embedder ai.Embedder, policy RetryPolicy, logger *slog.Logger, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := policy.Do(ctx, logger, func(ctx context.Context) error {
		var err error
		vectors, err = embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(vectors))
	}
	return vectors, nil
}
