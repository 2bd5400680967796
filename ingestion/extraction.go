package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeeper/ai"
	"github.com/poiesic/lorekeeper/core"
	"github.com/poiesic/lorekeeper/npc"
	"github.com/poiesic/lorekeeper/storage"
)

// npcProcessor extracts NPC records from a document's candidate chunk groups
// and upserts them into the NPC collection.
type npcProcessor struct {
	store      storage.VectorStore
	embedder   ai.Embedder
	extractor  *npc.Extractor
	collection string
	embedRetry RetryPolicy
	storeRetry RetryPolicy
	logger     *slog.Logger
}

var _ processor = (*npcProcessor)(nil)

// newNPCProcessor creates a new npc processor.
func newNPCProcessor(
	store storage.VectorStore,
	embedder ai.Embedder,
	extractor *npc.Extractor,
	collection string,
	embedRetry, storeRetry RetryPolicy,
	logger *slog.Logger,
) (*npcProcessor, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if extractor == nil {
		return nil, fmt.Errorf("npc extractor required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &npcProcessor{
		store:      store,
		embedder:   embedder,
		extractor:  extractor,
		collection: collection,
		embedRetry: embedRetry,
		storeRetry: storeRetry,
		logger:     logger.With("processor", "npcs"),
	}, nil
}

// process never fails the document. The extractor reports its own problems
// as an empty result; embedding or store failures for extracted records are
// recorded on the result and leave the NPC count at zero.
func (np *npcProcessor) process(ctx context.Context, d *document) error {
	npcs := np.extractor.ExtractFromChunks(ctx, d.texts(), d.doc.Path)
	if err := ctx.Err(); err != nil {
		np.logger.Warn("npc extraction interrupted", "path", d.doc.Path, "err", fmt.Errorf("%w: %w", ErrExtraction, err))
		return nil
	}
	if len(npcs) == 0 {
		np.logger.Debug("no npcs extracted", "path", d.doc.Path)
		return nil
	}

	texts := make([]string, len(npcs))
	for i := range npcs {
		texts[i] = npcs[i].EmbeddingText()
	}
	vectors, err := embedAll(ctx, np.embedder, np.embedRetry, np.logger, texts)
	if err != nil {
		np.fail(d, fmt.Errorf("%w: %w", ErrEmbedding, err))
		return nil
	}

	points := make([]storage.Point, 0, len(npcs))
	for i := range npcs {
		payload, err := npcPayload(&npcs[i], d.importedAt)
		if err != nil {
			np.logger.Warn("dropping npc", "path", d.doc.Path, "name", npcs[i].Name, "err", fmt.Errorf("%w: %w", ErrExtraction, err))
			continue
		}
		points = append(points, storage.Point{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: payload,
		})
	}
	if len(points) == 0 {
		return nil
	}

	err = np.storeRetry.Do(ctx, np.logger, func(ctx context.Context) error {
		return np.store.Upsert(ctx, np.collection, points...)
	})
	if err != nil {
		np.fail(d, fmt.Errorf("%w: %w", ErrStore, err))
		return nil
	}

	np.logger.Info("extracted npcs", "path", d.doc.Path, "npcs", len(points))
	d.result.NPCsExtracted = len(points)
	return nil
}

func (np *npcProcessor) fail(d *document, err error) {
	err = fmt.Errorf("%w: %w", ErrExtraction, err)
	np.logger.Error("error storing npcs", "path", d.doc.Path, "collection", np.collection, "err", err)
	d.result.NPCsExtracted = 0
	d.result.extractionFailed(err)
}

// npcPayload flattens n and adds the fields shared with chunk points so that
// file-scoped deletes reach NPC records.
func npcPayload(n *core.NPC, importedAt time.Time) (map[string]any, error) {
	payload, err := n.Payload()
	if err != nil {
		return nil, err
	}
	payload[storage.PayloadFilePath] = n.SourceFile
	payload[PayloadFilename] = core.Filename(n.SourceFile)
	payload[PayloadCategory] = core.CategoryNPC.String()
	payload[PayloadImportedAt] = importedAt.Format(time.RFC3339)
	return payload, nil
}
