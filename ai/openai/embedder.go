package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/lorekeeper/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token(config)),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	embeddings, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}

	if len(embeddings) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}

	return embeddings[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	embeddings, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(embeddings), len(texts))
	}
	for i := 1; i < len(embeddings); i++ {
		if len(embeddings[i]) != len(embeddings[0]) {
			return nil, fmt.Errorf("embedding service returned vectors of length %d and %d", len(embeddings[0]), len(embeddings[i]))
		}
	}

	return embeddings, nil
}

// token returns the bearer token for the client.
// Local OpenAI-compatible services accept any non-empty token.
func token(config *ai.Config) string {
	if config.APIKey == "" {
		return "none"
	}
	return config.APIKey
}
