package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains equal-length embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer runs a single chat completion against a language model.
// The response is free-form text that callers must treat as unreliable: it is
// expected, but not guaranteed, to be JSON when the prompt asks for JSON.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends the system instruction and user prompt and returns the model's reply.
	// Returns an error on transport or service failures.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Completer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the structured-extraction completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
