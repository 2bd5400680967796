package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrNotInitialized is returned when processing starts before Init.
	ErrNotInitialized = errors.New("pipeline not initialized")

	// ErrInvalidMaxAttempts is returned when the retry attempt count is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")
)

// Per-document failure categories. A Result's error wraps exactly one of these.
var (
	// ErrRead indicates the document could not be read or decoded.
	ErrRead = errors.New("read failed")

	// ErrEmptyDocument indicates the document produced no text to index.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrEmbedding indicates the embedding provider failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrLock indicates the per-path lock could not be acquired.
	ErrLock = errors.New("lock failed")

	// ErrStore indicates the vector store failed.
	ErrStore = errors.New("vector store failed")

	// ErrExtraction indicates NPC extraction failed. It is logged and never
	// fails a document.
	ErrExtraction = errors.New("npc extraction failed")
)
