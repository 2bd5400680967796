package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// DefaultDimension is the vector width produced by NewMockEmbedder.
const DefaultDimension = 384

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	dim       int
	mu        sync.Mutex
	callCount int
	texts     int
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockEmbedder().
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{dim: DefaultDimension}
}

// WithDimension changes the width of generated vectors.
func (m *MockEmbedder) WithDimension(dim int) *MockEmbedder {
	m.dim = dim
	return m
}

// WithEmbedTextsFunc installs custom batch behavior.
func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

// Dimension reports the width of generated vectors.
func (m *MockEmbedder) Dimension() int {
	return m.dim
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.record(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}

	return generateDeterministicVector(text, m.dim), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.record(len(texts))

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = generateDeterministicVector(text, m.dim)
	}
	return embeddings, nil
}

func (m *MockEmbedder) record(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.texts += n
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// TextCount returns the total number of texts embedded.
func (m *MockEmbedder) TextCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texts
}

// Reset clears the call counts and custom functions.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.texts = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// generateDeterministicVector creates a deterministic embedding vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
