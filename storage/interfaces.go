package storage

import (
	"context"
	"fmt"
	"strings"
)

// PayloadFilePath is the payload field holding a point's source document path.
const PayloadFilePath = "file_path"

// Distance is the similarity metric of a collection.
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceEuclid Distance = "Euclid"
	DistanceDot    Distance = "Dot"
)

// ParseDistance converts a case-insensitive metric name into a Distance.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine":
		return DistanceCosine, nil
	case "euclid", "euclidean", "l2":
		return DistanceEuclid, nil
	case "dot", "inner":
		return DistanceDot, nil
	}
	return "", fmt.Errorf("%w: unknown distance %q", ErrInvalidQuery, s)
}

// Point is a single stored vector with its payload.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// ScoredPoint is a search hit. Higher scores are closer matches.
type ScoredPoint struct {
	Point
	Score float32 `json:"score"`
}

// Filter selects points whose payload field equals Value.
type Filter struct {
	Field string
	Value string
}

// MatchFile filters points by their source document path.
func MatchFile(path string) *Filter {
	return &Filter{Field: PayloadFilePath, Value: path}
}

// Matches reports whether payload satisfies the filter. A nil filter matches everything.
func (f *Filter) Matches(payload map[string]any) bool {
	if f == nil {
		return true
	}
	v, ok := payload[f.Field]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s == f.Value
}

// ScrollPage is one page of a scroll. Next is empty on the last page.
type ScrollPage struct {
	Points []Point
	Next   string
}

// CollectionStats describes a collection's size and health.
type CollectionStats struct {
	Name        string   `json:"name"`
	PointCount  int      `json:"point_count"`
	VectorCount int      `json:"vector_count"`
	VectorSize  int      `json:"vector_size"`
	Distance    Distance `json:"distance"`
	Status      string   `json:"status"`
}

// StatusGreen is reported for a readable collection.
const StatusGreen = "green"

// VectorStore persists points in named collections.
type VectorStore interface {
	// EnsureCollection creates the collection if missing. An existing collection
	// with a different vector size yields ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, name string, vectorSize int, distance Distance) error

	// Upsert writes points, replacing any with the same ID.
	// Every vector must match the collection's vector size.
	Upsert(ctx context.Context, collection string, points ...Point) error

	// Scroll returns up to limit points matching filter, ordered by ID,
	// starting at the offset cursor from a previous page ("" for the first page).
	Scroll(ctx context.Context, collection string, filter *Filter, limit int, offset string) (*ScrollPage, error)

	// Delete removes points by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, collection string, ids ...string) error

	// Stats reports point counts for the collection.
	Stats(ctx context.Context, collection string) (*CollectionStats, error)

	// Search returns the limit closest points to vector, best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, filter *Filter) ([]ScoredPoint, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
