package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks dryad/internal/vectorstore VectorStore

import "context"

// Point represents a goal vector with metadata.
type Point struct {
	ID   string // Goal UUID
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32 // Cosine similarity, higher is closer
	Meta    map[string]any
}

// VectorStore is the nearest-neighbour index over goal vectors.
// It is not transactional with the SQLite store: callers must tolerate
// results whose goal no longer exists.
type VectorStore interface {
	// Upsert inserts or updates points.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to k points ordered by descending cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Check reports whether the index is reachable and usable.
	Check(ctx context.Context) error
}
