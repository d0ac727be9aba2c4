package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"dryad/internal/contextutil"
)

// GoalVectorSource streams the goal vectors held by the primary store.
type GoalVectorSource interface {
	EachGoalVector(ctx context.Context, fn func(goalID string, vector []float32) error) error
}

// SQLiteStore is a brute-force cosine index over the goal vectors already
// stored in SQLite. The vectors are written by the storage transaction that
// writes the goals, so Upsert and Delete have nothing to do and the index is
// always consistent with the file records.
type SQLiteStore struct {
	source GoalVectorSource
}

// NewSQLiteStore creates a brute-force store reading from source.
func NewSQLiteStore(source GoalVectorSource) *SQLiteStore {
	return &SQLiteStore{source: source}
}

// Upsert is a no-op; vectors are persisted with their goals.
func (s *SQLiteStore) Upsert(ctx context.Context, points []Point) error {
	return nil
}

// Delete is a no-op; vectors are removed with their goals.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	return nil
}

// Check always succeeds; the source is the already-open database.
func (s *SQLiteStore) Check(ctx context.Context) error {
	return nil
}

// Search scans every stored vector and returns the top k by cosine similarity.
// Vectors with a different dimension than query, or zero magnitude, are skipped.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	qm := magnitude(query)
	if qm == 0 {
		return []SearchResult{}, nil
	}

	type scored struct {
		id    string
		score float64
	}
	var scoreds []scored
	skipped := 0
	err := s.source.EachGoalVector(ctx, func(goalID string, vector []float32) error {
		if len(vector) != len(query) {
			skipped++
			return nil
		}
		vm := magnitude(vector)
		if vm == 0 {
			return nil
		}
		score := dot(query, vector) / (qm * vm)
		if math.IsNaN(score) {
			return nil
		}
		scoreds = append(scoreds, scored{id: goalID, score: score})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan goal vectors: %w", err)
	}
	if skipped > 0 {
		logger.WarnContext(ctx, "skipped vectors with mismatched dimension", "count", skipped, "query_dim", len(query))
	}

	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].score > scoreds[b].score })
	if k > len(scoreds) {
		k = len(scoreds)
	}

	results := make([]SearchResult, k)
	for i := 0; i < k; i++ {
		results[i] = SearchResult{
			PointID: scoreds[i].id,
			Score:   float32(scoreds[i].score),
		}
	}
	return results, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func magnitude(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
