// Package search answers free-text queries against the goal index.
package search

import (
	"context"
	"errors"
	"fmt"

	"dryad/internal/contextutil"
	"dryad/internal/metrics"
	"dryad/internal/storage"
	"dryad/internal/vectorstore"
)

const (
	// CandidateLimit is the number of nearest goals fetched per query.
	// Several goals of one file can match, so it exceeds PageSize.
	CandidateLimit = 30
	// PageSize is the maximum number of files returned.
	PageSize = 10
)

// Embedder turns texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is one matching file and its best-matching goal.
type Result struct {
	Path       string  `json:"path"`
	Language   string  `json:"language"`
	Goal       string  `json:"goal"`
	Score      float32 `json:"score"`
	TreeCommit string  `json:"treeCommit"`
}

// Aggregator turns goal-level vector hits into a file-level result page.
type Aggregator struct {
	embedder Embedder
	vectors  vectorstore.VectorStore
	files    storage.FileStore
	metrics  *metrics.Metrics
}

// NewAggregator creates a new Aggregator.
func NewAggregator(embedder Embedder, vectors vectorstore.VectorStore, files storage.FileStore, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		embedder: embedder,
		vectors:  vectors,
		files:    files,
		metrics:  m,
	}
}

// Search returns up to PageSize files ranked by their best goal match.
// Each file appears once, with the first (highest scoring) goal that matched.
func (a *Aggregator) Search(ctx context.Context, query string) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	a.metrics.SearchRequest()

	embeddings, err := a.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	candidates, err := a.vectors.Search(ctx, embeddings[0], CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	results := make([]Result, 0, PageSize)
	seen := make(map[int64]struct{}, PageSize)
	for _, c := range candidates {
		if len(results) == PageSize {
			break
		}

		gf, err := a.files.GetGoalAndFile(ctx, c.PointID)
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted between the vector lookup and the join.
			a.metrics.JoinMiss()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load goal %s: %w", c.PointID, err)
		}

		if _, ok := seen[gf.File.ID]; ok {
			continue
		}
		seen[gf.File.ID] = struct{}{}

		results = append(results, Result{
			Path:       gf.File.Path,
			Language:   gf.File.Language,
			Goal:       gf.Goal,
			Score:      c.Score,
			TreeCommit: gf.File.TreeCommit,
		})
	}

	logger.DebugContext(ctx, "search completed", "candidates", len(candidates), "results", len(results))
	return results, nil
}
