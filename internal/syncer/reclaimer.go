package syncer

import (
	"context"

	"dryad/internal/contextutil"
	"dryad/internal/metrics"
	"dryad/internal/storage"
	"dryad/internal/vectorstore"
)

// ReclaimBatchSize is the number of dead files removed per batch.
const ReclaimBatchSize = 10

// Reclaimer removes files that are no longer part of the target commit.
type Reclaimer struct {
	files   storage.FileStore
	vectors vectorstore.VectorStore
	metrics *metrics.Metrics
	batch   int
}

// NewReclaimer creates a new Reclaimer.
func NewReclaimer(files storage.FileStore, vectors vectorstore.VectorStore, m *metrics.Metrics) *Reclaimer {
	return &Reclaimer{
		files:   files,
		vectors: vectors,
		metrics: m,
		batch:   ReclaimBatchSize,
	}
}

// ClearDeadFilesBatch removes one batch of dead files. more is false once no
// dead file remains (the commit is then marked done) or when the sync state
// no longer targets commit.
func (r *Reclaimer) ClearDeadFilesBatch(ctx context.Context, commit string) (removed int, more bool, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	batch, err := r.files.ClaimDeadBatch(ctx, commit, r.batch)
	if err != nil {
		return 0, false, err
	}

	switch {
	case batch.Stale:
		logger.DebugContext(ctx, "skipping reclaim for stale commit", "commit", commit)
		return 0, false, nil
	case batch.Done:
		logger.InfoContext(ctx, "commit converged", "commit", commit)
		return 0, false, nil
	}

	for _, f := range batch.Removed {
		logger.InfoContext(ctx, "reclaimed dead file", "path", f.Path, "tree_commit", f.TreeCommit)
	}
	r.metrics.FilesReclaimed(len(batch.Removed))

	if len(batch.GoalIDs) > 0 {
		if err := r.vectors.Delete(ctx, batch.GoalIDs); err != nil {
			logger.WarnContext(ctx, "failed to delete vectors of dead files", "error", err, "count", len(batch.GoalIDs))
		}
	}
	return len(batch.Removed), true, nil
}
