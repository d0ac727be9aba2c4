package syncer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"time"

	"github.com/google/uuid"

	"dryad/internal/contextutil"
	"dryad/internal/metrics"
	"dryad/internal/source"
	"dryad/internal/storage"
	"dryad/internal/vectorstore"
)

const (
	// FilesPerPass caps the files (re)indexed by one pass.
	FilesPerPass = 10
	// DefaultByteLimit is the size ceiling used when settings have none.
	DefaultByteLimit = 24000
)

// ErrEmbeddingMismatch is returned when the embedder does not return one
// vector per goal.
var ErrEmbeddingMismatch = errors.New("embedding count mismatch")

// PassResult reports the outcome of one bounded pass.
type PassResult struct {
	Indexed int
	// Covered is set when every eligible entry of the tree was visited
	// without reaching the per-pass cap.
	Covered bool
}

// Indexer runs bounded passes over the tree of a commit.
type Indexer struct {
	source     SourceProvider
	summarizer Summarizer
	embedder   Embedder
	files      storage.FileStore
	vectors    vectorstore.VectorStore
	metrics    *metrics.Metrics
	shuffle    func([]source.TreeEntry)
	limit      int
}

// NewIndexer creates a new Indexer.
func NewIndexer(
	src SourceProvider,
	summarizer Summarizer,
	embedder Embedder,
	files storage.FileStore,
	vectors vectorstore.VectorStore,
	m *metrics.Metrics,
) *Indexer {
	return &Indexer{
		source:     src,
		summarizer: summarizer,
		embedder:   embedder,
		files:      files,
		vectors:    vectors,
		metrics:    m,
		shuffle:    shuffleEntries,
		limit:      FilesPerPass,
	}
}

func shuffleEntries(entries []source.TreeEntry) {
	rand.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}

// Pass lists the tree at commit and indexes pending files until the tree is
// covered or the per-pass cap is reached. Any error aborts the pass; files
// indexed before it stay committed.
func (ix *Indexer) Pass(ctx context.Context, settings *storage.Settings, commit string) (PassResult, error) {
	logger := contextutil.LoggerFromContext(ctx)
	var result PassResult

	entries, err := ix.source.ListTree(ctx, settings.Org, settings.Repo, commit)
	if err != nil {
		return result, err
	}
	eligible := newFilter(settings).apply(entries)
	ix.shuffle(eligible)

	logger.DebugContext(ctx, "starting pass", "commit", commit, "entries", len(entries), "eligible", len(eligible))

	for _, entry := range eligible {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pending, err := ix.files.CheckPending(ctx, entry.Path, entry.BlobSHA, commit)
		if err != nil {
			return result, fmt.Errorf("failed to check %s: %w", entry.Path, err)
		}
		if !pending {
			continue
		}

		if err := ix.indexFile(ctx, settings, commit, entry); err != nil {
			return result, err
		}
		result.Indexed++
		ix.metrics.FilesIndexed(1)

		if result.Indexed >= ix.limit {
			return result, nil
		}
	}

	result.Covered = true
	return result, nil
}

// indexFile summarizes, embeds and stores one file. Vector points are
// written before the rows so a failure leaves the file pending.
func (ix *Indexer) indexFile(ctx context.Context, settings *storage.Settings, commit string, entry source.TreeEntry) error {
	logger := contextutil.LoggerFromContext(ctx)

	content, err := ix.source.FetchBlob(ctx, settings.Org, settings.Repo, entry.BlobSHA)
	if err != nil {
		return err
	}

	start := time.Now()
	summary, err := ix.summarizer.Summarize(ctx, entry.Path, content, settings.ChatModel)
	ix.metrics.ObserveSummarize(start)
	if err != nil {
		return err
	}

	var vectors [][]float32
	if len(summary.Goals) > 0 {
		vectors, err = ix.embedder.EmbedTexts(ctx, summary.Goals)
		if err != nil {
			return fmt.Errorf("failed to embed goals of %s: %w", entry.Path, err)
		}
		if len(vectors) != len(summary.Goals) {
			return fmt.Errorf("%w for %s: expected %d, got %d", ErrEmbeddingMismatch, entry.Path, len(summary.Goals), len(vectors))
		}
	}

	goals := make([]storage.GoalEmbedding, len(summary.Goals))
	points := make([]vectorstore.Point, len(summary.Goals))
	newIDs := make([]string, len(summary.Goals))
	for i, goal := range summary.Goals {
		id := uuid.New().String()
		goals[i] = storage.GoalEmbedding{ID: id, Goal: goal, Vector: vectors[i]}
		points[i] = vectorstore.Point{
			ID:  id,
			Vec: vectors[i],
			Meta: map[string]any{
				"path":     entry.Path,
				"goal":     goal,
				"language": summary.Language,
				"commit":   commit,
			},
		}
		newIDs[i] = id
	}

	if len(points) > 0 {
		if err := ix.vectors.Upsert(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert vectors of %s: %w", entry.Path, err)
		}
	}

	file := &storage.FileRecord{
		Path:       entry.Path,
		Language:   summary.Language,
		FileSHA:    entry.BlobSHA,
		TreeCommit: commit,
	}
	replaced, err := ix.files.Index(ctx, file, goals)
	if err != nil {
		ix.dropVectors(ctx, newIDs)
		return fmt.Errorf("failed to store %s: %w", entry.Path, err)
	}
	ix.dropVectors(ctx, replaced)

	logger.InfoContext(ctx, "indexed file", "path", entry.Path, "language", file.Language, "goals", len(goals))
	return nil
}

// dropVectors removes points from the vector index. Stale points are
// tolerated by search, so failures are only logged.
func (ix *Indexer) dropVectors(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := ix.vectors.Delete(ctx, ids); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to delete vectors", "error", err, "count", len(ids))
	}
}

// filter decides which tree entries are indexed at all.
type filter struct {
	extensions map[string]struct{}
	excluded   map[string]struct{}
	byteLimit  int64
}

func newFilter(settings *storage.Settings) filter {
	f := filter{
		extensions: make(map[string]struct{}, len(settings.Extensions)),
		excluded:   make(map[string]struct{}, len(settings.Exclusions)),
		byteLimit:  DefaultByteLimit,
	}
	for _, ext := range settings.Extensions {
		f.extensions[ext] = struct{}{}
	}
	for _, p := range settings.Exclusions {
		f.excluded[p] = struct{}{}
	}
	if settings.ByteLimit != nil {
		f.byteLimit = int64(*settings.ByteLimit)
	}
	return f
}

func (f filter) allows(entry source.TreeEntry) bool {
	if _, ok := f.extensions[path.Ext(entry.Path)]; !ok {
		return false
	}
	if entry.Size >= f.byteLimit {
		return false
	}
	_, excluded := f.excluded[entry.Path]
	return !excluded
}

func (f filter) apply(entries []source.TreeEntry) []source.TreeEntry {
	out := make([]source.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if f.allows(e) {
			out = append(out, e)
		}
	}
	return out
}
