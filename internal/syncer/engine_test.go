package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dryad/internal/llm"
	"dryad/internal/source"
	"dryad/internal/storage"
	"dryad/internal/syncer/mocks"
	"dryad/internal/vectorstore"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeSource serves trees and blobs from memory.
type fakeSource struct {
	head  string
	trees map[string][]source.TreeEntry
	blobs map[string][]byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		trees: make(map[string][]source.TreeEntry),
		blobs: make(map[string][]byte),
	}
}

// setTree publishes files as the tree of commit and makes it the head.
// Entries are listed in path order.
func (s *fakeSource) setTree(commit string, files map[string]string) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]source.TreeEntry, 0, len(paths))
	for _, p := range paths {
		content := files[p]
		sha := blobSHA(content)
		s.blobs[sha] = []byte(content)
		entries = append(entries, source.TreeEntry{Path: p, BlobSHA: sha, Size: int64(len(content))})
	}
	s.trees[commit] = entries
	s.head = commit
}

func blobSHA(content string) string {
	return "blob-" + content
}

func (s *fakeSource) HeadCommit(ctx context.Context, org, repo, branch string) (string, error) {
	return s.head, nil
}

func (s *fakeSource) ListTree(ctx context.Context, org, repo, commit string) ([]source.TreeEntry, error) {
	entries, ok := s.trees[commit]
	if !ok {
		return nil, fmt.Errorf("%w: no tree %s", source.ErrUpstreamUnavailable, commit)
	}
	return slices.Clone(entries), nil
}

func (s *fakeSource) FetchBlob(ctx context.Context, org, repo, sha string) ([]byte, error) {
	content, ok := s.blobs[sha]
	if !ok {
		return nil, fmt.Errorf("%w: no blob %s", source.ErrUpstreamUnavailable, sha)
	}
	return content, nil
}

// fakeSummarizer returns two goals per file.
type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(ctx context.Context, path string, content []byte, model string) (llm.Summary, error) {
	return llm.Summary{
		Language: "Go",
		Goals:    []string{"handle " + path, "test " + path},
	}, nil
}

// fakeEmbedder returns a two-dimensional vector per text and counts calls.
type fakeEmbedder struct {
	calls int
}

func (e *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

type testEnv struct {
	db       *sql.DB
	files    *storage.FileRepo
	state    *storage.SyncStateRepo
	settings *storage.SettingsRepo
	logs     *storage.LogRepo
	source   *fakeSource
	embedder *fakeEmbedder
	indexer  *Indexer
	engine   *Engine
}

// newTestEnv builds an initialized engine over a temp database. A nil
// summarizer uses fakeSummarizer. Passes visit entries in tree order.
func newTestEnv(t *testing.T, summarizer Summarizer) *testEnv {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "dryad.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(db))

	env := &testEnv{
		db:       db,
		files:    storage.NewFileRepo(db),
		state:    storage.NewSyncStateRepo(db),
		settings: storage.NewSettingsRepo(db),
		logs:     storage.NewLogRepo(db),
		source:   newFakeSource(),
		embedder: &fakeEmbedder{},
	}
	require.NoError(t, env.state.Init(context.Background(), &storage.Settings{
		Org:        "acme",
		Repo:       "widgets",
		Branch:     "main",
		Extensions: []string{".go"},
	}))

	if summarizer == nil {
		summarizer = fakeSummarizer{}
	}
	vectors := vectorstore.NewSQLiteStore(env.files)
	env.indexer = NewIndexer(env.source, summarizer, env.embedder, env.files, vectors, nil)
	env.indexer.shuffle = func([]source.TreeEntry) {}
	env.engine = NewEngine(env.settings, env.state, env.source, env.indexer, NewReclaimer(env.files, vectors, nil), nil)
	return env
}

// logOps returns the event log in cursor order as "op path-or-sha".
func (env *testEnv) logOps(t *testing.T) []string {
	t.Helper()
	entries, err := env.logs.Recent(context.Background(), 1000)
	require.NoError(t, err)
	slices.Reverse(entries)

	ops := make([]string, len(entries))
	for i, e := range entries {
		key := e.Path
		if key == "" {
			key = e.SHA
		}
		ops[i] = string(e.Operator) + " " + key
	}
	return ops
}

func (env *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, env.db.QueryRow(query, args...).Scan(&n))
	return n
}

func countOps(ops []string, prefix string) int {
	n := 0
	for _, op := range ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

func TestEngine_Sync_NotInitialized(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "dryad.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(db))

	files := storage.NewFileRepo(db)
	vectors := vectorstore.NewSQLiteStore(files)
	src := newFakeSource()
	engine := NewEngine(
		storage.NewSettingsRepo(db),
		storage.NewSyncStateRepo(db),
		src,
		NewIndexer(src, fakeSummarizer{}, &fakeEmbedder{}, files, vectors, nil),
		NewReclaimer(files, vectors, nil),
		nil,
	)

	_, err = engine.Sync(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotInitialized)
}

func TestEngine_Sync_FirstCommit(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.source.setTree("sha1", map[string]string{
		"a.go":      "package a",
		"b.go":      "package b",
		"README.md": "# widgets",
		"big.go":    strings.Repeat("x", DefaultByteLimit),
	})

	result, err := env.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Done: true, Phase: PhaseReclaiming, Commit: "sha1", Indexed: 2}, result)
	assert.Equal(t, PhaseReclaiming, env.engine.Phase())

	assert.Equal(t, []string{"start sha1", "add a.go", "add b.go", "finish sha1"}, env.logOps(t))
	assert.Equal(t, 2, env.count(t, "SELECT COUNT(*) FROM files"))
	assert.Equal(t, 4, env.count(t, "SELECT COUNT(*) FROM file_goals"))

	state, err := env.state.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, &storage.SyncState{Commit: "sha1", CommitDone: true}, state)

	// Nothing new upstream: idle, nothing written.
	result, err = env.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Done: true, Phase: PhaseIdle, Commit: "sha1"}, result)
	assert.Equal(t, PhaseIdle, env.engine.Phase())
	assert.Len(t, env.logOps(t), 4)
}

func TestEngine_Sync_UnchangedAndNewFile(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.source.setTree("sha1", map[string]string{"a.go": "package a"})
	_, err := env.engine.Sync(ctx)
	require.NoError(t, err)
	embedCalls := env.embedder.calls

	env.source.setTree("sha2", map[string]string{"a.go": "package a", "b.go": "package b"})
	require.NoError(t, env.state.StartCommit(ctx, "sha2"))

	settings, err := env.settings.Get(ctx)
	require.NoError(t, err)
	pass, err := env.indexer.Pass(ctx, settings, "sha2")
	require.NoError(t, err)
	assert.Equal(t, PassResult{Indexed: 1, Covered: true}, pass)
	assert.Equal(t, embedCalls+1, env.embedder.calls, "only b.go should be embedded")

	a, err := env.files.GetByPath(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, "sha2", a.TreeCommit)

	b, err := env.files.GetByPath(ctx, "b.go")
	require.NoError(t, err)
	assert.Equal(t, "sha2", b.TreeCommit)
	assert.GreaterOrEqual(t, env.count(t, "SELECT COUNT(*) FROM file_goals WHERE file_id = ?", b.ID), 1)

	ops := env.logOps(t)
	assert.Equal(t, 1, countOps(ops, "add b.go"))
	assert.Equal(t, 1, countOps(ops, "add a.go"), "a.go must not be re-added")
}

func TestEngine_Sync_DeadFileReclaimed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.source.setTree("sha1", map[string]string{"a.go": "package a", "c.go": "package c"})
	_, err := env.engine.Sync(ctx)
	require.NoError(t, err)

	c, err := env.files.GetByPath(ctx, "c.go")
	require.NoError(t, err)

	env.source.setTree("sha2", map[string]string{"a.go": "package a"})
	result, err := env.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Done: true, Phase: PhaseReclaiming, Commit: "sha2", Indexed: 0, Reclaimed: 1}, result)

	_, err = env.files.GetByPath(ctx, "c.go")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, env.count(t, "SELECT COUNT(*) FROM file_goals WHERE file_id = ?", c.ID))

	ops := env.logOps(t)
	assert.Equal(t, 1, countOps(ops, "cleanup c.go"))
	assert.Equal(t, []string{"start sha2", "cleanup c.go", "finish sha2"}, ops[len(ops)-3:])

	state, err := env.state.Get(ctx)
	require.NoError(t, err)
	assert.True(t, state.CommitDone)
}

func TestEngine_Sync_ChangedFileReplaced(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.source.setTree("sha1", map[string]string{"a.go": "package a"})
	_, err := env.engine.Sync(ctx)
	require.NoError(t, err)
	before, err := env.files.GetByPath(ctx, "a.go")
	require.NoError(t, err)
	oldGoals, err := env.files.ListGoalIDs(ctx, before.ID)
	require.NoError(t, err)

	env.source.setTree("sha2", map[string]string{"a.go": "package a // v2"})
	result, err := env.engine.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, result.Done)
	assert.Equal(t, 1, result.Indexed)

	after, err := env.files.GetByPath(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, blobSHA("package a // v2"), after.FileSHA)
	assert.NotEqual(t, before.ID, after.ID)
	for _, id := range oldGoals {
		_, err := env.files.GetGoalAndFile(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}

	ops := env.logOps(t)
	assert.Equal(t, []string{"start sha2", "cleanup a.go", "add a.go", "finish sha2"}, ops[len(ops)-4:])
}

func TestEngine_Sync_PassCap(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	files := make(map[string]string, 25)
	for i := range 25 {
		files[fmt.Sprintf("f%02d.go", i)] = fmt.Sprintf("package f%d", i)
	}
	env.source.setTree("sha1", files)

	var results []Result
	for {
		result, err := env.engine.Sync(ctx)
		require.NoError(t, err)
		results = append(results, result)
		if result.Done {
			break
		}
		require.Less(t, len(results), 10, "sync did not converge")
	}

	require.Len(t, results, 3)
	assert.Equal(t, Result{Phase: PhaseIndexing, Commit: "sha1", Indexed: FilesPerPass}, results[0])
	assert.Equal(t, Result{Phase: PhaseIndexing, Commit: "sha1", Indexed: FilesPerPass}, results[1])
	assert.Equal(t, Result{Done: true, Phase: PhaseReclaiming, Commit: "sha1", Indexed: 5}, results[2])
	assert.Equal(t, 25, env.count(t, "SELECT COUNT(*) FROM files"))
	assert.Equal(t, 1, countOps(env.logOps(t), "start sha1"))
}

func TestIndexer_Pass_IdempotentRetry(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.source.setTree("sha1", map[string]string{"a.go": "package a", "b.go": "package b"})
	require.NoError(t, env.state.StartCommit(ctx, "sha1"))
	settings, err := env.settings.Get(ctx)
	require.NoError(t, err)

	first, err := env.indexer.Pass(ctx, settings, "sha1")
	require.NoError(t, err)
	assert.Equal(t, PassResult{Indexed: 2, Covered: true}, first)

	files := env.count(t, "SELECT COUNT(*) FROM files")
	goals := env.count(t, "SELECT COUNT(*) FROM file_goals")
	adds := env.count(t, "SELECT COUNT(*) FROM log WHERE operator = 'add'")

	second, err := env.indexer.Pass(ctx, settings, "sha1")
	require.NoError(t, err)
	assert.Equal(t, PassResult{Indexed: 0, Covered: true}, second)

	assert.Equal(t, files, env.count(t, "SELECT COUNT(*) FROM files"))
	assert.Equal(t, goals, env.count(t, "SELECT COUNT(*) FROM file_goals"))
	assert.Equal(t, adds, env.count(t, "SELECT COUNT(*) FROM log WHERE operator = 'add'"))
}

func TestEngine_Sync_MalformedResponseLeavesFilePending(t *testing.T) {
	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	env := newTestEnv(t, summarizer)
	ctx := context.Background()

	good := llm.Summary{Language: "Go", Goals: []string{"do work"}}
	malformed := fmt.Errorf("failed to parse summary of b.go: %w", llm.ErrMalformedResponse)
	summarizer.EXPECT().Summarize(gomock.Any(), "a.go", gomock.Any(), "").Return(good, nil)
	summarizer.EXPECT().Summarize(gomock.Any(), "b.go", gomock.Any(), "").Return(llm.Summary{}, malformed)
	summarizer.EXPECT().Summarize(gomock.Any(), "b.go", []byte("package b"), "").Return(good, nil)

	env.source.setTree("sha1", map[string]string{"a.go": "package a", "b.go": "package b"})

	result, err := env.engine.Sync(ctx)
	require.ErrorIs(t, err, llm.ErrMalformedResponse)
	assert.Equal(t, 1, result.Indexed)

	_, err = env.files.GetByPath(ctx, "b.go")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	state, err := env.state.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, &storage.SyncState{Commit: "sha1", CommitDone: false}, state)

	// The retry only summarizes the file that failed.
	result, err = env.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Done: true, Phase: PhaseReclaiming, Commit: "sha1", Indexed: 1}, result)
	assert.Equal(t, []string{"start sha1", "add a.go", "add b.go", "finish sha1"}, env.logOps(t))
}

func TestEngine_Sync_UpstreamUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSourceProvider(ctrl)
	env := newTestEnv(t, nil)
	ctx := context.Background()

	src.EXPECT().HeadCommit(gomock.Any(), "acme", "widgets", "main").
		Return("", fmt.Errorf("%w: connection refused", source.ErrUpstreamUnavailable))
	env.engine.source = src

	_, err := env.engine.Sync(ctx)
	require.ErrorIs(t, err, source.ErrUpstreamUnavailable)

	state, err := env.state.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, &storage.SyncState{CommitDone: true}, state)
	assert.Empty(t, env.logOps(t))
}

func TestEngine_Sync_EmptyGoals(t *testing.T) {
	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	env := newTestEnv(t, summarizer)
	ctx := context.Background()

	summarizer.EXPECT().Summarize(gomock.Any(), "empty.go", gomock.Any(), "").
		Return(llm.Summary{Language: "Go", Goals: []string{}}, nil)
	env.source.setTree("sha1", map[string]string{"empty.go": "package empty"})

	result, err := env.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Zero(t, env.embedder.calls)

	f, err := env.files.GetByPath(ctx, "empty.go")
	require.NoError(t, err)
	assert.Zero(t, env.count(t, "SELECT COUNT(*) FROM file_goals WHERE file_id = ?", f.ID))
}

func TestEngine_Sync_EmbeddingMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	env := newTestEnv(t, nil)
	env.indexer.embedder = embedder
	ctx := context.Background()

	embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"handle a.go", "test a.go"}).
		Return([][]float32{{1, 0}}, nil)
	env.source.setTree("sha1", map[string]string{"a.go": "package a"})

	_, err := env.engine.Sync(ctx)
	require.ErrorIs(t, err, ErrEmbeddingMismatch)
	assert.Zero(t, env.count(t, "SELECT COUNT(*) FROM files"))
}

func TestEngine_Sync_SettingsChatModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	summarizer := mocks.NewMockSummarizer(ctrl)
	env := newTestEnv(t, summarizer)
	ctx := context.Background()

	settings, err := env.settings.Get(ctx)
	require.NoError(t, err)
	settings.ChatModel = "gpt-4o"
	require.NoError(t, env.settings.Save(ctx, settings))

	summarizer.EXPECT().Summarize(gomock.Any(), "a.go", gomock.Any(), "gpt-4o").
		Return(llm.Summary{Language: "Go", Goals: []string{"do work"}}, nil)
	env.source.setTree("sha1", map[string]string{"a.go": "package a"})

	_, err = env.engine.Sync(ctx)
	require.NoError(t, err)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", source.ErrUpstreamUnavailable), "upstream"},
		{fmt.Errorf("x: %w", llm.ErrMalformedResponse), "malformed"},
		{fmt.Errorf("x: %w", ErrEmbeddingMismatch), "embedding"},
		{fmt.Errorf("x: %w", storage.ErrNotInitialized), "not_initialized"},
		{context.Canceled, "canceled"},
		{errors.New("disk full"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, errorKind(tt.err))
		})
	}
}
