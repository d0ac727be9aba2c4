// Package syncer keeps the file index converged on the head of the
// configured branch, one bounded invocation at a time.
package syncer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_syncer.go -package=mocks dryad/internal/syncer SourceProvider,Summarizer,Embedder

import (
	"context"

	"dryad/internal/llm"
	"dryad/internal/source"
	"dryad/internal/storage"
)

// SourceProvider reads the upstream repository.
type SourceProvider interface {
	HeadCommit(ctx context.Context, org, repo, branch string) (string, error)
	ListTree(ctx context.Context, org, repo, commit string) ([]source.TreeEntry, error)
	FetchBlob(ctx context.Context, org, repo, blobSHA string) ([]byte, error)
}

// Summarizer derives the language and goals of a file.
type Summarizer interface {
	Summarize(ctx context.Context, path string, content []byte, model string) (llm.Summary, error)
}

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// SettingsReader loads the project settings.
type SettingsReader interface {
	Get(ctx context.Context) (*storage.Settings, error)
}

// StateStore reads and advances the sync state.
type StateStore interface {
	Get(ctx context.Context) (*storage.SyncState, error)
	StartCommit(ctx context.Context, commit string) error
}
