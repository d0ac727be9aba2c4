package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"dryad/internal/contextutil"
	"dryad/internal/llm"
	"dryad/internal/metrics"
	"dryad/internal/source"
	"dryad/internal/storage"
)

// Phase names where the engine stands for the current commit.
type Phase string

const (
	// PhaseIdle means the index matches the upstream head.
	PhaseIdle Phase = "idle"
	// PhaseAdvancing means a newer upstream commit was observed and is being started.
	PhaseAdvancing Phase = "advancing"
	// PhaseIndexing means files of the current tree are still pending.
	PhaseIndexing Phase = "indexing"
	// PhaseReclaiming means the tree is covered and dead files are being removed.
	PhaseReclaiming Phase = "reclaiming"
)

// Result is the outcome of one Sync invocation.
type Result struct {
	// Done is false when the caller should invoke Sync again right away.
	Done      bool   `json:"done"`
	Phase     Phase  `json:"phase"`
	Commit    string `json:"commit,omitempty"`
	Indexed   int    `json:"indexed"`
	Reclaimed int    `json:"reclaimed"`
}

// Engine performs bounded sync invocations.
type Engine struct {
	settings  SettingsReader
	state     StateStore
	source    SourceProvider
	indexer   *Indexer
	reclaimer *Reclaimer
	metrics   *metrics.Metrics
	phase     atomic.Value
}

// NewEngine creates a new Engine.
func NewEngine(
	settings SettingsReader,
	state StateStore,
	src SourceProvider,
	indexer *Indexer,
	reclaimer *Reclaimer,
	m *metrics.Metrics,
) *Engine {
	e := &Engine{
		settings:  settings,
		state:     state,
		source:    src,
		indexer:   indexer,
		reclaimer: reclaimer,
		metrics:   m,
	}
	e.phase.Store(PhaseIdle)
	return e
}

// Phase returns the phase of the latest invocation of this process.
func (e *Engine) Phase() Phase {
	return e.phase.Load().(Phase)
}

// Sync runs one bounded step toward the upstream head.
func (e *Engine) Sync(ctx context.Context) (Result, error) {
	result, err := e.sync(ctx)
	if err != nil {
		e.metrics.Error(errorKind(err))
		return result, err
	}
	e.phase.Store(result.Phase)
	e.metrics.SyncInvocation(string(result.Phase))
	return result, nil
}

func (e *Engine) sync(ctx context.Context) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	settings, err := e.settings.Get(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load settings: %w", err)
	}
	state, err := e.state.Get(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load sync state: %w", err)
	}

	commit := state.Commit
	if state.CommitDone {
		head, err := e.source.HeadCommit(ctx, settings.Org, settings.Repo, settings.Branch)
		if err != nil {
			return Result{}, err
		}
		if head == state.Commit {
			return Result{Done: true, Phase: PhaseIdle, Commit: commit}, nil
		}

		e.phase.Store(PhaseAdvancing)
		logger.InfoContext(ctx, "starting commit", "commit", head, "previous", state.Commit)
		if err := e.state.StartCommit(ctx, head); err != nil {
			return Result{}, fmt.Errorf("failed to start commit: %w", err)
		}
		commit = head
	}

	e.phase.Store(PhaseIndexing)
	pass, err := e.indexer.Pass(ctx, settings, commit)
	result := Result{Phase: PhaseIndexing, Commit: commit, Indexed: pass.Indexed}
	if err != nil {
		return result, err
	}
	if !pass.Covered {
		logger.InfoContext(ctx, "pass incomplete", "commit", commit, "indexed", pass.Indexed)
		return result, nil
	}

	e.phase.Store(PhaseReclaiming)
	result.Phase = PhaseReclaiming
	for {
		removed, more, err := e.reclaimer.ClearDeadFilesBatch(ctx, commit)
		result.Reclaimed += removed
		if err != nil {
			return result, err
		}
		if !more {
			break
		}
	}

	result.Done = true
	logger.InfoContext(ctx, "sync complete", "commit", commit, "indexed", result.Indexed, "reclaimed", result.Reclaimed)
	return result, nil
}

// errorKind labels err for the error counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, source.ErrUpstreamUnavailable):
		return "upstream"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrEmbeddingMismatch):
		return "embedding"
	case errors.Is(err, storage.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
