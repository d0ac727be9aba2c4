package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_sync_service.go -package=mocks -mock_names=SyncService=MockSyncService dryad/internal/service SyncService

import (
	"context"
	"errors"
	"fmt"

	"dryad/internal/contextutil"
	"dryad/internal/storage"
	"dryad/internal/syncer"
)

const (
	// DefaultEventLimit is the number of events returned when none is requested.
	DefaultEventLimit = 30
	// MaxEventLimit caps the number of events per request.
	MaxEventLimit = 100
)

// StateStore reads and resets the sync state.
type StateStore interface {
	Get(ctx context.Context) (*storage.SyncState, error)
	Init(ctx context.Context, seed *storage.Settings) error
}

// SettingsReader loads the project settings.
type SettingsReader interface {
	Get(ctx context.Context) (*storage.Settings, error)
}

// StatsReader summarizes the index.
type StatsReader interface {
	Stats(ctx context.Context) (*storage.IndexStats, error)
}

// EventReader reads the newest events of the log.
type EventReader interface {
	Recent(ctx context.Context, limit int) ([]storage.LogEntry, error)
}

// SyncDriver exposes the in-process sync loop.
type SyncDriver interface {
	Phase() syncer.Phase
	Trigger()
}

// Status describes where syncing stands and what is indexed.
type Status struct {
	Commit     string
	CommitDone bool
	Phase      syncer.Phase
	Stats      *storage.IndexStats
}

// SyncService exposes sync state, history and control.
type SyncService interface {
	Status(ctx context.Context) (Status, error)
	Events(ctx context.Context, limit int) ([]storage.LogEntry, error)
	Settings(ctx context.Context) (*storage.Settings, error)
	// Trigger asks the sync loop to run now.
	Trigger(ctx context.Context)
	// Reset forgets the synced commit and triggers a run. Indexed files
	// are re-confirmed rather than summarized again.
	Reset(ctx context.Context) error
}

type syncService struct {
	state    StateStore
	settings SettingsReader
	stats    StatsReader
	events   EventReader
	driver   SyncDriver
}

// NewSyncService creates a new SyncService.
func NewSyncService(state StateStore, settings SettingsReader, stats StatsReader, events EventReader, driver SyncDriver) SyncService {
	return &syncService{
		state:    state,
		settings: settings,
		stats:    stats,
		events:   events,
		driver:   driver,
	}
}

func (s *syncService) Status(ctx context.Context) (Status, error) {
	state, err := s.state.Get(ctx)
	if err != nil {
		return Status{}, translate(err, "failed to load sync state")
	}
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return Status{}, WrapError(err, "failed to compute index stats")
	}

	return Status{
		Commit:     state.Commit,
		CommitDone: state.CommitDone,
		Phase:      s.driver.Phase(),
		Stats:      stats,
	}, nil
}

func (s *syncService) Events(ctx context.Context, limit int) ([]storage.LogEntry, error) {
	switch {
	case limit < 0:
		return nil, &ValidationError{Field: "limit", Message: "must not be negative"}
	case limit == 0:
		limit = DefaultEventLimit
	case limit > MaxEventLimit:
		limit = MaxEventLimit
	}

	entries, err := s.events.Recent(ctx, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list events")
	}
	return entries, nil
}

func (s *syncService) Settings(ctx context.Context) (*storage.Settings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, translate(err, "failed to load settings")
	}
	return settings, nil
}

func (s *syncService) Trigger(ctx context.Context) {
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "sync triggered")
	s.driver.Trigger()
}

func (s *syncService) Reset(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.state.Init(ctx, nil); err != nil {
		logger.ErrorContext(ctx, "failed to reset sync state", "error", err)
		return WrapError(err, "failed to reset sync state")
	}
	logger.InfoContext(ctx, "sync state reset")
	s.driver.Trigger()
	return nil
}

// translate maps storage sentinels to service errors.
func translate(err error, msg string) error {
	if errors.Is(err, storage.ErrNotInitialized) {
		return WrapError(fmt.Errorf("%w: %w", ErrNotInitialized, err), msg)
	}
	return WrapError(err, msg)
}
