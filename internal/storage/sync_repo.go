package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when the sync state or settings record is
// missing. Init must be run before syncing.
var ErrNotInitialized = errors.New("sync state not initialized")

// SyncStateRepo owns the singleton sync state record.
type SyncStateRepo struct {
	db *sql.DB
}

// NewSyncStateRepo creates a new SyncStateRepo.
func NewSyncStateRepo(db *sql.DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

// Get returns the current sync state.
func (r *SyncStateRepo) Get(ctx context.Context) (*SyncState, error) {
	return getSyncState(ctx, r.db)
}

// StartCommit records commit as the new convergence target and appends a
// start event. The caller is expected to have checked that commit is new;
// if the same commit is already in progress nothing is written.
func (r *SyncStateRepo) StartCommit(ctx context.Context, commit string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		state, err := getSyncState(ctx, tx)
		if err != nil {
			return err
		}
		if state.Commit == commit && !state.CommitDone {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE sync_state SET commit_sha = ?, commit_done = 0 WHERE id = 1",
			commit,
		); err != nil {
			return fmt.Errorf("failed to start commit: %w", err)
		}

		_, err = appendLog(ctx, tx, OpStart, commit, "")
		return err
	})
}

// Init resets the sync state to "no commit, done" and seeds settings when
// none exist. A nil seed falls back to DefaultSettings. Indexed files are
// kept so the next sync re-confirms them instead of summarizing again.
func (r *SyncStateRepo) Init(ctx context.Context, seed *Settings) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sync_state"); err != nil {
			return fmt.Errorf("failed to clear sync state: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sync_state (id, commit_sha, commit_done) VALUES (1, NULL, 1)",
		); err != nil {
			return fmt.Errorf("failed to insert sync state: %w", err)
		}

		_, err := getSettings(ctx, tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotInitialized) {
			return err
		}

		if seed == nil {
			seed = DefaultSettings()
		}
		return saveSettings(ctx, tx, seed)
	})
}

// markDone flips the state to done inside a reclaim transaction.
func markDone(ctx context.Context, tx *sql.Tx, commit string) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE sync_state SET commit_done = 1 WHERE id = 1 AND commit_sha = ?",
		commit,
	); err != nil {
		return fmt.Errorf("failed to mark commit done: %w", err)
	}
	_, err := appendLog(ctx, tx, OpFinish, commit, "")
	return err
}

func getSyncState(ctx context.Context, q queryer) (*SyncState, error) {
	var state SyncState
	var commit sql.NullString

	err := q.QueryRowContext(ctx,
		"SELECT commit_sha, commit_done FROM sync_state WHERE id = 1",
	).Scan(&commit, &state.CommitDone)
	if err == sql.ErrNoRows {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync state: %w", err)
	}

	state.Commit = commit.String
	return &state, nil
}
