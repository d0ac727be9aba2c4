package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_file_store.go -package=mocks dryad/internal/storage FileStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// FileStore defines the file record operations used by the sync engine and
// the search aggregator.
type FileStore interface {
	// GetByPath gets a file by path. Returns ErrNotFound if not found.
	GetByPath(ctx context.Context, path string) (*FileRecord, error)
	// CheckPending reports whether path must be (re)indexed for blobSHA.
	CheckPending(ctx context.Context, path, blobSHA, commit string) (bool, error)
	// Index replaces whatever is stored at file.Path with file and goals.
	Index(ctx context.Context, file *FileRecord, goals []GoalEmbedding) ([]string, error)
	// ClaimDeadBatch removes up to limit files not live in commit.
	ClaimDeadBatch(ctx context.Context, commit string, limit int) (*DeadBatch, error)
	// GetGoalAndFile joins a goal to its file. Returns ErrNotFound if either is gone.
	GetGoalAndFile(ctx context.Context, goalID string) (*GoalAndFile, error)
}

// DeadBatch describes the outcome of one ClaimDeadBatch call.
type DeadBatch struct {
	// Stale is set when the sync state no longer targets the requested
	// commit or is already done. Nothing was written.
	Stale bool
	// Done is set when no dead files remained and the commit was marked done.
	Done bool
	// Removed lists the deleted files.
	Removed []FileRecord
	// GoalIDs lists the goals deleted with them, for vector index cleanup.
	GoalIDs []string
}

// FileRepo provides methods for file and goal operations.
// It implements the FileStore interface.
type FileRepo struct {
	db *sql.DB
}

// NewFileRepo creates a new FileRepo.
func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

// GetByPath gets a file by path. Returns nil and ErrNotFound if not found.
func (r *FileRepo) GetByPath(ctx context.Context, path string) (*FileRecord, error) {
	return getFileByPath(ctx, r.db, path)
}

// CheckPending returns true when no file is stored at path or its content
// hash differs from blobSHA. Otherwise it returns false and, when needed,
// bumps tree_commit so the file counts as live in commit.
func (r *FileRepo) CheckPending(ctx context.Context, path, blobSHA, commit string) (bool, error) {
	pending := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		file, err := getFileByPath(ctx, tx, path)
		if errors.Is(err, ErrNotFound) {
			pending = true
			return nil
		}
		if err != nil {
			return err
		}
		if file.FileSHA != blobSHA {
			pending = true
			return nil
		}
		if file.TreeCommit == commit {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE files SET tree_commit = ? WHERE id = ?",
			commit, file.ID,
		); err != nil {
			return fmt.Errorf("failed to bump tree commit: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return pending, nil
}

// Index stores file and its goals in one transaction. Any file already at
// file.Path is deleted first together with its goals and a cleanup event is
// recorded for it; an add event is recorded for the new content.
// Goals without an ID get a new UUID. The IDs of the replaced goals are
// returned so the caller can drop them from the vector index.
func (r *FileRepo) Index(ctx context.Context, file *FileRecord, goals []GoalEmbedding) ([]string, error) {
	for i := range goals {
		if goals[i].ID == "" {
			goals[i].ID = uuid.New().String()
		}
	}

	var replaced []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := getFileByPath(ctx, tx, file.Path)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if existing != nil {
			replaced, err = recursiveDelete(ctx, tx, existing)
			if err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx,
			"INSERT INTO files (path, language, file_sha, tree_commit) VALUES (?, ?, ?, ?)",
			file.Path, file.Language, file.FileSHA, file.TreeCommit,
		)
		if err != nil {
			return fmt.Errorf("failed to insert file: %w", err)
		}
		file.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read file id: %w", err)
		}

		for i := range goals {
			goals[i].FileID = file.ID
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO file_goals (id, file_id, goal, vector) VALUES (?, ?, ?, ?)",
				goals[i].ID, file.ID, goals[i].Goal, EncodeVector(goals[i].Vector),
			); err != nil {
				return fmt.Errorf("failed to insert goal: %w", err)
			}
		}

		_, err = appendLog(ctx, tx, OpAdd, file.FileSHA, file.Path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// RecursiveDelete deletes a file and its goals and records a cleanup event.
// It returns the IDs of the deleted goals.
func (r *FileRepo) RecursiveDelete(ctx context.Context, file *FileRecord) ([]string, error) {
	var goalIDs []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		goalIDs, err = recursiveDelete(ctx, tx, file)
		return err
	})
	if err != nil {
		return nil, err
	}
	return goalIDs, nil
}

// ClaimDeadBatch selects up to limit files whose tree_commit is not commit
// and deletes them, or marks the commit done when there are none.
//
// The selection probes tree_commit < commit first and tree_commit > commit
// only when that is empty. Both probes are range scans on the tree_commit
// index, which a != predicate cannot use.
func (r *FileRepo) ClaimDeadBatch(ctx context.Context, commit string, limit int) (*DeadBatch, error) {
	batch := &DeadBatch{}
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		state, err := getSyncState(ctx, tx)
		if err != nil {
			return err
		}
		if state.CommitDone || state.Commit != commit {
			batch.Stale = true
			return nil
		}

		dead, err := listFiles(ctx, tx,
			"SELECT id, path, language, file_sha, tree_commit FROM files WHERE tree_commit < ? ORDER BY tree_commit LIMIT ?",
			commit, limit)
		if err != nil {
			return err
		}
		if len(dead) == 0 {
			dead, err = listFiles(ctx, tx,
				"SELECT id, path, language, file_sha, tree_commit FROM files WHERE tree_commit > ? ORDER BY tree_commit LIMIT ?",
				commit, limit)
			if err != nil {
				return err
			}
		}

		if len(dead) == 0 {
			batch.Done = true
			return markDone(ctx, tx, commit)
		}

		for i := range dead {
			goalIDs, err := recursiveDelete(ctx, tx, &dead[i])
			if err != nil {
				return err
			}
			batch.GoalIDs = append(batch.GoalIDs, goalIDs...)
		}
		batch.Removed = dead
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// GetGoalAndFile joins a goal to the file that owns it.
// Returns ErrNotFound if the goal (and so its file) no longer exists.
func (r *FileRepo) GetGoalAndFile(ctx context.Context, goalID string) (*GoalAndFile, error) {
	var gf GoalAndFile
	err := r.db.QueryRowContext(ctx,
		`SELECT g.id, g.goal, f.id, f.path, f.language, f.file_sha, f.tree_commit
		 FROM file_goals g JOIN files f ON f.id = g.file_id
		 WHERE g.id = ?`,
		goalID,
	).Scan(&gf.GoalID, &gf.Goal, &gf.File.ID, &gf.File.Path, &gf.File.Language, &gf.File.FileSHA, &gf.File.TreeCommit)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query goal: %w", err)
	}
	return &gf, nil
}

// EachGoalVector calls fn for every stored goal vector.
// Iteration stops at the first error returned by fn.
func (r *FileRepo) EachGoalVector(ctx context.Context, fn func(goalID string, vector []float32) error) error {
	rows, err := r.db.QueryContext(ctx, "SELECT id, vector FROM file_goals")
	if err != nil {
		return fmt.Errorf("failed to query goal vectors: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return fmt.Errorf("failed to scan goal vector: %w", err)
		}
		vector, err := DecodeVector(blob)
		if err != nil {
			return fmt.Errorf("goal %s: %w", id, err)
		}
		if err := fn(id, vector); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

// ListGoalIDs returns the goal IDs owned by a file.
// Returns an empty slice if the file has no goals (not an error).
func (r *FileRepo) ListGoalIDs(ctx context.Context, fileID int64) ([]string, error) {
	return listGoalIDs(ctx, r.db, fileID)
}

func recursiveDelete(ctx context.Context, tx *sql.Tx, file *FileRecord) ([]string, error) {
	goalIDs, err := listGoalIDs(ctx, tx, file.ID)
	if err != nil {
		return nil, err
	}

	// file_goals rows go with the file through ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", file.ID); err != nil {
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}

	if _, err := appendLog(ctx, tx, OpCleanup, file.FileSHA, file.Path); err != nil {
		return nil, err
	}
	return goalIDs, nil
}

func getFileByPath(ctx context.Context, q queryer, path string) (*FileRecord, error) {
	var file FileRecord
	err := q.QueryRowContext(ctx,
		"SELECT id, path, language, file_sha, tree_commit FROM files WHERE path = ?",
		path,
	).Scan(&file.ID, &file.Path, &file.Language, &file.FileSHA, &file.TreeCommit)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	return &file, nil
}

func listFiles(ctx context.Context, q queryer, query string, args ...any) ([]FileRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var files []FileRecord
	for rows.Next() {
		var file FileRecord
		if err := rows.Scan(&file.ID, &file.Path, &file.Language, &file.FileSHA, &file.TreeCommit); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return files, nil
}

func listGoalIDs(ctx context.Context, q queryer, fileID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT id FROM file_goals WHERE file_id = ? ORDER BY id", fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan goal ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}
