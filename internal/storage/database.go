package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// Foreign keys, WAL journaling and a busy timeout are set on every pooled
// connection through the DSN. Transactions begin with BEGIN IMMEDIATE so
// concurrent writers (the scheduler, dryadctl, HTTP resets) queue on the
// database write lock instead of failing on upgrade.
func New(path string) (*sql.DB, error) {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, params.Encode()))
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS sync_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			commit_sha TEXT,
			commit_done INTEGER NOT NULL,
			CHECK (commit_sha IS NOT NULL OR commit_done = 1)
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			org TEXT NOT NULL,
			repo TEXT NOT NULL,
			branch TEXT NOT NULL,
			extensions TEXT NOT NULL,
			exclusions TEXT,
			byte_limit INTEGER,
			chat_model TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			language TEXT NOT NULL,
			file_sha TEXT NOT NULL,
			tree_commit TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_files_tree_commit ON files (tree_commit);`,
		`CREATE TABLE IF NOT EXISTS file_goals (
			id TEXT PRIMARY KEY,
			file_id INTEGER NOT NULL,
			goal TEXT NOT NULL,
			vector BLOB NOT NULL,
			FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_file_goals_file_id ON file_goals (file_id);`,
		`CREATE TABLE IF NOT EXISTS log (
			cursor INTEGER PRIMARY KEY,
			operator TEXT NOT NULL CHECK (operator IN ('start', 'add', 'cleanup', 'finish')),
			sha TEXT NOT NULL,
			path TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a write transaction and commits it when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
