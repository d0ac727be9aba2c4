package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// LogRepo reads and appends sync events.
type LogRepo struct {
	db *sql.DB
}

// NewLogRepo creates a new LogRepo.
func NewLogRepo(db *sql.DB) *LogRepo {
	return &LogRepo{db: db}
}

// Append writes a single event in its own transaction and returns its cursor.
func (r *LogRepo) Append(ctx context.Context, op LogOperator, sha, path string) (int64, error) {
	var cursor int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		cursor, err = appendLog(ctx, tx, op, sha, path)
		return err
	})
	if err != nil {
		return 0, err
	}
	return cursor, nil
}

// Recent returns the newest limit events, newest first.
func (r *LogRepo) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT cursor, operator, sha, path, created_at FROM log ORDER BY cursor DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query log: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]LogEntry, 0, limit)
	for rows.Next() {
		var entry LogEntry
		var path sql.NullString
		if err := rows.Scan(&entry.Cursor, &entry.Operator, &entry.SHA, &path, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entry.Path = path.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// appendLog allocates the next cursor and inserts the event inside tx.
// The write lock taken by BEGIN IMMEDIATE makes the MAX+1 read and the insert
// a single step for every writer, and cursor being the primary key rejects
// any duplicate that could slip through.
func appendLog(ctx context.Context, tx *sql.Tx, op LogOperator, sha, path string) (int64, error) {
	var nullablePath sql.NullString
	if path != "" {
		nullablePath = sql.NullString{String: path, Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO log (cursor, operator, sha, path)
		 SELECT COALESCE(MAX(cursor), 0) + 1, ?, ?, ? FROM log`,
		string(op), sha, nullablePath,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append %s log entry: %w", op, err)
	}

	cursor, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read log cursor: %w", err)
	}
	return cursor, nil
}
