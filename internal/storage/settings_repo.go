package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// DefaultSettings returns the settings seeded when Init finds none and no
// seed was supplied.
func DefaultSettings() *Settings {
	return &Settings{
		Org:        "get-convex",
		Repo:       "convex-helpers",
		Branch:     "main",
		Extensions: []string{".js", ".html", ".jsx", ".ts", ".tsx", ".css"},
	}
}

// SettingsRepo provides access to the singleton settings record.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the settings record, or ErrNotInitialized if none exists.
func (r *SettingsRepo) Get(ctx context.Context) (*Settings, error) {
	return getSettings(ctx, r.db)
}

// Save replaces the settings record.
func (r *SettingsRepo) Save(ctx context.Context, s *Settings) error {
	return saveSettings(ctx, r.db, s)
}

func getSettings(ctx context.Context, q queryer) (*Settings, error) {
	var s Settings
	var extensions string
	var exclusions, chatModel sql.NullString
	var byteLimit sql.NullInt64

	err := q.QueryRowContext(ctx,
		"SELECT org, repo, branch, extensions, exclusions, byte_limit, chat_model FROM settings WHERE id = 1",
	).Scan(&s.Org, &s.Repo, &s.Branch, &extensions, &exclusions, &byteLimit, &chatModel)
	if err == sql.ErrNoRows {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	if err := json.Unmarshal([]byte(extensions), &s.Extensions); err != nil {
		return nil, fmt.Errorf("failed to decode extensions: %w", err)
	}
	if exclusions.Valid {
		if err := json.Unmarshal([]byte(exclusions.String), &s.Exclusions); err != nil {
			return nil, fmt.Errorf("failed to decode exclusions: %w", err)
		}
	}
	if byteLimit.Valid {
		limit := int(byteLimit.Int64)
		s.ByteLimit = &limit
	}
	s.ChatModel = chatModel.String

	return &s, nil
}

func saveSettings(ctx context.Context, q queryer, s *Settings) error {
	extensions, err := json.Marshal(s.Extensions)
	if err != nil {
		return fmt.Errorf("failed to encode extensions: %w", err)
	}

	var exclusions sql.NullString
	if s.Exclusions != nil {
		data, err := json.Marshal(s.Exclusions)
		if err != nil {
			return fmt.Errorf("failed to encode exclusions: %w", err)
		}
		exclusions = sql.NullString{String: string(data), Valid: true}
	}

	var byteLimit sql.NullInt64
	if s.ByteLimit != nil {
		byteLimit = sql.NullInt64{Int64: int64(*s.ByteLimit), Valid: true}
	}

	var chatModel sql.NullString
	if s.ChatModel != "" {
		chatModel = sql.NullString{String: s.ChatModel, Valid: true}
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO settings (id, org, repo, branch, extensions, exclusions, byte_limit, chat_model)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		 org = excluded.org, repo = excluded.repo, branch = excluded.branch,
		 extensions = excluded.extensions, exclusions = excluded.exclusions,
		 byte_limit = excluded.byte_limit, chat_model = excluded.chat_model`,
		s.Org, s.Repo, s.Branch, string(extensions), exclusions, byteLimit, chatModel,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
