package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel     slog.Level
	LogFormat    string
	LogFile      string
	LogFileMaxMB int

	DBPath  string
	APIPort string

	GitHubToken  string
	GitHubAPIURL string

	LLMBaseURL         string
	LLMAPIKey          string
	LLMModelName       string
	SummarizerProvider string
	AnthropicAPIKey    string
	AnthropicModel     string

	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string

	SyncInterval time.Duration
	SettingsFile string
}

const (
	// VectorBackendQdrant selects the Qdrant nearest-neighbour index.
	VectorBackendQdrant = "qdrant"
	// VectorBackendSQLite selects the in-database brute-force index.
	VectorBackendSQLite = "sqlite"

	// SummarizerOpenAI selects the OpenAI-compatible chat completions backend.
	SummarizerOpenAI = "openai"
	// SummarizerAnthropic selects the Anthropic Messages API backend.
	SummarizerAnthropic = "anthropic"
)

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or a parent directory, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogFile:            getEnv("LOG_FILE", ""),
		DBPath:             getEnv("DB_PATH", "./data/dryad.db"),
		APIPort:            getEnv("API_PORT", "9000"),
		GitHubToken:        getEnv("GITHUB_ACCESS_TOKEN", ""),
		GitHubAPIURL:       getEnv("GITHUB_API_URL", ""),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4"),
		SummarizerProvider: strings.ToLower(getEnv("SUMMARIZER_PROVIDER", SummarizerOpenAI)),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-ada-002"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", VectorBackendQdrant)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "file_goals"),
		SettingsFile:       getEnv("SETTINGS_FILE", ""),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	maxMB, err := strconv.Atoi(getEnv("LOG_FILE_MAX_MB", "50"))
	if err != nil || maxMB <= 0 {
		return nil, fmt.Errorf("LOG_FILE_MAX_MB must be a positive integer")
	}
	cfg.LogFileMaxMB = maxMB

	// Must match the output size of the embeddings model. Changing it requires
	// recreating the Qdrant collection.
	vectorSize, err := strconv.Atoi(getEnv("EMBEDDING_VECTOR_SIZE", "1536"))
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.EmbeddingVectorSize = vectorSize

	interval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("SYNC_INTERVAL must be a valid duration: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("SYNC_INTERVAL must be greater than 0")
	}
	cfg.SyncInterval = interval

	switch cfg.VectorBackend {
	case VectorBackendQdrant, VectorBackendSQLite:
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %s or %s, got %q", VectorBackendQdrant, VectorBackendSQLite, cfg.VectorBackend)
	}

	switch cfg.SummarizerProvider {
	case SummarizerOpenAI:
	case SummarizerAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when SUMMARIZER_PROVIDER=anthropic")
		}
	default:
		return nil, fmt.Errorf("SUMMARIZER_PROVIDER must be %s or %s, got %q", SummarizerOpenAI, SummarizerAnthropic, cfg.SummarizerProvider)
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// parseLevel maps a LOG_LEVEL value onto a slog level.
func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
