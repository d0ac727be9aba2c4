// Package app wires configuration, storage, the sync engine and the HTTP
// surface into one running instance.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dryad/internal/config"
	"dryad/internal/handlers"
	"dryad/internal/http"
	"dryad/internal/llm"
	"dryad/internal/metrics"
	"dryad/internal/search"
	"dryad/internal/service"
	"dryad/internal/source"
	"dryad/internal/storage"
	"dryad/internal/syncer"
	"dryad/internal/vectorstore"
)

// App holds the wired components of one instance.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Registry *prometheus.Registry

	State    *storage.SyncStateRepo
	Settings *storage.SettingsRepo
	Files    *storage.FileRepo
	Logs     *storage.LogRepo

	Engine    *syncer.Engine
	Scheduler *syncer.Scheduler

	SearchService service.SearchService
	SyncService   service.SyncService

	vectors vectorstore.VectorStore
	closers []func() error
}

// driver exposes the engine phase and the scheduler trigger as one value.
type driver struct {
	*syncer.Engine
	*syncer.Scheduler
}

// New opens the database, connects the external services and wires the
// engine and services. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
	}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := storage.Migrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	a.State = storage.NewSyncStateRepo(db)
	a.Settings = storage.NewSettingsRepo(db)
	a.Files = storage.NewFileRepo(db)
	a.Logs = storage.NewLogRepo(db)

	a.vectors, err = a.openVectors(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	src, err := source.NewGitHubProvider(cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.Registry)

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	summarizer := newSummarizer(cfg)

	indexer := syncer.NewIndexer(src, summarizer, embedder, a.Files, a.vectors, m)
	reclaimer := syncer.NewReclaimer(a.Files, a.vectors, m)
	a.Engine = syncer.NewEngine(a.Settings, a.State, src, indexer, reclaimer, m)
	a.Scheduler = syncer.NewScheduler(a.Engine, cfg.SyncInterval)

	aggregator := search.NewAggregator(embedder, a.vectors, a.Files, m)
	a.SearchService = service.NewSearchService(aggregator)
	a.SyncService = service.NewSyncService(a.State, a.Settings, a.Files, a.Logs, driver{a.Engine, a.Scheduler})

	return a, nil
}

func (a *App) openVectors(ctx context.Context) (vectorstore.VectorStore, error) {
	cfg := a.Config
	switch cfg.VectorBackend {
	case config.VectorBackendSQLite:
		slog.Info("Using in-database vector search")
		return vectorstore.NewSQLiteStore(a.Files), nil
	default:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		a.closers = append(a.closers, store.Close)

		if err := store.EnsureCollection(ctx, cfg.EmbeddingVectorSize); err != nil {
			return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
		}
		slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingVectorSize)
		return store, nil
	}
}

func newSummarizer(cfg *config.Config) syncer.Summarizer {
	if cfg.SummarizerProvider == config.SummarizerAnthropic {
		slog.Info("Using Anthropic summarizer", "model", cfg.AnthropicModel)
		return llm.NewAnthropicSummarizer(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}
	slog.Info("Using chat completions summarizer", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	return llm.NewChatSummarizer(llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName))
}

// Router builds the HTTP handler serving the API, metrics and home page.
func (a *App) Router() (nethttp.Handler, error) {
	home, err := handlers.NewHomeHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to render home page: %w", err)
	}
	return http.NewRouter(&http.Deps{
		SearchService: a.SearchService,
		SyncService:   a.SyncService,
		DB:            a.DB,
		VectorStore:   a.vectors,
		Home:          home,
		Gatherer:      a.Registry,
	}), nil
}

// Init resets the sync state. When settingsFile is set and no settings are
// stored yet, they are seeded from it.
func (a *App) Init(ctx context.Context, settingsFile string) error {
	var seed *storage.Settings
	if settingsFile != "" {
		s, err := config.LoadSettingsSeed(settingsFile)
		if err != nil {
			return err
		}
		seed = SettingsFromSeed(s)
	}
	return a.State.Init(ctx, seed)
}

// EnsureInitialized runs Init when the store has never been initialized.
func (a *App) EnsureInitialized(ctx context.Context) error {
	_, err := a.State.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotInitialized) {
		return err
	}
	slog.Info("Sync state not found, initializing", "settings_file", a.Config.SettingsFile)
	return a.Init(ctx, a.Config.SettingsFile)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SettingsFromSeed converts a settings file into the stored record.
func SettingsFromSeed(s *config.SettingsSeed) *storage.Settings {
	return &storage.Settings{
		Org:        s.Org,
		Repo:       s.Repo,
		Branch:     s.Branch,
		Extensions: s.Extensions,
		Exclusions: s.Exclusions,
		ByteLimit:  s.ByteLimit,
		ChatModel:  s.ChatModel,
	}
}
