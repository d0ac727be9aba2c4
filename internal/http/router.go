package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dryad/internal/handlers"
	"dryad/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	SearchService service.SearchService
	SyncService   service.SyncService
	DB            handlers.Pinger
	VectorStore   handlers.Checker
	Home          http.Handler
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/search", handlers.NewSearchHandler(deps.SearchService))
		r.Method(http.MethodGet, "/events", handlers.NewEventsHandler(deps.SyncService))
		r.Method(http.MethodGet, "/status", handlers.NewStatusHandler(deps.SyncService))
		r.Method(http.MethodGet, "/settings", handlers.NewSettingsHandler(deps.SyncService))
		r.Method(http.MethodPost, "/sync", handlers.NewSyncHandler(deps.SyncService))
		r.Method(http.MethodPost, "/sync/reset", handlers.NewResetHandler(deps.SyncService))
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.DB, deps.VectorStore))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.Home != nil {
		r.Method(http.MethodGet, "/", deps.Home)
	}

	return r
}
