package handlers

import (
	"net/http"

	"dryad/internal/service"
	"dryad/internal/storage"
)

// StatusHandler reports sync progress and index statistics.
type StatusHandler struct {
	syncService service.SyncService
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(syncService service.SyncService) *StatusHandler {
	return &StatusHandler{syncService: syncService}
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Commit     string              `json:"commit,omitempty"`
	CommitDone bool                `json:"commitDone"`
	Phase      string              `json:"phase"`
	Stats      *storage.IndexStats `json:"stats"`
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.syncService.Status(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load status")
		return
	}

	writeJSON(ctx, w, http.StatusOK, StatusResponse{
		Commit:     status.Commit,
		CommitDone: status.CommitDone,
		Phase:      string(status.Phase),
		Stats:      status.Stats,
	})
}

// SettingsHandler serves the project settings.
type SettingsHandler struct {
	syncService service.SyncService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(syncService service.SyncService) *SettingsHandler {
	return &SettingsHandler{syncService: syncService}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.syncService.Settings(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load settings")
		return
	}
	writeJSON(ctx, w, http.StatusOK, settings)
}
