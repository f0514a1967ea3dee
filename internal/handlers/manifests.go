package handlers

import (
	"log/slog"
	"net/http"

	"github.com/civiclearn/game-engine/internal/storage"
)

// ManifestsHandler lists the manifests available for new sessions
type ManifestsHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewManifestsHandler(storage storage.Storage, logger *slog.Logger) *ManifestsHandler {
	return &ManifestsHandler{
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP handles GET /v1/manifests, returning title -> filename
func (h *ManifestsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	manifests, err := h.storage.ListManifests(r.Context())
	if err != nil {
		h.logger.Error("Failed to list manifests", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list manifests")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, manifests)
}
