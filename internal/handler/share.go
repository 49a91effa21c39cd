package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/promptdeck/agent-platform/internal/sharing"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

// ShareHandler serves the unauthenticated public share endpoint.
type ShareHandler struct {
	gateway *sharing.Gateway
	logger  *logger.Logger
}

// NewShareHandler creates a new share handler.
func NewShareHandler(gw *sharing.Gateway, log *logger.Logger) *ShareHandler {
	return &ShareHandler{gateway: gw, logger: log}
}

// Resolve handles GET /share/{shareId}
func (h *ShareHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	view, err := h.gateway.ResolveShared(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
