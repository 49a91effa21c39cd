// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/middleware"
	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/registry"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

// AgentHandler handles agent endpoints.
type AgentHandler struct {
	registry *registry.Registry
	logger   *logger.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(reg *registry.Registry, log *logger.Logger) *AgentHandler {
	return &AgentHandler{registry: reg, logger: log}
}

// Create handles POST /api/v1/agents
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)

	var req model.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := h.registry.Create(ctx, subject, &req)
	if err != nil {
		h.logger.Warn("agent create failed", zap.Error(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, agent)
}

// List handles GET /api/v1/agents
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)

	agents, err := h.registry.List(ctx, subject)
	if err != nil {
		h.logger.Error("agent list failed", zap.Error(err))
		writeDomainError(w, err)
		return
	}
	if agents == nil {
		agents = []model.Agent{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
}

// Get handles GET /api/v1/agents/{id}
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	agentID := chi.URLParam(r, "id")

	agent, err := h.registry.Get(ctx, agentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Reads are owner-scoped on this surface; the public variant lives
	// under /agents/public.
	if agent.OwnerID != subject {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, agent)
}

// Update handles PUT /api/v1/agents/{id}
func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	agentID := chi.URLParam(r, "id")

	var req model.UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := h.registry.Update(ctx, agentID, subject, &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agent)
}

// Delete handles DELETE /api/v1/agents/{id}
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	agentID := chi.URLParam(r, "id")

	if err := h.registry.Delete(ctx, agentID, subject); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPublic handles GET /api/v1/agents/public
func (h *AgentHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	page := 1
	if p := q.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	limit := 20
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	resp, err := h.registry.ListPublic(ctx, q.Get("categoria"), q.Get("search"), page, limit)
	if err != nil {
		h.logger.Error("public agent list failed", zap.Error(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetPublic handles GET /api/v1/agents/public/{id}
func (h *AgentHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	view, err := h.registry.GetPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
