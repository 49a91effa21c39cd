package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/middleware"
	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/service"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{service: svc, logger: log}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)

	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateFolder(req.Folder); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Create(ctx, subject, &req)
	if err != nil {
		h.logger.Error("failed to create conversation", zap.Error(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	q := r.URL.Query()

	resp, err := h.service.List(ctx, subject, q.Get("agent_id"), q.Get("folder"), q.Get("search"))
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		writeDomainError(w, err)
		return
	}
	if resp.Conversations == nil {
		resp.Conversations = []model.Conversation{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	conversationID := chi.URLParam(r, "id")

	conv, err := h.service.Get(ctx, conversationID, subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Rename handles PUT /api/v1/conversations/{id}
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	conversationID := chi.URLParam(r, "id")

	var req model.RenameConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Rename(ctx, conversationID, subject, req.Title)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Move handles PUT /api/v1/conversations/{id}/folder
func (h *ConversationHandler) Move(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	conversationID := chi.URLParam(r, "id")

	var req model.MoveConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateFolder(req.Folder); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Move(ctx, conversationID, subject, req.Folder)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Share handles PUT /api/v1/conversations/{id}/share
func (h *ConversationHandler) Share(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	conversationID := chi.URLParam(r, "id")

	var req model.ShareConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.service.SetShared(ctx, conversationID, subject, req.Shared)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if conv.Shared {
		w.Header().Set("Link", fmt.Sprintf("</share/%s>; rel=\"public\"", conv.ShareID))
	}
	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := h.service.Delete(ctx, conversationID, subject); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
