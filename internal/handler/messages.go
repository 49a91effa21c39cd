package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/middleware"
	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/service"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	turns         *service.TurnService
	conversations *service.ConversationService
	logger        *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(turns *service.TurnService, conversations *service.ConversationService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		turns:         turns,
		conversations: conversations,
		logger:        log,
	}
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ConversationID = chi.URLParam(r, "id")

	h.send(w, r, subject, &req)
}

// SendNew handles POST /api/v1/messages — creates the conversation on
// demand.
func (h *MessageHandler) SendNew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.send(w, r, subject, &req)
}

func (h *MessageHandler) send(w http.ResponseWriter, r *http.Request, subject string, req *model.SendMessageRequest) {
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.turns.Send(r.Context(), subject, req)
	if err != nil {
		h.logger.Warn("turn failed", zap.Error(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/v1/conversations/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := middleware.GetSubject(ctx)
	conversationID := chi.URLParam(r, "id")

	msgs, err := h.conversations.GetMessages(ctx, conversationID, subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}
