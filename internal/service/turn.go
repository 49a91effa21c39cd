package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/delegation"
	"github.com/promptdeck/agent-platform/internal/llm"
	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/registry"
	"github.com/promptdeck/agent-platform/pkg/logger"
	"github.com/promptdeck/agent-platform/pkg/metrics"
)

// historyWindow bounds how much prior context is forwarded to the provider.
const historyWindow = 50

// TurnService runs a full user turn: route the message through the
// delegation tree, then append the exchange to the conversation log. A turn
// either fully succeeds (both messages appended, updated_at bumped) or fully
// fails (nothing persisted).
type TurnService struct {
	conversations *ConversationService
	registry      *registry.Registry
	router        *delegation.Router
	logger        *logger.Logger
}

// NewTurnService creates a turn service.
func NewTurnService(conversations *ConversationService, reg *registry.Registry, router *delegation.Router, log *logger.Logger) *TurnService {
	return &TurnService{
		conversations: conversations,
		registry:      reg,
		router:        router,
		logger:        log,
	}
}

// Send processes one user message. When req.ConversationID is empty a
// conversation is created on demand for req.AgentID, titled from the
// message.
func (s *TurnService) Send(ctx context.Context, ownerID string, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("message content must not be empty: %w", model.ErrValidation)
	}

	conv, err := s.resolveConversation(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}

	agent := s.loadAgent(ctx, conv.AgentID)

	history, err := s.conversations.GetMessages(ctx, conv.ID, ownerID)
	if err != nil {
		return nil, err
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	chat := make([]llm.ChatMessage, len(history))
	for i, msg := range history {
		chat[i] = llm.ChatMessage{Role: string(msg.Role), Content: msg.Content}
	}

	result, err := s.router.Route(ctx, agent, content, chat)
	if err != nil {
		// Failed turn: nothing is appended.
		return nil, err
	}

	now := time.Now().UTC()
	userMsg := &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: now,
	}
	assistantMsg := &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleAssistant,
		Content:   result.Content,
		Timestamp: time.Now().UTC(),
	}

	conv, err = s.conversations.store.AppendMessages(ctx, conv.ID, ownerID, []*model.Message{userMsg, assistantMsg})
	if err != nil {
		return nil, err
	}

	s.conversations.publish(ctx, conv, model.EventTypeMessageAppended, result.HandledBy)
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	s.logger.Info("turn completed",
		zap.String("conversation_id", conv.ID),
		zap.String("handled_by", result.HandledBy),
		zap.Bool("delegated", result.Delegated),
		zap.Int("tokens_in", result.TokensIn),
		zap.Int("tokens_out", result.TokensOut),
	)

	return &model.SendMessageResponse{
		ConversationID: conv.ID,
		UserMessage:    userMsg,
		Assistant:      assistantMsg,
		HandledBy:      result.HandledBy,
		Delegated:      result.Delegated,
	}, nil
}

func (s *TurnService) resolveConversation(ctx context.Context, ownerID string, req *model.SendMessageRequest) (*model.Conversation, error) {
	if req.ConversationID != "" {
		return s.conversations.store.GetConversation(ctx, req.ConversationID, ownerID, false)
	}
	if req.AgentID == "" {
		return nil, fmt.Errorf("agent_id is required to start a conversation: %w", model.ErrValidation)
	}
	return s.conversations.Create(ctx, ownerID, &model.CreateConversationRequest{
		AgentID: req.AgentID,
		Title:   titleFrom(req.Content),
	})
}

// loadAgent resolves the conversation's agent. A dangling reference (agent
// deleted after the conversation was created) degrades to a bare default
// persona instead of failing the turn.
func (s *TurnService) loadAgent(ctx context.Context, agentID string) *model.Agent {
	agent, err := s.registry.Get(ctx, agentID)
	if err == nil {
		return agent
	}
	if !errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("agent load failed, using default persona",
			zap.String("agent_id", agentID),
			zap.Error(err),
		)
	} else {
		s.logger.Warn("conversation references deleted agent, using default persona",
			zap.String("agent_id", agentID),
		)
	}
	return &model.Agent{
		ID:   agentID,
		Name: "assistant",
		Prompt: model.Prompt{
			Base: "You are a helpful assistant.",
		},
	}
}

// titleFrom derives the placeholder title from the first message.
func titleFrom(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return defaultTitle
	}
	const maxLen = 40
	runes := []rune(content)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "…"
	}
	return content
}
