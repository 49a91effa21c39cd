// Package service provides business logic for conversations and turns.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/events"
	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/store"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

// defaultTitle is the generated placeholder for untitled conversations.
const defaultTitle = "New conversation"

// ConversationService handles conversation operations. All mutations are
// owner-scoped; the store serializes concurrent appends.
type ConversationService struct {
	store     store.Store
	publisher *events.Publisher
	logger    *logger.Logger
}

// NewConversationService creates a conversation service. publisher may be
// nil when the event stream is not configured.
func NewConversationService(st store.Store, publisher *events.Publisher, log *logger.Logger) *ConversationService {
	return &ConversationService{store: st, publisher: publisher, logger: log}
}

// Create creates a conversation explicitly. Most conversations are created
// on demand by the first turn instead.
func (s *ConversationService) Create(ctx context.Context, ownerID string, req *model.CreateConversationRequest) (*model.Conversation, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle
	}

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		OwnerID:   ownerID,
		AgentID:   req.AgentID,
		Title:     title,
		Folder:    req.Folder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("agent_id", conv.AgentID),
	)
	return conv, nil
}

// Get retrieves a conversation with its message log.
func (s *ConversationService) Get(ctx context.Context, conversationID, ownerID string) (*model.Conversation, error) {
	return s.store.GetConversation(ctx, conversationID, ownerID, true)
}

// List returns the owner's conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context, ownerID, agentID, folder, search string) (*model.ListConversationsResponse, error) {
	convs, err := s.store.ListConversations(ctx, ownerID, agentID, folder, search)
	if err != nil {
		return nil, err
	}
	return &model.ListConversationsResponse{Conversations: convs, Total: len(convs)}, nil
}

// Rename sets a new title.
func (s *ConversationService) Rename(ctx context.Context, conversationID, ownerID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	return s.store.RenameConversation(ctx, conversationID, ownerID, title)
}

// Move changes the folder grouping.
func (s *ConversationService) Move(ctx context.Context, conversationID, ownerID, folder string) (*model.Conversation, error) {
	return s.store.MoveConversation(ctx, conversationID, ownerID, folder)
}

// SetShared toggles public sharing. The share token is minted on the first
// enable and reused afterwards.
func (s *ConversationService) SetShared(ctx context.Context, conversationID, ownerID string, shared bool) (*model.Conversation, error) {
	conv, err := s.store.SetShared(ctx, conversationID, ownerID, shared, func() string {
		return uuid.New().String()
	})
	if err != nil {
		return nil, err
	}

	eventType := model.EventTypeConversationShared
	if !shared {
		eventType = model.EventTypeConversationHidden
	}
	s.publish(ctx, conv, eventType, "")
	return conv, nil
}

// Delete removes a conversation. Its share token stops resolving
// immediately.
func (s *ConversationService) Delete(ctx context.Context, conversationID, ownerID string) error {
	if err := s.store.DeleteConversation(ctx, conversationID, ownerID); err != nil {
		return err
	}
	s.publish(ctx, &model.Conversation{ID: conversationID, OwnerID: ownerID}, model.EventTypeConversationDeleted, "")
	return nil
}

// GetMessages returns a conversation's message log in order.
func (s *ConversationService) GetMessages(ctx context.Context, conversationID, ownerID string) ([]model.Message, error) {
	return s.store.ListMessages(ctx, conversationID, ownerID)
}

// publish emits a lifecycle event, best effort.
func (s *ConversationService) publish(ctx context.Context, conv *model.Conversation, eventType model.EventType, handledBy string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, &model.ConversationEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		OwnerID:        conv.OwnerID,
		AgentID:        conv.AgentID,
		Type:           eventType,
		HandledBy:      handledBy,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("event publish failed",
			zap.String("conversation_id", conv.ID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}
