// Package store provides persistence for agents and conversations.
package store

import (
	"context"

	"github.com/promptdeck/agent-platform/internal/model"
)

// Store defines the persistence interface for the two top-level collections:
// agents and conversations. Ownership checks live here so that every
// mutation is owner-scoped at the lowest layer; callers distinguish
// model.ErrNotFound from model.ErrForbidden with errors.Is but surface both
// identically.
type Store interface {
	// Agents
	CreateAgent(ctx context.Context, agent *model.Agent) error
	GetAgent(ctx context.Context, id string) (*model.Agent, error)
	UpdateAgent(ctx context.Context, agent *model.Agent) error
	DeleteAgent(ctx context.Context, id, ownerID string) error
	ListAgents(ctx context.Context, ownerID string) ([]model.Agent, error)
	ListPublicAgents(ctx context.Context, categoria, search string, limit, offset int) ([]model.Agent, int, error)

	// Conversations
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, id, ownerID string, withMessages bool) (*model.Conversation, error)
	ListConversations(ctx context.Context, ownerID, agentID, folder, search string) ([]model.Conversation, error)
	RenameConversation(ctx context.Context, id, ownerID, title string) (*model.Conversation, error)
	MoveConversation(ctx context.Context, id, ownerID, folder string) (*model.Conversation, error)
	SetShared(ctx context.Context, id, ownerID string, shared bool, mint func() string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id, ownerID string) error

	// AppendMessages atomically appends messages to a conversation's log and
	// returns the conversation with assigned sequence numbers. Two
	// concurrent calls for the same conversation are serialized by the
	// database; neither is lost.
	AppendMessages(ctx context.Context, conversationID, ownerID string, msgs []*model.Message) (*model.Conversation, error)

	// ListMessages returns the conversation's messages in log order.
	ListMessages(ctx context.Context, conversationID, ownerID string) ([]model.Message, error)

	// GetSharedConversation resolves a share token. Only conversations with
	// sharing currently enabled resolve; everything else is ErrNotFound.
	GetSharedConversation(ctx context.Context, shareID string) (*model.Conversation, error)

	Close() error
}
