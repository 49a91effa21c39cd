package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation's append-only log. Seq is assigned
// by the store and is the authoritative ordering; timestamps are
// informational only.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq,omitempty"`
}

// Conversation is an append-only, ownable, optionally-shared sequence of
// messages tied to one agent. AgentID may dangle if the agent was deleted.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	AgentID   string    `json:"agent_id"`
	Title     string    `json:"title"`
	Folder    string    `json:"folder,omitempty"`
	Shared    bool      `json:"shared"`
	ShareID   string    `json:"share_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages,omitempty"`
}

// PublicConversationView is the identity-stripped projection served on the
// unauthenticated share path.
type PublicConversationView struct {
	Title     string    `json:"title"`
	AgentName string    `json:"agent_name,omitempty"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateConversationRequest is the request to create a conversation
// explicitly.
type CreateConversationRequest struct {
	AgentID string `json:"agent_id"`
	Title   string `json:"title,omitempty"`
	Folder  string `json:"folder,omitempty"`
}

// RenameConversationRequest is the request to rename a conversation.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// MoveConversationRequest is the request to move a conversation to a folder.
// An empty folder clears the grouping.
type MoveConversationRequest struct {
	Folder string `json:"folder"`
}

// ShareConversationRequest toggles public sharing.
type ShareConversationRequest struct {
	Shared bool `json:"shared"`
}

// SendMessageRequest is the request to send a user message to an agent.
// ConversationID is optional: when absent a conversation is created on
// demand.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	AgentID        string `json:"agent_id,omitempty"`
	Content        string `json:"content"`
}

// SendMessageResponse is the completed turn: both appended messages plus
// which agent ultimately produced the answer.
type SendMessageResponse struct {
	ConversationID string   `json:"conversation_id"`
	UserMessage    *Message `json:"user_message"`
	Assistant      *Message `json:"assistant_message"`
	HandledBy      string   `json:"handled_by"`
	Delegated      bool     `json:"delegated"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
