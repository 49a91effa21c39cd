package model

import (
	"time"
)

// EventType represents the type of conversation lifecycle event published to
// the event stream.
type EventType string

const (
	EventTypeMessageAppended     EventType = "message_appended"
	EventTypeConversationShared  EventType = "conversation_shared"
	EventTypeConversationHidden  EventType = "conversation_hidden"
	EventTypeConversationDeleted EventType = "conversation_deleted"
)

// ConversationEvent is an event in a conversation's lifecycle. OwnerID is
// carried for subject routing only and must never reach the public share
// surface.
type ConversationEvent struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	OwnerID        string    `json:"owner_id"`
	AgentID        string    `json:"agent_id,omitempty"`
	Type           EventType `json:"type"`
	HandledBy      string    `json:"handled_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
