// Package model defines data structures for the agent platform.
package model

import (
	"time"
)

// Agent name length bounds, enforced at creation and update.
const (
	AgentNameMinLength = 3
	AgentNameMaxLength = 50
)

// Configuration holds the model settings an agent answers with.
type Configuration struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// Prompt is the structured system prompt of an agent.
type Prompt struct {
	Base           string   `json:"base"`
	Objectives     []string `json:"objectives,omitempty"`
	Rules          []string `json:"rules,omitempty"`
	Examples       string   `json:"examples,omitempty"`
	ResponseFormat string   `json:"response_format,omitempty"`
}

// SubAgentLink is a priority-ordered, trigger-described reference from one
// agent to another. References are by value: the target may no longer exist
// and the router must tolerate that.
type SubAgentLink struct {
	AgentID   string `json:"agent_id"`
	Priority  int    `json:"priority"`
	WhenToUse string `json:"when_to_use"`
}

// Agent is a configured persona that answers messages and optionally
// delegates to sub-agents.
type Agent struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Categoria     string         `json:"categoria,omitempty"`
	Configuration Configuration  `json:"configuration"`
	Prompt        Prompt         `json:"prompt"`
	SubAgents     []SubAgentLink `json:"sub_agents,omitempty"`
	IsPublic      bool           `json:"is_public"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// PublicAgentView is the owner-stripped projection served on the public
// listing surface.
type PublicAgentView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Categoria   string    `json:"categoria,omitempty"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublicView strips owner-only fields from an agent.
func (a *Agent) PublicView() *PublicAgentView {
	return &PublicAgentView{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Categoria:   a.Categoria,
		Model:       a.Configuration.Model,
		CreatedAt:   a.CreatedAt,
	}
}

// CreateAgentRequest is the request to create a new agent.
type CreateAgentRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Categoria     string         `json:"categoria,omitempty"`
	Configuration Configuration  `json:"configuration"`
	Prompt        Prompt         `json:"prompt"`
	SubAgents     []SubAgentLink `json:"sub_agents,omitempty"`
	IsPublic      bool           `json:"is_public"`
}

// ConfigurationPatch carries partial configuration updates. Nil fields keep
// their prior values.
type ConfigurationPatch struct {
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// PromptPatch carries partial prompt updates. Nil fields keep their prior
// values.
type PromptPatch struct {
	Base           *string   `json:"base,omitempty"`
	Objectives     *[]string `json:"objectives,omitempty"`
	Rules          *[]string `json:"rules,omitempty"`
	Examples       *string   `json:"examples,omitempty"`
	ResponseFormat *string   `json:"response_format,omitempty"`
}

// UpdateAgentRequest is a partial-merge update: omitted fields retain prior
// values, and nested prompt/configuration objects merge field by field.
type UpdateAgentRequest struct {
	Name          *string             `json:"name,omitempty"`
	Description   *string             `json:"description,omitempty"`
	Categoria     *string             `json:"categoria,omitempty"`
	Configuration *ConfigurationPatch `json:"configuration,omitempty"`
	Prompt        *PromptPatch        `json:"prompt,omitempty"`
	SubAgents     *[]SubAgentLink     `json:"sub_agents,omitempty"`
	IsPublic      *bool               `json:"is_public,omitempty"`
}

// ListPublicAgentsResponse is the response for the public agent listing.
type ListPublicAgentsResponse struct {
	Agents []PublicAgentView `json:"agents"`
	Total  int               `json:"total"`
}
