// Package registry owns agent records and their validation rules.
package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/store"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

// Registry handles agent CRUD with owner scoping.
type Registry struct {
	store  store.Store
	logger *logger.Logger

	// systemAgents are configured subjects allowed to write any agent (the
	// prompt-engineer delegation). Injected, never hard-coded.
	systemAgents map[string]bool
}

// New creates a registry. systemAgentIDs lists subjects treated as the owner
// for write purposes.
func New(st store.Store, systemAgentIDs []string, log *logger.Logger) *Registry {
	system := make(map[string]bool, len(systemAgentIDs))
	for _, id := range systemAgentIDs {
		if id != "" {
			system[id] = true
		}
	}
	return &Registry{store: st, logger: log, systemAgents: system}
}

// Create validates and persists a new agent for ownerID.
func (r *Registry) Create(ctx context.Context, ownerID string, req *model.CreateAgentRequest) (*model.Agent, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateTemperature(req.Configuration.Temperature); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	agent := &model.Agent{
		ID:            uuid.Must(uuid.NewV7()).String(),
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Categoria:     req.Categoria,
		Configuration: req.Configuration,
		Prompt:        req.Prompt,
		SubAgents:     req.SubAgents,
		IsPublic:      req.IsPublic,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := validateSubAgents(agent.ID, agent.SubAgents); err != nil {
		return nil, err
	}

	if err := r.store.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}

	r.logger.Info("agent created",
		zap.String("agent_id", agent.ID),
		zap.String("owner_id", ownerID),
	)
	return agent, nil
}

// Update applies a partial-merge update: omitted fields retain prior values
// and nested prompt/configuration objects merge field by field.
func (r *Registry) Update(ctx context.Context, agentID, callerID string, req *model.UpdateAgentRequest) (*model.Agent, error) {
	agent, err := r.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if err := r.checkWrite(agent, callerID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return nil, err
		}
		agent.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		agent.Description = *req.Description
	}
	if req.Categoria != nil {
		agent.Categoria = *req.Categoria
	}
	if req.Configuration != nil {
		if req.Configuration.Model != nil {
			agent.Configuration.Model = *req.Configuration.Model
		}
		if req.Configuration.Temperature != nil {
			if err := validateTemperature(*req.Configuration.Temperature); err != nil {
				return nil, err
			}
			agent.Configuration.Temperature = *req.Configuration.Temperature
		}
	}
	if req.Prompt != nil {
		if req.Prompt.Base != nil {
			agent.Prompt.Base = *req.Prompt.Base
		}
		if req.Prompt.Objectives != nil {
			agent.Prompt.Objectives = *req.Prompt.Objectives
		}
		if req.Prompt.Rules != nil {
			agent.Prompt.Rules = *req.Prompt.Rules
		}
		if req.Prompt.Examples != nil {
			agent.Prompt.Examples = *req.Prompt.Examples
		}
		if req.Prompt.ResponseFormat != nil {
			agent.Prompt.ResponseFormat = *req.Prompt.ResponseFormat
		}
	}
	if req.SubAgents != nil {
		if err := validateSubAgents(agent.ID, *req.SubAgents); err != nil {
			return nil, err
		}
		agent.SubAgents = *req.SubAgents
	}
	if req.IsPublic != nil {
		agent.IsPublic = *req.IsPublic
	}

	agent.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateAgent(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// Delete removes an agent. Conversations keep their agent reference and
// degrade gracefully.
func (r *Registry) Delete(ctx context.Context, agentID, callerID string) error {
	if r.systemAgents[callerID] {
		agent, err := r.store.GetAgent(ctx, agentID)
		if err != nil {
			return err
		}
		callerID = agent.OwnerID
	}
	return r.store.DeleteAgent(ctx, agentID, callerID)
}

// Get retrieves an agent by id. No owner filter: delegation reads agents
// across owners, and handlers apply their own scoping.
func (r *Registry) Get(ctx context.Context, agentID string) (*model.Agent, error) {
	return r.store.GetAgent(ctx, agentID)
}

// GetPublic returns the owner-stripped view of a public agent. Private
// agents are reported as absent.
func (r *Registry) GetPublic(ctx context.Context, agentID string) (*model.PublicAgentView, error) {
	agent, err := r.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !agent.IsPublic {
		return nil, fmt.Errorf("agent %s: %w", agentID, model.ErrNotFound)
	}
	return agent.PublicView(), nil
}

// List returns all agents owned by ownerID.
func (r *Registry) List(ctx context.Context, ownerID string) ([]model.Agent, error) {
	return r.store.ListAgents(ctx, ownerID)
}

// ListPublic returns a page of public agents, newest first, plus the
// unpaginated total.
func (r *Registry) ListPublic(ctx context.Context, categoria, search string, page, limit int) (*model.ListPublicAgentsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	agents, total, err := r.store.ListPublicAgents(ctx, categoria, search, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	views := make([]model.PublicAgentView, len(agents))
	for i := range agents {
		views[i] = *agents[i].PublicView()
	}
	return &model.ListPublicAgentsResponse{Agents: views, Total: total}, nil
}

func (r *Registry) checkWrite(agent *model.Agent, callerID string) error {
	if agent.OwnerID == callerID || r.systemAgents[callerID] {
		return nil
	}
	return fmt.Errorf("agent %s: %w", agent.ID, model.ErrForbidden)
}

func validateName(name string) error {
	n := len(strings.TrimSpace(name))
	if n < model.AgentNameMinLength || n > model.AgentNameMaxLength {
		return fmt.Errorf("agent name must be %d-%d characters: %w",
			model.AgentNameMinLength, model.AgentNameMaxLength, model.ErrValidation)
	}
	return nil
}

func validateTemperature(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("temperature must be in [0,1]: %w", model.ErrValidation)
	}
	return nil
}

func validateSubAgents(agentID string, links []model.SubAgentLink) error {
	for _, link := range links {
		if link.AgentID == "" {
			return fmt.Errorf("sub-agent reference must not be empty: %w", model.ErrValidation)
		}
		if link.AgentID == agentID {
			return fmt.Errorf("agent must not reference itself as a sub-agent: %w", model.ErrValidation)
		}
	}
	return nil
}
