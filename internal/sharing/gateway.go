// Package sharing resolves public share tokens into identity-stripped
// conversation views. This path is intentionally unauthenticated and never
// touches the identity gate.
package sharing

import (
	"context"

	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/store"
	"github.com/promptdeck/agent-platform/pkg/logger"
	"github.com/promptdeck/agent-platform/pkg/metrics"
)

// AgentNamer looks up agent names for display on the public view.
type AgentNamer interface {
	Get(ctx context.Context, agentID string) (*model.Agent, error)
}

// Gateway resolves share tokens against live conversation state.
type Gateway struct {
	store  store.Store
	agents AgentNamer
	logger *logger.Logger
}

// NewGateway creates a sharing gateway.
func NewGateway(st store.Store, agents AgentNamer, log *logger.Logger) *Gateway {
	return &Gateway{store: st, agents: agents, logger: log}
}

// ResolveShared returns the public view for shareID. The shared flag is
// re-checked on every call, so disabling sharing (or deleting the
// conversation) takes effect immediately. Owner identity is stripped.
func (g *Gateway) ResolveShared(ctx context.Context, shareID string) (*model.PublicConversationView, error) {
	conv, err := g.store.GetSharedConversation(ctx, shareID)
	if err != nil {
		metrics.ShareResolvesTotal.WithLabelValues("miss").Inc()
		return nil, err
	}

	var agentName string
	if agent, err := g.agents.Get(ctx, conv.AgentID); err == nil {
		agentName = agent.Name
	}

	messages := conv.Messages
	if messages == nil {
		messages = []model.Message{}
	}

	metrics.ShareResolvesTotal.WithLabelValues("hit").Inc()
	g.logger.Debug("share resolved", zap.String("conversation_id", conv.ID))

	return &model.PublicConversationView{
		Title:     conv.Title,
		AgentName: agentName,
		Messages:  messages,
		UpdatedAt: conv.UpdatedAt,
	}, nil
}
