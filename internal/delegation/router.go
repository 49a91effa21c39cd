// Package delegation decides, per incoming message, whether an agent answers
// directly or hands off to one of its sub-agents.
package delegation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/llm"
	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/pkg/logger"
	"github.com/promptdeck/agent-platform/pkg/metrics"
)

// DefaultMaxDepth bounds delegation recursion. Cycles among mutually
// referencing agents terminate at this bound with a direct answer.
const DefaultMaxDepth = 3

// selectionMaxTokens caps the delegation-selection call; the decision is a
// single short JSON object.
const selectionMaxTokens = 128

// AgentResolver loads agent records for delegation targets.
type AgentResolver interface {
	Get(ctx context.Context, agentID string) (*model.Agent, error)
}

// Result is a routed answer plus metadata about which agent produced it.
type Result struct {
	Content       string
	HandledBy     string
	HandledByName string
	Delegated     bool
	Depth         int
	Model         string
	TokensIn      int
	TokensOut     int
}

// Router routes messages through an agent's delegation tree. It keeps no
// per-request state beyond the call stack; any number may run in parallel.
type Router struct {
	resolver AgentResolver
	client   llm.Client
	maxDepth int
	timeout  time.Duration
	logger   *logger.Logger
}

// NewRouter creates a router. timeout bounds each completion call.
func NewRouter(resolver AgentResolver, client llm.Client, maxDepth int, timeout time.Duration, log *logger.Logger) *Router {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Router{
		resolver: resolver,
		client:   client,
		maxDepth: maxDepth,
		timeout:  timeout,
		logger:   log,
	}
}

// Route produces a single answer for message, delegating to sub-agents when
// the selection call picks one. Selection failures of any kind fall back to
// direct answering; only the final answer generation can fail the request.
func (r *Router) Route(ctx context.Context, agent *model.Agent, message string, history []llm.ChatMessage) (*Result, error) {
	visited := map[string]bool{agent.ID: true}
	res, err := r.route(ctx, agent, message, history, 0, visited)
	if err == nil {
		metrics.DelegationDepth.Observe(float64(res.Depth))
	}
	return res, err
}

func (r *Router) route(ctx context.Context, agent *model.Agent, message string, history []llm.ChatMessage, depth int, visited map[string]bool) (*Result, error) {
	// Depth bound is the fail-safe against cycles; never an error.
	if depth >= r.maxDepth {
		metrics.DelegationsTotal.WithLabelValues("depth_capped").Inc()
		return r.answerDirect(ctx, agent, message, history, depth)
	}

	if len(agent.SubAgents) == 0 {
		if depth == 0 {
			metrics.DelegationsTotal.WithLabelValues("direct").Inc()
		}
		return r.answerDirect(ctx, agent, message, history, depth)
	}

	link, ok := r.selectSubAgent(ctx, agent, message)
	if !ok {
		metrics.DelegationsTotal.WithLabelValues("direct").Inc()
		return r.answerDirect(ctx, agent, message, history, depth)
	}

	if visited[link.AgentID] {
		r.logger.Warn("delegation cycle short-circuited",
			zap.String("agent_id", agent.ID),
			zap.String("target_id", link.AgentID),
		)
		metrics.DelegationsTotal.WithLabelValues("cycle").Inc()
		return r.answerDirect(ctx, agent, message, history, depth)
	}

	sub, err := r.resolver.Get(ctx, link.AgentID)
	if err != nil {
		// Dangling reference: answer directly, never fail the caller.
		r.logger.Warn("sub-agent reference dangling, answering directly",
			zap.String("agent_id", agent.ID),
			zap.String("target_id", link.AgentID),
			zap.Error(err),
		)
		metrics.DelegationsTotal.WithLabelValues("dangling").Inc()
		return r.answerDirect(ctx, agent, message, history, depth)
	}

	r.logger.Info("delegating message",
		zap.String("from", agent.ID),
		zap.String("to", sub.ID),
		zap.Int("depth", depth+1),
	)
	metrics.DelegationsTotal.WithLabelValues("delegated").Inc()

	visited[sub.ID] = true
	// The sub-agent gets only the message, not the primary agent's
	// accumulated multi-turn context.
	res, err := r.route(ctx, sub, message, nil, depth+1, visited)
	if err != nil {
		return nil, err
	}
	res.Delegated = true
	return res, nil
}

// selectionDecision is the structured reply expected from the selection
// call.
type selectionDecision struct {
	DelegateTo string `json:"delegate_to"`
}

// selectSubAgent asks the completion provider to match the message against
// each sub-agent's whenToUse description. The provider, not local code, does
// the matching. Any failure here returns ok=false: delegation is an
// optimization, never a point of failure.
func (r *Router) selectSubAgent(ctx context.Context, agent *model.Agent, message string) (model.SubAgentLink, bool) {
	if r.client == nil {
		return model.SubAgentLink{}, false
	}

	links := make([]model.SubAgentLink, len(agent.SubAgents))
	copy(links, agent.SubAgents)
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].Priority < links[j].Priority
	})

	names := make(map[string]model.SubAgentLink, len(links))
	var sb strings.Builder
	sb.WriteString("You dispatch user messages to the most suitable specialist, or keep them for a direct answer.\n")
	sb.WriteString("Specialists, in priority order:\n")
	for i, link := range links {
		name := r.linkName(ctx, link)
		names[strings.ToLower(name)] = link
		fmt.Fprintf(&sb, "%d. %s — use when: %s\n", i+1, name, link.WhenToUse)
	}
	sb.WriteString("\nReply with exactly one JSON object: {\"delegate_to\":\"<specialist name>\"} ")
	sb.WriteString("or {\"delegate_to\":\"\"} to answer directly. No other text.")

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.Complete(callCtx, &llm.CompletionRequest{
		Model:       agent.Configuration.Model,
		System:      sb.String(),
		Messages:    []llm.ChatMessage{{Role: string(model.RoleUser), Content: message}},
		MaxTokens:   selectionMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		r.logger.Warn("delegation selection failed, answering directly",
			zap.String("agent_id", agent.ID),
			zap.Error(err),
		)
		return model.SubAgentLink{}, false
	}

	choice, err := parseSelection(resp.Content)
	if err != nil {
		r.logger.Warn("unparseable delegation decision, answering directly",
			zap.String("agent_id", agent.ID),
			zap.String("decision", resp.Content),
		)
		return model.SubAgentLink{}, false
	}
	if choice == "" {
		return model.SubAgentLink{}, false
	}

	link, ok := names[strings.ToLower(choice)]
	if !ok {
		r.logger.Warn("delegation decision names unknown specialist, answering directly",
			zap.String("agent_id", agent.ID),
			zap.String("choice", choice),
		)
		return model.SubAgentLink{}, false
	}
	return link, true
}

// linkName resolves the display name used in the selection prompt. A
// dangling target still gets an entry so priorities stay stable; selection
// of it is caught later.
func (r *Router) linkName(ctx context.Context, link model.SubAgentLink) string {
	sub, err := r.resolver.Get(ctx, link.AgentID)
	if err != nil {
		return link.AgentID
	}
	return sub.Name
}

func parseSelection(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	// Tolerate fenced or prefixed output around the JSON object.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", errors.New("no JSON object in decision")
	}
	var d selectionDecision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return "", err
	}
	return strings.TrimSpace(d.DelegateTo), nil
}

// answerDirect invokes the completion provider with the agent's own prompt,
// the forwarded history, and the message.
func (r *Router) answerDirect(ctx context.Context, agent *model.Agent, message string, history []llm.ChatMessage, depth int) (*Result, error) {
	if r.client == nil {
		return nil, fmt.Errorf("no completion provider configured: %w", model.ErrUpstream)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.client.Complete(callCtx, &llm.CompletionRequest{
		Model:       agent.Configuration.Model,
		System:      SystemPrompt(agent),
		Messages:    append(append([]llm.ChatMessage{}, history...), llm.ChatMessage{Role: string(model.RoleUser), Content: message}),
		Temperature: agent.Configuration.Temperature,
	})
	if err != nil {
		metrics.LLMCompletionDuration.WithLabelValues(r.client.Name(), "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("completion for agent %s: %w", agent.ID, model.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("completion for agent %s: %v: %w", agent.ID, err, model.ErrUpstream)
	}
	metrics.LLMCompletionDuration.WithLabelValues(r.client.Name(), "success").Observe(time.Since(start).Seconds())

	return &Result{
		Content:       resp.Content,
		HandledBy:     agent.ID,
		HandledByName: agent.Name,
		Depth:         depth,
		Model:         resp.Model,
		TokensIn:      resp.TokensIn,
		TokensOut:     resp.TokensOut,
	}, nil
}

// SystemPrompt renders an agent's structured prompt into the provider's
// system prompt.
func SystemPrompt(agent *model.Agent) string {
	var sb strings.Builder
	sb.WriteString(agent.Prompt.Base)
	if len(agent.Prompt.Objectives) > 0 {
		sb.WriteString("\n\nObjectives:\n")
		for _, o := range agent.Prompt.Objectives {
			sb.WriteString("- " + o + "\n")
		}
	}
	if len(agent.Prompt.Rules) > 0 {
		sb.WriteString("\nRules:\n")
		for _, rule := range agent.Prompt.Rules {
			sb.WriteString("- " + rule + "\n")
		}
	}
	if agent.Prompt.Examples != "" {
		sb.WriteString("\nExamples:\n" + agent.Prompt.Examples + "\n")
	}
	if agent.Prompt.ResponseFormat != "" {
		sb.WriteString("\nResponse format:\n" + agent.Prompt.ResponseFormat + "\n")
	}
	return sb.String()
}
