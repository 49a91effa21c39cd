package delegation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/agent-platform/internal/llm"
	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

// fakeResolver serves agents from a fixed map.
type fakeResolver struct {
	agents map[string]*model.Agent
}

func (f *fakeResolver) Get(_ context.Context, agentID string) (*model.Agent, error) {
	agent, ok := f.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, model.ErrNotFound)
	}
	return agent, nil
}

// fakeClient scripts completion replies. Selection calls are recognized by
// their system prompt and answered from decisions in order; everything else
// gets the canned answer.
type fakeClient struct {
	decisions      []string
	answer         string
	err            error
	selectionCalls int
	answerCalls    int
	lastSystem     string
}

func (f *fakeClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if strings.Contains(req.System, "delegate_to") {
		f.selectionCalls++
		if len(f.decisions) == 0 {
			return &llm.CompletionResponse{Content: `{"delegate_to":""}`}, nil
		}
		d := f.decisions[0]
		f.decisions = f.decisions[1:]
		return &llm.CompletionResponse{Content: d}, nil
	}
	f.answerCalls++
	f.lastSystem = req.System
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.answer, Model: req.Model, TokensIn: 10, TokensOut: 20}, nil
}

func (f *fakeClient) Name() string     { return "fake" }
func (f *fakeClient) Models() []string { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	return log
}

func leafAgent(id, name string) *model.Agent {
	return &model.Agent{
		ID:   id,
		Name: name,
		Configuration: model.Configuration{
			Model:       "claude-3-5-sonnet-20241022",
			Temperature: 0.7,
		},
		Prompt: model.Prompt{Base: "You are " + name + "."},
	}
}

func TestRouter_DirectWithoutSubAgents(t *testing.T) {
	agent := leafAgent("a1", "solo")
	client := &fakeClient{answer: "direct answer"}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": agent}}, client, 3, time.Second, testLogger(t))

	res, err := r.Route(context.Background(), agent, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "direct answer", res.Content)
	assert.Equal(t, "a1", res.HandledBy)
	assert.False(t, res.Delegated)
	// No sub-agents means no selection round-trip at all.
	assert.Equal(t, 0, client.selectionCalls)
	assert.Equal(t, 1, client.answerCalls)
}

func TestRouter_DelegatesBySelection(t *testing.T) {
	sub := leafAgent("a2", "refunds")
	root := leafAgent("a1", "billing")
	root.SubAgents = []model.SubAgentLink{{AgentID: "a2", Priority: 1, WhenToUse: "refund requests"}}

	client := &fakeClient{
		decisions: []string{`{"delegate_to":"refunds"}`},
		answer:    "refund issued",
	}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": root, "a2": sub}}, client, 3, time.Second, testLogger(t))

	res, err := r.Route(context.Background(), root, "I want my money back", nil)
	require.NoError(t, err)
	assert.Equal(t, "refund issued", res.Content)
	assert.Equal(t, "a2", res.HandledBy)
	assert.Equal(t, "refunds", res.HandledByName)
	assert.True(t, res.Delegated)
	assert.Equal(t, 1, res.Depth)
	// The sub-agent answers with its own prompt.
	assert.Contains(t, client.lastSystem, "You are refunds.")
}

func TestRouter_EmptyDecisionAnswersDirectly(t *testing.T) {
	sub := leafAgent("a2", "refunds")
	root := leafAgent("a1", "billing")
	root.SubAgents = []model.SubAgentLink{{AgentID: "a2", Priority: 1, WhenToUse: "refund requests"}}

	client := &fakeClient{
		decisions: []string{`{"delegate_to":""}`},
		answer:    "kept it",
	}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": root, "a2": sub}}, client, 3, time.Second, testLogger(t))

	res, err := r.Route(context.Background(), root, "general question", nil)
	require.NoError(t, err)
	assert.Equal(t, "a1", res.HandledBy)
	assert.False(t, res.Delegated)
}

func TestRouter_UnparseableDecisionFallsBack(t *testing.T) {
	root := leafAgent("a1", "billing")
	root.SubAgents = []model.SubAgentLink{{AgentID: "a2", Priority: 1, WhenToUse: "refunds"}}

	client := &fakeClient{
		decisions: []string{"I think you should ask refunds about this"},
		answer:    "fallback answer",
	}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": root}}, client, 3, time.Second, testLogger(t))

	res, err := r.Route(context.Background(), root, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback answer", res.Content)
	assert.Equal(t, "a1", res.HandledBy)
	assert.False(t, res.Delegated)
}

func TestRouter_UnknownSpecialistFallsBack(t *testing.T) {
	root := leafAgent("a1", "billing")
	root.SubAgents = []model.SubAgentLink{{AgentID: "a2", Priority: 1, WhenToUse: "refunds"}}

	client := &fakeClient{
		decisions: []string{`{"delegate_to":"nonexistent"}`},
		answer:    "handled here",
	}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": root, "a2": leafAgent("a2", "refunds")}}, client, 3, time.Second, testLogger(t))

	res, err := r.Route(context.Background(), root, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "a1", res.HandledBy)
}

func TestRouter_DanglingReferenceFallsBack(t *testing.T) {
	root := leafAgent("a1", "billing")
	root.SubAgents = []model.SubAgentLink{{AgentID: "gone", Priority: 1, WhenToUse: "anything"}}

	client := &fakeClient{
		decisions: []string{`{"delegate_to":"gone"}`},
		answer:    "still answered",
	}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": root}}, client, 3, time.Second, testLogger(t))

	res, err := r.Route(context.Background(), root, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "still answered", res.Content)
	assert.Equal(t, "a1", res.HandledBy)
	assert.False(t, res.Delegated)
}

// Two agents referencing each other must terminate with an answer, not
// recurse forever.
func TestRouter_CycleTerminates(t *testing.T) {
	a := leafAgent("a1", "alpha")
	b := leafAgent("a2", "beta")
	a.SubAgents = []model.SubAgentLink{{AgentID: "a2", Priority: 1, WhenToUse: "anything"}}
	b.SubAgents = []model.SubAgentLink{{AgentID: "a1", Priority: 1, WhenToUse: "anything"}}

	client := &fakeClient{
		decisions: []string{`{"delegate_to":"beta"}`, `{"delegate_to":"alpha"}`},
		answer:    "terminal answer",
	}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": a, "a2": b}}, client, 3, time.Second, testLogger(t))

	res, err := r.Route(context.Background(), a, "loop?", nil)
	require.NoError(t, err)
	assert.Equal(t, "terminal answer", res.Content)
	// Beta sees alpha already visited and answers itself.
	assert.Equal(t, "a2", res.HandledBy)
	assert.True(t, res.Delegated)
	assert.Equal(t, 1, res.Depth)
}

func TestRouter_DepthCap(t *testing.T) {
	// a1 -> a2 -> a3, with maxDepth 1: a2 answers without consulting its own
	// sub-agents.
	a3 := leafAgent("a3", "gamma")
	a2 := leafAgent("a2", "beta")
	a2.SubAgents = []model.SubAgentLink{{AgentID: "a3", Priority: 1, WhenToUse: "anything"}}
	a1 := leafAgent("a1", "alpha")
	a1.SubAgents = []model.SubAgentLink{{AgentID: "a2", Priority: 1, WhenToUse: "anything"}}

	client := &fakeClient{
		decisions: []string{`{"delegate_to":"beta"}`, `{"delegate_to":"gamma"}`},
		answer:    "capped",
	}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": a1, "a2": a2, "a3": a3}}, client, 1, time.Second, testLogger(t))

	res, err := r.Route(context.Background(), a1, "deep question", nil)
	require.NoError(t, err)
	assert.Equal(t, "a2", res.HandledBy)
	assert.Equal(t, 1, res.Depth)
	// Only one selection call happened; the cap skipped the second.
	assert.Equal(t, 1, client.selectionCalls)
}

func TestRouter_AnswerFailurePropagates(t *testing.T) {
	agent := leafAgent("a1", "solo")
	client := &fakeClient{err: errors.New("provider down")}
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": agent}}, client, 3, time.Second, testLogger(t))

	_, err := r.Route(context.Background(), agent, "hello", nil)
	require.ErrorIs(t, err, model.ErrUpstream)
}

func TestRouter_NoClientConfigured(t *testing.T) {
	agent := leafAgent("a1", "solo")
	r := NewRouter(&fakeResolver{agents: map[string]*model.Agent{"a1": agent}}, nil, 3, time.Second, testLogger(t))

	_, err := r.Route(context.Background(), agent, "hello", nil)
	require.ErrorIs(t, err, model.ErrUpstream)
}

func TestSystemPrompt(t *testing.T) {
	agent := leafAgent("a1", "writer")
	agent.Prompt = model.Prompt{
		Base:           "You write emails.",
		Objectives:     []string{"be concise"},
		Rules:          []string{"no emoji"},
		Examples:       "Subject: hello",
		ResponseFormat: "plain text",
	}

	prompt := SystemPrompt(agent)
	assert.Contains(t, prompt, "You write emails.")
	assert.Contains(t, prompt, "- be concise")
	assert.Contains(t, prompt, "- no emoji")
	assert.Contains(t, prompt, "Subject: hello")
	assert.Contains(t, prompt, "plain text")
}

func TestParseSelection(t *testing.T) {
	choice, err := parseSelection("```json\n{\"delegate_to\":\"refunds\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "refunds", choice)

	choice, err = parseSelection(`{"delegate_to": ""}`)
	require.NoError(t, err)
	assert.Equal(t, "", choice)

	_, err = parseSelection("no json here")
	require.Error(t, err)
}
