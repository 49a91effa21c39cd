package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/store"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

func setupRegistry(t *testing.T, systemAgentIDs ...string) *Registry {
	t.Helper()

	log, err := logger.New("error")
	require.NoError(t, err)

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(st, systemAgentIDs, log)
}

func createRequest(name string) *model.CreateAgentRequest {
	return &model.CreateAgentRequest{
		Name: name,
		Configuration: model.Configuration{
			Model:       "claude-3-5-sonnet-20241022",
			Temperature: 0.5,
		},
		Prompt: model.Prompt{
			Base:       "You help with billing.",
			Objectives: []string{"resolve billing questions"},
		},
	}
}

func TestRegistry_CreateOnce(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	agent, err := r.Create(ctx, "owner-1", createRequest("billing-bot"))
	require.NoError(t, err)
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, "owner-1", agent.OwnerID)

	// Same owner, same name: refused.
	_, err = r.Create(ctx, "owner-1", createRequest("billing-bot"))
	require.ErrorIs(t, err, model.ErrConflict)

	// Different owner is free to reuse the name.
	_, err = r.Create(ctx, "owner-2", createRequest("billing-bot"))
	require.NoError(t, err)
}

func TestRegistry_NameValidation(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, "owner-1", createRequest("ab"))
	require.ErrorIs(t, err, model.ErrValidation)

	long := make([]byte, model.AgentNameMaxLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = r.Create(ctx, "owner-1", createRequest(string(long)))
	require.ErrorIs(t, err, model.ErrValidation)

	// Surrounding whitespace doesn't count toward the length.
	agent, err := r.Create(ctx, "owner-1", createRequest("  ok-name  "))
	require.NoError(t, err)
	assert.Equal(t, "ok-name", agent.Name)
}

func TestRegistry_TemperatureValidation(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	req := createRequest("hot-bot")
	req.Configuration.Temperature = 1.5
	_, err := r.Create(ctx, "owner-1", req)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestRegistry_SelfReferenceRejected(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	agent, err := r.Create(ctx, "owner-1", createRequest("parent"))
	require.NoError(t, err)

	self := []model.SubAgentLink{{AgentID: agent.ID, Priority: 1, WhenToUse: "always"}}
	_, err = r.Update(ctx, agent.ID, "owner-1", &model.UpdateAgentRequest{SubAgents: &self})
	require.ErrorIs(t, err, model.ErrValidation)

	empty := []model.SubAgentLink{{AgentID: "", Priority: 1}}
	_, err = r.Update(ctx, agent.ID, "owner-1", &model.UpdateAgentRequest{SubAgents: &empty})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestRegistry_PartialMerge(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	agent, err := r.Create(ctx, "owner-1", createRequest("merge-bot"))
	require.NoError(t, err)

	newBase := "You help with refunds."
	updated, err := r.Update(ctx, agent.ID, "owner-1", &model.UpdateAgentRequest{
		Prompt: &model.PromptPatch{Base: &newBase},
	})
	require.NoError(t, err)

	// Only prompt.base changed; the sibling field survived the merge.
	assert.Equal(t, "You help with refunds.", updated.Prompt.Base)
	assert.Equal(t, []string{"resolve billing questions"}, updated.Prompt.Objectives)
	assert.Equal(t, 0.5, updated.Configuration.Temperature)

	temp := 0.9
	updated, err = r.Update(ctx, agent.ID, "owner-1", &model.UpdateAgentRequest{
		Configuration: &model.ConfigurationPatch{Temperature: &temp},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.9, updated.Configuration.Temperature)
	assert.Equal(t, "claude-3-5-sonnet-20241022", updated.Configuration.Model)
	assert.Equal(t, "You help with refunds.", updated.Prompt.Base)
}

func TestRegistry_WriteScoping(t *testing.T) {
	r := setupRegistry(t, "system-prompt-engineer")
	ctx := context.Background()

	agent, err := r.Create(ctx, "owner-1", createRequest("scoped-bot"))
	require.NoError(t, err)

	desc := "changed"
	_, err = r.Update(ctx, agent.ID, "owner-2", &model.UpdateAgentRequest{Description: &desc})
	require.ErrorIs(t, err, model.ErrForbidden)

	// The configured system subject writes on behalf of any owner.
	updated, err := r.Update(ctx, agent.ID, "system-prompt-engineer", &model.UpdateAgentRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Description)
	assert.Equal(t, "owner-1", updated.OwnerID)

	require.NoError(t, r.Delete(ctx, agent.ID, "system-prompt-engineer"))
	_, err = r.Get(ctx, agent.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestRegistry_GetPublic(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	req := createRequest("public-bot")
	req.IsPublic = true
	agent, err := r.Create(ctx, "owner-1", req)
	require.NoError(t, err)

	view, err := r.GetPublic(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "public-bot", view.Name)

	private, err := r.Create(ctx, "owner-1", createRequest("private-bot"))
	require.NoError(t, err)

	// Private agents read as absent, not forbidden.
	_, err = r.GetPublic(ctx, private.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestRegistry_ListPublicPagination(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		req := createRequest("agent-" + name)
		req.IsPublic = true
		_, err := r.Create(ctx, "owner-1", req)
		require.NoError(t, err)
	}

	resp, err := r.ListPublic(ctx, "", "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Agents, 2)

	resp, err = r.ListPublic(ctx, "", "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Agents, 1)

	// Out-of-range page and limit normalize instead of erroring.
	resp, err = r.ListPublic(ctx, "", "", 0, -5)
	require.NoError(t, err)
	assert.Len(t, resp.Agents, 3)
}
