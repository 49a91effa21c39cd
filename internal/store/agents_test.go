package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/agent-platform/internal/model"
)

func TestAgentStore_CreateAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	agent := testAgent("owner-1", "billing-bot")
	agent.SubAgents = []model.SubAgentLink{
		{AgentID: "agent-other", Priority: 1, WhenToUse: "handles refunds"},
	}
	require.NoError(t, s.CreateAgent(ctx, agent))

	got, err := s.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "billing-bot", got.Name)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, 0.7, got.Configuration.Temperature)
	assert.Equal(t, []string{"be useful"}, got.Prompt.Objectives)
	require.Len(t, got.SubAgents, 1)
	assert.Equal(t, "handles refunds", got.SubAgents[0].WhenToUse)
}

func TestAgentStore_DuplicateNamePerOwner(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := testAgent("owner-1", "helper")
	require.NoError(t, s.CreateAgent(ctx, first))

	dup := testAgent("owner-1", "helper")
	dup.ID = "agent-helper-2"
	err := s.CreateAgent(ctx, dup)
	require.ErrorIs(t, err, model.ErrConflict)

	// Same name under a different owner is fine.
	other := testAgent("owner-2", "helper")
	other.ID = "agent-helper-3"
	require.NoError(t, s.CreateAgent(ctx, other))
}

func TestAgentStore_GetMissing(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetAgent(context.Background(), "nope")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAgentStore_Update(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	agent := testAgent("owner-1", "helper")
	require.NoError(t, s.CreateAgent(ctx, agent))

	agent.Description = "updated"
	agent.Prompt.Base = "new base"
	agent.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.UpdateAgent(ctx, agent))

	got, err := s.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
	assert.Equal(t, "new base", got.Prompt.Base)
}

func TestAgentStore_UpdateMissing(t *testing.T) {
	s := setupTestStore(t)

	err := s.UpdateAgent(context.Background(), testAgent("owner-1", "ghost"))
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAgentStore_DeleteOwnership(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	agent := testAgent("owner-1", "helper")
	require.NoError(t, s.CreateAgent(ctx, agent))

	err := s.DeleteAgent(ctx, agent.ID, "owner-2")
	require.ErrorIs(t, err, model.ErrForbidden)

	// Still there.
	_, err = s.GetAgent(ctx, agent.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteAgent(ctx, agent.ID, "owner-1"))
	_, err = s.GetAgent(ctx, agent.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAgentStore_ListPublic(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"alpha", "beta", "gamma"} {
		agent := testAgent("owner-1", name)
		agent.IsPublic = true
		agent.Categoria = "support"
		agent.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, s.CreateAgent(ctx, agent))
	}
	private := testAgent("owner-1", "hidden")
	require.NoError(t, s.CreateAgent(ctx, private))

	agents, total, err := s.ListPublicAgents(ctx, "", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, agents, 3)
	// Newest first.
	assert.Equal(t, "gamma", agents[0].Name)
	assert.Equal(t, "alpha", agents[2].Name)

	// Category filter.
	agents, total, err = s.ListPublicAgents(ctx, "sales", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, agents)

	// Text search is case-insensitive.
	agents, total, err = s.ListPublicAgents(ctx, "", "BET", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, agents, 1)
	assert.Equal(t, "beta", agents[0].Name)

	// Pagination.
	agents, total, err = s.ListPublicAgents(ctx, "", "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, agents, 1)
}
