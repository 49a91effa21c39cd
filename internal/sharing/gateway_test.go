package sharing

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/internal/store"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

type stubNamer struct {
	agents map[string]string
}

func (s *stubNamer) Get(_ context.Context, agentID string) (*model.Agent, error) {
	name, ok := s.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, model.ErrNotFound)
	}
	return &model.Agent{ID: agentID, Name: name}, nil
}

func setupGateway(t *testing.T, namer AgentNamer) (*Gateway, *store.SQLiteStore) {
	t.Helper()

	log, err := logger.New("error")
	require.NoError(t, err)

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewGateway(st, namer, log), st
}

func seedSharedConversation(t *testing.T, st *store.SQLiteStore, shareID string) *model.Conversation {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:        "conv-1",
		OwnerID:   "owner-1",
		AgentID:   "agent-1",
		Title:     "Shared thread",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.CreateConversation(ctx, conv))

	msg := &model.Message{ID: "m1", Role: model.RoleUser, Content: "hello", Timestamp: now}
	_, err := st.AppendMessages(ctx, conv.ID, conv.OwnerID, []*model.Message{msg})
	require.NoError(t, err)

	_, err = st.SetShared(ctx, conv.ID, conv.OwnerID, true, func() string { return shareID })
	require.NoError(t, err)
	return conv
}

func TestGateway_ResolveStripsOwner(t *testing.T) {
	g, st := setupGateway(t, &stubNamer{agents: map[string]string{"agent-1": "billing-bot"}})
	seedSharedConversation(t, st, "tok-1")

	view, err := g.ResolveShared(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Shared thread", view.Title)
	assert.Equal(t, "billing-bot", view.AgentName)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "hello", view.Messages[0].Content)
}

func TestGateway_UnknownToken(t *testing.T) {
	g, _ := setupGateway(t, &stubNamer{})

	_, err := g.ResolveShared(context.Background(), "no-such-token")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestGateway_DisabledShareStopsResolving(t *testing.T) {
	g, st := setupGateway(t, &stubNamer{agents: map[string]string{"agent-1": "billing-bot"}})
	conv := seedSharedConversation(t, st, "tok-1")

	_, err := st.SetShared(context.Background(), conv.ID, conv.OwnerID, false, func() string { return "unused" })
	require.NoError(t, err)

	_, err = g.ResolveShared(context.Background(), "tok-1")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestGateway_DeletedAgentStillResolves(t *testing.T) {
	// Agent lookup failure degrades to an empty display name, not an error.
	g, st := setupGateway(t, &stubNamer{})
	seedSharedConversation(t, st, "tok-1")

	view, err := g.ResolveShared(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Empty(t, view.AgentName)
	assert.Equal(t, "Shared thread", view.Title)
}
