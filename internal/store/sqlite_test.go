package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/pkg/logger"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	log, err := logger.New("error")
	require.NoError(t, err)

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testAgent(ownerID, name string) *model.Agent {
	now := time.Now().UTC()
	return &model.Agent{
		ID:      "agent-" + name,
		OwnerID: ownerID,
		Name:    name,
		Configuration: model.Configuration{
			Model:       "claude-3-5-sonnet-20241022",
			Temperature: 0.7,
		},
		Prompt: model.Prompt{
			Base:       "You help with " + name,
			Objectives: []string{"be useful"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testConversation(ownerID, agentID, id string) *model.Conversation {
	now := time.Now().UTC()
	return &model.Conversation{
		ID:        id,
		OwnerID:   ownerID,
		AgentID:   agentID,
		Title:     "Test conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
