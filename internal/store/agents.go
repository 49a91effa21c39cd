package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/promptdeck/agent-platform/internal/model"
)

const agentColumns = `id, owner_id, name, description, categoria, model, temperature,
	prompt_json, sub_agents_json, is_public, created_at, updated_at`

// CreateAgent inserts a new agent. Returns model.ErrConflict if the owner
// already has an agent with the same name.
func (s *SQLiteStore) CreateAgent(ctx context.Context, agent *model.Agent) error {
	promptJSON, err := json.Marshal(agent.Prompt)
	if err != nil {
		return fmt.Errorf("marshaling prompt: %w", err)
	}
	subAgentsJSON, err := json.Marshal(agent.SubAgents)
	if err != nil {
		return fmt.Errorf("marshaling sub-agents: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.OwnerID, agent.Name, agent.Description, agent.Categoria,
		agent.Configuration.Model, agent.Configuration.Temperature,
		string(promptJSON), string(subAgentsJSON), boolToInt(agent.IsPublic),
		encodeTime(agent.CreatedAt), encodeTime(agent.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("agent name %q: %w", agent.Name, model.ErrConflict)
		}
		return fmt.Errorf("inserting agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by id regardless of owner. Ownership policy
// belongs to the registry: delegation legitimately reads agents owned by
// other identities.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*model.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// UpdateAgent writes the full agent row. The caller (registry) performs the
// partial merge; the store only persists the result.
func (s *SQLiteStore) UpdateAgent(ctx context.Context, agent *model.Agent) error {
	promptJSON, err := json.Marshal(agent.Prompt)
	if err != nil {
		return fmt.Errorf("marshaling prompt: %w", err)
	}
	subAgentsJSON, err := json.Marshal(agent.SubAgents)
	if err != nil {
		return fmt.Errorf("marshaling sub-agents: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE agents SET name = ?, description = ?, categoria = ?, model = ?,
			temperature = ?, prompt_json = ?, sub_agents_json = ?, is_public = ?,
			updated_at = ?
		WHERE id = ?`,
		agent.Name, agent.Description, agent.Categoria,
		agent.Configuration.Model, agent.Configuration.Temperature,
		string(promptJSON), string(subAgentsJSON), boolToInt(agent.IsPublic),
		encodeTime(agent.UpdatedAt), agent.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("agent name %q: %w", agent.Name, model.ErrConflict)
		}
		return fmt.Errorf("updating agent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("agent %s: %w", agent.ID, model.ErrNotFound)
	}
	return nil
}

// DeleteAgent removes an agent owned by ownerID. Conversations referencing
// the agent are deliberately untouched; readers degrade gracefully on the
// dangling reference.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, id, ownerID string) error {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM agents WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("agent %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading agent owner: %w", err)
	}
	if owner != ownerID {
		return fmt.Errorf("agent %s: %w", id, model.ErrForbidden)
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	return nil
}

// ListAgents returns all agents owned by ownerID, newest first.
func (s *SQLiteStore) ListAgents(ctx context.Context, ownerID string) ([]model.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()
	return collectAgents(rows)
}

// ListPublicAgents returns public agents filtered by category and text
// search, newest first, with the unpaginated total for the pager.
func (s *SQLiteStore) ListPublicAgents(ctx context.Context, categoria, search string, limit, offset int) ([]model.Agent, int, error) {
	where := []string{"is_public = 1"}
	args := []any{}
	if categoria != "" {
		where = append(where, "categoria = ?")
		args = append(args, categoria)
	}
	if search != "" {
		where = append(where, "(instr(lower(name), lower(?)) > 0 OR instr(lower(description), lower(?)) > 0)")
		args = append(args, search, search)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agents WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting public agents: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE `+cond+`
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing public agents: %w", err)
	}
	defer rows.Close()

	agents, err := collectAgents(rows)
	if err != nil {
		return nil, 0, err
	}
	return agents, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*model.Agent, error) {
	var a model.Agent
	var promptJSON, subAgentsJSON, createdAt, updatedAt string
	var isPublic int

	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.Categoria,
		&a.Configuration.Model, &a.Configuration.Temperature,
		&promptJSON, &subAgentsJSON, &isPublic, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning agent: %w", err)
	}

	if err := json.Unmarshal([]byte(promptJSON), &a.Prompt); err != nil {
		return nil, fmt.Errorf("unmarshaling prompt: %w", err)
	}
	if err := json.Unmarshal([]byte(subAgentsJSON), &a.SubAgents); err != nil {
		return nil, fmt.Errorf("unmarshaling sub-agents: %w", err)
	}
	a.IsPublic = isPublic != 0
	a.CreatedAt = decodeTime(createdAt)
	a.UpdatedAt = decodeTime(updatedAt)
	return &a, nil
}

func collectAgents(rows *sql.Rows) ([]model.Agent, error) {
	var agents []model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
