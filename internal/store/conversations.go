package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/promptdeck/agent-platform/internal/model"
)

const conversationColumns = `id, owner_id, agent_id, title, folder, shared,
	share_id, created_at, updated_at`

// CreateConversation inserts a new conversation with no messages.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.OwnerID, conv.AgentID, conv.Title, conv.Folder,
		boolToInt(conv.Shared), nullable(conv.ShareID),
		encodeTime(conv.CreatedAt), encodeTime(conv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation owned by ownerID, optionally with
// its message log.
func (s *SQLiteStore) GetConversation(ctx context.Context, id, ownerID string, withMessages bool) (*model.Conversation, error) {
	conv, err := s.getConversation(ctx, s.db, id, ownerID)
	if err != nil {
		return nil, err
	}
	if withMessages {
		msgs, err := s.messagesFor(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		conv.Messages = msgs
	}
	return conv, nil
}

// ListConversations returns the owner's conversations sorted by updated_at
// descending. agentID and folder narrow the result when non-empty; search
// matches the title or any message content, case-insensitive.
func (s *SQLiteStore) ListConversations(ctx context.Context, ownerID, agentID, folder, search string) ([]model.Conversation, error) {
	where := []string{"owner_id = ?"}
	args := []any{ownerID}
	if agentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, agentID)
	}
	if folder != "" {
		where = append(where, "folder = ?")
		args = append(args, folder)
	}
	if search != "" {
		where = append(where, `(instr(lower(title), lower(?)) > 0 OR id IN (
			SELECT conversation_id FROM messages WHERE instr(lower(content), lower(?)) > 0))`)
		args = append(args, search, search)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY updated_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// RenameConversation sets a new title.
func (s *SQLiteStore) RenameConversation(ctx context.Context, id, ownerID, title string) (*model.Conversation, error) {
	return s.mutateConversation(ctx, id, ownerID, func(conv *model.Conversation) {
		conv.Title = title
	})
}

// MoveConversation changes the folder grouping. Empty clears it.
func (s *SQLiteStore) MoveConversation(ctx context.Context, id, ownerID, folder string) (*model.Conversation, error) {
	return s.mutateConversation(ctx, id, ownerID, func(conv *model.Conversation) {
		conv.Folder = folder
	})
}

// SetShared toggles public sharing. The share token is minted once, on the
// first enable, and reused on every re-enable thereafter.
func (s *SQLiteStore) SetShared(ctx context.Context, id, ownerID string, shared bool, mint func() string) (*model.Conversation, error) {
	return s.mutateConversation(ctx, id, ownerID, func(conv *model.Conversation) {
		conv.Shared = shared
		if shared && conv.ShareID == "" {
			conv.ShareID = mint()
		}
	})
}

// DeleteConversation hard-deletes a conversation and its messages. The share
// token becomes unresolvable in the same statement batch.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.getConversation(ctx, tx, id, ownerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return tx.Commit()
}

// AppendMessages appends msgs to the conversation log in one transaction:
// ownership check, sequence assignment past the current tail, updated_at
// bump. Sequence numbers are written back into msgs.
func (s *SQLiteStore) AppendMessages(ctx context.Context, conversationID, ownerID string, msgs []*model.Message) (*model.Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	conv, err := s.getConversation(ctx, tx, conversationID, ownerID)
	if err != nil {
		return nil, err
	}

	var tail sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&tail); err != nil {
		return nil, fmt.Errorf("reading log tail: %w", err)
	}

	seq := tail.Int64
	for _, msg := range msgs {
		seq++
		msg.Seq = seq
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, seq, id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			conversationID, seq, msg.ID, msg.Role, msg.Content, encodeTime(msg.Timestamp),
		); err != nil {
			return nil, fmt.Errorf("appending message: %w", err)
		}
	}

	conv.UpdatedAt = bumpUpdatedAt(conv.UpdatedAt)
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		encodeTime(conv.UpdatedAt), conversationID); err != nil {
		return nil, fmt.Errorf("bumping updated_at: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing append: %w", err)
	}
	return conv, nil
}

// ListMessages returns the conversation's messages in log order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID, ownerID string) ([]model.Message, error) {
	if _, err := s.getConversation(ctx, s.db, conversationID, ownerID); err != nil {
		return nil, err
	}
	return s.messagesFor(ctx, s.db, conversationID)
}

// GetSharedConversation resolves a share token against live state. Disabled
// or deleted shares stop resolving immediately because the shared flag is
// checked on every call.
func (s *SQLiteStore) GetSharedConversation(ctx context.Context, shareID string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE share_id = ? AND shared = 1`, shareID)
	conv, err := scanConversation(row)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messagesFor(ctx, s.db, conv.ID)
	if err != nil {
		return nil, err
	}
	conv.Messages = msgs
	return conv, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) getConversation(ctx context.Context, q querier, id, ownerID string) (*model.Conversation, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != ownerID {
		return nil, fmt.Errorf("conversation %s: %w", id, model.ErrForbidden)
	}
	return conv, nil
}

func (s *SQLiteStore) messagesFor(ctx context.Context, q querier, conversationID string) ([]model.Message, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT seq, id, role, content, created_at FROM messages
		WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var createdAt string
		if err := rows.Scan(&m.Seq, &m.ID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Timestamp = decodeTime(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// mutateConversation loads, mutates, and writes back metadata fields in one
// transaction, bumping updated_at. Message rows are never touched here.
func (s *SQLiteStore) mutateConversation(ctx context.Context, id, ownerID string, mutate func(*model.Conversation)) (*model.Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	conv, err := s.getConversation(ctx, tx, id, ownerID)
	if err != nil {
		return nil, err
	}

	mutate(conv)
	conv.UpdatedAt = bumpUpdatedAt(conv.UpdatedAt)

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET title = ?, folder = ?, shared = ?, share_id = ?, updated_at = ?
		WHERE id = ?`,
		conv.Title, conv.Folder, boolToInt(conv.Shared), nullable(conv.ShareID),
		encodeTime(conv.UpdatedAt), id,
	); err != nil {
		return nil, fmt.Errorf("updating conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return conv, nil
}

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var c model.Conversation
	var shared int
	var shareID sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.OwnerID, &c.AgentID, &c.Title, &c.Folder,
		&shared, &shareID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	c.Shared = shared != 0
	c.ShareID = shareID.String
	c.CreatedAt = decodeTime(createdAt)
	c.UpdatedAt = decodeTime(updatedAt)
	return &c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
