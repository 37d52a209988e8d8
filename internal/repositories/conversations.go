package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/sqlite"
)

type ConversationRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewConversationRepository(dbs *sqlite.Database, logger *slog.Logger) *ConversationRepository {
	return &ConversationRepository{
		dbs:    dbs,
		logger: logger.With("source", "ConversationRepository"),
	}
}

// Start creates a conversation, attached to a call when callID is non-nil.
func (r *ConversationRepository) Start(ctx context.Context, userID []byte, callID *string) (*models.Conversation, error) {
	conversation := models.Conversation{
		CallID:    callID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	stmt := `INSERT INTO conversations (call_id, user_id, created_at) VALUES (?, ?, ?)`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, callID, userID, conversation.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert conversation")
	}
	if conversation.ID, err = result.LastInsertId(); err != nil {
		return nil, errors.Wrap(err, "last insert id")
	}
	return &conversation, nil
}

// ForCall returns the user's conversation in the call, creating one on first use.
func (r *ConversationRepository) ForCall(ctx context.Context, callID string, userID []byte) (*models.Conversation, error) {
	var conversation models.Conversation
	stmt := `SELECT id, call_id, user_id, created_at
FROM conversations
WHERE call_id = ? AND user_id = ?
ORDER BY created_at DESC
LIMIT 1`
	err := r.dbs.ReadOnly.GetContext(ctx, &conversation, stmt, callID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return r.Start(ctx, userID, &callID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read conversation", slog.String("call_id", callID))
	}
	return &conversation, nil
}

// AppendMessage adds the next turn to the conversation. The order is derived
// from the previous message so turns read back in insertion order.
func (r *ConversationRepository) AppendMessage(
	ctx context.Context,
	conversationID int64,
	role models.MessageRole,
	content string,
) error {
	stmt := `WITH next_order AS (
    SELECT COALESCE(MAX("order") + 1, 0) AS "order"
    FROM assistant_messages
    WHERE conversation_id = @conversation_id)
INSERT
INTO assistant_messages (conversation_id, "order", role, content, created_at)
VALUES (@conversation_id, (SELECT "order" FROM next_order), @role, @content, @created_at);`
	params := []any{
		sql.Named("conversation_id", conversationID),
		sql.Named("role", role),
		sql.Named("content", content),
		sql.Named("created_at", time.Now().UTC()),
	}
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "insert assistant message",
			slog.Int64("conversation_id", conversationID), slog.String("role", string(role)))
	}
	return nil
}

// Messages returns the conversation's turns oldest first.
func (r *ConversationRepository) Messages(ctx context.Context, conversationID int64) ([]models.AssistantMessage, error) {
	var messages []models.AssistantMessage
	stmt := `SELECT id, conversation_id, "order", role, content, created_at
FROM assistant_messages
WHERE conversation_id = ?
ORDER BY "order"`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &messages, stmt, conversationID); err != nil {
		return nil, errors.Wrap(err, "read assistant messages", slog.Int64("conversation_id", conversationID))
	}
	return messages, nil
}

// Persona returns the assistant persona seeded from fixtures.
func (r *ConversationRepository) Persona(ctx context.Context, id string) (*models.AssistantPersona, error) {
	var persona models.AssistantPersona
	stmt := `SELECT id, name, system_prompt FROM assistant_personas WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &persona, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "persona", slog.String("persona_id", id))
		}
		return nil, errors.Wrap(err, "read persona")
	}
	return &persona, nil
}
