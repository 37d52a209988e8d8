package models

import "time"

// Conversation groups the assistant messages of one chat. CallID is set when
// the chat happened inside a call.
type Conversation struct {
	ID        int64     `db:"id"`
	CallID    *string   `db:"call_id"`
	UserID    []byte    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// AssistantMessage is one turn in an assistant conversation, ordered by Order
// within its conversation.
type AssistantMessage struct {
	ID             int64       `db:"id"`
	ConversationID int64       `db:"conversation_id"`
	Order          int64       `db:"order"`
	Role           MessageRole `db:"role"`
	Content        string      `db:"content"`
	CreatedAt      time.Time   `db:"created_at"`
}

// AssistantPersona is the system prompt the assistant answers with. The default
// persona is seeded from fixtures.
type AssistantPersona struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	SystemPrompt string `db:"system_prompt"`
}

// DefaultPersonaID is the fixture persona every conversation starts with.
const DefaultPersonaID = "ace"
