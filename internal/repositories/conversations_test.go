package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/repositories"
	"github.com/stretchr/testify/require"
)

func TestConversationRepository_AppendMessage(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewConversationRepository(dbs, logger)
	ctx := context.TODO()
	userID := []byte{1}
	createUser(t, dbs, userID, "Ada")

	conversation, err := repo.Start(ctx, userID, nil)
	require.NoError(t, err, "failed to start conversation")
	require.Nil(t, conversation.CallID, "standalone conversation should not reference a call")

	require.NoError(t, repo.AppendMessage(ctx, conversation.ID, models.MessageRoleSystem, "You are Ace."))
	require.NoError(t, repo.AppendMessage(ctx, conversation.ID, models.MessageRoleUser, "Plan a trip."))
	require.NoError(t, repo.AppendMessage(ctx, conversation.ID, models.MessageRoleAssistant, "Where to?"))

	messages, err := repo.Messages(ctx, conversation.ID)
	require.NoError(t, err, "failed to read messages")
	require.Len(t, messages, 3, "all turns should be stored")
	for i, message := range messages {
		require.Equal(t, int64(i), message.Order, "turns should read back in insertion order")
	}
	require.Equal(t, models.MessageRoleSystem, messages[0].Role)
	require.Equal(t, "Where to?", messages[2].Content)
}

func TestConversationRepository_ForCall(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewConversationRepository(dbs, logger)
	callRepo := repositories.NewCallRepository(dbs, logger)
	ctx := context.TODO()
	userID := []byte{1}
	createUser(t, dbs, userID, "Ada")

	call, err := callRepo.Start(ctx, userID)
	require.NoError(t, err)

	conversation, err := repo.ForCall(ctx, call.ID, userID)
	require.NoError(t, err, "first lookup should create the conversation")
	require.NotNil(t, conversation.CallID)
	require.Equal(t, call.ID, *conversation.CallID, "conversation should reference the call")

	again, err := repo.ForCall(ctx, call.ID, userID)
	require.NoError(t, err, "second lookup should reuse the conversation")
	require.Equal(t, conversation.ID, again.ID, "repeated lookups should return the same conversation")
}

func TestConversationRepository_Persona(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewConversationRepository(dbs, logger)
	ctx := context.TODO()

	persona, err := repo.Persona(ctx, "ace")
	require.NoError(t, err, "the default persona should be seeded from fixtures")
	require.Equal(t, "Ace", persona.Name, "persona name mismatch")
	require.NotEmpty(t, persona.SystemPrompt, "persona should carry a system prompt")

	_, err = repo.Persona(ctx, "nonexistent")
	require.ErrorIs(t, err, repositories.ErrNotFound, "unknown persona should read as not found")
}
