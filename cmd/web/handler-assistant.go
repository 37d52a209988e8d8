package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/acetime/acetime/internal/contexthelpers"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/repositories"
	"github.com/sashabaranov/go-openai"
)

// assistantTimeout bounds the producer goroutine, which otherwise outlives the
// request that spawned it.
const assistantTimeout = 2 * time.Minute

// askAssistant persists the caller's question and spawns the producer that
// streams Ace's reply. The reply tokens travel through the completion broker
// to the SSE handler below.
func (app *application) askAssistant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)
	callID := r.PathValue("id")

	if !app.aiEnabled {
		app.clientError(w, r, http.StatusServiceUnavailable)
		return
	}

	call, err := app.calls.Get(ctx, callID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.notFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}
	if call.Status == models.CallStatusEnded {
		app.clientError(w, r, http.StatusConflict)
		return
	}
	if _, err = app.calls.Participant(ctx, callID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.clientError(w, r, http.StatusForbidden)
			return
		}
		app.serverError(w, r, err)
		return
	}

	if err = r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(r.PostForm.Get("question"))
	if question == "" {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	conversation, err := app.conversations.ForCall(ctx, callID, userID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if err = app.conversations.AppendMessage(ctx, conversation.ID, models.MessageRoleUser, question); err != nil {
		app.serverError(w, r, err)
		return
	}

	messages, err := app.completionMessages(ctx, conversation.ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	// Publish before spawning so that a subscriber connecting right after
	// this response cannot beat the producer's registration.
	tokens := make(chan string)
	app.completions.Publish(conversation.ID, tokens)
	go func() {
		// The producer outlives the request, so it detaches from the request
		// deadline but keeps its logging context.
		producerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), assistantTimeout)
		defer cancel()
		app.produceAssistantReply(producerCtx, conversation.ID, messages, tokens)
	}()

	http.Redirect(w, r, fmt.Sprintf("/calls/%s", callID), http.StatusSeeOther)
}

// completionMessages maps the stored conversation to the OpenAI wire format,
// prefixed with the persona's system prompt.
func (app *application) completionMessages(ctx context.Context, conversationID int64) ([]openai.ChatCompletionMessage, error) {
	persona, err := app.conversations.Persona(ctx, models.DefaultPersonaID)
	if err != nil {
		return nil, errors.Wrap(err, "load persona")
	}
	history, err := app.conversations.Messages(ctx, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "load conversation history")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: persona.SystemPrompt,
	})
	for _, message := range history {
		role := openai.ChatMessageRoleUser
		if message.Role == models.MessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: message.Content,
		})
	}
	return messages, nil
}

// produceAssistantReply streams the completion into the tokens channel and
// persists the full reply at the end. The channel close tells the consumer
// the reply is complete, the unpublish wakes any blocked late subscribers.
func (app *application) produceAssistantReply(
	ctx context.Context,
	conversationID int64,
	messages []openai.ChatCompletionMessage,
	tokens chan string,
) {
	defer app.completions.Unpublish(conversationID)
	defer close(tokens)

	stream, err := app.aiClient.StreamCompletion(ctx, messages)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "start completion stream", errors.SlogError(err))
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "close completion stream", errors.SlogError(err))
		}
	}()

	var reply strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			app.logger.LogAttrs(ctx, slog.LevelError, "receive completion delta", errors.SlogError(err))
			return
		}
		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		reply.WriteString(delta)
		select {
		case tokens <- delta:
		case <-ctx.Done():
			return
		}
	}

	if err = app.conversations.AppendMessage(ctx, conversationID, models.MessageRoleAssistant, reply.String()); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "persist assistant reply", errors.SlogError(err))
	}
}

// streamAssistant serves the reply as Server-Sent Events. The first consumer
// receives tokens live from the producer. A consumer arriving when no
// producer runs, usually after a reconnect, replays the persisted reply.
func (app *application) streamAssistant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)
	if userID == nil {
		app.clientError(w, r, http.StatusUnauthorized)
		return
	}
	callID := r.PathValue("id")

	conversation, err := app.conversations.ForCall(ctx, callID, userID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverError(w, r, errors.New("response writer does not support flushing"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	select {
	case tokens, live := <-app.completions.Subscribe(conversation.ID):
		if !live {
			app.replayAssistantReply(w, r, flusher, conversation.ID)
			return
		}
		for token := range tokens {
			writeServerSentEvent(w, token)
			flusher.Flush()
		}
	case <-ctx.Done():
		return
	}

	writeServerSentDone(w)
	flusher.Flush()
}

// replayAssistantReply sends the last persisted assistant message as a single
// event.
func (app *application) replayAssistantReply(w http.ResponseWriter, r *http.Request, flusher http.Flusher, conversationID int64) {
	messages, err := app.conversations.Messages(r.Context(), conversationID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.MessageRoleAssistant {
			writeServerSentEvent(w, messages[i].Content)
			break
		}
	}
	writeServerSentDone(w)
	flusher.Flush()
}

// writeServerSentEvent frames the payload per the SSE wire format, where
// every payload line needs its own data: prefix.
func writeServerSentEvent(w io.Writer, payload string) {
	for _, line := range strings.Split(payload, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}

func writeServerSentDone(w io.Writer) {
	_, _ = fmt.Fprint(w, "event: done\ndata: \n\n")
}
