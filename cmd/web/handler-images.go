package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/acetime/acetime/internal/blobstore"
	"github.com/acetime/acetime/internal/contexthelpers"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/repositories"
)

// transcriptContextTurns caps how much of the conversation feeds the image
// prompt.
const transcriptContextTurns = 6

type imagesTemplateData struct {
	BaseTemplateData
	Images []models.GeneratedImage
	Styles []models.ImageStyle
}

// imageStyles lists the styles offered in the generation form, default first.
func imageStyles() []models.ImageStyle {
	return []models.ImageStyle{
		models.ImageStyleDream,
		models.ImageStyleRealistic,
		models.ImageStyleArtistic,
		models.ImageStyleSketch,
		models.ImageStyleAbstract,
	}
}

func (app *application) imagesPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	images, err := app.images.ListByCreator(ctx, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.presignImageURLs(ctx, images)

	app.render(w, r, http.StatusOK, "images", imagesTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Images:           images,
		Styles:           imageStyles(),
	})
}

// presignImageURLs swaps stored images over to presigned bucket URLs. The
// hosted URLs the image model returns expire, so the bucket copy wins
// whenever one exists.
func (app *application) presignImageURLs(ctx context.Context, images []models.GeneratedImage) {
	if !app.blobStore.Enabled() {
		return
	}
	for i := range images {
		if images[i].StorageKey == nil {
			continue
		}
		url, err := app.blobStore.PresignGet(ctx, *images[i].StorageKey)
		if err != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "presign image", errors.SlogError(err))
			continue
		}
		images[i].ImageURL = url
	}
}

func (app *application) generateImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	prompt := strings.TrimSpace(r.PostForm.Get("prompt"))
	if prompt == "" {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}
	style := models.ImageStyle(r.PostForm.Get("style"))
	if style != "" && !style.Valid() {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	if !app.aiEnabled {
		app.clientError(w, r, http.StatusServiceUnavailable)
		return
	}

	image := models.GeneratedImage{
		CreatorID: userID,
		Prompt:    prompt,
		Style:     style,
	}

	requestPrompt := fmt.Sprintf("%s. Style: %s.", prompt, style.Directive())
	callID := r.PostForm.Get("call_id")
	if callID != "" {
		transcript, conversationID, err := app.transcriptContext(w, r, callID, userID)
		if err != nil {
			// transcriptContext has already responded.
			return
		}
		image.CallID = &callID
		image.ConversationID = &conversationID
		if transcript != "" {
			image.TranscriptContext = &transcript
			image.ContextSource = models.ImageContextSourceCallTranscript
			requestPrompt = fmt.Sprintf("%s\n\nDraw inspiration from this call transcript:\n%s", requestPrompt, transcript)
		}
	}

	generated, err := app.aiClient.GenerateImage(ctx, requestPrompt)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "generate image"))
		return
	}
	image.ImageURL = generated.URL
	if generated.RevisedPrompt != "" {
		image.RevisedPrompt = &generated.RevisedPrompt
	}

	// The bucket copy is best effort: a failed upload keeps the hosted URL,
	// which serves fine until it expires.
	if app.blobStore.Enabled() {
		if key, err := app.archiveImage(ctx, generated.URL); err != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "archive image", errors.SlogError(err))
		} else {
			image.StorageKey = &key
		}
	}

	if err = app.images.Insert(ctx, &image); err != nil {
		app.serverError(w, r, err)
		return
	}

	if callID != "" {
		http.Redirect(w, r, fmt.Sprintf("/calls/%s", callID), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/images", http.StatusSeeOther)
}

// transcriptContext validates call membership and formats the tail of the
// conversation. It writes the error response itself so generateImage can
// just bail.
func (app *application) transcriptContext(
	w http.ResponseWriter,
	r *http.Request,
	callID string,
	userID []byte,
) (string, int64, error) {
	ctx := r.Context()

	if _, err := app.calls.Get(ctx, callID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.notFound(w, r)
		} else {
			app.serverError(w, r, err)
		}
		return "", 0, err
	}
	if _, err := app.calls.Participant(ctx, callID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.clientError(w, r, http.StatusForbidden)
		} else {
			app.serverError(w, r, err)
		}
		return "", 0, err
	}

	conversation, err := app.conversations.ForCall(ctx, callID, userID)
	if err != nil {
		app.serverError(w, r, err)
		return "", 0, err
	}
	messages, err := app.conversations.Messages(ctx, conversation.ID)
	if err != nil {
		app.serverError(w, r, err)
		return "", 0, err
	}

	if len(messages) > transcriptContextTurns {
		messages = messages[len(messages)-transcriptContextTurns:]
	}
	lines := make([]string, 0, len(messages))
	for _, message := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", message.Role, message.Content))
	}
	return strings.Join(lines, "\n"), conversation.ID, nil
}

// archiveImage copies the hosted image into the blob store.
func (app *application) archiveImage(ctx context.Context, imageURL string) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build image request")
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return "", errors.Wrap(err, "fetch hosted image")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()
	if response.StatusCode != http.StatusOK {
		return "", errors.New("unexpected image response status", slog.Int("status", response.StatusCode))
	}

	key := blobstore.RandomKey()
	if err = app.blobStore.Put(ctx, key, response.Header.Get("Content-Type"), response.Body); err != nil {
		return "", errors.Wrap(err, "upload image")
	}
	return key, nil
}

func (app *application) likeImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	imageID := r.PathValue("id")

	if _, err := app.images.Get(ctx, imageID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.notFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}
	if err := app.images.Like(ctx, imageID, contexthelpers.AuthenticatedUserID(ctx)); err != nil {
		app.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/images", http.StatusSeeOther)
}

