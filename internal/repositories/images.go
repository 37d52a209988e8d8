package repositories

import (
	"context"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/sqlite"
	"github.com/google/uuid"
)

type ImageRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewImageRepository(dbs *sqlite.Database, logger *slog.Logger) *ImageRepository {
	return &ImageRepository{
		dbs:    dbs,
		logger: logger.With("source", "ImageRepository"),
	}
}

// imageColumns is the select list shared by the image queries. The like count
// is derived, not stored.
const imageColumns = `i.id,
       i.call_id,
       i.conversation_id,
       i.creator_id,
       i.prompt,
       i.revised_prompt,
       i.image_url,
       i.storage_key,
       i.transcript_context,
       i.style,
       i.context_source,
       i.created_at,
       (SELECT COUNT(*) FROM image_likes il WHERE il.image_id = i.id) AS likes`

// Insert stores the image, filling in the ID, the enum defaults, and the
// creation time when the caller left them empty.
func (r *ImageRepository) Insert(ctx context.Context, image *models.GeneratedImage) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	if image.Style == "" {
		image.Style = models.DefaultImageStyle
	}
	if image.ContextSource == "" {
		image.ContextSource = models.DefaultImageContextSource
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}

	stmt := `INSERT INTO generated_images (id,
                              call_id,
                              conversation_id,
                              creator_id,
                              prompt,
                              revised_prompt,
                              image_url,
                              storage_key,
                              transcript_context,
                              style,
                              context_source,
                              created_at)
VALUES (:id, :call_id, :conversation_id, :creator_id, :prompt, :revised_prompt,
        :image_url, :storage_key, :transcript_context, :style, :context_source, :created_at)`
	params := []any{
		sql.Named("id", image.ID),
		sql.Named("call_id", image.CallID),
		sql.Named("conversation_id", image.ConversationID),
		sql.Named("creator_id", image.CreatorID),
		sql.Named("prompt", image.Prompt),
		sql.Named("revised_prompt", image.RevisedPrompt),
		sql.Named("image_url", image.ImageURL),
		sql.Named("storage_key", image.StorageKey),
		sql.Named("transcript_context", image.TranscriptContext),
		sql.Named("style", image.Style),
		sql.Named("context_source", image.ContextSource),
		sql.Named("created_at", image.CreatedAt),
	}
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "insert generated image", slog.String("image_id", image.ID))
	}
	return nil
}

func (r *ImageRepository) Get(ctx context.Context, id string) (*models.GeneratedImage, error) {
	var image models.GeneratedImage
	stmt := `SELECT ` + imageColumns + ` FROM generated_images i WHERE i.id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &image, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "generated image", slog.String("image_id", id))
		}
		return nil, errors.Wrap(err, "read generated image")
	}
	return &image, nil
}

// ListByCall returns the call's images, newest first.
func (r *ImageRepository) ListByCall(ctx context.Context, callID string) ([]models.GeneratedImage, error) {
	var images []models.GeneratedImage
	stmt := `SELECT ` + imageColumns + `
FROM generated_images i
WHERE i.call_id = ?
ORDER BY i.created_at DESC`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &images, stmt, callID); err != nil {
		return nil, errors.Wrap(err, "list images by call", slog.String("call_id", callID))
	}
	return images, nil
}

// ListByCreator returns the user's images, newest first.
func (r *ImageRepository) ListByCreator(ctx context.Context, creatorID []byte) ([]models.GeneratedImage, error) {
	var images []models.GeneratedImage
	stmt := `SELECT ` + imageColumns + `
FROM generated_images i
WHERE i.creator_id = ?
ORDER BY i.created_at DESC`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &images, stmt, creatorID); err != nil {
		return nil, errors.Wrap(err, "list images by creator",
			slog.String("creator_id", hex.EncodeToString(creatorID)))
	}
	return images, nil
}

// Like records that the user liked the image. Liking twice keeps a single like.
func (r *ImageRepository) Like(ctx context.Context, imageID string, userID []byte) error {
	stmt := `INSERT INTO image_likes (image_id, user_id, created_at)
VALUES (?, ?, ?)
ON CONFLICT (image_id, user_id) DO NOTHING`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, imageID, userID, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "insert image like", slog.String("image_id", imageID))
	}
	return nil
}
