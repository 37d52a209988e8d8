package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/repositories"
	"github.com/stretchr/testify/require"
)

func TestImageRepository_Insert(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewImageRepository(dbs, logger)
	ctx := context.TODO()
	creatorID := []byte{1}
	createUser(t, dbs, creatorID, "Ada")

	image := models.GeneratedImage{
		CreatorID: creatorID,
		Prompt:    "a lighthouse at dawn",
		ImageURL:  "https://images.example.com/lighthouse.png",
	}
	err := repo.Insert(ctx, &image)
	require.NoError(t, err, "failed to insert image")
	require.NotEmpty(t, image.ID, "image id should be generated")
	require.Equal(t, models.DefaultImageStyle, image.Style, "style should default")
	require.Equal(t, models.DefaultImageContextSource, image.ContextSource, "context source should default")
	require.False(t, image.CreatedAt.IsZero(), "created_at should be set")

	stored, err := repo.Get(ctx, image.ID)
	require.NoError(t, err, "failed to read image")
	require.Equal(t, image.Prompt, stored.Prompt, "prompt mismatch")
	require.Equal(t, image.ImageURL, stored.ImageURL, "image url mismatch")
	require.Nil(t, stored.CallID, "manual generation should not reference a call")
	require.Nil(t, stored.RevisedPrompt, "revised prompt should stay empty")
	require.Zero(t, stored.Likes, "fresh image should have no likes")

	_, err = repo.Get(ctx, "nonexistent")
	require.ErrorIs(t, err, repositories.ErrNotFound, "unknown image should read as not found")
}

func TestImageRepository_listsNewestFirst(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewImageRepository(dbs, logger)
	callRepo := repositories.NewCallRepository(dbs, logger)
	ctx := context.TODO()
	creatorID := []byte{1}
	createUser(t, dbs, creatorID, "Ada")

	call, err := callRepo.Start(ctx, creatorID)
	require.NoError(t, err)

	base := time.Now().UTC()
	prompts := []string{"oldest", "middle", "newest"}
	for i, prompt := range prompts {
		image := models.GeneratedImage{
			CallID:        &call.ID,
			CreatorID:     creatorID,
			Prompt:        prompt,
			ImageURL:      "https://images.example.com/" + prompt + ".png",
			ContextSource: models.ImageContextSourceCallTranscript,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Insert(ctx, &image))
	}
	standalone := models.GeneratedImage{
		CreatorID: creatorID,
		Prompt:    "standalone",
		ImageURL:  "https://images.example.com/standalone.png",
		CreatedAt: base.Add(time.Hour),
	}
	require.NoError(t, repo.Insert(ctx, &standalone))

	byCall, err := repo.ListByCall(ctx, call.ID)
	require.NoError(t, err, "failed to list images by call")
	require.Len(t, byCall, 3, "only the call's images should be listed")
	require.Equal(t, "newest", byCall[0].Prompt, "newest image should come first")
	require.Equal(t, "oldest", byCall[2].Prompt, "oldest image should come last")

	byCreator, err := repo.ListByCreator(ctx, creatorID)
	require.NoError(t, err, "failed to list images by creator")
	require.Len(t, byCreator, 4, "all of the user's images should be listed")
	require.Equal(t, "standalone", byCreator[0].Prompt, "newest image should come first")
}

func TestImageRepository_Like(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewImageRepository(dbs, logger)
	ctx := context.TODO()
	creatorID := []byte{1}
	friendID := []byte{2}
	createUser(t, dbs, creatorID, "Ada")
	createUser(t, dbs, friendID, "Grace")

	image := models.GeneratedImage{
		CreatorID: creatorID,
		Prompt:    "a lighthouse at dawn",
		ImageURL:  "https://images.example.com/lighthouse.png",
	}
	require.NoError(t, repo.Insert(ctx, &image))

	require.NoError(t, repo.Like(ctx, image.ID, creatorID))
	// Liking again from the same user keeps a single like.
	require.NoError(t, repo.Like(ctx, image.ID, creatorID))

	stored, err := repo.Get(ctx, image.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.Likes, "repeated likes should count once")

	require.NoError(t, repo.Like(ctx, image.ID, friendID))

	stored, err = repo.Get(ctx, image.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), stored.Likes, "each user counts once")
}
