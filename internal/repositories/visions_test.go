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

func TestVisionRepository_Insert(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewVisionRepository(dbs, logger)
	ctx := context.TODO()
	ownerID := []byte{1}
	createUser(t, dbs, ownerID, "Ada")

	vision := models.Vision{
		OwnerID:     ownerID,
		Title:       "Sail the archipelago",
		Description: "A summer on the water.",
		Category:    "travel",
		Tags:        []string{"sailing", "summer", "baltic"},
	}
	err := repo.Insert(ctx, &vision)
	require.NoError(t, err, "failed to insert vision")
	require.NotEmpty(t, vision.ID, "vision id should be generated")
	require.Equal(t, models.DefaultVisionVisibility, vision.Visibility, "visibility should default")
	require.Equal(t, models.DefaultVisionStatus, vision.Status, "status should default")

	stored, err := repo.Get(ctx, vision.ID)
	require.NoError(t, err, "failed to read vision")
	require.Equal(t, vision.Title, stored.Title, "title mismatch")
	require.Equal(t, []string{"sailing", "summer", "baltic"}, stored.Tags,
		"tags should keep their authored order")

	_, err = repo.Get(ctx, "nonexistent")
	require.ErrorIs(t, err, repositories.ErrNotFound, "unknown vision should read as not found")
}

func TestVisionRepository_lists(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewVisionRepository(dbs, logger)
	ctx := context.TODO()
	ownerID := []byte{1}
	otherID := []byte{2}
	createUser(t, dbs, ownerID, "Ada")
	createUser(t, dbs, otherID, "Grace")

	base := time.Now().UTC()
	visions := []models.Vision{
		{
			OwnerID:   ownerID,
			Title:     "Sail the archipelago",
			Category:  "travel",
			Tags:      []string{"sailing", "summer"},
			CreatedAt: base,
		},
		{
			OwnerID:   ownerID,
			Title:     "Run a marathon",
			Category:  "health",
			Tags:      []string{"running"},
			CreatedAt: base.Add(time.Minute),
		},
		{
			OwnerID:   ownerID,
			Title:     "Hike in Lapland",
			Category:  "travel",
			Tags:      []string{"hiking", "summer"},
			CreatedAt: base.Add(2 * time.Minute),
		},
		{
			OwnerID:   otherID,
			Title:     "Learn to paint",
			Category:  "craft",
			Tags:      []string{"painting"},
			CreatedAt: base.Add(3 * time.Minute),
		},
	}
	for i := range visions {
		require.NoError(t, repo.Insert(ctx, &visions[i]))
	}

	byOwner, err := repo.ListByOwner(ctx, ownerID)
	require.NoError(t, err, "failed to list visions by owner")
	require.Len(t, byOwner, 3, "only the owner's visions should be listed")
	require.Equal(t, "Hike in Lapland", byOwner[0].Title, "newest vision should come first")
	require.Equal(t, []string{"hiking", "summer"}, byOwner[0].Tags, "listing should carry tags")

	travel, err := repo.ListByCategory(ctx, ownerID, "travel")
	require.NoError(t, err, "failed to list visions by category")
	require.Len(t, travel, 2, "category filter mismatch")

	summer, err := repo.ListByTag(ctx, ownerID, "summer")
	require.NoError(t, err, "failed to list visions by tag")
	require.Len(t, summer, 2, "tag filter mismatch")
	require.Equal(t, "Hike in Lapland", summer[0].Title, "tag listing should stay newest first")

	painting, err := repo.ListByTag(ctx, ownerID, "painting")
	require.NoError(t, err)
	require.Empty(t, painting, "other users' visions must not leak through tags")
}

func TestVisionRepository_updates(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewVisionRepository(dbs, logger)
	ctx := context.TODO()
	ownerID := []byte{1}
	createUser(t, dbs, ownerID, "Ada")

	vision := models.Vision{
		OwnerID:  ownerID,
		Title:    "Run a marathon",
		Category: "health",
	}
	require.NoError(t, repo.Insert(ctx, &vision))

	err := repo.SetStatus(ctx, vision.ID, models.VisionStatusCompleted)
	require.NoError(t, err, "failed to update status")

	err = repo.SetVisibility(ctx, vision.ID, models.VisionVisibilityPublic)
	require.NoError(t, err, "failed to update visibility")

	stored, err := repo.Get(ctx, vision.ID)
	require.NoError(t, err)
	require.Equal(t, models.VisionStatusCompleted, stored.Status, "status should update")
	require.Equal(t, models.VisionVisibilityPublic, stored.Visibility, "visibility should update")
	require.True(t, stored.UpdatedAt.After(stored.CreatedAt), "updates should touch updated_at")

	err = repo.SetStatus(ctx, "nonexistent", models.VisionStatusArchived)
	require.ErrorIs(t, err, repositories.ErrNotFound, "updating an unknown vision should report not found")

	err = repo.SetVisibility(ctx, "nonexistent", models.VisionVisibilityPrivate)
	require.ErrorIs(t, err, repositories.ErrNotFound, "updating an unknown vision should report not found")
}
