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
	"github.com/jmoiron/sqlx"
)

type VisionRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewVisionRepository(dbs *sqlite.Database, logger *slog.Logger) *VisionRepository {
	return &VisionRepository{
		dbs:    dbs,
		logger: logger.With("source", "VisionRepository"),
	}
}

// Insert stores the vision together with its tags. Tags keep their authored
// order through the position column.
func (r *VisionRepository) Insert(ctx context.Context, vision *models.Vision) error {
	if vision.ID == "" {
		vision.ID = uuid.NewString()
	}
	if vision.Visibility == "" {
		vision.Visibility = models.DefaultVisionVisibility
	}
	if vision.Status == "" {
		vision.Status = models.DefaultVisionStatus
	}
	now := time.Now().UTC()
	if vision.CreatedAt.IsZero() {
		vision.CreatedAt = now
	}
	if vision.UpdatedAt.IsZero() {
		vision.UpdatedAt = now
	}

	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if err = tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(err))
		}
	}()

	stmt := `INSERT INTO visions (id, owner_id, title, description, category, visibility, status, created_at, updated_at)
VALUES (:id, :owner_id, :title, :description, :category, :visibility, :status, :created_at, :updated_at)`
	params := []any{
		sql.Named("id", vision.ID),
		sql.Named("owner_id", vision.OwnerID),
		sql.Named("title", vision.Title),
		sql.Named("description", vision.Description),
		sql.Named("category", vision.Category),
		sql.Named("visibility", vision.Visibility),
		sql.Named("status", vision.Status),
		sql.Named("created_at", vision.CreatedAt),
		sql.Named("updated_at", vision.UpdatedAt),
	}
	if _, err = tx.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "insert vision", slog.String("vision_id", vision.ID))
	}

	stmt = `INSERT INTO vision_tags (vision_id, position, tag) VALUES (?, ?, ?)`
	for position, tag := range vision.Tags {
		if _, err = tx.ExecContext(ctx, stmt, vision.ID, position, tag); err != nil {
			return errors.Wrap(err, "insert vision tag",
				slog.String("vision_id", vision.ID), slog.Int("position", position))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func (r *VisionRepository) Get(ctx context.Context, id string) (*models.Vision, error) {
	var vision models.Vision
	stmt := `SELECT id, owner_id, title, description, category, visibility, status, created_at, updated_at
FROM visions
WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &vision, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "vision", slog.String("vision_id", id))
		}
		return nil, errors.Wrap(err, "read vision")
	}

	stmt = `SELECT tag FROM vision_tags WHERE vision_id = ? ORDER BY position`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &vision.Tags, stmt, id); err != nil {
		return nil, errors.Wrap(err, "read vision tags", slog.String("vision_id", id))
	}
	return &vision, nil
}

// ListByOwner returns the user's visions, newest first.
func (r *VisionRepository) ListByOwner(ctx context.Context, ownerID []byte) ([]models.Vision, error) {
	var visions []models.Vision
	stmt := `SELECT id, owner_id, title, description, category, visibility, status, created_at, updated_at
FROM visions
WHERE owner_id = ?
ORDER BY created_at DESC`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &visions, stmt, ownerID); err != nil {
		return nil, errors.Wrap(err, "list visions by owner",
			slog.String("owner_id", hex.EncodeToString(ownerID)))
	}
	if err := r.attachTags(ctx, visions); err != nil {
		return nil, err
	}
	return visions, nil
}

// ListByCategory returns the user's visions in a category, newest first.
func (r *VisionRepository) ListByCategory(ctx context.Context, ownerID []byte, category string) ([]models.Vision, error) {
	var visions []models.Vision
	stmt := `SELECT id, owner_id, title, description, category, visibility, status, created_at, updated_at
FROM visions
WHERE owner_id = ? AND category = ?
ORDER BY created_at DESC`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &visions, stmt, ownerID, category); err != nil {
		return nil, errors.Wrap(err, "list visions by category", slog.String("category", category))
	}
	if err := r.attachTags(ctx, visions); err != nil {
		return nil, err
	}
	return visions, nil
}

// ListByTag returns the user's visions carrying the tag, newest first.
func (r *VisionRepository) ListByTag(ctx context.Context, ownerID []byte, tag string) ([]models.Vision, error) {
	var visions []models.Vision
	stmt := `SELECT v.id, v.owner_id, v.title, v.description, v.category, v.visibility, v.status, v.created_at, v.updated_at
FROM visions v
         JOIN vision_tags vt ON vt.vision_id = v.id
WHERE v.owner_id = ? AND vt.tag = ?
ORDER BY v.created_at DESC`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &visions, stmt, ownerID, tag); err != nil {
		return nil, errors.Wrap(err, "list visions by tag", slog.String("tag", tag))
	}
	if err := r.attachTags(ctx, visions); err != nil {
		return nil, err
	}
	return visions, nil
}

func (r *VisionRepository) SetStatus(ctx context.Context, id string, status models.VisionStatus) error {
	stmt := `UPDATE visions SET status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt,
		sql.Named("status", status),
		sql.Named("updated_at", time.Now().UTC()),
		sql.Named("id", id))
	if err != nil {
		return errors.Wrap(err, "update vision status", slog.String("vision_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "read affected rows")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "vision", slog.String("vision_id", id))
	}
	return nil
}

func (r *VisionRepository) SetVisibility(ctx context.Context, id string, visibility models.VisionVisibility) error {
	stmt := `UPDATE visions SET visibility = :visibility, updated_at = :updated_at WHERE id = :id`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt,
		sql.Named("visibility", visibility),
		sql.Named("updated_at", time.Now().UTC()),
		sql.Named("id", id))
	if err != nil {
		return errors.Wrap(err, "update vision visibility", slog.String("vision_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "read affected rows")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "vision", slog.String("vision_id", id))
	}
	return nil
}

// attachTags loads the tags for every listed vision in one query.
func (r *VisionRepository) attachTags(ctx context.Context, visions []models.Vision) error {
	if len(visions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(visions))
	for _, vision := range visions {
		ids = append(ids, vision.ID)
	}

	query, args, err := sqlx.In(`SELECT vision_id, position, tag FROM vision_tags WHERE vision_id IN (?) ORDER BY position`, ids)
	if err != nil {
		return errors.Wrap(err, "expand vision tag query")
	}
	var rows []struct {
		VisionID string `db:"vision_id"`
		Position int    `db:"position"`
		Tag      string `db:"tag"`
	}
	if err = r.dbs.ReadOnly.SelectContext(ctx, &rows, r.dbs.ReadOnly.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "read vision tags")
	}

	tagsByVision := make(map[string][]string, len(visions))
	for _, row := range rows {
		tagsByVision[row.VisionID] = append(tagsByVision[row.VisionID], row.Tag)
	}
	for i := range visions {
		visions[i].Tags = tagsByVision[visions[i].ID]
	}
	return nil
}
