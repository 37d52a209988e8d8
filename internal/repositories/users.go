package repositories

import (
	"context"
	"database/sql"
	"encoding/hex"
	"log/slog"

	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/sqlite"
)

type UserRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewUserRepository(dbs *sqlite.Database, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		dbs:    dbs,
		logger: logger.With("source", "UserRepository"),
	}
}

func (r *UserRepository) Get(ctx context.Context, id []byte) (*models.User, error) {
	var user models.User
	stmt := `SELECT id, display_name, created_at FROM users WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &user, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "user", slog.String("user_id", hex.EncodeToString(id)))
		}
		return nil, errors.Wrap(err, "read user")
	}
	return &user, nil
}

func (r *UserRepository) Exists(ctx context.Context, id []byte) (bool, error) {
	var exists bool
	stmt := `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`
	if err := r.dbs.ReadOnly.QueryRowContext(ctx, stmt, id).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "query user exists")
	}
	return exists, nil
}

// UpdateDisplayName persists the name chosen on the profile setup step.
func (r *UserRepository) UpdateDisplayName(ctx context.Context, id []byte, displayName string) error {
	stmt := `UPDATE users SET display_name = ? WHERE id = ?`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, displayName, id)
	if err != nil {
		return errors.Wrap(err, "update display name")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "user", slog.String("user_id", hex.EncodeToString(id)))
	}
	return nil
}
