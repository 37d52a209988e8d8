package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/sqlite"
)

// SettingsRepository stores per-user JSON snapshots in a key-value table.
// The onboarding flow state persists through it as the Snapshots adapter.
type SettingsRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewSettingsRepository(dbs *sqlite.Database, logger *slog.Logger) *SettingsRepository {
	return &SettingsRepository{
		dbs:    dbs,
		logger: logger.With("source", "SettingsRepository"),
	}
}

// Get returns the stored value, or nil when the user has nothing stored
// under the key.
func (r *SettingsRepository) Get(ctx context.Context, userID []byte, key string) ([]byte, error) {
	var value []byte
	stmt := `SELECT value FROM settings WHERE user_id = ? AND key = ?`
	if err := r.dbs.ReadOnly.QueryRowContext(ctx, stmt, userID, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read setting", slog.String("key", key))
	}
	return value, nil
}

// Set overwrites the stored value.
func (r *SettingsRepository) Set(ctx context.Context, userID []byte, key string, value []byte) error {
	stmt := `INSERT INTO settings (user_id, key, value, updated_at)
VALUES (:user_id, :key, :value, :updated_at)
ON CONFLICT (user_id, key) DO UPDATE SET value      = excluded.value,
                                         updated_at = excluded.updated_at`
	params := []any{
		sql.Named("user_id", userID),
		sql.Named("key", key),
		sql.Named("value", value),
		sql.Named("updated_at", time.Now().UTC()),
	}
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "upsert setting", slog.String("key", key))
	}
	return nil
}
