package repositories

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/sqlite"
)

var (
	ErrAlreadyFriends = errors.NewSentinel("already friends")
	ErrSelfFriendship = errors.NewSentinel("cannot befriend yourself")
)

type FriendRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewFriendRepository(dbs *sqlite.Database, logger *slog.Logger) *FriendRepository {
	return &FriendRepository{
		dbs:    dbs,
		logger: logger.With("source", "FriendRepository"),
	}
}

// Add records the friendship between the two users. The pair is stored once
// with the smaller id first so the order of the arguments does not matter.
// Returns ErrSelfFriendship when both ids are the same, ErrNotFound when the
// friend does not exist, and ErrAlreadyFriends when the pair is already linked.
func (r *FriendRepository) Add(ctx context.Context, userID, friendID []byte) error {
	if bytes.Equal(userID, friendID) {
		return errors.Wrap(ErrSelfFriendship, "add friendship",
			slog.String("user_id", hex.EncodeToString(userID)))
	}

	var exists bool
	stmt := `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`
	if err := r.dbs.ReadOnly.GetContext(ctx, &exists, stmt, friendID); err != nil {
		return errors.Wrap(err, "check friend exists")
	}
	if !exists {
		return errors.Wrap(ErrNotFound, "friend",
			slog.String("friend_id", hex.EncodeToString(friendID)))
	}

	first, second := userID, friendID
	if bytes.Compare(first, second) > 0 {
		first, second = second, first
	}

	stmt = `INSERT INTO friendships (user_id, friend_id, created_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id, friend_id) DO NOTHING`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, first, second, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "insert friendship")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "read affected rows")
	}
	if affected == 0 {
		return errors.Wrap(ErrAlreadyFriends, "add friendship",
			slog.String("user_id", hex.EncodeToString(userID)),
			slog.String("friend_id", hex.EncodeToString(friendID)))
	}
	return nil
}

func (r *FriendRepository) AreFriends(ctx context.Context, userID, friendID []byte) (bool, error) {
	first, second := userID, friendID
	if bytes.Compare(first, second) > 0 {
		first, second = second, first
	}

	var exists bool
	stmt := `SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id = ? AND friend_id = ?)`
	if err := r.dbs.ReadOnly.GetContext(ctx, &exists, stmt, first, second); err != nil {
		return false, errors.Wrap(err, "check friendship")
	}
	return exists, nil
}

// ListForUser returns the user's friends sorted by display name.
func (r *FriendRepository) ListForUser(ctx context.Context, userID []byte) ([]models.User, error) {
	var friends []models.User
	stmt := `SELECT u.id, u.display_name, u.created_at
FROM users u
WHERE u.id IN (SELECT friend_id FROM friendships WHERE user_id = :user_id
               UNION
               SELECT user_id FROM friendships WHERE friend_id = :user_id)
ORDER BY u.display_name`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &friends, stmt, sql.Named("user_id", userID)); err != nil {
		return nil, errors.Wrap(err, "list friends",
			slog.String("user_id", hex.EncodeToString(userID)))
	}
	return friends, nil
}
