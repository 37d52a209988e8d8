package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/sqlite"
	"github.com/google/uuid"
)

var ErrCallEnded = errors.NewSentinel("call has ended")

type CallRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewCallRepository(dbs *sqlite.Database, logger *slog.Logger) *CallRepository {
	return &CallRepository{
		dbs:    dbs,
		logger: logger.With("source", "CallRepository"),
	}
}

// Start creates a call with the creator as its first participant.
func (r *CallRepository) Start(ctx context.Context, creatorID []byte) (*models.Call, error) {
	call := models.Call{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Status:    models.CallStatusActive,
		StartedAt: time.Now().UTC(),
		EndedAt:   nil,
	}

	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "start transaction")
	}
	defer func() {
		if err = tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(err))
		}
	}()

	stmt := `INSERT INTO calls (id, creator_id, status, started_at) VALUES (?, ?, ?, ?)`
	if _, err = tx.ExecContext(ctx, stmt, call.ID, call.CreatorID, call.Status, call.StartedAt); err != nil {
		return nil, errors.Wrap(err, "insert call")
	}

	stmt = `INSERT INTO call_participants (call_id, user_id, joined_at) VALUES (?, ?, ?)`
	if _, err = tx.ExecContext(ctx, stmt, call.ID, creatorID, call.StartedAt); err != nil {
		return nil, errors.Wrap(err, "insert creator participant")
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit transaction")
	}
	return &call, nil
}

func (r *CallRepository) Get(ctx context.Context, id string) (*models.Call, error) {
	var call models.Call
	stmt := `SELECT id, creator_id, status, started_at, ended_at FROM calls WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &call, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "call", slog.String("call_id", id))
		}
		return nil, errors.Wrap(err, "read call")
	}
	return &call, nil
}

// Join adds the user to an active call. Joining a call twice is a no-op.
func (r *CallRepository) Join(ctx context.Context, callID string, userID []byte) error {
	call, err := r.Get(ctx, callID)
	if err != nil {
		return err
	}
	if call.Status != models.CallStatusActive {
		return errors.Wrap(ErrCallEnded, "join call", slog.String("call_id", callID))
	}

	stmt := `INSERT INTO call_participants (call_id, user_id, joined_at)
VALUES (?, ?, ?)
ON CONFLICT (call_id, user_id) DO NOTHING`
	if _, err = r.dbs.ReadWrite.ExecContext(ctx, stmt, callID, userID, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "insert participant", slog.String("call_id", callID))
	}
	return nil
}

func (r *CallRepository) Participant(ctx context.Context, callID string, userID []byte) (*models.CallParticipant, error) {
	var participant models.CallParticipant
	stmt := `SELECT call_id, user_id, muted, video_off, screen_sharing, can_share_screen, joined_at
FROM call_participants
WHERE call_id = ? AND user_id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &participant, stmt, callID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "participant", slog.String("call_id", callID))
		}
		return nil, errors.Wrap(err, "read participant")
	}
	return &participant, nil
}

func (r *CallRepository) Participants(ctx context.Context, callID string) ([]models.CallParticipant, error) {
	var participants []models.CallParticipant
	stmt := `SELECT call_id, user_id, muted, video_off, screen_sharing, can_share_screen, joined_at
FROM call_participants
WHERE call_id = ?
ORDER BY joined_at`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &participants, stmt, callID); err != nil {
		return nil, errors.Wrap(err, "read participants", slog.String("call_id", callID))
	}
	return participants, nil
}

// SetControlFlags persists the participant's control bar toggles.
func (r *CallRepository) SetControlFlags(ctx context.Context, participant models.CallParticipant) error {
	stmt := `UPDATE call_participants
SET muted          = :muted,
    video_off      = :video_off,
    screen_sharing = :screen_sharing
WHERE call_id = :call_id
  AND user_id = :user_id`
	params := []any{
		sql.Named("muted", participant.Muted),
		sql.Named("video_off", participant.VideoOff),
		sql.Named("screen_sharing", participant.ScreenSharing),
		sql.Named("call_id", participant.CallID),
		sql.Named("user_id", participant.UserID),
	}
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, params...)
	if err != nil {
		return errors.Wrap(err, "update control flags")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "participant", slog.String("call_id", participant.CallID))
	}
	return nil
}

// End marks the call ended. Ending an already ended call is a no-op.
func (r *CallRepository) End(ctx context.Context, callID string) error {
	stmt := `UPDATE calls SET status = ?, ended_at = ? WHERE id = ? AND status = ?`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt,
		models.CallStatusEnded, time.Now().UTC(), callID, models.CallStatusActive)
	if err != nil {
		return errors.Wrap(err, "end call", slog.String("call_id", callID))
	}
	if _, err = result.RowsAffected(); err != nil {
		return errors.Wrap(err, "rows affected")
	}
	return nil
}
