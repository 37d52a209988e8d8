package onboarding

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/logging"
)

// StorageKey is the snapshot key the flow state lives under.
const StorageKey = "onboarding-storage"

// Snapshots persists raw per-user snapshots. Get returns nil for a user that
// has no snapshot under the key.
type Snapshots interface {
	Get(ctx context.Context, userID []byte, key string) ([]byte, error)
	Set(ctx context.Context, userID []byte, key string, value []byte) error
}

// Store loads and persists onboarding Progress through a Snapshots adapter.
// Reads never fail: a missing, malformed, or unreachable snapshot yields the
// zero Progress so the wizard starts from the beginning instead of erroring.
type Store struct {
	snapshots Snapshots
	logger    *slog.Logger
}

func NewStore(snapshots Snapshots, logger *slog.Logger) *Store {
	return &Store{
		snapshots: snapshots,
		logger:    logger.With("source", "onboarding.Store"),
	}
}

// Load returns the user's Progress, falling back to the zero value on any
// missing or undecodable snapshot.
func (s *Store) Load(ctx context.Context, userID []byte) Progress {
	var progress Progress

	raw, err := s.snapshots.Get(ctx, userID, StorageKey)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "read onboarding snapshot", errors.SlogError(err))
		return Progress{}
	}
	if len(raw) == 0 {
		return Progress{}
	}
	if err = json.Unmarshal(raw, &progress); err != nil {
		// Corrupt snapshots mean starting over, not failing.
		s.logger.LogAttrs(ctx, slog.LevelWarn, "discarding malformed onboarding snapshot",
			errors.SlogError(errors.Wrap(err, "decode snapshot")))
		return Progress{}
	}
	return progress
}

// SetCompleted persists the completion flag, keeping the stored step.
func (s *Store) SetCompleted(ctx context.Context, userID []byte, completed bool) error {
	progress := s.Load(ctx, userID)
	progress.Completed = completed
	return s.save(ctx, userID, progress)
}

// SetStep persists the current step, keeping the stored completion flag. The
// store does not range-check the step; that is the controller's job.
func (s *Store) SetStep(ctx context.Context, userID []byte, step int) error {
	progress := s.Load(ctx, userID)
	progress.Step = step
	return s.save(ctx, userID, progress)
}

// Save persists the whole Progress in one write.
func (s *Store) Save(ctx context.Context, userID []byte, progress Progress) error {
	return s.save(ctx, userID, progress)
}

// Reset puts the user back to a never-onboarded state.
func (s *Store) Reset(ctx context.Context, userID []byte) error {
	return s.save(ctx, userID, Progress{})
}

// save writes a full snapshot. Fields other writers have stored under the same
// key survive through a read-modify-write merge; only the flow-state fields
// are overwritten.
func (s *Store) save(ctx context.Context, userID []byte, progress Progress) error {
	ctx = logging.WithAttrs(ctx, slog.String("snapshot_key", StorageKey))

	merged := map[string]json.RawMessage{}
	if raw, err := s.snapshots.Get(ctx, userID, StorageKey); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "read snapshot before merge", errors.SlogError(err))
	} else if len(raw) > 0 {
		if err = json.Unmarshal(raw, &merged); err != nil {
			// A snapshot we cannot parse has nothing worth merging.
			merged = map[string]json.RawMessage{}
		}
	}

	completed, err := json.Marshal(progress.Completed)
	if err != nil {
		return errors.Wrap(err, "encode completed")
	}
	step, err := json.Marshal(progress.Step)
	if err != nil {
		return errors.Wrap(err, "encode step")
	}
	merged["isCompleted"] = completed
	merged["currentStep"] = step

	snapshot, err := json.Marshal(merged)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err = s.snapshots.Set(ctx, userID, StorageKey, snapshot); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	return nil
}
