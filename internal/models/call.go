package models

import "time"

type CallStatus string

const (
	CallStatusActive CallStatus = "active"
	CallStatusEnded  CallStatus = "ended"
)

// Call is a call session record. The media itself flows peer-to-peer in the
// browser; the server tracks who is in the call and their control state.
type Call struct {
	ID        string     `db:"id"`
	CreatorID []byte     `db:"creator_id"`
	Status    CallStatus `db:"status"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
}

// CallParticipant holds the per-participant control flags rendered in the call
// control bar. CanShareScreen gates whether the share control exists at all for
// this participant.
type CallParticipant struct {
	CallID         string    `db:"call_id"`
	UserID         []byte    `db:"user_id"`
	Muted          bool      `db:"muted"`
	VideoOff       bool      `db:"video_off"`
	ScreenSharing  bool      `db:"screen_sharing"`
	CanShareScreen bool      `db:"can_share_screen"`
	JoinedAt       time.Time `db:"joined_at"`
}
