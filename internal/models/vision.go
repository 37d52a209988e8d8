package models

import "time"

type VisionVisibility string

const (
	VisionVisibilityPrivate     VisionVisibility = "private"
	VisionVisibilityConnections VisionVisibility = "connections"
	VisionVisibilityPublic      VisionVisibility = "public"
)

const DefaultVisionVisibility = VisionVisibilityConnections

func (v VisionVisibility) Valid() bool {
	switch v {
	case VisionVisibilityPrivate, VisionVisibilityConnections, VisionVisibilityPublic:
		return true
	}
	return false
}

type VisionStatus string

const (
	VisionStatusDraft     VisionStatus = "draft"
	VisionStatusActive    VisionStatus = "active"
	VisionStatusCompleted VisionStatus = "completed"
	VisionStatusArchived  VisionStatus = "archived"
)

const DefaultVisionStatus = VisionStatusActive

func (s VisionStatus) Valid() bool {
	switch s {
	case VisionStatusDraft, VisionStatusActive, VisionStatusCompleted, VisionStatusArchived:
		return true
	}
	return false
}

// Vision is a goal card on a user's vision board. Tags keep their authored
// order and are individually indexed for lookup.
type Vision struct {
	ID          string           `db:"id"`
	OwnerID     []byte           `db:"owner_id"`
	Title       string           `db:"title"`
	Description string           `db:"description"`
	Category    string           `db:"category"`
	Visibility  VisionVisibility `db:"visibility"`
	Status      VisionStatus     `db:"status"`
	CreatedAt   time.Time        `db:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at"`
	Tags        []string         `db:"-"`
}
