package models

import "time"

// User is an account holder. The ID is the opaque 64-byte WebAuthn user handle,
// so everything else in the system references users by []byte.
type User struct {
	ID          []byte    `db:"id"`
	DisplayName string    `db:"display_name"`
	CreatedAt   time.Time `db:"created_at"`
}
