package models

import "time"

// Friendship connects two users. Each pair is stored once with the
// bytewise-smaller user id in UserID, so lookups check both directions.
type Friendship struct {
	UserID    []byte    `db:"user_id"`
	FriendID  []byte    `db:"friend_id"`
	CreatedAt time.Time `db:"created_at"`
}
