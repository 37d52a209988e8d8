// Package repositories holds the SQLite data access layer. Every repository
// reads through the read-only handle and writes through the single-writer
// read-write handle of [sqlite.Database].
package repositories

import "github.com/acetime/acetime/internal/errors"

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.NewSentinel("not found")
