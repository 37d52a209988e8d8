package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/acetime/acetime/internal/sqlite"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err = dbs.ReadWrite.Close(); err != nil {
			t.Fatal(err)
		}
		if err = dbs.ReadOnly.Close(); err != nil {
			t.Fatal(err)
		}
	})

	return dbs
}

// createUser inserts a user row for tests that need an account to hang data on.
func createUser(t *testing.T, dbs *sqlite.Database, id []byte, displayName string) {
	t.Helper()

	if _, err := dbs.ReadWrite.Exec(
		`INSERT INTO users (id, display_name) VALUES (?, ?)`, id, displayName,
	); err != nil {
		t.Fatal(err)
	}
}
