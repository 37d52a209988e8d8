package main

import (
	"context"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/sqlite"
	"github.com/acetime/acetime/internal/testhelpers"
	"log/slog"
	"os"
	"time"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("ACETIME_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "ACETIME_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// The fixtures seed the assistant persona, so even a freshly migrated
	// database must have at least one row here.
	row := db.ReadWrite.QueryRowContext(ctx, `SELECT COUNT(*) FROM assistant_personas`)
	var personaCount int
	if err = row.Scan(&personaCount); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching persona count", errors.SlogError(err))
		os.Exit(1)
	}
	if personaCount == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no assistant personas found, something is likely wrong")
		os.Exit(1)
	}

	// Fetch the number of users and print it out as a simple smoke test.
	row = db.ReadWrite.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`)
	var userCount int
	if err = row.Scan(&userCount); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching user count", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "user count", slog.Int("count", userCount))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
