package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/acetime/acetime/internal/ai"
	"github.com/acetime/acetime/internal/blobstore"
	"github.com/acetime/acetime/internal/broker"
	"github.com/acetime/acetime/internal/envstruct"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/logging"
	"github.com/acetime/acetime/internal/onboarding"
	"github.com/acetime/acetime/internal/pprofserver"
	"github.com/acetime/acetime/internal/random"
	"github.com/acetime/acetime/internal/repositories"
	"github.com/acetime/acetime/internal/sqlite"
	"github.com/acetime/acetime/internal/token"
	"github.com/acetime/acetime/internal/webauthnhandler"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
)

type application struct {
	logger          *slog.Logger
	sessionManager  *scs.SessionManager
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	htmx            *htmx.HTMX
	aiClient        ai.Client
	aiEnabled       bool
	blobStore       *blobstore.Store
	tokens          *token.Issuer
	completions     *broker.ChannelBroker[int64, string]
	onboarding      *onboarding.Store
	users           *repositories.UserRepository
	calls           *repositories.CallRepository
	conversations   *repositories.ConversationRepository
	images          *repositories.ImageRepository
	visions         *repositories.VisionRepository
	friends         *repositories.FriendRepository
}

type config struct {
	Addr         string `env:"ACETIME_ADDR" envDefault:"localhost:4000"`
	PprofPort    string `env:"ACETIME_PPROF_PORT" envDefault:":6060"`
	SQLiteURL    string `env:"ACETIME_SQLITE_URL" envDefault:"./acetime.sqlite"`
	FQDN         string `env:"ACETIME_FQDN" envDefault:""`
	TokenSecret  string `env:"ACETIME_TOKEN_SECRET" envDefault:""`
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
	S3Bucket     string `env:"ACETIME_S3_BUCKET" envDefault:""`
	S3Region     string `env:"ACETIME_S3_REGION" envDefault:""`
	S3Endpoint   string `env:"ACETIME_S3_ENDPOINT" envDefault:""`
	S3AccessKey  string `env:"ACETIME_S3_ACCESS_KEY" envDefault:""`
	S3SecretKey  string `env:"ACETIME_S3_SECRET_KEY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	// Initialise pprof listening on localhost so that it's not open to the world.
	pprofserver.Launch(cfg.PprofPort, logger)

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger); err != nil {
		return errors.Wrap(err, "new database", slog.String("url", cfg.SQLiteURL))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to database")

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 24*time.Hour)
	sessionManager.Lifetime = 12 * time.Hour

	// The webauthn FQDN defaults to the host we listen on so that local
	// development works without configuration.
	fqdn := strings.Split(cfg.Addr, ":")[0]
	if cfg.FQDN != "" {
		fqdn = cfg.FQDN
	}
	rpOrigins := []string{
		fmt.Sprintf("http://%s", cfg.Addr),
		fmt.Sprintf("https://%s", fqdn),
	}

	var webAuthnHandler *webauthnhandler.WebAuthnHandler
	if webAuthnHandler, err = webauthnhandler.New(fqdn, rpOrigins, logger, sessionManager, db); err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	// Without a configured secret the API tokens stop working across restarts,
	// which is fine everywhere except production.
	tokenSecret := cfg.TokenSecret
	if tokenSecret == "" {
		var secretLength uint = 32
		if tokenSecret, err = random.Letters(secretLength); err != nil {
			return errors.Wrap(err, "generate token secret")
		}
		logger.LogAttrs(ctx, slog.LevelWarn, "ACETIME_TOKEN_SECRET not set, using a random secret")
	}
	tokens := token.NewIssuer([]byte(tokenSecret), time.Hour)

	var blobStore *blobstore.Store
	if cfg.S3Bucket != "" {
		if blobStore, err = blobstore.New(ctx, blobstore.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}); err != nil {
			return errors.Wrap(err, "new blob store")
		}
	}

	settings := repositories.NewSettingsRepository(db, logger)

	completions := broker.NewChannelBroker[int64, string]()
	go completions.Start()
	defer completions.Stop()

	app := application{
		logger:          logger,
		sessionManager:  sessionManager,
		webAuthnHandler: webAuthnHandler,
		htmx:            htmx.New(),
		aiClient:        ai.NewClient(cfg.OpenAIAPIKey),
		aiEnabled:       cfg.OpenAIAPIKey != "",
		blobStore:       blobStore,
		tokens:          tokens,
		completions:     completions,
		onboarding:      onboarding.NewStore(settings, logger),
		users:           repositories.NewUserRepository(db, logger),
		calls:           repositories.NewCallRepository(db, logger),
		conversations:   repositories.NewConversationRepository(db, logger),
		images:          repositories.NewImageRepository(db, logger),
		visions:         repositories.NewVisionRepository(db, logger),
		friends:         repositories.NewFriendRepository(db, logger),
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	// The .env file carries local development secrets and is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server error", errors.SlogError(err))
		os.Exit(1)
	}
}
