package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/taskdeck-api/internal/config"
	"github.com/taskdeck/taskdeck-api/internal/platform/postgres"
	"github.com/taskdeck/taskdeck-api/internal/platform/redisstore"
	"github.com/taskdeck/taskdeck-api/internal/service"
	"github.com/taskdeck/taskdeck-api/internal/service/auth"
	"github.com/taskdeck/taskdeck-api/internal/service/authz"
	"github.com/taskdeck/taskdeck-api/internal/service/sharing"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// application holds the initialized dependencies of a running server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Optional; nil when Redis is not configured.
	redisClient *redis.Client

	// Stores
	userStore  store.UserStore
	taskStore  store.TaskStore
	shareStore store.ShareStore

	// Services
	jwtService     auth.JWTService
	authService    *auth.Service
	taskService    *service.TaskService
	sharingManager *sharing.Manager
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	bcryptCost := cfg.Auth.BcryptCost
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	app.userStore = postgres.NewPostgresUserStore(db, bcryptCost, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.shareStore = postgres.NewPostgresShareStore(db, logger)

	// Redis backs the task mirror and the refresh-token denylist. Both
	// degrade to no-ops when no instance is configured.
	var taskMirror redisstore.TaskMirror = redisstore.NoopTaskMirror{}
	var denylist auth.TokenDenylist = redisstore.NoopTokenDenylist{}
	if cfg.Redis.Enabled() {
		app.redisClient = redisstore.NewClient(cfg.Redis)
		if err := app.redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable at startup, continuing anyway",
				"addr", cfg.Redis.Addr, "error", err)
		}
		taskMirror = redisstore.NewRedisTaskMirror(app.redisClient, logger)
		denylist = redisstore.NewRedisTokenDenylist(app.redisClient, logger)
		logger.Info("Redis mirror and token denylist initialized", "addr", cfg.Redis.Addr)
	} else {
		logger.Info("Redis not configured, mirror and token denylist disabled")
	}

	runTx := store.NewTxRunner(db)
	engine := authz.NewEngine(app.taskStore)

	app.authService = auth.NewService(
		app.userStore,
		app.jwtService,
		auth.NewBcryptVerifier(),
		denylist,
	)
	app.taskService = service.NewTaskService(
		app.taskStore,
		engine,
		taskMirror,
		runTx,
		logger,
	)
	app.sharingManager = sharing.NewManager(
		app.taskStore,
		app.shareStore,
		app.userStore,
		engine,
		runTx,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases resources not owned by main.
func (app *application) cleanup() {
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("failed to close Redis client", "error", err)
		}
	}
}
