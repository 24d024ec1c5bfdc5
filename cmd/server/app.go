package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	apimiddleware "github.com/prepdeck/prepdeck-api/internal/api/middleware"
	"github.com/prepdeck/prepdeck-api/internal/config"
	"github.com/prepdeck/prepdeck-api/internal/platform/metrics"
	"github.com/prepdeck/prepdeck-api/internal/platform/postgres"
	"github.com/prepdeck/prepdeck-api/internal/service/auth"
	"github.com/prepdeck/prepdeck-api/internal/service/practice"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// application holds the shared application dependencies so wiring and
// cleanup live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	cardStore    store.CardStore
	reviewStore  store.ReviewRecordStore
	sessionStore store.SessionStore
	taskCatalog  store.TaskCatalog

	// Services
	jwtService      auth.JWTService
	practiceService practice.PracticeService

	// Observability
	registry  *prometheus.Registry
	collector *metrics.Collector

	rateLimiter *apimiddleware.RateLimiter
}

// newApplication creates a new application instance with all dependencies
// initialized. Configuration, logger and database connection must be
// established by the caller.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
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

	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.reviewStore = postgres.NewPostgresReviewRecordStore(db, logger)
	app.sessionStore = postgres.NewPostgresSessionStore(db, logger)
	app.taskCatalog = postgres.NewPostgresTaskCatalog(db, logger)

	app.registry = prometheus.NewRegistry()
	app.collector = metrics.NewCollector(app.registry)

	app.practiceService = practice.NewPracticeService(
		db,
		app.cardStore,
		app.reviewStore,
		app.sessionStore,
		app.taskCatalog,
		app.collector,
		logger,
	)

	app.rateLimiter = apimiddleware.NewRateLimiter(cfg.Server.RateLimitPerMinute)

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

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
