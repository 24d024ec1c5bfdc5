// Package main implements the entry point for the prepdeck API server,
// which schedules and serves users' spaced-repetition flashcard practice.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/prepdeck/prepdeck-api/internal/config"
	"github.com/prepdeck/prepdeck-api/internal/platform/logger"
)

func main() {
	migrate := flag.String("migrate", "", "run database migrations (up, down, status) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	if *migrate != "" {
		if err := runMigrations(cfg, *migrate); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		return
	}

	if err := run(context.Background(), cfg, appLogger); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// run wires the application together and blocks until shutdown.
func run(ctx context.Context, cfg *config.Config, appLogger *slog.Logger) error {
	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
