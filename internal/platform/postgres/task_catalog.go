package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/platform/logger"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// PostgresTaskCatalog implements store.TaskCatalog against the seeded
// tasks table.
type PostgresTaskCatalog struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskCatalog creates a new PostgreSQL implementation of the
// TaskCatalog interface. If logger is nil, a default logger will be used.
func NewPostgresTaskCatalog(db store.DBTX, logger *slog.Logger) *PostgresTaskCatalog {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskCatalog{
		db:     db,
		logger: logger.With(slog.String("component", "task_catalog")),
	}
}

// Ensure PostgresTaskCatalog implements store.TaskCatalog interface
var _ store.TaskCatalog = (*PostgresTaskCatalog)(nil)

// GetTask implements store.TaskCatalog.GetTask.
// Returns store.ErrTaskNotFound if no such task exists.
func (s *PostgresTaskCatalog) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, domain_id, name
		FROM tasks
		WHERE id = $1
	`

	var task domain.Task
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID,
		&task.DomainID,
		&task.Name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", taskID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, err
	}

	return &task, nil
}
