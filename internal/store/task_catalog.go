package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
)

// TaskCatalog exposes read access to the seeded task catalog. Custom card
// creation uses it to verify that the referenced task exists and belongs
// to the claimed domain.
type TaskCatalog interface {
	// GetTask retrieves a catalog task by ID.
	// Returns ErrTaskNotFound if no such task exists.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
}
