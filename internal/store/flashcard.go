package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
)

// CardFilter narrows the catalog query used when picking cards for a
// practice session. Zero-value fields are ignored.
type CardFilter struct {
	// DomainIDs restricts results to the given domains.
	DomainIDs []uuid.UUID

	// TaskIDs restricts results to the given tasks.
	TaskIDs []uuid.UUID

	// ExcludeCustom drops user-authored cards from the result set.
	ExcludeCustom bool

	// ExcludeIDs drops specific cards, used to avoid re-selecting cards
	// already chosen from the due pool.
	ExcludeIDs []uuid.UUID

	// Limit caps the number of cards returned. Zero means no cap.
	Limit int
}

// CardStore defines the interface for flashcard persistence.
type CardStore interface {
	// GetByID retrieves a flashcard by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error)

	// GetByIDs retrieves the flashcards with the given IDs, ordered by ID.
	// Missing IDs are silently skipped; the caller compares lengths if it
	// cares about completeness.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Flashcard, error)

	// List retrieves catalog cards matching the filter, ordered by
	// creation time (oldest first) with ID as a tiebreak so pagination
	// is stable.
	List(ctx context.Context, filter CardFilter) ([]*domain.Flashcard, error)

	// Create saves a new flashcard to the store.
	// Returns ErrInvalidEntity wrapping the validation error if the card
	// data is invalid, and ErrDuplicate if the ID is already taken.
	Create(ctx context.Context, card *domain.Flashcard) error

	// WithTx returns a new CardStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller, typically via store.RunInTransaction.
	WithTx(tx *sql.Tx) CardStore
}
