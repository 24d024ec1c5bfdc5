package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
)

// DueCard pairs a flashcard with the review record that made it due.
type DueCard struct {
	Card   *domain.Flashcard
	Record *domain.ReviewRecord
}

// ReviewRecordStore defines the interface for per-user scheduling state
// persistence. A user has at most one review record per card.
type ReviewRecordStore interface {
	// Get retrieves the review record for the given user and card.
	// Returns ErrReviewRecordNotFound if the user has never reviewed the card.
	Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.ReviewRecord, error)

	// GetForUpdate behaves like Get but locks the row for the duration of
	// the enclosing transaction, serializing concurrent reviews of the
	// same card. Only meaningful on a store bound to a transaction.
	GetForUpdate(ctx context.Context, userID, cardID uuid.UUID) (*domain.ReviewRecord, error)

	// Upsert inserts the review record, or replaces the existing one for
	// the same user and card.
	Upsert(ctx context.Context, record *domain.ReviewRecord) error

	// FindDue retrieves cards whose next review date is at or before asOf,
	// ordered by next review date (most overdue first) with card ID as a
	// tiebreak. Limit caps the result; zero means no cap.
	FindDue(ctx context.Context, userID uuid.UUID, asOf time.Time, limit int) ([]*DueCard, error)

	// ListByUser retrieves all review records for the user. Used by the
	// mastery stats aggregation.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewRecord, error)

	// WithTx returns a new ReviewRecordStore instance that uses the
	// provided transaction.
	WithTx(tx *sql.Tx) ReviewRecordStore
}
