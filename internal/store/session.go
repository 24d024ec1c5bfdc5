package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
)

// SessionStore defines the interface for practice session persistence.
type SessionStore interface {
	// Create saves a new session together with its card set. The card set
	// is fixed at creation time and never changes afterwards.
	// IMPORTANT: run within a transaction via WithTx so the session row
	// and its session_cards rows commit atomically.
	Create(ctx context.Context, session *domain.Session, cardIDs []uuid.UUID) error

	// GetByID retrieves a session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// ListCards retrieves the session's cards ordered by card ID.
	ListCards(ctx context.Context, sessionID uuid.UUID) ([]*domain.SessionCard, error)

	// MarkAnswered stamps a rating, time spent and answer time onto an
	// unanswered session card. Cards that were already answered are left
	// untouched. Returns true if a row was updated, false if the card is
	// not in the session or was already answered.
	MarkAnswered(
		ctx context.Context,
		sessionID uuid.UUID,
		cardID uuid.UUID,
		rating domain.Rating,
		timeSpentMs *int64,
		answeredAt time.Time,
	) (bool, error)

	// Complete persists the session's rating tallies, total time and
	// completion timestamp.
	// Returns ErrSessionNotFound if the session does not exist.
	Complete(ctx context.Context, session *domain.Session) error

	// WithTx returns a new SessionStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) SessionStore
}
