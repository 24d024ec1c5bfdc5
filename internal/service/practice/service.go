// Package practice implements the core study workflow: assembling practice
// sessions, recording card responses through the SM-2 scheduler, and
// aggregating review and session statistics.
package practice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// Session size bounds enforced when starting a session.
const (
	MinSessionCards = 1
	MaxSessionCards = 100
)

// StartSessionParams controls how cards are picked for a new session.
type StartSessionParams struct {
	// CardCount is the requested number of cards, between MinSessionCards
	// and MaxSessionCards. The session may end up smaller if the catalog
	// cannot supply enough cards.
	CardCount int

	// DomainIDs and TaskIDs filter the new-card pool. They never filter
	// the due-card pool: a due card is practiced wherever it came from.
	DomainIDs []uuid.UUID
	TaskIDs   []uuid.UUID

	// IncludeCustom admits user-authored cards into the new-card pool.
	// Due custom cards are included regardless.
	IncludeCustom bool

	// PrioritizeReview seeds the session with due cards before filling
	// the remainder from the catalog.
	PrioritizeReview bool
}

// CardResponse is a learner's answer to one card in a session.
type CardResponse struct {
	Rating      domain.Rating
	TimeSpentMs *int64
}

// CreateCardParams carries the fields for a new custom flashcard.
type CreateCardParams struct {
	DomainID uuid.UUID
	TaskID   uuid.UUID
	Front    string
	Back     string
}

// SessionDetail is a session together with its cards and progress.
// Cards are ordered by card ID.
type SessionDetail struct {
	Session  *domain.Session
	Cards    []*domain.Flashcard
	Progress domain.SessionProgress
}

// PracticeService provides the study workflow operations.
type PracticeService interface {
	// ListCards retrieves catalog cards matching the filter.
	ListCards(ctx context.Context, filter store.CardFilter) ([]*domain.Flashcard, error)

	// StartSession assembles a new practice session for the user. With
	// PrioritizeReview set, due cards are picked first (unfiltered) and
	// the remainder comes from the catalog under the params' filters,
	// never re-selecting a card already in the session.
	//
	// Returns ErrInvalidCardCount if CardCount is out of bounds, and
	// ErrNoCardsAvailable if the pools yield no cards at all.
	StartSession(ctx context.Context, userID uuid.UUID, params StartSessionParams) (*SessionDetail, error)

	// GetSession retrieves a session with its cards and progress.
	// Returns ErrSessionNotFound if the session does not exist or belongs
	// to a different user; callers cannot distinguish the two cases.
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*SessionDetail, error)

	// RecordResponse applies a learner's rating to a card. The session
	// card is marked answered (first answer wins; a repeat rating of the
	// same card leaves it untouched) and the user's SM-2 scheduling state
	// for the card is advanced either way.
	//
	// Returns the review record after the update.
	// Returns ErrSessionNotFound for a missing or foreign session,
	// ErrInvalidRating for an unknown rating value, and ErrCardNotFound
	// if the card does not exist at all.
	RecordResponse(
		ctx context.Context,
		userID, sessionID, cardID uuid.UUID,
		response CardResponse,
	) (*domain.ReviewRecord, error)

	// CompleteSession tallies the session's recorded responses, stamps
	// the completion time, and returns the summary. Calling it again
	// re-tallies and re-stamps; the tallies are derived from the session
	// cards, so repeated calls return the same counts.
	//
	// Returns ErrSessionNotFound for a missing or foreign session.
	CompleteSession(ctx context.Context, userID, sessionID uuid.UUID) (*domain.SessionStats, error)

	// GetDueCards retrieves the user's cards due for review, most overdue
	// first. Limit caps the result; zero means no cap.
	GetDueCards(ctx context.Context, userID uuid.UUID, limit int) ([]*store.DueCard, error)

	// GetReviewStats aggregates the user's review records into mastery
	// buckets. A card counts as mastered after three consecutive correct
	// ratings with its ease factor at or above the initial value; every
	// other reviewed card counts as learning.
	GetReviewStats(ctx context.Context, userID uuid.UUID) (*domain.ReviewStats, error)

	// CreateCustomCard creates a user-authored flashcard attached to an
	// existing catalog task.
	//
	// Returns ErrInvalidTaskReference if the task does not exist or does
	// not belong to the given domain.
	CreateCustomCard(ctx context.Context, userID uuid.UUID, params CreateCardParams) (*domain.Flashcard, error)
}

// Common error types for PracticeService
var (
	// ErrSessionNotFound indicates the session does not exist for this user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCardNotFound indicates the flashcard does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrInvalidRating indicates an unknown rating value was provided.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidCardCount indicates the requested session size is out of bounds.
	ErrInvalidCardCount = fmt.Errorf(
		"card count must be between %d and %d", MinSessionCards, MaxSessionCards)

	// ErrNoCardsAvailable indicates no cards matched the session filters.
	ErrNoCardsAvailable = errors.New("no cards available for session")

	// ErrInvalidTaskReference indicates the task does not exist or belongs
	// to a different domain.
	ErrInvalidTaskReference = errors.New("task does not exist in the given domain")

	// ErrInvalidCard indicates the card content failed validation.
	ErrInvalidCard = errors.New("invalid card content")
)

// ServiceError wraps errors from the practice service with additional
// context, so consumers can differentiate failure sites with errors.As
// instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start_session")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError creates a ServiceError for the given operation.
func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
