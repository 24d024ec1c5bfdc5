package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for ReviewRecord
var (
	ErrEmptyRecordUserID  = errors.New("review record user ID cannot be empty")
	ErrEmptyRecordCardID  = errors.New("review record card ID cannot be empty")
	ErrInvalidInterval    = errors.New("interval must be at least 1 day")
	ErrInvalidEaseFactor  = errors.New("ease factor cannot fall below the minimum")
	ErrInvalidRepetitions = errors.New("repetitions cannot be negative")
)

// ReviewRecord tracks a user's SM-2 scheduling state for a single card.
// Exactly one record exists per (UserID, CardID) pair, created on the first
// rating of that card and updated on every rating thereafter.
type ReviewRecord struct {
	UserID         uuid.UUID `json:"user_id"`
	CardID         uuid.UUID `json:"card_id"`
	EaseFactor     float64   `json:"ease_factor"` // ≥ sm2 minimum, default 2.5
	Interval       int       `json:"interval"`    // days until the next review, ≥ 1
	Repetitions    int       `json:"repetitions"` // consecutive correct ratings
	NextReviewDate time.Time `json:"next_review_date"`
	LastReviewDate time.Time `json:"last_review_date"`
}

// Validate checks if the ReviewRecord has valid data.
// Returns an error if any field fails validation.
func (r *ReviewRecord) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrEmptyRecordUserID
	}

	if r.CardID == uuid.Nil {
		return ErrEmptyRecordCardID
	}

	if r.Interval < 1 {
		return ErrInvalidInterval
	}

	if r.EaseFactor < MinimumEaseFactor {
		return ErrInvalidEaseFactor
	}

	if r.Repetitions < 0 {
		return ErrInvalidRepetitions
	}

	return nil
}

// IsDue reports whether the card is due for review at the given instant.
func (r *ReviewRecord) IsDue(asOf time.Time) bool {
	return !r.NextReviewDate.After(asOf)
}

// SM-2 scheduling constants shared by the domain and the scheduler.
const (
	// InitialEaseFactor is the ease factor assigned to a never-reviewed card.
	InitialEaseFactor = 2.5

	// MinimumEaseFactor is the floor below which the ease factor never drops.
	MinimumEaseFactor = 1.3

	// InitialInterval is the starting interval, in days, for a new card.
	InitialInterval = 1
)
