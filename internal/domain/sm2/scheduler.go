// Package sm2 implements the SuperMemo-2 spaced-repetition recurrence.
//
// The scheduler is a pure function of (prior state, rating, clock): it
// performs no I/O and touches no shared state, so two calls with the same
// inputs produce the same outputs. Persistence of the resulting schedule
// belongs to the caller.
package sm2

import (
	"time"

	"github.com/prepdeck/prepdeck-api/internal/domain"
)

// State is the scheduling state carried between reviews of one card by one
// user. A nil *State means the card has never been rated; the SM-2 defaults
// (ease factor 2.5, interval 1 day, zero repetitions) apply.
type State struct {
	EaseFactor  float64
	Interval    int
	Repetitions int
}

// Schedule is the outcome of applying a single rating: the successor state
// plus the instant the card next comes due. Interval is always at least one
// day, so NextReviewDate is strictly in the future relative to the call.
type Schedule struct {
	State
	NextReviewDate time.Time
}

// Scheduler computes successor scheduling states from review ratings.
type Scheduler interface {
	// ComputeNext applies one SM-2 step. prior is nil for a card's first
	// rating. Unknown rating values are treated as domain.RatingLearning.
	ComputeNext(prior *State, rating domain.Rating, now time.Time) Schedule
}

// defaultScheduler is the standard implementation of the Scheduler interface.
type defaultScheduler struct{}

// NewScheduler returns the classic SM-2 scheduler.
func NewScheduler() Scheduler {
	return defaultScheduler{}
}

// ComputeNext implements the Scheduler interface.
func (defaultScheduler) ComputeNext(prior *State, rating domain.Rating, now time.Time) Schedule {
	return computeNext(prior, rating, now)
}

// StateOf extracts the scheduler state from a persisted review record.
// Returns nil for a nil record so first-rating callers can pass records
// straight through.
func StateOf(record *domain.ReviewRecord) *State {
	if record == nil {
		return nil
	}
	return &State{
		EaseFactor:  record.EaseFactor,
		Interval:    record.Interval,
		Repetitions: record.Repetitions,
	}
}
