package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Rating is the learner's qualitative self-assessment of a card.
type Rating string

// Possible rating values
const (
	RatingKnowIt   Rating = "know_it"
	RatingLearning Rating = "learning"
	RatingDontKnow Rating = "dont_know"
)

// IsValid reports whether the rating is one of the known values.
func (r Rating) IsValid() bool {
	switch r {
	case RatingKnowIt, RatingLearning, RatingDontKnow:
		return true
	default:
		return false
	}
}

// Session-specific validation errors
var (
	ErrSessionIDEmpty     = errors.New("session ID cannot be empty")
	ErrSessionUserIDEmpty = errors.New("session user ID cannot be empty")
	ErrSessionCardCount   = errors.New("session card count cannot be negative")
)

// Session represents one bounded practice run over a fixed set of cards.
// The card set is fixed at creation; the aggregate counters stay zero until
// the session is completed, at which point they are derived from the
// recorded SessionCard responses.
type Session struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	TotalCards  int        `json:"total_cards"`
	KnowIt      int        `json:"know_it"`
	Learning    int        `json:"learning"`
	DontKnow    int        `json:"dont_know"`
	TotalTimeMs int64      `json:"total_time_ms"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewSession creates a session shell for the given user and card count.
// Callers persist it together with its SessionCard rows.
func NewSession(userID uuid.UUID, totalCards int) (*Session, error) {
	session := &Session{
		ID:         uuid.New(),
		UserID:     userID,
		TotalCards: totalCards,
		CreatedAt:  time.Now().UTC(),
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the Session has valid data.
func (s *Session) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSessionIDEmpty
	}

	if s.UserID == uuid.Nil {
		return ErrSessionUserIDEmpty
	}

	if s.TotalCards < 0 {
		return ErrSessionCardCount
	}

	return nil
}

// SessionCard joins a session to one of its cards and carries the per-card
// response. A card is rated at most once per session: once AnsweredAt is
// set it is never cleared or overwritten.
type SessionCard struct {
	SessionID   uuid.UUID  `json:"session_id"`
	CardID      uuid.UUID  `json:"card_id"`
	Rating      *Rating    `json:"rating,omitempty"`
	TimeSpentMs *int64     `json:"time_spent_ms,omitempty"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`
}

// Answered reports whether a response has been recorded for this card.
func (sc *SessionCard) Answered() bool {
	return sc.AnsweredAt != nil
}

// SessionStats summarizes one completed session.
type SessionStats struct {
	TotalCards         int   `json:"total_cards"`
	KnowIt             int   `json:"know_it"`
	Learning           int   `json:"learning"`
	DontKnow           int   `json:"dont_know"`
	TotalTimeMs        int64 `json:"total_time_ms"`
	AverageTimePerCard int64 `json:"average_time_per_card"`
}

// SessionProgress reports how far a session has advanced.
type SessionProgress struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
}

// ReviewStats classifies a user's full review-record set into mastery
// buckets. Mastered and Learning partition TotalCards; DueForReview is
// counted independently (a mastered card can also be due).
type ReviewStats struct {
	TotalCards   int `json:"total_cards"`
	Mastered     int `json:"mastered"`
	Learning     int `json:"learning"`
	DueForReview int `json:"due_for_review"`
}
