package api

import (
	"time"

	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// Common request/response structures

// StartSessionRequest defines the payload for starting a practice session.
// CardCount, IncludeCustom, and PrioritizeReview may all be omitted; see
// applyDefaults for the values they take in that case.
type StartSessionRequest struct {
	CardCount        int      `json:"card_count"        validate:"omitempty,min=1,max=100"`
	DomainIDs        []string `json:"domain_ids"        validate:"omitempty,dive,uuid"`
	TaskIDs          []string `json:"task_ids"          validate:"omitempty,dive,uuid"`
	IncludeCustom    *bool    `json:"include_custom"`
	PrioritizeReview *bool    `json:"prioritize_review"`
}

// applyDefaults fills in the documented defaults for omitted fields: 20
// cards per session, custom cards included, review cards prioritized.
func (r *StartSessionRequest) applyDefaults() {
	if r.CardCount == 0 {
		r.CardCount = defaultSessionCardCount
	}
	if r.IncludeCustom == nil {
		r.IncludeCustom = boolPtr(true)
	}
	if r.PrioritizeReview == nil {
		r.PrioritizeReview = boolPtr(true)
	}
}

func boolPtr(b bool) *bool { return &b }

// RecordResponseRequest defines the payload for rating a session card.
type RecordResponseRequest struct {
	Rating      string `json:"rating"        validate:"required,oneof=know_it learning dont_know"`
	TimeSpentMs *int64 `json:"time_spent_ms" validate:"omitempty,gte=0"`
}

// CreateCustomCardRequest defines the payload for creating a custom card.
type CreateCustomCardRequest struct {
	DomainID string `json:"domain_id" validate:"required,uuid"`
	TaskID   string `json:"task_id"   validate:"required,uuid"`
	Front    string `json:"front"     validate:"required,max=1000"`
	Back     string `json:"back"      validate:"required,max=2000"`
}

// FlashcardResponse represents one card in API responses.
type FlashcardResponse struct {
	ID        string    `json:"id"`
	DomainID  string    `json:"domain_id"`
	TaskID    string    `json:"task_id"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	IsCustom  bool      `json:"is_custom"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse represents a session with its cards and progress.
type SessionResponse struct {
	ID          string              `json:"id"`
	TotalCards  int                 `json:"total_cards"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Cards       []FlashcardResponse `json:"cards"`
	Progress    ProgressResponse    `json:"progress"`
}

// ProgressResponse reports how far a session has advanced.
type ProgressResponse struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
}

// ReviewRecordResponse represents the scheduling state after a response.
type ReviewRecordResponse struct {
	CardID         string    `json:"card_id"`
	EaseFactor     float64   `json:"ease_factor"`
	Interval       int       `json:"interval"`
	Repetitions    int       `json:"repetitions"`
	NextReviewDate time.Time `json:"next_review_date"`
	LastReviewDate time.Time `json:"last_review_date"`
}

// DueCardResponse pairs a due card with its scheduling state.
type DueCardResponse struct {
	Card   FlashcardResponse    `json:"card"`
	Record ReviewRecordResponse `json:"record"`
}

// SessionStatsResponse summarizes a completed session.
type SessionStatsResponse struct {
	TotalCards         int   `json:"total_cards"`
	KnowIt             int   `json:"know_it"`
	Learning           int   `json:"learning"`
	DontKnow           int   `json:"dont_know"`
	TotalTimeMs        int64 `json:"total_time_ms"`
	AverageTimePerCard int64 `json:"average_time_per_card"`
}

// ReviewStatsResponse reports mastery buckets over all reviewed cards.
type ReviewStatsResponse struct {
	TotalCards   int `json:"total_cards"`
	Mastered     int `json:"mastered"`
	Learning     int `json:"learning"`
	DueForReview int `json:"due_for_review"`
}

// cardToResponse converts a domain.Flashcard to a FlashcardResponse.
func cardToResponse(card *domain.Flashcard) FlashcardResponse {
	return FlashcardResponse{
		ID:        card.ID.String(),
		DomainID:  card.DomainID.String(),
		TaskID:    card.TaskID.String(),
		Front:     card.Front,
		Back:      card.Back,
		IsCustom:  card.IsCustom,
		CreatedAt: card.CreatedAt,
	}
}

// recordToResponse converts a domain.ReviewRecord to a ReviewRecordResponse.
func recordToResponse(record *domain.ReviewRecord) ReviewRecordResponse {
	return ReviewRecordResponse{
		CardID:         record.CardID.String(),
		EaseFactor:     record.EaseFactor,
		Interval:       record.Interval,
		Repetitions:    record.Repetitions,
		NextReviewDate: record.NextReviewDate,
		LastReviewDate: record.LastReviewDate,
	}
}

// dueCardToResponse converts a store.DueCard to a DueCardResponse.
func dueCardToResponse(due *store.DueCard) DueCardResponse {
	return DueCardResponse{
		Card:   cardToResponse(due.Card),
		Record: recordToResponse(due.Record),
	}
}
