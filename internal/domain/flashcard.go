package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Limits for user-authored card content. Catalog imports are validated
// upstream and may carry longer text.
const (
	MaxCustomFrontLength = 1000
	MaxCustomBackLength  = 2000
)

// Flashcard-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardDomainIDEmpty is returned when a card's domain ID is empty or nil.
	ErrCardDomainIDEmpty = errors.New("card domain ID cannot be empty")

	// ErrCardTaskIDEmpty is returned when a card's task ID is empty or nil.
	ErrCardTaskIDEmpty = errors.New("card task ID cannot be empty")

	// ErrCardFrontEmpty is returned when a card's front text is empty.
	ErrCardFrontEmpty = errors.New("card front cannot be empty")

	// ErrCardBackEmpty is returned when a card's back text is empty.
	ErrCardBackEmpty = errors.New("card back cannot be empty")

	// ErrCardFrontTooLong is returned when a custom card's front text exceeds the limit.
	ErrCardFrontTooLong = errors.New("card front exceeds maximum length")

	// ErrCardBackTooLong is returned when a custom card's back text exceeds the limit.
	ErrCardBackTooLong = errors.New("card back exceeds maximum length")

	// ErrCardOwnerMissing is returned when a custom card has no owner.
	ErrCardOwnerMissing = errors.New("custom card must have a creator")

	// ErrCardOwnerUnexpected is returned when a catalog card carries an owner.
	ErrCardOwnerUnexpected = errors.New("catalog card cannot have a creator")
)

// Flashcard is an immutable content unit from the study catalog, or a
// user-authored custom card. Cards are never mutated after creation.
type Flashcard struct {
	ID        uuid.UUID  `json:"id"`
	DomainID  uuid.UUID  `json:"domain_id"`
	TaskID    uuid.UUID  `json:"task_id"`
	Front     string     `json:"front"`
	Back      string     `json:"back"`
	IsCustom  bool       `json:"is_custom"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"` // set iff IsCustom
	CreatedAt time.Time  `json:"created_at"`
}

// NewCustomFlashcard creates a user-authored card for the given owner.
// It generates a new UUID for the card ID and sets the creation timestamp.
// Returns an error if validation fails.
func NewCustomFlashcard(createdBy, domainID, taskID uuid.UUID, front, back string) (*Flashcard, error) {
	owner := createdBy
	card := &Flashcard{
		ID:        uuid.New(),
		DomainID:  domainID,
		TaskID:    taskID,
		Front:     front,
		Back:      back,
		IsCustom:  true,
		CreatedBy: &owner,
		CreatedAt: time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Flashcard has valid data.
// Returns an error if any field fails validation.
func (c *Flashcard) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.DomainID == uuid.Nil {
		return ErrCardDomainIDEmpty
	}

	if c.TaskID == uuid.Nil {
		return ErrCardTaskIDEmpty
	}

	if c.Front == "" {
		return ErrCardFrontEmpty
	}

	if c.Back == "" {
		return ErrCardBackEmpty
	}

	if c.IsCustom {
		if c.CreatedBy == nil || *c.CreatedBy == uuid.Nil {
			return ErrCardOwnerMissing
		}
		if len(c.Front) > MaxCustomFrontLength {
			return ErrCardFrontTooLong
		}
		if len(c.Back) > MaxCustomBackLength {
			return ErrCardBackTooLong
		}
	} else if c.CreatedBy != nil {
		return ErrCardOwnerUnexpected
	}

	return nil
}
