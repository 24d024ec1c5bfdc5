package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewCustomFlashcard(t *testing.T) {
	t.Parallel() // Enable parallel execution
	userID := uuid.New()
	domainID := uuid.New()
	taskID := uuid.New()

	card, err := NewCustomFlashcard(userID, domainID, taskID, "What is the critical path?", "The longest sequence of dependent activities.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if card.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if !card.IsCustom {
		t.Error("Expected IsCustom to be true")
	}

	if card.CreatedBy == nil || *card.CreatedBy != userID {
		t.Errorf("Expected creator %s, got %v", userID, card.CreatedBy)
	}

	if card.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Test invalid domainID
	_, err = NewCustomFlashcard(userID, uuid.Nil, taskID, "front", "back")
	if err != ErrCardDomainIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrCardDomainIDEmpty, err)
	}

	// Test invalid taskID
	_, err = NewCustomFlashcard(userID, domainID, uuid.Nil, "front", "back")
	if err != ErrCardTaskIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrCardTaskIDEmpty, err)
	}

	// Test empty content
	_, err = NewCustomFlashcard(userID, domainID, taskID, "", "back")
	if err != ErrCardFrontEmpty {
		t.Errorf("Expected error %v, got %v", ErrCardFrontEmpty, err)
	}

	_, err = NewCustomFlashcard(userID, domainID, taskID, "front", "")
	if err != ErrCardBackEmpty {
		t.Errorf("Expected error %v, got %v", ErrCardBackEmpty, err)
	}
}

func TestFlashcardValidate_CustomLengthLimits(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	domainID := uuid.New()
	taskID := uuid.New()

	// Exactly at the limits is valid.
	card, err := NewCustomFlashcard(userID, domainID, taskID,
		strings.Repeat("f", MaxCustomFrontLength),
		strings.Repeat("b", MaxCustomBackLength))
	if err != nil {
		t.Fatalf("Expected no error at the length limits, got %v", err)
	}
	if card == nil {
		t.Fatal("Expected a card at the length limits")
	}

	// One past the front limit fails.
	_, err = NewCustomFlashcard(userID, domainID, taskID,
		strings.Repeat("f", MaxCustomFrontLength+1), "back")
	if err != ErrCardFrontTooLong {
		t.Errorf("Expected error %v, got %v", ErrCardFrontTooLong, err)
	}

	// One past the back limit fails.
	_, err = NewCustomFlashcard(userID, domainID, taskID,
		"front", strings.Repeat("b", MaxCustomBackLength+1))
	if err != ErrCardBackTooLong {
		t.Errorf("Expected error %v, got %v", ErrCardBackTooLong, err)
	}
}

func TestFlashcardValidate_Ownership(t *testing.T) {
	t.Parallel()
	owner := uuid.New()

	// Custom card without an owner is invalid.
	card := &Flashcard{
		ID:       uuid.New(),
		DomainID: uuid.New(),
		TaskID:   uuid.New(),
		Front:    "front",
		Back:     "back",
		IsCustom: true,
	}
	if err := card.Validate(); err != ErrCardOwnerMissing {
		t.Errorf("Expected error %v, got %v", ErrCardOwnerMissing, err)
	}

	// Catalog card with an owner is invalid.
	card.IsCustom = false
	card.CreatedBy = &owner
	if err := card.Validate(); err != ErrCardOwnerUnexpected {
		t.Errorf("Expected error %v, got %v", ErrCardOwnerUnexpected, err)
	}

	// Catalog card may exceed the custom length limits.
	card.CreatedBy = nil
	card.Front = strings.Repeat("f", MaxCustomFrontLength+500)
	if err := card.Validate(); err != nil {
		t.Errorf("Expected no error for a long catalog card, got %v", err)
	}
}
