package domain

import "github.com/google/uuid"

// Task is a catalog entry that custom flashcards attach to. Tasks are
// seeded by catalog management tooling and treated as read-only here.
type Task struct {
	ID       uuid.UUID `json:"id"`
	DomainID uuid.UUID `json:"domain_id"`
	Name     string    `json:"name"`
}
