package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prepdeck/prepdeck-api/internal/service/auth"
	"github.com/prepdeck/prepdeck-api/internal/service/practice"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Not found errors. A foreign session surfaces as
	// practice.ErrSessionNotFound, so 404 also covers ownership hiding.
	case errors.Is(err, practice.ErrSessionNotFound),
		errors.Is(err, practice.ErrCardNotFound),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, practice.ErrInvalidRating),
		errors.Is(err, practice.ErrInvalidCardCount),
		errors.Is(err, practice.ErrNoCardsAvailable),
		errors.Is(err, practice.ErrInvalidTaskReference),
		errors.Is(err, practice.ErrInvalidCard),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for the given error.
// Raw error strings never reach clients.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, practice.ErrSessionNotFound),
		errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, practice.ErrCardNotFound),
		errors.Is(err, store.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, practice.ErrInvalidRating):
		return "Invalid rating"

	case errors.Is(err, practice.ErrInvalidCardCount):
		return "Card count must be between 1 and 100"

	case errors.Is(err, practice.ErrNoCardsAvailable):
		return "No cards available for a session"

	case errors.Is(err, practice.ErrInvalidTaskReference):
		return "Task does not exist in the given domain"

	case errors.Is(err, practice.ErrInvalidCard):
		return "Invalid card content"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case store.IsNotFoundError(err):
		return "Resource not found"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError converts a validator error into a user-friendly
// message without echoing submitted values back.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'StartSessionRequest.CardCount' Error:Field
		// validation for 'CardCount' failed on the 'max' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// validationTagMessage maps validation tags to user-friendly error messages.
func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid UUID"
	default:
		return "validation failed"
	}
}
