package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/prepdeck/prepdeck-api/internal/api/shared"
)

func rateLimitRequest(userID uuid.UUID) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/flashcards", nil)
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(5)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	userID := uuid.New()
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, rateLimitRequest(userID))
		assert.Equal(t, http.StatusOK, w.Code, "request %d within burst", i)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, rateLimitRequest(userID))
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "budget exhausted")
}

func TestRateLimiter_BudgetsArePerUser(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := uuid.New()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, rateLimitRequest(first))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, rateLimitRequest(first))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different user still has a full bucket.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, rateLimitRequest(uuid.New()))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_ZeroDisablesLimiting(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	userID := uuid.New()
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, rateLimitRequest(userID))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_RequiresAuthenticatedUser(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(10)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/flashcards", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
