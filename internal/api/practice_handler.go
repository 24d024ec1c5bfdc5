// Package api provides HTTP handlers for the API.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/api/shared"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/platform/logger"
	"github.com/prepdeck/prepdeck-api/internal/redact"
	"github.com/prepdeck/prepdeck-api/internal/service/practice"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

const (
	// defaultListLimit caps GET /flashcards when no limit is given.
	defaultListLimit = 100

	// defaultDueLimit caps GET /flashcards/review when no limit is given.
	defaultDueLimit = 20

	// defaultSessionCardCount is used when a start-session request omits
	// card_count.
	defaultSessionCardCount = 20
)

// PracticeHandler handles flashcard practice HTTP requests.
type PracticeHandler struct {
	practiceService practice.PracticeService
	logger          *slog.Logger
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(
	practiceService practice.PracticeService,
	logger *slog.Logger,
) *PracticeHandler {
	if practiceService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("practiceService cannot be nil for PracticeHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for PracticeHandler")
	}

	return &PracticeHandler{
		practiceService: practiceService,
		logger:          logger.With(slog.String("component", "practice_handler")),
	}
}

// ListCards handles GET /flashcards requests.
// Supports repeated domain_id and task_id query parameters plus a limit.
func (h *PracticeHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	domainIDs, ok := parseUUIDQuery(w, r, "domain_id")
	if !ok {
		return
	}
	taskIDs, ok := parseUUIDQuery(w, r, "task_id")
	if !ok {
		return
	}

	cards, err := h.practiceService.ListCards(r.Context(), store.CardFilter{
		DomainIDs: domainIDs,
		TaskIDs:   taskIDs,
		Limit:     queryLimit(r, defaultListLimit),
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := make([]FlashcardResponse, 0, len(cards))
	for _, c := range cards {
		response = append(response, cardToResponse(c))
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	log.Debug("listed flashcards",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(response)))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// GetDueCards handles GET /flashcards/review requests.
// It returns the user's due-card queue, most overdue first.
func (h *PracticeHandler) GetDueCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	due, err := h.practiceService.GetDueCards(r.Context(), userID, queryLimit(r, defaultDueLimit))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := make([]DueCardResponse, 0, len(due))
	for _, d := range due {
		response = append(response, dueCardToResponse(d))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// GetReviewStats handles GET /flashcards/stats requests.
func (h *PracticeHandler) GetReviewStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.practiceService.GetReviewStats(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReviewStatsResponse{
		TotalCards:   stats.TotalCards,
		Mastered:     stats.Mastered,
		Learning:     stats.Learning,
		DueForReview: stats.DueForReview,
	})
}

// StartSession handles POST /flashcards/sessions requests.
func (h *PracticeHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	req.applyDefaults()

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	domainIDs, err := parseUUIDs(req.DomainIDs)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid domain ID format")
		return
	}
	taskIDs, err := parseUUIDs(req.TaskIDs)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	detail, err := h.practiceService.StartSession(r.Context(), userID, practice.StartSessionParams{
		CardCount:        req.CardCount,
		DomainIDs:        domainIDs,
		TaskIDs:          taskIDs,
		IncludeCustom:    *req.IncludeCustom,
		PrioritizeReview: *req.PrioritizeReview,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(detail))
}

// GetSession handles GET /flashcards/sessions/{id} requests.
// Sessions owned by other users are reported as not found.
func (h *PracticeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	sessionID, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	detail, err := h.practiceService.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(detail))
}

// RecordResponse handles POST /flashcards/sessions/{id}/responses/{cardID}
// requests. It stamps the session card and advances the card's schedule.
func (h *PracticeHandler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	sessionID, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}
	cardID, ok := parseUUIDParam(w, r, "cardID", "card")
	if !ok {
		return
	}

	var req RecordResponseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()),
			slog.String("card_id", cardID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	record, err := h.practiceService.RecordResponse(r.Context(), userID, sessionID, cardID,
		practice.CardResponse{
			Rating:      domain.Rating(req.Rating),
			TimeSpentMs: req.TimeSpentMs,
		})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("recorded response",
		slog.String("user_id", userID.String()),
		slog.String("session_id", sessionID.String()),
		slog.String("card_id", cardID.String()),
		slog.String("rating", req.Rating))
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(record))
}

// CompleteSession handles POST /flashcards/sessions/{id}/complete requests.
func (h *PracticeHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	sessionID, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	stats, err := h.practiceService.CompleteSession(r.Context(), userID, sessionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SessionStatsResponse{
		TotalCards:         stats.TotalCards,
		KnowIt:             stats.KnowIt,
		Learning:           stats.Learning,
		DontKnow:           stats.DontKnow,
		TotalTimeMs:        stats.TotalTimeMs,
		AverageTimePerCard: stats.AverageTimePerCard,
	})
}

// CreateCustomCard handles POST /flashcards/custom requests.
func (h *PracticeHandler) CreateCustomCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateCustomCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// UUID format already checked by the validator.
	domainID := uuid.MustParse(req.DomainID)
	taskID := uuid.MustParse(req.TaskID)

	card, err := h.practiceService.CreateCustomCard(r.Context(), userID, practice.CreateCardParams{
		DomainID: domainID,
		TaskID:   taskID,
		Front:    req.Front,
		Back:     req.Back,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("created custom card",
		slog.String("user_id", userID.String()),
		slog.String("card_id", card.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, cardToResponse(card))
}

// sessionToResponse converts a practice.SessionDetail to a SessionResponse.
func sessionToResponse(detail *practice.SessionDetail) SessionResponse {
	cards := make([]FlashcardResponse, 0, len(detail.Cards))
	for _, c := range detail.Cards {
		cards = append(cards, cardToResponse(c))
	}

	return SessionResponse{
		ID:          detail.Session.ID.String(),
		TotalCards:  detail.Session.TotalCards,
		CreatedAt:   detail.Session.CreatedAt,
		CompletedAt: detail.Session.CompletedAt,
		Cards:       cards,
		Progress: ProgressResponse{
			Total:    detail.Progress.Total,
			Answered: detail.Progress.Answered,
		},
	}
}

// requireUserID extracts the authenticated user ID set by the auth
// middleware, responding 401 when it is absent.
func requireUserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

// parseUUIDParam parses a chi URL parameter as a UUID, responding 400 on
// bad input.
func parseUUIDParam(w http.ResponseWriter, r *http.Request, param, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing "+name+" ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+name+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// parseUUIDQuery parses a repeated query parameter as UUIDs, responding 400
// on bad input.
func parseUUIDQuery(w http.ResponseWriter, r *http.Request, param string) ([]uuid.UUID, bool) {
	values := r.URL.Query()[param]
	ids, err := parseUUIDs(values)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+param+" format")
		return nil, false
	}
	return ids, true
}

// parseUUIDs parses a string slice into UUIDs. A nil or empty slice parses
// to nil.
func parseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(values))
	for i, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// queryLimit reads the limit query parameter, falling back to def when the
// parameter is absent or not a positive integer.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
