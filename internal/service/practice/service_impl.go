package practice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/domain/sm2"
	"github.com/prepdeck/prepdeck-api/internal/platform/logger"
	"github.com/prepdeck/prepdeck-api/internal/platform/metrics"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// Verify interface compliance at compile time
var _ PracticeService = (*practiceServiceImpl)(nil)

// practiceServiceImpl implements the PracticeService interface.
type practiceServiceImpl struct {
	cardStore    store.CardStore
	reviewStore  store.ReviewRecordStore
	sessionStore store.SessionStore
	taskCatalog  store.TaskCatalog
	scheduler    sm2.Scheduler
	metrics      metrics.Recorder
	logger       *slog.Logger

	// runTx executes a function inside a database transaction. Tests
	// replace it to run against mock stores without a real database.
	runTx func(ctx context.Context, fn store.TxFn) error

	// timeFunc is injectable for testing.
	timeFunc func() time.Time
}

// NewPracticeService creates a new PracticeService implementation.
// A nil metrics recorder disables metrics; a nil logger falls back to the
// default logger.
func NewPracticeService(
	db *sql.DB,
	cardStore store.CardStore,
	reviewStore store.ReviewRecordStore,
	sessionStore store.SessionStore,
	taskCatalog store.TaskCatalog,
	recorder metrics.Recorder,
	logger *slog.Logger,
) PracticeService {
	if db == nil {
		panic("db cannot be nil")
	}
	if cardStore == nil {
		panic("cardStore cannot be nil")
	}
	if reviewStore == nil {
		panic("reviewStore cannot be nil")
	}
	if sessionStore == nil {
		panic("sessionStore cannot be nil")
	}
	if taskCatalog == nil {
		panic("taskCatalog cannot be nil")
	}

	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &practiceServiceImpl{
		cardStore:    cardStore,
		reviewStore:  reviewStore,
		sessionStore: sessionStore,
		taskCatalog:  taskCatalog,
		scheduler:    sm2.NewScheduler(),
		metrics:      recorder,
		logger:       logger.With(slog.String("component", "practice_service")),
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
		timeFunc: time.Now,
	}
}

// ListCards implements PracticeService.ListCards.
func (s *practiceServiceImpl) ListCards(
	ctx context.Context,
	filter store.CardFilter,
) ([]*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cards, err := s.cardStore.List(ctx, filter)
	if err != nil {
		log.Error("failed to list flashcards",
			slog.String("error", err.Error()))
		return nil, newServiceError("list_cards", "failed to list flashcards", err)
	}

	return cards, nil
}

// StartSession implements PracticeService.StartSession.
func (s *practiceServiceImpl) StartSession(
	ctx context.Context,
	userID uuid.UUID,
	params StartSessionParams,
) (*SessionDetail, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if params.CardCount < MinSessionCards || params.CardCount > MaxSessionCards {
		log.Warn("invalid session card count",
			slog.String("user_id", userID.String()),
			slog.Int("card_count", params.CardCount))
		return nil, ErrInvalidCardCount
	}

	now := s.timeFunc().UTC()

	// Due cards first. The due pool ignores the domain/task/custom
	// filters: anything the schedule says is due gets practiced.
	var cards []*domain.Flashcard
	if params.PrioritizeReview {
		due, err := s.reviewStore.FindDue(ctx, userID, now, params.CardCount)
		if err != nil {
			log.Error("failed to fetch due cards for session",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
			return nil, newServiceError("start_session", "failed to fetch due cards", err)
		}
		for _, d := range due {
			cards = append(cards, d.Card)
		}
	}

	// Fill the remainder from the catalog, skipping cards already picked
	// from the due pool.
	if remaining := params.CardCount - len(cards); remaining > 0 {
		exclude := make([]uuid.UUID, len(cards))
		for i, c := range cards {
			exclude[i] = c.ID
		}
		fresh, err := s.cardStore.List(ctx, store.CardFilter{
			DomainIDs:     params.DomainIDs,
			TaskIDs:       params.TaskIDs,
			ExcludeCustom: !params.IncludeCustom,
			ExcludeIDs:    exclude,
			Limit:         remaining,
		})
		if err != nil {
			log.Error("failed to fetch catalog cards for session",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
			return nil, newServiceError("start_session", "failed to fetch catalog cards", err)
		}
		cards = append(cards, fresh...)
	}

	if len(cards) == 0 {
		log.Debug("no cards available for session",
			slog.String("user_id", userID.String()))
		return nil, ErrNoCardsAvailable
	}

	session, err := domain.NewSession(userID, len(cards))
	if err != nil {
		return nil, newServiceError("start_session", "failed to build session", err)
	}
	session.CreatedAt = now

	cardIDs := make([]uuid.UUID, len(cards))
	for i, c := range cards {
		cardIDs[i] = c.ID
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.sessionStore.WithTx(tx).Create(ctx, session, cardIDs)
	})
	if err != nil {
		log.Error("failed to persist session",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("session_id", session.ID.String()))
		return nil, newServiceError("start_session", "failed to persist session", err)
	}

	s.metrics.RecordSessionStarted(len(cards))

	log.Info("session started",
		slog.String("user_id", userID.String()),
		slog.String("session_id", session.ID.String()),
		slog.Int("total_cards", len(cards)),
		slog.Bool("prioritize_review", params.PrioritizeReview))

	return &SessionDetail{
		Session:  session,
		Cards:    cards,
		Progress: domain.SessionProgress{Total: len(cards)},
	}, nil
}

// GetSession implements PracticeService.GetSession.
// A session owned by a different user is reported as not found, so callers
// cannot probe for the existence of other users' sessions.
func (s *practiceServiceImpl) GetSession(
	ctx context.Context,
	userID, sessionID uuid.UUID,
) (*SessionDetail, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.getOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	sessionCards, err := s.sessionStore.ListCards(ctx, sessionID)
	if err != nil {
		log.Error("failed to list session cards",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, newServiceError("get_session", "failed to list session cards", err)
	}

	ids := make([]uuid.UUID, len(sessionCards))
	answered := 0
	for i, sc := range sessionCards {
		ids[i] = sc.CardID
		if sc.Answered() {
			answered++
		}
	}

	cards, err := s.cardStore.GetByIDs(ctx, ids)
	if err != nil {
		log.Error("failed to load session card content",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, newServiceError("get_session", "failed to load card content", err)
	}

	return &SessionDetail{
		Session: session,
		Cards:   cards,
		Progress: domain.SessionProgress{
			Total:    session.TotalCards,
			Answered: answered,
		},
	}, nil
}

// RecordResponse implements PracticeService.RecordResponse.
// The session-card update and the scheduling update run in one transaction,
// with the review record locked so concurrent ratings of the same card
// serialize instead of clobbering each other.
func (s *practiceServiceImpl) RecordResponse(
	ctx context.Context,
	userID, sessionID, cardID uuid.UUID,
	response CardResponse,
) (*domain.ReviewRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !response.Rating.IsValid() {
		log.Warn("invalid rating",
			slog.String("user_id", userID.String()),
			slog.String("card_id", cardID.String()),
			slog.String("rating", string(response.Rating)))
		return nil, ErrInvalidRating
	}

	if _, err := s.getOwnedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	now := s.timeFunc().UTC()

	var updated *domain.ReviewRecord
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sessionStore := s.sessionStore.WithTx(tx)
		reviewStore := s.reviewStore.WithTx(tx)

		// First answer wins. A card that was already answered, or is not
		// part of the session, reports false here; the scheduling update
		// below still applies so no rating is ever lost to the scheduler.
		marked, err := sessionStore.MarkAnswered(
			ctx, sessionID, cardID, response.Rating, response.TimeSpentMs, now)
		if err != nil {
			return fmt.Errorf("failed to mark session card answered: %w", err)
		}
		if !marked {
			log.Debug("session card not marked",
				slog.String("session_id", sessionID.String()),
				slog.String("card_id", cardID.String()))
		}

		prior, err := reviewStore.GetForUpdate(ctx, userID, cardID)
		if err != nil {
			if !errors.Is(err, store.ErrReviewRecordNotFound) {
				return fmt.Errorf("failed to get review record: %w", err)
			}
			prior = nil // first review of this card
		}

		schedule := s.scheduler.ComputeNext(sm2.StateOf(prior), response.Rating, now)

		record := &domain.ReviewRecord{
			UserID:         userID,
			CardID:         cardID,
			EaseFactor:     schedule.EaseFactor,
			Interval:       schedule.Interval,
			Repetitions:    schedule.Repetitions,
			NextReviewDate: schedule.NextReviewDate,
			LastReviewDate: now,
		}
		if err := reviewStore.Upsert(ctx, record); err != nil {
			if errors.Is(err, store.ErrInvalidEntity) {
				// Dangling card reference surfaces as a FK violation.
				return ErrCardNotFound
			}
			return fmt.Errorf("failed to upsert review record: %w", err)
		}

		updated = record
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		log.Error("failed to record response",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("session_id", sessionID.String()),
			slog.String("card_id", cardID.String()))
		return nil, newServiceError("record_response", "failed to record response", err)
	}

	s.metrics.RecordResponse(string(response.Rating))

	log.Debug("response recorded",
		slog.String("user_id", userID.String()),
		slog.String("session_id", sessionID.String()),
		slog.String("card_id", cardID.String()),
		slog.String("rating", string(response.Rating)),
		slog.Float64("ease_factor", updated.EaseFactor),
		slog.Int("interval", updated.Interval),
		slog.Time("next_review_date", updated.NextReviewDate))

	return updated, nil
}

// CompleteSession implements PracticeService.CompleteSession.
// The tallies are derived from the recorded session cards on every call,
// so completing an already-completed session returns the same counts and
// merely re-stamps the completion time.
func (s *practiceServiceImpl) CompleteSession(
	ctx context.Context,
	userID, sessionID uuid.UUID,
) (*domain.SessionStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.getOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	sessionCards, err := s.sessionStore.ListCards(ctx, sessionID)
	if err != nil {
		log.Error("failed to list session cards",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, newServiceError("complete_session", "failed to list session cards", err)
	}

	session.KnowIt, session.Learning, session.DontKnow = 0, 0, 0
	session.TotalTimeMs = 0
	for _, sc := range sessionCards {
		if !sc.Answered() || sc.Rating == nil {
			continue
		}
		switch *sc.Rating {
		case domain.RatingKnowIt:
			session.KnowIt++
		case domain.RatingLearning:
			session.Learning++
		case domain.RatingDontKnow:
			session.DontKnow++
		}
		if sc.TimeSpentMs != nil {
			session.TotalTimeMs += *sc.TimeSpentMs
		}
	}

	now := s.timeFunc().UTC()
	session.CompletedAt = &now

	if err := s.sessionStore.Complete(ctx, session); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		log.Error("failed to persist session completion",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, newServiceError("complete_session", "failed to persist completion", err)
	}

	var average int64
	if session.TotalCards > 0 {
		average = int64(math.Round(float64(session.TotalTimeMs) / float64(session.TotalCards)))
	}

	s.metrics.RecordSessionCompleted()

	log.Info("session completed",
		slog.String("user_id", userID.String()),
		slog.String("session_id", sessionID.String()),
		slog.Int("know_it", session.KnowIt),
		slog.Int("learning", session.Learning),
		slog.Int("dont_know", session.DontKnow),
		slog.Int64("total_time_ms", session.TotalTimeMs))

	return &domain.SessionStats{
		TotalCards:         session.TotalCards,
		KnowIt:             session.KnowIt,
		Learning:           session.Learning,
		DontKnow:           session.DontKnow,
		TotalTimeMs:        session.TotalTimeMs,
		AverageTimePerCard: average,
	}, nil
}

// GetDueCards implements PracticeService.GetDueCards.
func (s *practiceServiceImpl) GetDueCards(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*store.DueCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	due, err := s.reviewStore.FindDue(ctx, userID, s.timeFunc().UTC(), limit)
	if err != nil {
		log.Error("failed to fetch due cards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, newServiceError("get_due_cards", "failed to fetch due cards", err)
	}

	return due, nil
}

// GetReviewStats implements PracticeService.GetReviewStats.
// Mastered and learning partition the reviewed cards; due is counted
// independently, so a mastered card that lapsed past its review date shows
// up in both mastered and due.
func (s *practiceServiceImpl) GetReviewStats(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.ReviewStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	records, err := s.reviewStore.ListByUser(ctx, userID)
	if err != nil {
		log.Error("failed to list review records",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, newServiceError("get_review_stats", "failed to list review records", err)
	}

	now := s.timeFunc().UTC()
	stats := &domain.ReviewStats{TotalCards: len(records)}
	for _, r := range records {
		if r.Repetitions >= 3 && r.EaseFactor >= domain.InitialEaseFactor {
			stats.Mastered++
		} else {
			stats.Learning++
		}
		if r.IsDue(now) {
			stats.DueForReview++
		}
	}

	return stats, nil
}

// CreateCustomCard implements PracticeService.CreateCustomCard.
func (s *practiceServiceImpl) CreateCustomCard(
	ctx context.Context,
	userID uuid.UUID,
	params CreateCardParams,
) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.taskCatalog.GetTask(ctx, params.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.Warn("custom card references unknown task",
				slog.String("user_id", userID.String()),
				slog.String("task_id", params.TaskID.String()))
			return nil, ErrInvalidTaskReference
		}
		log.Error("failed to look up task",
			slog.String("error", err.Error()),
			slog.String("task_id", params.TaskID.String()))
		return nil, newServiceError("create_custom_card", "failed to look up task", err)
	}
	if task.DomainID != params.DomainID {
		log.Warn("custom card task belongs to a different domain",
			slog.String("user_id", userID.String()),
			slog.String("task_id", params.TaskID.String()),
			slog.String("task_domain_id", task.DomainID.String()),
			slog.String("claimed_domain_id", params.DomainID.String()))
		return nil, ErrInvalidTaskReference
	}

	card, err := domain.NewCustomFlashcard(userID, params.DomainID, params.TaskID, params.Front, params.Back)
	if err != nil {
		log.Warn("custom card validation failed",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}

	if err := s.cardStore.Create(ctx, card); err != nil {
		log.Error("failed to create custom card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return nil, newServiceError("create_custom_card", "failed to create card", err)
	}

	s.metrics.RecordCustomCardCreated()

	log.Info("custom card created",
		slog.String("user_id", userID.String()),
		slog.String("card_id", card.ID.String()),
		slog.String("task_id", params.TaskID.String()))

	return card, nil
}

// getOwnedSession loads a session and checks ownership, mapping both a
// missing session and a foreign session to ErrSessionNotFound.
func (s *practiceServiceImpl) getOwnedSession(
	ctx context.Context,
	userID, sessionID uuid.UUID,
) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		log.Error("failed to get session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, newServiceError("get_session", "failed to get session", err)
	}

	if session.UserID != userID {
		log.Warn("session owned by another user",
			slog.String("session_id", sessionID.String()),
			slog.String("user_id", userID.String()))
		return nil, ErrSessionNotFound
	}

	return session, nil
}
