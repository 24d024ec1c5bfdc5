package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/platform/logger"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the
// SessionStore interface. If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

const sessionColumns = "id, user_id, total_cards, know_it, learning, dont_know, total_time_ms, created_at, completed_at"

// Create implements store.SessionStore.Create.
// Inserts the session row and one session_cards row per card. Run within a
// transaction via WithTx so a failure part-way through leaves nothing behind.
func (s *PostgresSessionStore) Create(
	ctx context.Context,
	session *domain.Session,
	cardIDs []uuid.UUID,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during create",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.TotalCards,
		session.KnowIt,
		session.Learning,
		session.DontKnow,
		session.TotalTimeMs,
		session.CreatedAt,
		session.CompletedAt,
	)
	if err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	cardQuery := `
		INSERT INTO session_cards (session_id, card_id)
		VALUES ($1, $2)
	`
	for _, cardID := range cardIDs {
		if _, err := s.db.ExecContext(ctx, cardQuery, session.ID, cardID); err != nil {
			if IsForeignKeyViolation(err) {
				log.Warn("foreign key violation during session card insert",
					slog.String("session_id", session.ID.String()),
					slog.String("card_id", cardID.String()))
				return fmt.Errorf("%w: flashcard %s not found",
					store.ErrInvalidEntity, cardID)
			}
			log.Error("failed to insert session card",
				slog.String("error", err.Error()),
				slog.String("session_id", session.ID.String()),
				slog.String("card_id", cardID.String()))
			return err
		}
	}

	log.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", session.UserID.String()),
		slog.Int("total_cards", session.TotalCards))
	return nil
}

// GetByID implements store.SessionStore.GetByID.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`

	var session domain.Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.TotalCards,
		&session.KnowIt,
		&session.Learning,
		&session.DontKnow,
		&session.TotalTimeMs,
		&session.CreatedAt,
		&session.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found", slog.String("session_id", id.String()))
			return nil, store.ErrSessionNotFound
		}
		log.Error("failed to get session by ID",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, err
	}

	return &session, nil
}

// ListCards implements store.SessionStore.ListCards.
// Cards come back ordered by card ID so callers see a stable order.
func (s *PostgresSessionStore) ListCards(
	ctx context.Context,
	sessionID uuid.UUID,
) ([]*domain.SessionCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT session_id, card_id, rating, time_spent_ms, answered_at
		FROM session_cards
		WHERE session_id = $1
		ORDER BY card_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		log.Error("failed to query session cards",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var cards []*domain.SessionCard
	for rows.Next() {
		var card domain.SessionCard
		var rating sql.NullString
		err := rows.Scan(
			&card.SessionID,
			&card.CardID,
			&rating,
			&card.TimeSpentMs,
			&card.AnsweredAt,
		)
		if err != nil {
			log.Error("failed to scan session card row",
				slog.String("error", err.Error()))
			return nil, err
		}
		if rating.Valid {
			r := domain.Rating(rating.String)
			card.Rating = &r
		}
		cards = append(cards, &card)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if cards == nil {
		cards = []*domain.SessionCard{}
	}

	return cards, nil
}

// MarkAnswered implements store.SessionStore.MarkAnswered.
// The answered_at IS NULL guard makes re-rating a no-op: the first answer
// for a card wins and later attempts leave the row untouched.
func (s *PostgresSessionStore) MarkAnswered(
	ctx context.Context,
	sessionID uuid.UUID,
	cardID uuid.UUID,
	rating domain.Rating,
	timeSpentMs *int64,
	answeredAt time.Time,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE session_cards
		SET rating = $1, time_spent_ms = $2, answered_at = $3
		WHERE session_id = $4 AND card_id = $5 AND answered_at IS NULL
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		string(rating),
		timeSpentMs,
		answeredAt,
		sessionID,
		cardID,
	)
	if err != nil {
		log.Error("failed to mark session card answered",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()),
			slog.String("card_id", cardID.String()))
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return false, err
	}

	return rowsAffected > 0, nil
}

// Complete implements store.SessionStore.Complete.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresSessionStore) Complete(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE sessions
		SET know_it = $1, learning = $2, dont_know = $3, total_time_ms = $4, completed_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		session.KnowIt,
		session.Learning,
		session.DontKnow,
		session.TotalTimeMs,
		session.CompletedAt,
		session.ID,
	)
	if err != nil {
		log.Error("failed to complete session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	if err := CheckRowsAffected(result, "session"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrSessionNotFound
		}
		return err
	}

	log.Info("session completed",
		slog.String("session_id", session.ID.String()),
		slog.Int("know_it", session.KnowIt),
		slog.Int("learning", session.Learning),
		slog.Int("dont_know", session.DontKnow))
	return nil
}

// WithTx implements store.SessionStore.WithTx.
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{
		db:     tx,
		logger: s.logger,
	}
}
