package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/platform/logger"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

const cardColumns = "id, domain_id, task_id, front, back, is_custom, created_by, created_at"

// scanCard reads one flashcard row from a row scanner.
func scanCard(scan func(dest ...any) error) (*domain.Flashcard, error) {
	var card domain.Flashcard
	err := scan(
		&card.ID,
		&card.DomainID,
		&card.TaskID,
		&card.Front,
		&card.Back,
		&card.IsCustom,
		&card.CreatedBy,
		&card.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetByID implements store.CardStore.GetByID.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + cardColumns + `
		FROM flashcards
		WHERE id = $1
	`

	row := s.db.QueryRowContext(ctx, query, id)
	card, err := scanCard(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("flashcard not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get flashcard by ID",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, err
	}

	return card, nil
}

// GetByIDs implements store.CardStore.GetByIDs.
// Missing IDs are silently skipped.
func (s *PostgresCardStore) GetByIDs(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.Flashcard, error) {
	if len(ids) == 0 {
		return []*domain.Flashcard{}, nil
	}

	var args []any
	placeholder := func(arg any) string {
		args = append(args, arg)
		return fmt.Sprintf("$%d", len(args))
	}

	query := "SELECT " + cardColumns + " FROM flashcards" +
		" WHERE id IN (" + placeholderList(ids, placeholder) + ")" +
		" ORDER BY id ASC"

	return s.queryCards(ctx, query, args...)
}

// List implements store.CardStore.List.
// Filter fields are combined with AND; zero-value fields are ignored.
// Results are ordered by creation time with ID as a tiebreak so repeated
// queries with the same filter return cards in a stable order.
func (s *PostgresCardStore) List(
	ctx context.Context,
	filter store.CardFilter,
) ([]*domain.Flashcard, error) {
	var (
		conditions []string
		args       []any
	)
	placeholder := func(arg any) string {
		args = append(args, arg)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.DomainIDs) > 0 {
		conditions = append(conditions, "domain_id IN ("+placeholderList(filter.DomainIDs, placeholder)+")")
	}
	if len(filter.TaskIDs) > 0 {
		conditions = append(conditions, "task_id IN ("+placeholderList(filter.TaskIDs, placeholder)+")")
	}
	if filter.ExcludeCustom {
		conditions = append(conditions, "is_custom = FALSE")
	}
	if len(filter.ExcludeIDs) > 0 {
		conditions = append(conditions, "id NOT IN ("+placeholderList(filter.ExcludeIDs, placeholder)+")")
	}

	query := "SELECT " + cardColumns + " FROM flashcards"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + placeholder(filter.Limit)
	}

	return s.queryCards(ctx, query, args...)
}

func (s *PostgresCardStore) queryCards(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query flashcards",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var cards []*domain.Flashcard
	for rows.Next() {
		card, err := scanCard(rows.Scan)
		if err != nil {
			log.Error("failed to scan flashcard row",
				slog.String("error", err.Error()))
			return nil, err
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if cards == nil {
		cards = []*domain.Flashcard{}
	}

	return cards, nil
}

// Create implements store.CardStore.Create.
// Returns store.ErrInvalidEntity wrapping the validation error if the card
// data is invalid, store.ErrInvalidEntity on a dangling domain or task
// reference, and store.ErrDuplicate if the ID is already taken.
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("flashcard validation failed during create",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO flashcards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		card.ID,
		card.DomainID,
		card.TaskID,
		card.Front,
		card.Back,
		card.IsCustom,
		card.CreatedBy,
		card.CreatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate flashcard ID",
				slog.String("card_id", card.ID.String()))
			return fmt.Errorf("%w: flashcard %s", store.ErrDuplicate, card.ID)
		}
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during flashcard creation",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()),
				slog.String("task_id", card.TaskID.String()))
			return fmt.Errorf("%w: domain %s or task %s not found",
				store.ErrInvalidEntity, card.DomainID, card.TaskID)
		}

		log.Error("failed to create flashcard",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	log.Info("flashcard created",
		slog.String("card_id", card.ID.String()),
		slog.Bool("is_custom", card.IsCustom))
	return nil
}

// WithTx implements store.CardStore.WithTx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}

// placeholderList renders one positional placeholder per value and returns
// them comma-joined for use inside an IN clause.
func placeholderList(values []uuid.UUID, placeholder func(arg any) string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = placeholder(v)
	}
	return strings.Join(parts, ", ")
}
