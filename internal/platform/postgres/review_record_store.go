package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/platform/logger"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// PostgresReviewRecordStore implements the store.ReviewRecordStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewRecordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewRecordStore creates a new PostgreSQL implementation of the
// ReviewRecordStore interface. If logger is nil, a default logger will be used.
func NewPostgresReviewRecordStore(db store.DBTX, logger *slog.Logger) *PostgresReviewRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewRecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_record_store")),
	}
}

// Ensure PostgresReviewRecordStore implements store.ReviewRecordStore interface
var _ store.ReviewRecordStore = (*PostgresReviewRecordStore)(nil)

const reviewRecordColumns = "user_id, card_id, ease_factor, interval_days, repetitions, next_review_date, last_review_date"

func scanReviewRecord(scan func(dest ...any) error) (*domain.ReviewRecord, error) {
	var record domain.ReviewRecord
	err := scan(
		&record.UserID,
		&record.CardID,
		&record.EaseFactor,
		&record.Interval,
		&record.Repetitions,
		&record.NextReviewDate,
		&record.LastReviewDate,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Get implements store.ReviewRecordStore.Get.
// Returns store.ErrReviewRecordNotFound if the user has never reviewed the card.
func (s *PostgresReviewRecordStore) Get(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.ReviewRecord, error) {
	return s.get(ctx, userID, cardID, false)
}

// GetForUpdate implements store.ReviewRecordStore.GetForUpdate.
// Locks the row until the enclosing transaction ends.
func (s *PostgresReviewRecordStore) GetForUpdate(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.ReviewRecord, error) {
	return s.get(ctx, userID, cardID, true)
}

func (s *PostgresReviewRecordStore) get(
	ctx context.Context,
	userID, cardID uuid.UUID,
	forUpdate bool,
) (*domain.ReviewRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + reviewRecordColumns + `
		FROM review_records
		WHERE user_id = $1 AND card_id = $2
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	row := s.db.QueryRowContext(ctx, query, userID, cardID)
	record, err := scanReviewRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewRecordNotFound
		}
		log.Error("failed to get review record",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("card_id", cardID.String()))
		return nil, err
	}

	return record, nil
}

// Upsert implements store.ReviewRecordStore.Upsert.
// A user has at most one record per card, enforced by the primary key; a
// conflicting insert replaces the scheduling state in place.
func (s *PostgresReviewRecordStore) Upsert(ctx context.Context, record *domain.ReviewRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("review record validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("card_id", record.CardID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO review_records (` + reviewRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, card_id) DO UPDATE SET
			ease_factor = EXCLUDED.ease_factor,
			interval_days = EXCLUDED.interval_days,
			repetitions = EXCLUDED.repetitions,
			next_review_date = EXCLUDED.next_review_date,
			last_review_date = EXCLUDED.last_review_date
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		record.UserID,
		record.CardID,
		record.EaseFactor,
		record.Interval,
		record.Repetitions,
		record.NextReviewDate,
		record.LastReviewDate,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during review record upsert",
				slog.String("error", err.Error()),
				slog.String("card_id", record.CardID.String()))
			return fmt.Errorf("%w: flashcard %s not found",
				store.ErrInvalidEntity, record.CardID)
		}
		log.Error("failed to upsert review record",
			slog.String("error", err.Error()),
			slog.String("user_id", record.UserID.String()),
			slog.String("card_id", record.CardID.String()))
		return err
	}

	log.Debug("review record upserted",
		slog.String("user_id", record.UserID.String()),
		slog.String("card_id", record.CardID.String()),
		slog.Int("repetitions", record.Repetitions),
		slog.Int("interval_days", record.Interval))
	return nil
}

// FindDue implements store.ReviewRecordStore.FindDue.
// Most overdue cards come first; card ID breaks ties so the order is stable.
func (s *PostgresReviewRecordStore) FindDue(
	ctx context.Context,
	userID uuid.UUID,
	asOf time.Time,
	limit int,
) ([]*store.DueCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + aliasColumns("c", cardColumns) + `,
		       ` + aliasColumns("r", reviewRecordColumns) + `
		FROM review_records r
		JOIN flashcards c ON c.id = r.card_id
		WHERE r.user_id = $1 AND r.next_review_date <= $2
		ORDER BY r.next_review_date ASC, r.card_id ASC
	`
	args := []any{userID, asOf}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query due cards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var due []*store.DueCard
	for rows.Next() {
		var card domain.Flashcard
		var record domain.ReviewRecord
		err := rows.Scan(
			&card.ID,
			&card.DomainID,
			&card.TaskID,
			&card.Front,
			&card.Back,
			&card.IsCustom,
			&card.CreatedBy,
			&card.CreatedAt,
			&record.UserID,
			&record.CardID,
			&record.EaseFactor,
			&record.Interval,
			&record.Repetitions,
			&record.NextReviewDate,
			&record.LastReviewDate,
		)
		if err != nil {
			log.Error("failed to scan due card row",
				slog.String("error", err.Error()))
			return nil, err
		}
		due = append(due, &store.DueCard{Card: &card, Record: &record})
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if due == nil {
		due = []*store.DueCard{}
	}

	return due, nil
}

// ListByUser implements store.ReviewRecordStore.ListByUser.
func (s *PostgresReviewRecordStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.ReviewRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + reviewRecordColumns + `
		FROM review_records
		WHERE user_id = $1
		ORDER BY card_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query review records",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var records []*domain.ReviewRecord
	for rows.Next() {
		record, err := scanReviewRecord(rows.Scan)
		if err != nil {
			log.Error("failed to scan review record row",
				slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if records == nil {
		records = []*domain.ReviewRecord{}
	}

	return records, nil
}

// WithTx implements store.ReviewRecordStore.WithTx.
func (s *PostgresReviewRecordStore) WithTx(tx *sql.Tx) store.ReviewRecordStore {
	return &PostgresReviewRecordStore{
		db:     tx,
		logger: s.logger,
	}
}

// aliasColumns prefixes every column in a comma-separated column list with
// the given table alias, for use in join queries.
func aliasColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
