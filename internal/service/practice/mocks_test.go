package practice

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// fakeCardStore implements store.CardStore for testing
type fakeCardStore struct {
	// Function fields for customizable behavior
	ListFn func(ctx context.Context, filter store.CardFilter) ([]*domain.Flashcard, error)

	// Data for default implementation
	Cards      []*domain.Flashcard
	CreateErr  error
	LastFilter store.CardFilter
	Created    []*domain.Flashcard
}

func (f *fakeCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	for _, c := range f.Cards {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, store.ErrCardNotFound
}

func (f *fakeCardStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Flashcard, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*domain.Flashcard
	for _, c := range f.Cards {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *fakeCardStore) List(ctx context.Context, filter store.CardFilter) ([]*domain.Flashcard, error) {
	f.LastFilter = filter
	if f.ListFn != nil {
		return f.ListFn(ctx, filter)
	}

	excluded := make(map[uuid.UUID]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	var out []*domain.Flashcard
	for _, c := range f.Cards {
		if excluded[c.ID] {
			continue
		}
		if filter.ExcludeCustom && c.IsCustom {
			continue
		}
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.Cards = append(f.Cards, card)
	f.Created = append(f.Created, card)
	return nil
}

func (f *fakeCardStore) WithTx(tx *sql.Tx) store.CardStore { return f }

// fakeReviewStore implements store.ReviewRecordStore for testing. Records
// are keyed by card ID; the fake serves a single user.
type fakeReviewStore struct {
	Records   map[uuid.UUID]*domain.ReviewRecord
	Due       []*store.DueCard
	UpsertErr error
	DueCalls  int
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{Records: make(map[uuid.UUID]*domain.ReviewRecord)}
}

func (f *fakeReviewStore) Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.ReviewRecord, error) {
	r, ok := f.Records[cardID]
	if !ok {
		return nil, store.ErrReviewRecordNotFound
	}
	return r, nil
}

func (f *fakeReviewStore) GetForUpdate(ctx context.Context, userID, cardID uuid.UUID) (*domain.ReviewRecord, error) {
	return f.Get(ctx, userID, cardID)
}

func (f *fakeReviewStore) Upsert(ctx context.Context, record *domain.ReviewRecord) error {
	if f.UpsertErr != nil {
		return f.UpsertErr
	}
	f.Records[record.CardID] = record
	return nil
}

func (f *fakeReviewStore) FindDue(
	ctx context.Context,
	userID uuid.UUID,
	asOf time.Time,
	limit int,
) ([]*store.DueCard, error) {
	f.DueCalls++
	due := f.Due
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (f *fakeReviewStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewRecord, error) {
	out := make([]*domain.ReviewRecord, 0, len(f.Records))
	for _, r := range f.Records {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReviewStore) WithTx(tx *sql.Tx) store.ReviewRecordStore { return f }

// fakeSessionStore implements store.SessionStore for testing
type fakeSessionStore struct {
	Sessions  map[uuid.UUID]*domain.Session
	Cards     map[uuid.UUID][]*domain.SessionCard
	Completed map[uuid.UUID]*domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		Sessions:  make(map[uuid.UUID]*domain.Session),
		Cards:     make(map[uuid.UUID][]*domain.SessionCard),
		Completed: make(map[uuid.UUID]*domain.Session),
	}
}

func (f *fakeSessionStore) Create(ctx context.Context, session *domain.Session, cardIDs []uuid.UUID) error {
	f.Sessions[session.ID] = session
	for _, id := range cardIDs {
		f.Cards[session.ID] = append(f.Cards[session.ID], &domain.SessionCard{
			SessionID: session.ID,
			CardID:    id,
		})
	}
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s, ok := f.Sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) ListCards(ctx context.Context, sessionID uuid.UUID) ([]*domain.SessionCard, error) {
	cards := append([]*domain.SessionCard(nil), f.Cards[sessionID]...)
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].CardID.String() < cards[j].CardID.String()
	})
	return cards, nil
}

func (f *fakeSessionStore) MarkAnswered(
	ctx context.Context,
	sessionID uuid.UUID,
	cardID uuid.UUID,
	rating domain.Rating,
	timeSpentMs *int64,
	answeredAt time.Time,
) (bool, error) {
	for _, sc := range f.Cards[sessionID] {
		if sc.CardID != cardID || sc.Answered() {
			continue
		}
		r := rating
		at := answeredAt
		sc.Rating = &r
		sc.TimeSpentMs = timeSpentMs
		sc.AnsweredAt = &at
		return true, nil
	}
	return false, nil
}

func (f *fakeSessionStore) Complete(ctx context.Context, session *domain.Session) error {
	if _, ok := f.Sessions[session.ID]; !ok {
		return store.ErrSessionNotFound
	}
	f.Sessions[session.ID] = session
	f.Completed[session.ID] = session
	return nil
}

func (f *fakeSessionStore) WithTx(tx *sql.Tx) store.SessionStore { return f }

// fakeTaskCatalog implements store.TaskCatalog for testing
type fakeTaskCatalog struct {
	Tasks map[uuid.UUID]*domain.Task
}

func (f *fakeTaskCatalog) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, ok := f.Tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t, nil
}
