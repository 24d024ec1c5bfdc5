package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/prepdeck-api/internal/api"
	"github.com/prepdeck/prepdeck-api/internal/api/shared"
	"github.com/prepdeck/prepdeck-api/internal/domain"
	"github.com/prepdeck/prepdeck-api/internal/service/practice"
	"github.com/prepdeck/prepdeck-api/internal/store"
)

// mockPracticeService implements practice.PracticeService with function
// fields so each test can script exactly the calls it expects.
type mockPracticeService struct {
	ListCardsFn        func(ctx context.Context, filter store.CardFilter) ([]*domain.Flashcard, error)
	StartSessionFn     func(ctx context.Context, userID uuid.UUID, params practice.StartSessionParams) (*practice.SessionDetail, error)
	GetSessionFn       func(ctx context.Context, userID, sessionID uuid.UUID) (*practice.SessionDetail, error)
	RecordResponseFn   func(ctx context.Context, userID, sessionID, cardID uuid.UUID, response practice.CardResponse) (*domain.ReviewRecord, error)
	CompleteSessionFn  func(ctx context.Context, userID, sessionID uuid.UUID) (*domain.SessionStats, error)
	GetDueCardsFn      func(ctx context.Context, userID uuid.UUID, limit int) ([]*store.DueCard, error)
	GetReviewStatsFn   func(ctx context.Context, userID uuid.UUID) (*domain.ReviewStats, error)
	CreateCustomCardFn func(ctx context.Context, userID uuid.UUID, params practice.CreateCardParams) (*domain.Flashcard, error)
}

func (m *mockPracticeService) ListCards(ctx context.Context, filter store.CardFilter) ([]*domain.Flashcard, error) {
	return m.ListCardsFn(ctx, filter)
}

func (m *mockPracticeService) StartSession(ctx context.Context, userID uuid.UUID, params practice.StartSessionParams) (*practice.SessionDetail, error) {
	return m.StartSessionFn(ctx, userID, params)
}

func (m *mockPracticeService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*practice.SessionDetail, error) {
	return m.GetSessionFn(ctx, userID, sessionID)
}

func (m *mockPracticeService) RecordResponse(ctx context.Context, userID, sessionID, cardID uuid.UUID, response practice.CardResponse) (*domain.ReviewRecord, error) {
	return m.RecordResponseFn(ctx, userID, sessionID, cardID, response)
}

func (m *mockPracticeService) CompleteSession(ctx context.Context, userID, sessionID uuid.UUID) (*domain.SessionStats, error) {
	return m.CompleteSessionFn(ctx, userID, sessionID)
}

func (m *mockPracticeService) GetDueCards(ctx context.Context, userID uuid.UUID, limit int) ([]*store.DueCard, error) {
	return m.GetDueCardsFn(ctx, userID, limit)
}

func (m *mockPracticeService) GetReviewStats(ctx context.Context, userID uuid.UUID) (*domain.ReviewStats, error) {
	return m.GetReviewStatsFn(ctx, userID)
}

func (m *mockPracticeService) CreateCustomCard(ctx context.Context, userID uuid.UUID, params practice.CreateCardParams) (*domain.Flashcard, error) {
	return m.CreateCustomCardFn(ctx, userID, params)
}

func testRouter(svc practice.PracticeService) chi.Router {
	h := api.NewPracticeHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Route("/api/flashcards", func(r chi.Router) {
		r.Get("/", h.ListCards)
		r.Get("/review", h.GetDueCards)
		r.Get("/stats", h.GetReviewStats)
		r.Post("/sessions", h.StartSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/responses/{cardID}", h.RecordResponse)
		r.Post("/sessions/{id}/complete", h.CompleteSession)
		r.Post("/custom", h.CreateCustomCard)
	})
	return r
}

func authedRequest(method, target string, userID uuid.UUID, body []byte) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

func testCard() *domain.Flashcard {
	return &domain.Flashcard{
		ID:        uuid.New(),
		DomainID:  uuid.New(),
		TaskID:    uuid.New(),
		Front:     "front",
		Back:      "back",
		CreatedAt: time.Now().UTC(),
	}
}

func TestListCards(t *testing.T) {
	t.Parallel()

	domainID := uuid.New()
	svc := &mockPracticeService{
		ListCardsFn: func(ctx context.Context, filter store.CardFilter) ([]*domain.Flashcard, error) {
			assert.Equal(t, []uuid.UUID{domainID}, filter.DomainIDs)
			assert.Equal(t, 100, filter.Limit, "default limit applies")
			return []*domain.Flashcard{testCard(), testCard()}, nil
		},
	}

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodGet, "/api/flashcards?domain_id="+domainID.String(), uuid.New(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body []api.FlashcardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body, 2)
}

func TestListCards_InvalidDomainID(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{}
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodGet, "/api/flashcards?domain_id=not-a-uuid", uuid.New(), nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCards_Unauthenticated(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{}
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/flashcards", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetDueCards(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	card := testCard()
	svc := &mockPracticeService{
		GetDueCardsFn: func(ctx context.Context, gotUserID uuid.UUID, limit int) ([]*store.DueCard, error) {
			assert.Equal(t, userID, gotUserID)
			assert.Equal(t, 5, limit)
			return []*store.DueCard{{
				Card: card,
				Record: &domain.ReviewRecord{
					UserID: userID, CardID: card.ID,
					EaseFactor: 2.5, Interval: 1, Repetitions: 1,
				},
			}}, nil
		},
	}

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodGet, "/api/flashcards/review?limit=5", userID, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body []api.DueCardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, card.ID.String(), body[0].Card.ID)
}

func TestGetReviewStats(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{
		GetReviewStatsFn: func(ctx context.Context, userID uuid.UUID) (*domain.ReviewStats, error) {
			return &domain.ReviewStats{TotalCards: 10, Mastered: 4, Learning: 6, DueForReview: 3}, nil
		},
	}

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodGet, "/api/flashcards/stats", uuid.New(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body api.ReviewStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Mastered)
	assert.Equal(t, 6, body.Learning)
}

func TestStartSession(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := &mockPracticeService{
		StartSessionFn: func(ctx context.Context, gotUserID uuid.UUID, params practice.StartSessionParams) (*practice.SessionDetail, error) {
			assert.Equal(t, userID, gotUserID)
			assert.Equal(t, 10, params.CardCount)
			assert.True(t, params.PrioritizeReview)

			session, err := domain.NewSession(gotUserID, 10)
			require.NoError(t, err)
			return &practice.SessionDetail{
				Session:  session,
				Cards:    []*domain.Flashcard{testCard()},
				Progress: domain.SessionProgress{Total: 10},
			}, nil
		},
	}

	body := []byte(`{"card_count":10,"prioritize_review":true}`)

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodPost, "/api/flashcards/sessions", userID, body))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp api.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.TotalCards)
	assert.Equal(t, 0, resp.Progress.Answered)
}

func TestStartSession_ValidationErrors(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{}

	cases := []struct {
		name string
		body string
	}{
		{name: "negative card count", body: `{"card_count":-1}`},
		{name: "card count too large", body: `{"card_count":101}`},
		{name: "bad uuid in domain_ids", body: `{"card_count":10,"domain_ids":["nope"]}`},
		{name: "malformed json", body: `{"card_count":`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			testRouter(svc).ServeHTTP(w, authedRequest(
				http.MethodPost, "/api/flashcards/sessions", uuid.New(), []byte(tc.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestStartSession_OmittedFieldsUseDefaults(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                 string
		body                 string
		wantCardCount        int
		wantIncludeCustom    bool
		wantPrioritizeReview bool
	}{
		{
			name:                 "empty body defaults everything",
			body:                 `{}`,
			wantCardCount:        20,
			wantIncludeCustom:    true,
			wantPrioritizeReview: true,
		},
		{
			name:                 "card count only keeps boolean defaults",
			body:                 `{"card_count":5}`,
			wantCardCount:        5,
			wantIncludeCustom:    true,
			wantPrioritizeReview: true,
		},
		{
			name:                 "explicit false overrides defaults",
			body:                 `{"card_count":5,"include_custom":false,"prioritize_review":false}`,
			wantCardCount:        5,
			wantIncludeCustom:    false,
			wantPrioritizeReview: false,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			userID := uuid.New()
			var got practice.StartSessionParams
			svc := &mockPracticeService{
				StartSessionFn: func(ctx context.Context, gotUserID uuid.UUID, params practice.StartSessionParams) (*practice.SessionDetail, error) {
					got = params

					session, err := domain.NewSession(gotUserID, params.CardCount)
					require.NoError(t, err)
					return &practice.SessionDetail{
						Session:  session,
						Cards:    []*domain.Flashcard{testCard()},
						Progress: domain.SessionProgress{Total: params.CardCount},
					}, nil
				},
			}

			w := httptest.NewRecorder()
			testRouter(svc).ServeHTTP(w, authedRequest(
				http.MethodPost, "/api/flashcards/sessions", userID, []byte(tc.body)))

			require.Equal(t, http.StatusCreated, w.Code)
			assert.Equal(t, tc.wantCardCount, got.CardCount)
			assert.Equal(t, tc.wantIncludeCustom, got.IncludeCustom)
			assert.Equal(t, tc.wantPrioritizeReview, got.PrioritizeReview)
		})
	}
}

func TestStartSession_NoCardsAvailable(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{
		StartSessionFn: func(ctx context.Context, userID uuid.UUID, params practice.StartSessionParams) (*practice.SessionDetail, error) {
			return nil, practice.ErrNoCardsAvailable
		},
	}

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodPost, "/api/flashcards/sessions", uuid.New(), []byte(`{"card_count":10}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No cards available")
}

func TestGetSession_NotFound(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{
		GetSessionFn: func(ctx context.Context, userID, sessionID uuid.UUID) (*practice.SessionDetail, error) {
			return nil, practice.ErrSessionNotFound
		},
	}

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodGet, "/api/flashcards/sessions/"+uuid.NewString(), uuid.New(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSession_InvalidID(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{}
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodGet, "/api/flashcards/sessions/not-a-uuid", uuid.New(), nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordResponse(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sessionID := uuid.New()
	cardID := uuid.New()
	svc := &mockPracticeService{
		RecordResponseFn: func(ctx context.Context, gotUserID, gotSessionID, gotCardID uuid.UUID, response practice.CardResponse) (*domain.ReviewRecord, error) {
			assert.Equal(t, userID, gotUserID)
			assert.Equal(t, sessionID, gotSessionID)
			assert.Equal(t, cardID, gotCardID)
			assert.Equal(t, domain.RatingKnowIt, response.Rating)
			require.NotNil(t, response.TimeSpentMs)
			assert.Equal(t, int64(3000), *response.TimeSpentMs)

			return &domain.ReviewRecord{
				UserID: gotUserID, CardID: gotCardID,
				EaseFactor: 2.6, Interval: 1, Repetitions: 1,
			}, nil
		},
	}

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodPost,
		"/api/flashcards/sessions/"+sessionID.String()+"/responses/"+cardID.String(),
		userID,
		[]byte(`{"rating":"know_it","time_spent_ms":3000}`)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.ReviewRecordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 2.6, resp.EaseFactor, 1e-9)
	assert.Equal(t, 1, resp.Repetitions)
}

func TestRecordResponse_InvalidRating(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{}
	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodPost,
		"/api/flashcards/sessions/"+uuid.NewString()+"/responses/"+uuid.NewString(),
		uuid.New(),
		[]byte(`{"rating":"sort_of"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteSession(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{
		CompleteSessionFn: func(ctx context.Context, userID, sessionID uuid.UUID) (*domain.SessionStats, error) {
			return &domain.SessionStats{
				TotalCards: 3, KnowIt: 1, Learning: 1, DontKnow: 1,
				TotalTimeMs: 9000, AverageTimePerCard: 3000,
			}, nil
		},
	}

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodPost, "/api/flashcards/sessions/"+uuid.NewString()+"/complete", uuid.New(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.SessionStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalCards)
	assert.Equal(t, int64(3000), resp.AverageTimePerCard)
}

func TestCreateCustomCard(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	domainID := uuid.New()
	taskID := uuid.New()
	svc := &mockPracticeService{
		CreateCustomCardFn: func(ctx context.Context, gotUserID uuid.UUID, params practice.CreateCardParams) (*domain.Flashcard, error) {
			assert.Equal(t, userID, gotUserID)
			assert.Equal(t, domainID, params.DomainID)
			assert.Equal(t, taskID, params.TaskID)
			return domain.NewCustomFlashcard(gotUserID, params.DomainID, params.TaskID, params.Front, params.Back)
		},
	}

	body, err := json.Marshal(api.CreateCustomCardRequest{
		DomainID: domainID.String(),
		TaskID:   taskID.String(),
		Front:    "What is a nil map read?",
		Back:     "The zero value; writes panic.",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodPost, "/api/flashcards/custom", userID, body))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp api.FlashcardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsCustom)
}

func TestCreateCustomCard_InvalidTaskReference(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{
		CreateCustomCardFn: func(ctx context.Context, userID uuid.UUID, params practice.CreateCardParams) (*domain.Flashcard, error) {
			return nil, practice.ErrInvalidTaskReference
		},
	}

	body := `{"domain_id":"` + uuid.NewString() + `","task_id":"` + uuid.NewString() +
		`","front":"f","back":"b"}`

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodPost, "/api/flashcards/custom", uuid.New(), []byte(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Task does not exist")
}

func TestCreateCustomCard_ContentTooLong(t *testing.T) {
	t.Parallel()

	svc := &mockPracticeService{}

	long := make([]byte, domain.MaxCustomFrontLength+1)
	for i := range long {
		long[i] = 'a'
	}
	body, err := json.Marshal(api.CreateCustomCardRequest{
		DomainID: uuid.NewString(),
		TaskID:   uuid.NewString(),
		Front:    string(long),
		Back:     "b",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(w, authedRequest(
		http.MethodPost, "/api/flashcards/custom", uuid.New(), body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
