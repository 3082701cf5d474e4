package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/opopir/opopir-backend/internal/model"
)

type memResultStore struct {
	results map[uuid.UUID]*model.ScoredResult
}

func (m *memResultStore) Get(_ context.Context, sessionID uuid.UUID) (*model.ScoredResult, error) {
	r, ok := m.results[sessionID]
	if !ok {
		return nil, ErrSessionNotScored
	}
	return r, nil
}

func TestReview_RequiresScoredStatus(t *testing.T) {
	sessions := newMemSessionStore()
	results := &memResultStore{results: make(map[uuid.UUID]*model.ScoredResult)}
	svc := NewReviewService(sessions, results, &memQuestionSource{})
	ctx := context.Background()

	session := &model.ExamSession{
		ID:     uuid.New(),
		Config: *standardConfig(1, 2),
		Status: model.SessionStatusSubmitted,
	}
	_ = sessions.Create(ctx, session)

	if _, err := svc.Load(ctx, session.ID, 1); !errors.Is(err, ErrSessionNotScored) {
		t.Fatalf("err = %v, want ErrSessionNotScored before scoring lands", err)
	}
	if _, err := svc.Load(ctx, uuid.New(), 1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound for unknown session", err)
	}
	if _, err := svc.Load(ctx, session.ID, 2); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound for foreign user", err)
	}
}

func TestReview_CorrectnessComesFromStoredOutcomes(t *testing.T) {
	sessions := newMemSessionStore()
	qID := uuid.New()

	// The live bank says "B" but the stored outcome was scored against "A":
	// review must replay what was scored, not re-derive.
	source := &memQuestionSource{questions: []model.Question{{
		ID:            qID,
		QuestionText:  "pregunta",
		Options:       []byte(`{"A":"a","B":"b"}`),
		CorrectOption: "B",
		Explanation:   "explicación",
	}}}

	session := &model.ExamSession{
		ID:          uuid.New(),
		Config:      *standardConfig(1, 1),
		QuestionIDs: []uuid.UUID{qID},
		Status:      model.SessionStatusScored,
	}
	ctx := context.Background()
	_ = sessions.Create(ctx, session)

	results := &memResultStore{results: map[uuid.UUID]*model.ScoredResult{
		session.ID: {
			SessionID:    session.ID,
			CorrectCount: 1,
			RawScore:     3,
			ScoredAt:     time.Now(),
			Outcomes: []model.QuestionOutcome{{
				Position: 0, QuestionID: qID,
				UserAnswer: "A", CorrectAnswer: "A",
				IsCorrect: true, Answered: true,
			}},
		},
	}}

	svc := NewReviewService(sessions, results, source)
	view, err := svc.Load(ctx, session.ID, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(view.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(view.Questions))
	}
	q := view.Questions[0]
	if q.CorrectAnswer != "A" || !q.IsCorrect {
		t.Fatal("review re-derived correctness from the live bank")
	}
	if q.QuestionText != "pregunta" || q.Explanation == "" {
		t.Fatal("review missing question content")
	}
	if view.RawScore != 3 {
		t.Fatalf("raw score = %v, want 3", view.RawScore)
	}
}
