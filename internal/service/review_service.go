package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/opopir/opopir-backend/internal/model"
)

// ReviewService replays a scored session read-only. Correctness comes
// strictly from the stored outcomes, never re-derived from the live
// question bank, so the review always matches what was actually scored
// even if questions are edited later.
type ReviewService struct {
	sessions  SessionStore
	results   ResultStore
	questions QuestionSource
}

// NewReviewService creates a ReviewService.
func NewReviewService(sessions SessionStore, results ResultStore, questions QuestionSource) *ReviewService {
	return &ReviewService{sessions: sessions, results: results, questions: questions}
}

// Load builds the review view for a scored session. Fails with
// ErrSessionNotScored while scoring is still pending.
func (s *ReviewService) Load(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ReviewView, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Config.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if session.Status != model.SessionStatusScored {
		return nil, ErrSessionNotScored
	}

	result, err := s.results.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.GetByIDs(ctx, session.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	view := &model.ReviewView{
		SessionID:       session.ID,
		Config:          session.Config,
		CorrectCount:    result.CorrectCount,
		IncorrectCount:  result.IncorrectCount,
		UnansweredCount: result.UnansweredCount,
		RawScore:        result.RawScore,
		ElapsedSeconds:  session.ElapsedSeconds,
		Questions:       make([]model.ReviewQuestion, 0, len(result.Outcomes)),
	}

	for _, out := range result.Outcomes {
		rq := model.ReviewQuestion{QuestionOutcome: out}
		if q, ok := byID[out.QuestionID]; ok {
			rq.QuestionText = q.QuestionText
			rq.Explanation = q.Explanation
			var opts any
			if err := json.Unmarshal(q.Options, &opts); err == nil {
				rq.Options = opts
			}
		}
		view.Questions = append(view.Questions, rq)
	}

	return view, nil
}
