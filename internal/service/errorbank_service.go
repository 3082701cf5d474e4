package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opopir/opopir-backend/internal/model"
	"github.com/opopir/opopir-backend/internal/scoring"
)

// ErrorBankService manages the per-user pool of previously missed
// questions. The pool is shared across all of a user's sessions and feeds
// the error_review draw source.
type ErrorBankService struct {
	store     ErrorBankStore
	questions QuestionSource
	log       zerolog.Logger
}

// NewErrorBankService creates an ErrorBankService.
func NewErrorBankService(store ErrorBankStore, questions QuestionSource, log zerolog.Logger) *ErrorBankService {
	return &ErrorBankService{
		store:     store,
		questions: questions,
		log:       log.With().Str("component", "error_bank").Logger(),
	}
}

// Apply folds a scored session's bank events into the store: failures
// create or re-open records and bump the counter, successes resolve.
// Resolution is not permanent confidence — a later failure re-enters the
// question into the active pool.
func (s *ErrorBankService) Apply(ctx context.Context, userID int, events []scoring.BankEvent, at time.Time) error {
	for _, ev := range events {
		var err error
		if ev.Failed {
			err = s.store.RecordFailure(ctx, userID, ev.QuestionID, at)
		} else {
			err = s.store.RecordSuccess(ctx, userID, ev.QuestionID)
		}
		if err != nil {
			return fmt.Errorf("apply bank event for question %s: %w", ev.QuestionID, err)
		}
	}
	return nil
}

// ActiveEntry pairs an unresolved error record with its question content
// for the error-bank listing.
type ActiveEntry struct {
	Record   model.ErrorRecord `json:"record"`
	Question *model.Question   `json:"question,omitempty"`
}

// ListActive returns the user's unresolved records, joined with question
// text for display. Records whose question was deleted from the bank are
// listed without content.
func (s *ErrorBankService) ListActive(ctx context.Context, userID int) ([]ActiveEntry, error) {
	records, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active records: %w", err)
	}
	if len(records) == 0 {
		return []ActiveEntry{}, nil
	}

	ids := make([]uuid.UUID, len(records))
	for i, r := range records {
		ids[i] = r.QuestionID
	}
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	entries := make([]ActiveEntry, len(records))
	for i, r := range records {
		entries[i] = ActiveEntry{Record: r, Question: byID[r.QuestionID]}
	}
	return entries, nil
}
