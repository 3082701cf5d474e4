// Package scoring grades a submitted exam session. Scoring is a pure
// function of the final answers against the answer key: it never touches
// the session, the database, or the clock.
package scoring

import (
	"time"

	"github.com/google/uuid"

	"github.com/opopir/opopir-backend/internal/model"
)

// Input carries everything needed to grade one session.
type Input struct {
	SessionID   uuid.UUID
	QuestionIDs []uuid.UUID
	// AnswerKey maps question id → correct option.
	AnswerKey map[uuid.UUID]string
	// Answers maps question position → selected option. Missing or empty
	// entries count as unanswered.
	Answers map[int]string
	// AnsweredAt maps question position → unix seconds of the answer event.
	// Used only when the policy tracks pace.
	AnsweredAt map[int]int64
	StartedAt  time.Time
	Policy     model.ExamPolicy
	ScoredAt   time.Time
}

// Score applies the policy weights to every question position and returns
// the immutable result. The outcome list is ordered by position and always
// has exactly len(QuestionIDs) entries.
func Score(in Input) model.ScoredResult {
	res := model.ScoredResult{
		SessionID: in.SessionID,
		ScoredAt:  in.ScoredAt,
		Outcomes:  make([]model.QuestionOutcome, 0, len(in.QuestionIDs)),
	}

	for pos, qID := range in.QuestionIDs {
		correct := in.AnswerKey[qID]
		answer, ok := in.Answers[pos]
		if answer == "" {
			ok = false
		}

		out := model.QuestionOutcome{
			Position:      pos,
			QuestionID:    qID,
			CorrectAnswer: correct,
			Answered:      ok,
		}

		switch {
		case !ok:
			res.UnansweredCount++
			res.RawScore += in.Policy.PointsUnanswered
		case answer == correct:
			out.UserAnswer = answer
			out.IsCorrect = true
			res.CorrectCount++
			res.RawScore += in.Policy.PointsCorrect
		default:
			out.UserAnswer = answer
			res.IncorrectCount++
			res.RawScore += in.Policy.PointsIncorrect
		}

		if ok && in.Policy.TrackPace {
			out.OverPace = overPace(in.StartedAt, in.AnsweredAt[pos], pos, in.Policy.SecondsPerQuestion)
		}

		res.Outcomes = append(res.Outcomes, out)
	}

	return res
}

// overPace reports whether an answer landed after its question's soft
// deadline: position i must be answered within (i+1) pacing slots of the
// session start. Exceeding it never forces anything — it is a flag for the
// results view.
func overPace(startedAt time.Time, answeredAtUnix int64, position, secondsPerQuestion int) bool {
	if answeredAtUnix == 0 {
		return false
	}
	softDeadline := startedAt.Add(time.Duration(position+1) * time.Duration(secondsPerQuestion) * time.Second)
	return time.Unix(answeredAtUnix, 0).After(softDeadline)
}

// BankEvent is one error-bank mutation derived from a scored result:
// a failure upsert for an incorrect answer, a resolve for a correct one.
// Unanswered questions emit nothing — skipping is not failing.
type BankEvent struct {
	QuestionID uuid.UUID
	Failed     bool
}

// BankEvents extracts the error-bank feed from a result.
func BankEvents(res model.ScoredResult) []BankEvent {
	events := make([]BankEvent, 0, len(res.Outcomes))
	for _, out := range res.Outcomes {
		if !out.Answered {
			continue
		}
		events = append(events, BankEvent{QuestionID: out.QuestionID, Failed: !out.IsCorrect})
	}
	return events
}
