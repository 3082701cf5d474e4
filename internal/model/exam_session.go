package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session lifecycle states.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
	SessionStatusScored    SessionStatus = "SCORED"
)

// ExamSession is one attempt at a configured exam. The question order is
// fixed at draw time and never changes afterwards; answers are keyed by
// question position within [0, QuestionCount).
type ExamSession struct {
	ID             uuid.UUID     `json:"id"`
	Config         ExamConfig    `json:"config"`
	QuestionIDs    []uuid.UUID   `json:"question_ids"`
	Status         SessionStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	SubmittedAt    *time.Time    `json:"submitted_at,omitempty"`
}

// Open reports whether the session still accepts answers and submission.
func (s *ExamSession) Open() bool {
	return s.Status == SessionStatusPending || s.Status == SessionStatusActive
}

// Deadline is the wall-clock instant at which the session auto-submits.
func (s *ExamSession) Deadline() time.Time {
	return s.StartedAt.Add(time.Duration(s.Config.TimeBudgetSeconds) * time.Second)
}

// RemainingSeconds derives the countdown from wall-clock time, never from
// tick counts, so it stays correct across throttled or reloaded pages.
func (s *ExamSession) RemainingSeconds(now time.Time) float64 {
	remaining := s.Deadline().Sub(now).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClampElapsed converts a wall-clock delta into the recorded elapsed
// seconds, capped at the time budget.
func (s *ExamSession) ClampElapsed(now time.Time) int {
	elapsed := int(now.Sub(s.StartedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > s.Config.TimeBudgetSeconds {
		elapsed = s.Config.TimeBudgetSeconds
	}
	return elapsed
}

// SessionSnapshot is the durable mid-exam state needed to resume after a
// reload or navigation: the latest answers and, in paced modes, the
// wall-clock instant each answer landed.
type SessionSnapshot struct {
	SessionID  uuid.UUID      `json:"session_id"`
	Answers    map[int]string `json:"answers"`
	AnsweredAt map[int]int64  `json:"answered_at"` // position → unix seconds
}

// SessionState is the resume payload returned to the client.
type SessionState struct {
	SessionID        uuid.UUID      `json:"session_id"`
	Config           ExamConfig     `json:"config"`
	QuestionIDs      []uuid.UUID    `json:"question_ids"`
	Status           SessionStatus  `json:"status"`
	Answers          map[int]string `json:"answers"`
	RemainingSeconds float64        `json:"remaining_seconds"`
}

// AnswerRequest is the payload for recording one answer. An empty choice
// clears the position back to unanswered.
type AnswerRequest struct {
	Choice string `json:"choice" binding:"max=10"`
}
