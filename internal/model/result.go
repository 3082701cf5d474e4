package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionOutcome is one entry of a scored session's per-question list,
// ordered by position.
type QuestionOutcome struct {
	Position      int       `json:"position"`
	QuestionID    uuid.UUID `json:"question_id"`
	UserAnswer    string    `json:"user_answer,omitempty"`
	CorrectAnswer string    `json:"correct_answer"`
	IsCorrect     bool      `json:"is_correct"`
	Answered      bool      `json:"answered"`
	// OverPace marks answers that exceeded the per-question soft deadline
	// in timed mode. Feedback only — it never affects the score.
	OverPace bool `json:"over_pace,omitempty"`
}

// ScoredResult is the immutable outcome of a submitted session. Counts
// always satisfy Correct+Incorrect+Unanswered == QuestionCount.
type ScoredResult struct {
	SessionID       uuid.UUID         `json:"session_id"`
	CorrectCount    int               `json:"correct_count"`
	IncorrectCount  int               `json:"incorrect_count"`
	UnansweredCount int               `json:"unanswered_count"`
	RawScore        float64           `json:"raw_score"`
	ScoredAt        time.Time         `json:"scored_at"`
	Outcomes        []QuestionOutcome `json:"outcomes"`
}

// ReviewQuestion annotates a stored outcome with the question content for
// the read-only review screen.
type ReviewQuestion struct {
	QuestionOutcome
	QuestionText string `json:"question_text"`
	Options      any    `json:"options"`
	Explanation  string `json:"explanation,omitempty"`
}

// ReviewView is the full replay of a scored session.
type ReviewView struct {
	SessionID       uuid.UUID        `json:"session_id"`
	Config          ExamConfig       `json:"config"`
	CorrectCount    int              `json:"correct_count"`
	IncorrectCount  int              `json:"incorrect_count"`
	UnansweredCount int              `json:"unanswered_count"`
	RawScore        float64          `json:"raw_score"`
	ElapsedSeconds  int              `json:"elapsed_seconds"`
	Questions       []ReviewQuestion `json:"questions"`
}
