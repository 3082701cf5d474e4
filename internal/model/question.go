package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question is a single multiple-choice question from the bank.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	ScaleID       uuid.UUID       `json:"scale_id"`
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options"`
	CorrectOption string          `json:"correct_option"`
	Explanation   string          `json:"explanation,omitempty"`
}

// QuestionForExam is a question stripped of its correct answer and
// explanation, as served to a client taking an exam.
type QuestionForExam struct {
	ID           uuid.UUID       `json:"id"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options"`
	Position     int             `json:"position"`
}

// ForExam strips grading fields from a question.
func (q *Question) ForExam(position int) QuestionForExam {
	return QuestionForExam{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Options:      q.Options,
		Position:     position,
	}
}
