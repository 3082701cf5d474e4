package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorRecord tracks one (user, question) pair the user has ever missed.
// Records are resolved, never deleted, when the question is later answered
// correctly — history stays available for analytics while the question
// leaves the active review pool. A later failure re-opens the record.
type ErrorRecord struct {
	UserID       int       `json:"user_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	TimesFailed  int       `json:"times_failed"`
	LastFailedAt time.Time `json:"last_failed_at"`
	Resolved     bool      `json:"resolved"`
}
