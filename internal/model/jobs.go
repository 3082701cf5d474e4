package model

import (
	"github.com/google/uuid"
)

// AnswerJob is the write-behind payload for durably persisting one
// autosaved answer.
type AnswerJob struct {
	SessionID  uuid.UUID `json:"session_id"`
	Position   int       `json:"position"`
	Choice     string    `json:"choice"`
	AnsweredAt int64     `json:"answered_at"` // unix seconds
}

// ScoreJob carries a submitted session to the scoring worker. The answers
// are frozen at submission time from the latest persisted snapshot, so
// scoring is strictly ordered after every answer it includes.
type ScoreJob struct {
	SessionID  uuid.UUID      `json:"session_id"`
	Answers    map[int]string `json:"answers"`
	AnsweredAt map[int]int64  `json:"answered_at"`
	Auto       bool           `json:"auto"`
}
