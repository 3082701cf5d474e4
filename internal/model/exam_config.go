package model

import (
	"github.com/google/uuid"
)

// ExamType enumerates the supported exam modes.
type ExamType string

const (
	// ExamTypeStandard is the default practice exam.
	ExamTypeStandard ExamType = "standard"
	// ExamTypeTimed is the "contrarreloj" mode with per-question pacing feedback.
	ExamTypeTimed ExamType = "timed"
	// ExamTypeByScale restricts the draw to one assessment scale.
	ExamTypeByScale ExamType = "by_scale"
	// ExamTypeErrorReview draws from the user's unresolved error bank.
	ExamTypeErrorReview ExamType = "error_review"
	// ExamTypeCustom lets the user pick their own pacing.
	ExamTypeCustom ExamType = "custom"
)

// ExamPolicy groups the tunable constants of an exam type: draw bounds,
// pacing and the scoring weights. These mirror the real exam's penalty
// structure but are deliberately kept as data so a future type can carry
// different weights without touching the scoring engine.
type ExamPolicy struct {
	MinQuestions       int
	MaxQuestions       int
	SecondsPerQuestion int
	PointsCorrect      float64
	PointsIncorrect    float64
	PointsUnanswered   float64
	// TrackPace enables the per-question soft deadline flags.
	TrackPace bool
}

const defaultSecondsPerQuestion = 60

var policies = map[ExamType]ExamPolicy{
	ExamTypeStandard: {
		MinQuestions: 1, MaxQuestions: 200,
		SecondsPerQuestion: defaultSecondsPerQuestion,
		PointsCorrect:      3, PointsIncorrect: -1, PointsUnanswered: 0,
	},
	ExamTypeTimed: {
		MinQuestions: 1, MaxQuestions: 200,
		SecondsPerQuestion: defaultSecondsPerQuestion,
		PointsCorrect:      3, PointsIncorrect: -1, PointsUnanswered: 0,
		TrackPace: true,
	},
	ExamTypeByScale: {
		MinQuestions: 1, MaxQuestions: 30,
		SecondsPerQuestion: defaultSecondsPerQuestion,
		PointsCorrect:      3, PointsIncorrect: -1, PointsUnanswered: 0,
	},
	ExamTypeErrorReview: {
		MinQuestions: 1, MaxQuestions: 200,
		SecondsPerQuestion: defaultSecondsPerQuestion,
		PointsCorrect:      3, PointsIncorrect: -1, PointsUnanswered: 0,
	},
	ExamTypeCustom: {
		MinQuestions: 1, MaxQuestions: 200,
		SecondsPerQuestion: defaultSecondsPerQuestion,
		PointsCorrect:      3, PointsIncorrect: -1, PointsUnanswered: 0,
	},
}

// PolicyFor returns the policy table entry for an exam type.
func PolicyFor(t ExamType) (ExamPolicy, bool) {
	p, ok := policies[t]
	return p, ok
}

// ExamConfig is the immutable configuration of one exam attempt, produced by
// the configuration builder. TimeBudgetSeconds is always derived, never
// user-supplied.
type ExamConfig struct {
	ExamType           ExamType   `json:"exam_type"`
	QuestionCount      int        `json:"question_count"`
	SecondsPerQuestion int        `json:"seconds_per_question"`
	TimeBudgetSeconds  int        `json:"time_budget_seconds"`
	ScaleID            *uuid.UUID `json:"scale_id,omitempty"`
	UserID             int        `json:"user_id"`
}

// DrawKind selects the question pool a session draws from.
type DrawKind string

const (
	DrawKindPool      DrawKind = "pool"
	DrawKindScale     DrawKind = "scale"
	DrawKindErrorBank DrawKind = "error_bank"
)

// DrawSource is the tagged variant dispatched by the question source:
// ScaleID is meaningful only for DrawKindScale, UserID only for
// DrawKindErrorBank.
type DrawSource struct {
	Kind    DrawKind
	ScaleID uuid.UUID
	UserID  int
}

// DrawSource maps the exam type tag to its question pool.
func (c *ExamConfig) DrawSource() DrawSource {
	switch c.ExamType {
	case ExamTypeByScale:
		return DrawSource{Kind: DrawKindScale, ScaleID: *c.ScaleID}
	case ExamTypeErrorReview:
		return DrawSource{Kind: DrawKindErrorBank, UserID: c.UserID}
	default:
		return DrawSource{Kind: DrawKindPool}
	}
}

// Policy returns the policy table entry for this config's exam type.
func (c *ExamConfig) Policy() ExamPolicy {
	p, _ := PolicyFor(c.ExamType)
	return p
}

// StartExamRequest is the payload for configuring and starting an exam.
// Range checks that depend on the exam type are enforced by the builder,
// not by binding tags.
type StartExamRequest struct {
	ExamType           string     `json:"exam_type" binding:"required,oneof=standard timed by_scale error_review custom"`
	QuestionCount      int        `json:"question_count" binding:"required"`
	SecondsPerQuestion int        `json:"seconds_per_question" binding:"omitempty,min=10,max=300"`
	ScaleID            *uuid.UUID `json:"scale_id" binding:"omitempty"`
}
