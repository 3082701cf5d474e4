package service

import (
	"context"
	"fmt"

	"github.com/opopir/opopir-backend/internal/model"
)

// ConfigBuilder validates raw exam parameters and produces an immutable
// ExamConfig. It performs no persistence; its only lookup is the scale
// catalog.
type ConfigBuilder struct {
	catalog ScaleCatalog
}

// NewConfigBuilder creates a ConfigBuilder.
func NewConfigBuilder(catalog ScaleCatalog) *ConfigBuilder {
	return &ConfigBuilder{catalog: catalog}
}

// Build validates req for the given user and returns the config, or a
// *ValidationError naming the offending field.
func (b *ConfigBuilder) Build(ctx context.Context, userID int, req *model.StartExamRequest) (*model.ExamConfig, error) {
	examType := model.ExamType(req.ExamType)
	policy, ok := model.PolicyFor(examType)
	if !ok {
		return nil, &ValidationError{Field: "examType", Reason: "unknown exam type"}
	}

	if req.QuestionCount < policy.MinQuestions || req.QuestionCount > policy.MaxQuestions {
		return nil, &ValidationError{
			Field:  "questionCount",
			Reason: fmt.Sprintf("must be between %d and %d for %s exams", policy.MinQuestions, policy.MaxQuestions, examType),
		}
	}

	// scaleId is present iff the exam type is by_scale.
	if examType == model.ExamTypeByScale {
		if req.ScaleID == nil {
			return nil, &ValidationError{Field: "scaleId", Reason: "required for by_scale exams"}
		}
		exists, err := b.catalog.Exists(ctx, *req.ScaleID)
		if err != nil {
			return nil, fmt.Errorf("check scale: %w", err)
		}
		if !exists {
			return nil, &ValidationError{Field: "scaleId", Reason: "unknown scale"}
		}
	} else if req.ScaleID != nil {
		return nil, &ValidationError{Field: "scaleId", Reason: fmt.Sprintf("not allowed for %s exams", examType)}
	}

	// The time budget is always derived, never user-supplied. Only the
	// custom type may change the pacing.
	secondsPerQuestion := policy.SecondsPerQuestion
	if req.SecondsPerQuestion != 0 {
		if examType != model.ExamTypeCustom {
			return nil, &ValidationError{Field: "secondsPerQuestion", Reason: "only custom exams may set pacing"}
		}
		secondsPerQuestion = req.SecondsPerQuestion
	}

	return &model.ExamConfig{
		ExamType:           examType,
		QuestionCount:      req.QuestionCount,
		SecondsPerQuestion: secondsPerQuestion,
		TimeBudgetSeconds:  req.QuestionCount * secondsPerQuestion,
		ScaleID:            req.ScaleID,
		UserID:             userID,
	}, nil
}
