package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/opopir/opopir-backend/internal/model"
)

type memCatalog struct {
	ids map[uuid.UUID]bool
}

func (m *memCatalog) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.ids[id], nil
}

func TestBuild_DerivedTimeBudget(t *testing.T) {
	b := NewConfigBuilder(&memCatalog{})

	cfg, err := b.Build(context.Background(), 7, &model.StartExamRequest{
		ExamType:      "standard",
		QuestionCount: 10,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.TimeBudgetSeconds != 600 {
		t.Fatalf("time budget = %d, want 600 (10 × 60)", cfg.TimeBudgetSeconds)
	}
	if cfg.SecondsPerQuestion != 60 {
		t.Fatalf("seconds per question = %d, want default 60", cfg.SecondsPerQuestion)
	}
	if cfg.UserID != 7 {
		t.Fatalf("user id = %d, want 7", cfg.UserID)
	}
	if cfg.ScaleID != nil {
		t.Fatal("standard config must carry no scale id")
	}
}

func TestBuild_QuestionCountBounds(t *testing.T) {
	scaleID := uuid.New()
	b := NewConfigBuilder(&memCatalog{ids: map[uuid.UUID]bool{scaleID: true}})

	tests := []struct {
		name      string
		req       model.StartExamRequest
		wantField string
	}{
		{name: "zero count", req: model.StartExamRequest{ExamType: "standard", QuestionCount: 0}, wantField: "questionCount"},
		{name: "negative count", req: model.StartExamRequest{ExamType: "standard", QuestionCount: -5}, wantField: "questionCount"},
		{name: "over general bound", req: model.StartExamRequest{ExamType: "standard", QuestionCount: 201}, wantField: "questionCount"},
		{name: "scale bound is 30", req: model.StartExamRequest{ExamType: "by_scale", QuestionCount: 31, ScaleID: &scaleID}, wantField: "questionCount"},
		{name: "at general bound ok", req: model.StartExamRequest{ExamType: "standard", QuestionCount: 200}},
		{name: "at scale bound ok", req: model.StartExamRequest{ExamType: "by_scale", QuestionCount: 30, ScaleID: &scaleID}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Build(context.Background(), 1, &tc.req)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("build: %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if vErr.Field != tc.wantField {
				t.Fatalf("field = %q, want %q", vErr.Field, tc.wantField)
			}
		})
	}
}

func TestBuild_ScaleIDPresence(t *testing.T) {
	known := uuid.New()
	unknown := uuid.New()
	b := NewConfigBuilder(&memCatalog{ids: map[uuid.UUID]bool{known: true}})
	ctx := context.Background()

	var vErr *ValidationError

	_, err := b.Build(ctx, 1, &model.StartExamRequest{ExamType: "by_scale", QuestionCount: 10})
	if !errors.As(err, &vErr) || vErr.Field != "scaleId" {
		t.Fatalf("missing scale id: err = %v, want ValidationError{scaleId}", err)
	}

	_, err = b.Build(ctx, 1, &model.StartExamRequest{ExamType: "by_scale", QuestionCount: 10, ScaleID: &unknown})
	if !errors.As(err, &vErr) || vErr.Field != "scaleId" {
		t.Fatalf("unknown scale id: err = %v, want ValidationError{scaleId}", err)
	}

	_, err = b.Build(ctx, 1, &model.StartExamRequest{ExamType: "standard", QuestionCount: 10, ScaleID: &known})
	if !errors.As(err, &vErr) || vErr.Field != "scaleId" {
		t.Fatalf("scale id outside by_scale: err = %v, want ValidationError{scaleId}", err)
	}

	cfg, err := b.Build(ctx, 1, &model.StartExamRequest{ExamType: "by_scale", QuestionCount: 10, ScaleID: &known})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.ScaleID == nil || *cfg.ScaleID != known {
		t.Fatal("built config lost the scale id")
	}
	if cfg.DrawSource().Kind != model.DrawKindScale {
		t.Fatal("by_scale config must draw from the scale pool")
	}
}

func TestBuild_CustomPacing(t *testing.T) {
	b := NewConfigBuilder(&memCatalog{})
	ctx := context.Background()

	cfg, err := b.Build(ctx, 1, &model.StartExamRequest{ExamType: "custom", QuestionCount: 20, SecondsPerQuestion: 45})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.SecondsPerQuestion != 45 || cfg.TimeBudgetSeconds != 900 {
		t.Fatalf("pacing = %d/%d, want 45/900", cfg.SecondsPerQuestion, cfg.TimeBudgetSeconds)
	}

	var vErr *ValidationError
	_, err = b.Build(ctx, 1, &model.StartExamRequest{ExamType: "timed", QuestionCount: 20, SecondsPerQuestion: 45})
	if !errors.As(err, &vErr) || vErr.Field != "secondsPerQuestion" {
		t.Fatalf("non-custom pacing override: err = %v, want ValidationError{secondsPerQuestion}", err)
	}
}

func TestBuild_ErrorReviewDrawsFromBank(t *testing.T) {
	b := NewConfigBuilder(&memCatalog{})

	cfg, err := b.Build(context.Background(), 9, &model.StartExamRequest{ExamType: "error_review", QuestionCount: 15})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	src := cfg.DrawSource()
	if src.Kind != model.DrawKindErrorBank || src.UserID != 9 {
		t.Fatalf("draw source = %+v, want error bank for user 9", src)
	}
}
