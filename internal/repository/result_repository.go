package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opopir/opopir-backend/internal/model"
	"github.com/opopir/opopir-backend/internal/service"
)

// ResultRepository reads stored scored results. Writing happens in the
// scoring worker's transaction, never here.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Get retrieves a result with its ordered per-question outcomes, or
// service.ErrSessionNotScored when scoring has not landed.
func (r *ResultRepository) Get(ctx context.Context, sessionID uuid.UUID) (*model.ScoredResult, error) {
	res := &model.ScoredResult{SessionID: sessionID}
	err := r.pool.QueryRow(ctx,
		`SELECT correct_count, incorrect_count, unanswered_count, raw_score, scored_at
		 FROM exam_results
		 WHERE session_id = $1`, sessionID,
	).Scan(&res.CorrectCount, &res.IncorrectCount, &res.UnansweredCount, &res.RawScore, &res.ScoredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrSessionNotScored
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT position, question_id, user_answer, correct_answer, is_correct, answered, over_pace
		 FROM result_outcomes
		 WHERE session_id = $1
		 ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var out model.QuestionOutcome
		if err := rows.Scan(&out.Position, &out.QuestionID, &out.UserAnswer,
			&out.CorrectAnswer, &out.IsCorrect, &out.Answered, &out.OverPace); err != nil {
			return nil, err
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	return res, rows.Err()
}
