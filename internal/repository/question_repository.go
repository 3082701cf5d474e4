package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opopir/opopir-backend/internal/model"
)

// QuestionRepository handles question bank data access and implements the
// engine's question source.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, scale_id, question_text, options, correct_option, explanation`

// Draw selects up to count random questions without replacement from the
// pool the source tag points at. Returning fewer than count rows means the
// pool is smaller than requested; the caller decides what that implies.
func (r *QuestionRepository) Draw(ctx context.Context, src model.DrawSource, count int) ([]model.Question, error) {
	var rows pgx.Rows
	var err error

	switch src.Kind {
	case model.DrawKindScale:
		rows, err = r.pool.Query(ctx,
			`SELECT `+questionColumns+`
			 FROM questions
			 WHERE scale_id = $1
			 ORDER BY random()
			 LIMIT $2`, src.ScaleID, count)
	case model.DrawKindErrorBank:
		rows, err = r.pool.Query(ctx,
			`SELECT q.id, q.scale_id, q.question_text, q.options, q.correct_option, q.explanation
			 FROM questions q
			 JOIN error_records e ON e.question_id = q.id
			 WHERE e.user_id = $1 AND e.resolved = FALSE
			 ORDER BY random()
			 LIMIT $2`, src.UserID, count)
	default:
		rows, err = r.pool.Query(ctx,
			`SELECT `+questionColumns+`
			 FROM questions
			 ORDER BY random()
			 LIMIT $1`, count)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// GetByIDs retrieves questions by id, in no particular order.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions
		 WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// AnswerKey returns the question id → correct option map for a fixed set
// of questions.
func (r *QuestionRepository) AnswerKey(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, correct_option FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	key := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var correct string
		if err := rows.Scan(&id, &correct); err != nil {
			return nil, err
		}
		key[id] = correct
	}
	return key, rows.Err()
}

// Create inserts a question; used by the seeding tool.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (scale_id, question_text, options, correct_option, explanation)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		q.ScaleID, q.QuestionText, q.Options, q.CorrectOption, q.Explanation,
	).Scan(&q.ID)
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ScaleID, &q.QuestionText, &q.Options, &q.CorrectOption, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
