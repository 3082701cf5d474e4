package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opopir/opopir-backend/internal/model"
	"github.com/opopir/opopir-backend/internal/service"
)

// SessionRepository is the durable store of exam sessions, their drawn
// question order and their autosaved answers.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts the session row and its question-order snapshot in one
// transaction. The order never changes after this point.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO exam_sessions
		   (id, user_id, exam_type, question_count, seconds_per_question,
		    time_budget_seconds, scale_id, status, started_at, elapsed_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)`,
		s.ID, s.Config.UserID, s.Config.ExamType, s.Config.QuestionCount,
		s.Config.SecondsPerQuestion, s.Config.TimeBudgetSeconds, s.Config.ScaleID,
		s.Status, s.StartedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	positions := make([]int, len(s.QuestionIDs))
	for i := range s.QuestionIDs {
		positions[i] = i
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO session_questions (session_id, position, question_id)
		 SELECT $1, u.position, u.question_id
		 FROM UNNEST($2::int[], $3::uuid[]) AS u (position, question_id)`,
		s.ID, positions, s.QuestionIDs)
	if err != nil {
		return fmt.Errorf("insert question order: %w", err)
	}

	return tx.Commit(ctx)
}

// Get retrieves a session with its question order.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s, err := r.scanSession(r.pool.QueryRow(ctx,
		sessionSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadQuestionOrder(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetOpenByUser retrieves the user's PENDING/ACTIVE session, if any.
func (r *SessionRepository) GetOpenByUser(ctx context.Context, userID int) (*model.ExamSession, error) {
	s, err := r.scanSession(r.pool.QueryRow(ctx,
		sessionSelect+` WHERE user_id = $1 AND status IN ('PENDING', 'ACTIVE')
		 ORDER BY started_at DESC
		 LIMIT 1`, userID))
	if err != nil {
		return nil, err
	}
	if err := r.loadQuestionOrder(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// MarkSubmitted performs the guarded ACTIVE→SUBMITTED transition. The
// conditional update is what makes Submit idempotent under races: only one
// caller sees a row change.
func (r *SessionRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, submittedAt time.Time, elapsedSeconds int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, submitted_at = $2, elapsed_seconds = $3
		 WHERE id = $4 AND status IN ('PENDING', 'ACTIVE')`,
		model.SessionStatusSubmitted, submittedAt, elapsedSeconds, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser retrieves the user's sessions, newest first, with pagination.
// Question orders are not loaded for listings.
func (r *SessionRepository) ListByUser(ctx context.Context, userID, page, perPage int) ([]model.ExamSession, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		sessionSelect+` WHERE user_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2 OFFSET $3`, userID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, total, rows.Err()
}

// Answers returns the durably autosaved answers, the fallback source when
// the cache snapshot is gone.
func (r *SessionRepository) Answers(ctx context.Context, id uuid.UUID) (map[int]string, map[int]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT position, choice, EXTRACT(EPOCH FROM answered_at)::bigint
		 FROM session_answers
		 WHERE session_id = $1`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	answers := make(map[int]string)
	answeredAt := make(map[int]int64)
	for rows.Next() {
		var position int
		var choice string
		var at int64
		if err := rows.Scan(&position, &choice, &at); err != nil {
			return nil, nil, err
		}
		answers[position] = choice
		answeredAt[position] = at
	}
	return answers, answeredAt, rows.Err()
}

// MarkScored transitions SUBMITTED→SCORED; used by the scoring worker
// inside its persistence transaction.
func MarkScored(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx,
		`UPDATE exam_sessions SET status = $1 WHERE id = $2 AND status = $3`,
		model.SessionStatusScored, id, model.SessionStatusSubmitted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("session %s not in SUBMITTED state", id)
	}
	return nil
}

const sessionSelect = `
	SELECT id, user_id, exam_type, question_count, seconds_per_question,
	       time_budget_seconds, scale_id, status, started_at,
	       elapsed_seconds, submitted_at
	FROM exam_sessions`

func (r *SessionRepository) scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(
		&s.ID, &s.Config.UserID, &s.Config.ExamType, &s.Config.QuestionCount,
		&s.Config.SecondsPerQuestion, &s.Config.TimeBudgetSeconds, &s.Config.ScaleID,
		&s.Status, &s.StartedAt, &s.ElapsedSeconds, &s.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) loadQuestionOrder(ctx context.Context, s *model.ExamSession) error {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id FROM session_questions
		 WHERE session_id = $1
		 ORDER BY position`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var qID uuid.UUID
		if err := rows.Scan(&qID); err != nil {
			return err
		}
		s.QuestionIDs = append(s.QuestionIDs, qID)
	}
	return rows.Err()
}
