package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opopir/opopir-backend/internal/model"
)

// ErrorBankRepository persists per-user error records.
type ErrorBankRepository struct {
	pool *pgxpool.Pool
}

// NewErrorBankRepository creates a new ErrorBankRepository.
func NewErrorBankRepository(pool *pgxpool.Pool) *ErrorBankRepository {
	return &ErrorBankRepository{pool: pool}
}

// RecordFailure creates or re-opens the record for a missed question and
// bumps its counter. A previously resolved record returns to the active
// pool: resolution reflects the most recent attempt, not permanent
// confidence.
func (r *ErrorBankRepository) RecordFailure(ctx context.Context, userID int, questionID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO error_records (user_id, question_id, times_failed, last_failed_at, resolved)
		 VALUES ($1, $2, 1, $3, FALSE)
		 ON CONFLICT (user_id, question_id) DO UPDATE
		 SET times_failed = error_records.times_failed + 1,
		     last_failed_at = EXCLUDED.last_failed_at,
		     resolved = FALSE`,
		userID, questionID, at)
	return err
}

// RecordSuccess resolves an unresolved record. Records are never deleted —
// history stays for analytics — and a success without a prior failure is
// a no-op.
func (r *ErrorBankRepository) RecordSuccess(ctx context.Context, userID int, questionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE error_records
		 SET resolved = TRUE
		 WHERE user_id = $1 AND question_id = $2 AND resolved = FALSE`,
		userID, questionID)
	return err
}

// ListActive returns the user's unresolved records, most recently failed
// first.
func (r *ErrorBankRepository) ListActive(ctx context.Context, userID int) ([]model.ErrorRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, question_id, times_failed, last_failed_at, resolved
		 FROM error_records
		 WHERE user_id = $1 AND resolved = FALSE
		 ORDER BY last_failed_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ErrorRecord
	for rows.Next() {
		var rec model.ErrorRecord
		if err := rows.Scan(&rec.UserID, &rec.QuestionID, &rec.TimesFailed, &rec.LastFailedAt, &rec.Resolved); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
