package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opopir/opopir-backend/internal/model"
)

// QuestionSource draws and resolves questions. Draw selects up to count
// questions without replacement from the pool the tag points at; returning
// fewer than count means the pool is too small.
type QuestionSource interface {
	Draw(ctx context.Context, src model.DrawSource, count int) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// SessionStore is the durable record of sessions and their autosaved
// answers.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	// GetOpenByUser returns the user's PENDING/ACTIVE session, or
	// ErrSessionNotFound.
	GetOpenByUser(ctx context.Context, userID int) (*model.ExamSession, error)
	// MarkSubmitted transitions ACTIVE→SUBMITTED. Returns false when the
	// session was already submitted or scored — the idempotence guard.
	MarkSubmitted(ctx context.Context, id uuid.UUID, submittedAt time.Time, elapsedSeconds int) (bool, error)
	ListByUser(ctx context.Context, userID, page, perPage int) ([]model.ExamSession, int64, error)
	// Answers returns the durably autosaved answers and answer timestamps,
	// the fallback when the cache snapshot is gone.
	Answers(ctx context.Context, id uuid.UUID) (map[int]string, map[int]int64, error)
}

// SnapshotStore is the fast mid-exam snapshot consulted on every answer
// and at submission time.
type SnapshotStore interface {
	SaveAnswer(ctx context.Context, sessionID uuid.UUID, position int, choice string, at time.Time) error
	Load(ctx context.Context, sessionID uuid.UUID) (*model.SessionSnapshot, error)
	// Restore re-seeds the cache from a durable snapshot (cache self-heal).
	Restore(ctx context.Context, snap *model.SessionSnapshot) error
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

// DeadlineIndex schedules sessions for auto-submission when their time
// budget runs out.
type DeadlineIndex interface {
	Schedule(ctx context.Context, sessionID uuid.UUID, deadline time.Time) error
	Cancel(ctx context.Context, sessionID uuid.UUID) error
}

// JobQueue hands work to the background workers.
type JobQueue interface {
	EnqueueAnswer(ctx context.Context, job model.AnswerJob) error
	EnqueueScore(ctx context.Context, job model.ScoreJob) error
}

// ScaleCatalog resolves scale ids against the loaded catalog.
type ScaleCatalog interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ErrorBankStore persists per-user error records.
type ErrorBankStore interface {
	RecordFailure(ctx context.Context, userID int, questionID uuid.UUID, at time.Time) error
	// RecordSuccess resolves an unresolved record; missing or already
	// resolved records are left untouched.
	RecordSuccess(ctx context.Context, userID int, questionID uuid.UUID) error
	ListActive(ctx context.Context, userID int) ([]model.ErrorRecord, error)
}

// UserStore resolves accounts for login and profile lookups.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int) (*model.User, error)
}

// ResultStore reads stored scored results.
type ResultStore interface {
	// Get returns the stored result, or ErrSessionNotScored when scoring
	// has not landed yet.
	Get(ctx context.Context, sessionID uuid.UUID) (*model.ScoredResult, error)
}
