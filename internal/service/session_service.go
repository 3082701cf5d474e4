package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opopir/opopir-backend/internal/model"
)

// SessionService owns the lifecycle of exam sessions:
// PENDING → ACTIVE → SUBMITTED → SCORED. It holds the authoritative answer
// snapshot and elapsed-time accounting; the SCORED transition happens
// asynchronously in the scoring worker.
type SessionService struct {
	sessions  SessionStore
	questions QuestionSource
	snapshots SnapshotStore
	deadlines DeadlineIndex
	queue     JobQueue
	log       zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewSessionService creates a SessionService.
func NewSessionService(
	sessions SessionStore,
	questions QuestionSource,
	snapshots SnapshotStore,
	deadlines DeadlineIndex,
	queue JobQueue,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		questions: questions,
		snapshots: snapshots,
		deadlines: deadlines,
		queue:     queue,
		log:       log.With().Str("component", "session_service").Logger(),
		now:       time.Now,
	}
}

// StartedExam is the response of a successful start: the session plus its
// paper (questions without answers).
type StartedExam struct {
	Session *model.ExamSession      `json:"session"`
	Paper   []model.QuestionForExam `json:"paper"`
}

// Start draws the configured number of questions without replacement from
// the config's source pool and activates a new session. Fails with
// ErrInsufficientQuestions when the pool is too small and with
// ErrSessionActive when the user already has an open session.
func (s *SessionService) Start(ctx context.Context, cfg *model.ExamConfig) (*StartedExam, error) {
	existing, err := s.sessions.GetOpenByUser(ctx, cfg.UserID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("check open session: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: session %s", ErrSessionActive, existing.ID)
	}

	drawn, err := s.questions.Draw(ctx, cfg.DrawSource(), cfg.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	if len(drawn) < cfg.QuestionCount {
		return nil, fmt.Errorf("%w: %d available, %d requested", ErrInsufficientQuestions, len(drawn), cfg.QuestionCount)
	}

	now := s.now()
	session := &model.ExamSession{
		ID:          uuid.New(),
		Config:      *cfg,
		QuestionIDs: make([]uuid.UUID, len(drawn)),
		Status:      model.SessionStatusActive,
		StartedAt:   now,
	}
	paper := make([]model.QuestionForExam, len(drawn))
	for i, q := range drawn {
		session.QuestionIDs[i] = q.ID
		paper[i] = q.ForExam(i)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.deadlines.Schedule(ctx, session.ID, session.Deadline()); err != nil {
		// The session is already durable; a missing deadline only delays
		// auto-submission until the next manual submit.
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to schedule deadline")
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_type", string(cfg.ExamType)).
		Int("question_count", cfg.QuestionCount).
		Int("time_budget_s", cfg.TimeBudgetSeconds).
		Msg("Session started")

	return &StartedExam{Session: session, Paper: paper}, nil
}

// Answer records one answer at a question position, last write wins.
// Answers for different positions commute; each write lands in the cache
// snapshot immediately and is queued for durable persistence.
func (s *SessionService) Answer(ctx context.Context, sessionID uuid.UUID, userID, position int, choice string) error {
	session, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !session.Open() {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	if position < 0 || position >= session.Config.QuestionCount {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("out of range [0,%d)", session.Config.QuestionCount)}
	}

	at := s.now()
	if err := s.snapshots.SaveAnswer(ctx, sessionID, position, choice, at); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}

	job := model.AnswerJob{SessionID: sessionID, Position: position, Choice: choice, AnsweredAt: at.Unix()}
	if err := s.queue.EnqueueAnswer(ctx, job); err != nil {
		// The cache snapshot already holds the answer; the durable copy
		// will catch up on submit, which reads the snapshot.
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to enqueue answer persistence")
	}
	return nil
}

// Submit finishes a session. It is idempotent: the first call wins the
// ACTIVE→SUBMITTED transition, freezes the latest snapshot into a scoring
// job and returns; any repeat call (duplicate click, timer race) is a
// no-op returning the current state.
func (s *SessionService) Submit(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	session, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, session, false)
}

// AutoSubmit is the timer-expiry path used by the deadline worker. It
// shares the same idempotent transition, so a simultaneous manual submit
// can never produce a second score.
func (s *SessionService) AutoSubmit(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.RemainingSeconds(s.now()) > 0 {
		return session, nil
	}
	return s.submit(ctx, session, true)
}

func (s *SessionService) submit(ctx context.Context, session *model.ExamSession, auto bool) (*model.ExamSession, error) {
	if !session.Open() {
		return session, nil
	}

	now := s.now()
	elapsed := session.ClampElapsed(now)

	won, err := s.sessions.MarkSubmitted(ctx, session.ID, now, elapsed)
	if err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	if !won {
		// Lost the race against a concurrent submit; the winner already
		// queued the scoring job.
		return s.sessions.Get(ctx, session.ID)
	}

	session.Status = model.SessionStatusSubmitted
	session.SubmittedAt = &now
	session.ElapsedSeconds = elapsed

	// Read the latest persisted snapshot so the job includes every answer
	// submitted before this point.
	snap, err := s.loadSnapshot(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	job := model.ScoreJob{
		SessionID:  session.ID,
		Answers:    snap.Answers,
		AnsweredAt: snap.AnsweredAt,
		Auto:       auto,
	}
	if err := s.queue.EnqueueScore(ctx, job); err != nil {
		// The session is durably SUBMITTED; losing the attempt is the
		// highest-cost failure, so this must surface and be retried.
		return nil, fmt.Errorf("enqueue scoring: %w", err)
	}

	if err := s.deadlines.Cancel(ctx, session.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to cancel deadline")
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Bool("auto", auto).
		Int("answered", len(snap.Answers)).
		Int("elapsed_s", elapsed).
		Msg("Session submitted")

	return session, nil
}

// State reloads a session's persisted snapshot so a page reload or
// navigation away and back loses no progress. Remaining time is derived
// from the wall clock, so time spent unmounted is accounted for.
func (s *SessionService) State(ctx context.Context, sessionID uuid.UUID, userID int) (*model.SessionState, error) {
	session, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	remaining := 0.0
	if session.Open() {
		remaining = session.RemainingSeconds(s.now())
	}

	return &model.SessionState{
		SessionID:        session.ID,
		Config:           session.Config,
		QuestionIDs:      session.QuestionIDs,
		Status:           session.Status,
		Answers:          snap.Answers,
		RemainingSeconds: remaining,
	}, nil
}

// Active returns the user's open session state, or ErrSessionNotFound so
// the caller can offer a fresh exam instead.
func (s *SessionService) Active(ctx context.Context, userID int) (*model.SessionState, error) {
	session, err := s.sessions.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.State(ctx, session.ID, userID)
}

// Paper re-serves the session's drawn questions, in draw order and without
// grading fields, for resume rendering.
func (s *SessionService) Paper(ctx context.Context, sessionID uuid.UUID, userID int) ([]model.QuestionForExam, error) {
	session, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.GetByIDs(ctx, session.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	paper := make([]model.QuestionForExam, 0, len(session.QuestionIDs))
	for pos, id := range session.QuestionIDs {
		if q, ok := byID[id]; ok {
			paper = append(paper, q.ForExam(pos))
		}
	}
	return paper, nil
}

// History lists the user's past and current sessions, newest first.
func (s *SessionService) History(ctx context.Context, userID, page, perPage int) ([]model.ExamSession, int64, error) {
	return s.sessions.ListByUser(ctx, userID, page, perPage)
}

// loadSnapshot merges the durable autosaved answers with the cache
// snapshot, cache winning per position, and self-heals the cache when it
// was evicted.
func (s *SessionService) loadSnapshot(ctx context.Context, session *model.ExamSession) (*model.SessionSnapshot, error) {
	snap, err := s.snapshots.Load(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	if len(snap.Answers) == 0 {
		answers, answeredAt, err := s.sessions.Answers(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		if len(answers) > 0 {
			snap.Answers = answers
			snap.AnsweredAt = answeredAt
			if err := s.snapshots.Restore(ctx, snap); err != nil {
				s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Snapshot self-heal failed")
			}
		}
	}

	return snap, nil
}

func (s *SessionService) owned(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Hide other users' sessions rather than confirming they exist.
	if session.Config.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
