package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opopir/opopir-backend/internal/config"
	"github.com/opopir/opopir-backend/internal/model"
	"github.com/opopir/opopir-backend/internal/repository"
	"github.com/opopir/opopir-backend/internal/scoring"
)

const scorePollTimeout = 1 * time.Second

// ScoringWorker consumes score_sessions_queue, grades each submitted
// session and persists the result, the SUBMITTED→SCORED transition and the
// error-bank mutations in a single transaction. A job is retried until the
// whole transaction commits, so a crash mid-scoring never loses a session.
type ScoringWorker struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sessions  *repository.SessionRepository
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewScoringWorker creates a new ScoringWorker.
func NewScoringWorker(pool *pgxpool.Pool, rdb *redis.Client, sessions *repository.SessionRepository, questions *repository.QuestionRepository, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		pool:      pool,
		rdb:       rdb,
		sessions:  sessions,
		questions: questions,
		log:       log.With().Str("component", "scoring_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ScoringWorker) processNext(ctx context.Context) {
	item, err := w.rdb.BLPop(ctx, scorePollTimeout, config.WorkerKey.ScoreSessionsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(item) < 2 {
		return
	}

	var job model.ScoreJob
	if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.scoreSession(ctx, &job); err != nil {
		w.log.Error().Err(err).
			Str("session_id", job.SessionID.String()).
			Msg("Scoring error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.ScoreSessionsQueue, item[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ScoringWorker) scoreSession(ctx context.Context, job *model.ScoreJob) error {
	session, err := w.sessions.Get(ctx, job.SessionID)
	if err != nil {
		return err
	}
	if session.Status == model.SessionStatusScored {
		// Duplicate job, the result is already in. Nothing to do.
		w.log.Warn().Str("session_id", job.SessionID.String()).Msg("Session already scored, skipping")
		return nil
	}

	answerKey, err := w.questions.AnswerKey(ctx, session.QuestionIDs)
	if err != nil {
		return err
	}

	// The custom mode may override the policy's pacing; the session config
	// carries the effective value.
	policy := session.Config.Policy()
	policy.SecondsPerQuestion = session.Config.SecondsPerQuestion

	result := scoring.Score(scoring.Input{
		SessionID:   session.ID,
		QuestionIDs: session.QuestionIDs,
		AnswerKey:   answerKey,
		Answers:     job.Answers,
		AnsweredAt:  job.AnsweredAt,
		StartedAt:   session.StartedAt,
		Policy:      policy,
		ScoredAt:    time.Now(),
	})

	if err := w.persistResult(ctx, session, &result); err != nil {
		return err
	}

	// The snapshot is dead weight once the result row exists.
	w.clearSnapshot(ctx, session.ID)

	w.log.Info().
		Str("session_id", session.ID.String()).
		Float64("raw_score", result.RawScore).
		Int("correct", result.CorrectCount).
		Bool("auto", job.Auto).
		Msg("Session scored")
	return nil
}

func (w *ScoringWorker) persistResult(ctx context.Context, session *model.ExamSession, result *model.ScoredResult) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO exam_results
		   (session_id, correct_count, incorrect_count, unanswered_count, raw_score, scored_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id) DO NOTHING`,
		result.SessionID, result.CorrectCount, result.IncorrectCount,
		result.UnansweredCount, result.RawScore, result.ScoredAt)
	if err != nil {
		return err
	}

	if err := w.insertOutcomes(ctx, tx, result); err != nil {
		return err
	}

	if err := w.applyBankEvents(ctx, tx, session, result); err != nil {
		return err
	}

	if err := repository.MarkScored(ctx, tx, session.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// insertOutcomes bulk-inserts the per-question outcome rows using UNNEST.
func (w *ScoringWorker) insertOutcomes(ctx context.Context, tx pgx.Tx, result *model.ScoredResult) error {
	n := len(result.Outcomes)
	positions := make([]int, 0, n)
	questionIDs := make([]uuid.UUID, 0, n)
	userAnswers := make([]string, 0, n)
	correctAnswers := make([]string, 0, n)
	corrects := make([]bool, 0, n)
	answereds := make([]bool, 0, n)
	overPaces := make([]bool, 0, n)

	for _, out := range result.Outcomes {
		positions = append(positions, out.Position)
		questionIDs = append(questionIDs, out.QuestionID)
		userAnswers = append(userAnswers, out.UserAnswer)
		correctAnswers = append(correctAnswers, out.CorrectAnswer)
		corrects = append(corrects, out.IsCorrect)
		answereds = append(answereds, out.Answered)
		overPaces = append(overPaces, out.OverPace)
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO result_outcomes
		   (session_id, position, question_id, user_answer, correct_answer, is_correct, answered, over_pace)
		 SELECT $1, u.position, u.question_id, u.user_answer, u.correct_answer, u.is_correct, u.answered, u.over_pace
		 FROM UNNEST(
			$2::int[],
			$3::uuid[],
			$4::text[],
			$5::text[],
			$6::bool[],
			$7::bool[],
			$8::bool[]
		 ) AS u (position, question_id, user_answer, correct_answer, is_correct, answered, over_pace)
		 ON CONFLICT (session_id, position) DO NOTHING`,
		result.SessionID, positions, questionIDs, userAnswers, correctAnswers, corrects, answereds, overPaces)
	return err
}

// applyBankEvents folds the scored outcomes into the user's error bank:
// failures are upserted, correct answers resolve any open record.
func (w *ScoringWorker) applyBankEvents(ctx context.Context, tx pgx.Tx, session *model.ExamSession, result *model.ScoredResult) error {
	for _, ev := range scoring.BankEvents(*result) {
		var err error
		if ev.Failed {
			_, err = tx.Exec(ctx,
				`INSERT INTO error_records (user_id, question_id, times_failed, last_failed_at, resolved)
				 VALUES ($1, $2, 1, $3, FALSE)
				 ON CONFLICT (user_id, question_id) DO UPDATE
				 SET times_failed = error_records.times_failed + 1,
				     last_failed_at = EXCLUDED.last_failed_at,
				     resolved = FALSE`,
				session.Config.UserID, ev.QuestionID, result.ScoredAt)
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE error_records SET resolved = TRUE
				 WHERE user_id = $1 AND question_id = $2 AND resolved = FALSE`,
				session.Config.UserID, ev.QuestionID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *ScoringWorker) clearSnapshot(ctx context.Context, sessionID uuid.UUID) {
	id := sessionID.String()
	_ = w.rdb.Del(ctx,
		config.CacheKey.SessionAnswersKey(id),
		config.CacheKey.SessionPaceKey(id),
	).Err()
}
