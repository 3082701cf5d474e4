package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/opopir/opopir-backend/internal/repository"
	"github.com/opopir/opopir-backend/internal/service"
)

const deadlinePollInterval = 1 * time.Second

// DeadlineWorker polls the deadline index and auto-submits sessions whose
// time budget has run out. The submission itself goes through the same
// guarded path as a manual submit, so a user racing the deadline can never
// produce two score jobs.
type DeadlineWorker struct {
	index    *repository.RedisDeadlineIndex
	sessions *service.SessionService
	log      zerolog.Logger
}

// NewDeadlineWorker creates a new DeadlineWorker.
func NewDeadlineWorker(index *repository.RedisDeadlineIndex, sessions *service.SessionService, log zerolog.Logger) *DeadlineWorker {
	return &DeadlineWorker{
		index:    index,
		sessions: sessions,
		log:      log.With().Str("component", "deadline_worker").Logger(),
	}
}

// Start begins the polling loop. Call in a goroutine.
func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	ticker := time.NewTicker(deadlinePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DeadlineWorker) sweep(ctx context.Context) {
	due, err := w.index.PopDue(ctx, time.Now())
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("PopDue error")
		}
		return
	}

	for _, sessionID := range due {
		session, err := w.sessions.AutoSubmit(ctx, sessionID)
		switch {
		case err == nil && session.Open():
			// Popped before the session actually expired (fractional
			// deadline or clock skew). The member is already gone from
			// the index, so put it back at the real deadline.
			_ = w.index.Schedule(ctx, sessionID, session.Deadline())
		case err == nil:
			w.log.Info().Str("session_id", sessionID.String()).Msg("Session auto-submitted")
		case errors.Is(err, service.ErrSessionNotFound):
			// Session vanished between scheduling and firing. Drop it.
		default:
			w.log.Error().Err(err).
				Str("session_id", sessionID.String()).
				Msg("Auto-submit error, rescheduling")
			// Put the deadline back so the next sweep retries.
			_ = w.index.Schedule(ctx, sessionID, time.Now())
		}
	}
}
