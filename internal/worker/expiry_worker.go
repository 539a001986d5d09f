package worker

import (
	"context"
	"time"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/brightlearn/tutoring-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ExpiryWorker sweeps the session store once a second and auto-submits any
// running session whose countdown reached zero. Unanswered questions are
// scored as wrong by the grading path.
type ExpiryWorker struct {
	attemptService *service.AttemptService
	rdb            *redis.Client
	interval       time.Duration
	log            zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(attemptService *service.AttemptService, rdb *redis.Client) *ExpiryWorker {
	return &ExpiryWorker{
		attemptService: attemptService,
		rdb:            rdb,
		interval:       time.Second,
		log:            log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case now := <-ticker.C:
			w.sweep(ctx, now)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context, now time.Time) {
	for _, sess := range w.attemptService.ExpiredSessions(now) {
		rec, err := w.attemptService.SubmitExpired(ctx, sess)
		if err != nil {
			// BeginSubmit losses mean a manual submit is racing us; a
			// ledger failure left the session RUNNING and the next sweep
			// retries it.
			w.log.Warn().Err(err).
				Str("session_id", sess.ID.String()).
				Int("student_id", sess.StudentID).
				Msg("Auto-submit failed")
			continue
		}

		if err := w.rdb.Del(ctx, config.CacheKey.SessionAnswersKey(sess.ID)).Err(); err != nil {
			w.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to clear session answers")
		}

		w.log.Info().
			Str("session_id", sess.ID.String()).
			Int("student_id", sess.StudentID).
			Str("chapter", sess.Chapter).
			Int("score", rec.Score).
			Msg("Session auto-submitted on expiry")
	}
}
