package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AnswerWorker consumes the persist queue and UPSERTs autosaved answers to
// PostgreSQL. The table is an audit trail of selections during the attempt;
// grading never reads it.
type AnswerWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(pool *pgxpool.Pool, rdb *redis.Client) *AnswerWorker {
	return &AnswerWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "answer_worker").Logger(),
	}
}

type answerPayload struct {
	SessionID   string `json:"session_id"`
	StudentID   int    `json:"student_id"`
	QuestionNum int    `json:"question_num"`
	Selections  []int  `json:"selections"`
}

// Start begins the worker loop. Call in a goroutine; returns after draining
// when ctx is cancelled.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item arrives or the 1 second timeout passes.
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var payload answerPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistAnswer(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Int("student_id", payload.StudentID).
			Str("session_id", payload.SessionID).
			Msg("Persist error, retrying in 5s")
		// Push back to the queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *AnswerWorker) persistAnswer(ctx context.Context, p *answerPayload) error {
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return err
	}

	selections, err := json.Marshal(p.Selections)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO session_answers (session_id, student_id, question_num, selections)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, question_num) DO UPDATE
		 SET selections = EXCLUDED.selections, updated_at = NOW()`,
		sessionID, p.StudentID, p.QuestionNum, selections,
	)
	return err
}

// drain processes all remaining queue items before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var payload answerPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			continue
		}
		if err := w.persistAnswer(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			continue
		}
		drained++
	}
	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained queued answers")
	}
}
