package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/quiz"
	"github.com/brightlearn/tutoring-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Attempt errors surfaced to the transport layer.
var (
	ErrAlreadyAttempted = errors.New("chapter already attempted")
	ErrSessionNotFound  = errors.New("quiz session not found")
	ErrNotSessionOwner  = errors.New("session does not belong to this student")
	ErrSubmissionFailed = errors.New("failed to record attempt")
)

// IncompleteAnswersError rejects a manual submit while questions remain
// unanswered. The expiry path never raises it.
type IncompleteAnswersError struct {
	Unanswered int
}

func (e *IncompleteAnswersError) Error() string {
	return fmt.Sprintf("%d questions are still unanswered", e.Unanswered)
}

// AttemptLedger is the persistence contract of the attempt engine: check for
// a prior attempt, record a new one exactly once.
type AttemptLedger interface {
	CheckAttempt(ctx context.Context, studentID, batchID int, chapter string) (*model.AttemptRecord, error)
	RecordAttempt(ctx context.Context, rec *model.AttemptRecord) error
	ListByStudent(ctx context.Context, studentID int) ([]model.AttemptRecord, error)
}

// QuestionPool supplies the flattened question pool for a course chapter.
type QuestionPool interface {
	ChapterPool(ctx context.Context, courseID int, chapter string) ([]model.Question, error)
}

// SessionPayload is the student-facing view of a freshly started session.
// Correct answers and option mappings never leave the server.
type SessionPayload struct {
	SessionID     uuid.UUID         `json:"session_id"`
	Title         string            `json:"title"`
	Chapter       string            `json:"chapter"`
	DurationSecs  int               `json:"duration_secs"`
	RemainingSecs int               `json:"remaining_secs"`
	Questions     []PayloadQuestion `json:"questions"`
}

// PayloadQuestion is one question as the student sees it.
type PayloadQuestion struct {
	Number       int      `json:"number"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
}

// SessionState is a running session's progress snapshot.
type SessionState struct {
	SessionID      uuid.UUID     `json:"session_id"`
	State          quiz.State    `json:"state"`
	RemainingSecs  int           `json:"remaining_secs"`
	TotalQuestions int           `json:"total_questions"`
	AnsweredCount  int           `json:"answered_count"`
	Answers        map[int][]int `json:"answers"`
}

// AttemptService orchestrates the quiz attempt lifecycle: start, autosave,
// submit (manual or on expiry), cancel. It owns the in-memory session store
// and enforces the one-attempt rule against the ledger.
type AttemptService struct {
	ledger       AttemptLedger
	pool         QuestionPool
	sessions     *quiz.Store
	duration     time.Duration
	maxQuestions int
	log          zerolog.Logger

	// newRand is swapped in tests for a seeded source.
	newRand func() *rand.Rand
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(ledger AttemptLedger, pool QuestionPool, sessions *quiz.Store, cfg *config.Config) *AttemptService {
	return &AttemptService{
		ledger:       ledger,
		pool:         pool,
		sessions:     sessions,
		duration:     cfg.QuizDuration,
		maxQuestions: cfg.QuizMaxQuestions,
		log:          log.With().Str("component", "attempt_service").Logger(),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// Start begins a new attempt for a chapter. The ledger is checked first so a
// student who already submitted never gets a new instance; the authoritative
// duplicate guard still lives in the ledger insert itself.
func (s *AttemptService) Start(ctx context.Context, studentID, batchID, courseID int, chapter string) (*SessionPayload, error) {
	existing, err := s.ledger.CheckAttempt(ctx, studentID, batchID, chapter)
	if err != nil {
		return nil, fmt.Errorf("check attempt: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyAttempted
	}

	pool, err := s.pool.ChapterPool(ctx, courseID, chapter)
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}

	title := fmt.Sprintf("Chapter %s Quiz", chapter)
	inst, err := quiz.Assemble(title, chapter, pool, s.maxQuestions, s.newRand())
	if err != nil {
		return nil, err
	}

	sess := quiz.NewSession(studentID, batchID, courseID, inst, s.duration)
	if err := s.sessions.Put(sess); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("student_id", studentID).
		Str("chapter", chapter).
		Int("questions", len(inst.Questions)).
		Msg("Quiz session started")
	return s.payload(sess), nil
}

// Resume returns the payload of the student's running session for a chapter,
// or ErrSessionNotFound if none exists. Lets a reconnecting client pick the
// countdown back up without losing saved answers.
func (s *AttemptService) Resume(studentID int, chapter string) (*SessionPayload, error) {
	sess, ok := s.sessions.GetByOwner(studentID, chapter)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.payload(sess), nil
}

// SaveAnswer records one question's selection set on a running session.
// Selections arrive in shuffled coordinates, exactly as displayed.
func (s *AttemptService) SaveAnswer(sessionID uuid.UUID, studentID, questionNum int, selections []int) error {
	sess, err := s.ownedSession(sessionID, studentID)
	if err != nil {
		return err
	}
	return sess.SaveAnswer(questionNum, selections)
}

// State returns the progress snapshot of a session.
func (s *AttemptService) State(sessionID uuid.UUID, studentID int) (*SessionState, error) {
	sess, err := s.ownedSession(sessionID, studentID)
	if err != nil {
		return nil, err
	}
	return &SessionState{
		SessionID:      sess.ID,
		State:          sess.State(),
		RemainingSecs:  int(sess.Remaining(time.Now()).Seconds()),
		TotalQuestions: len(sess.Instance.Questions),
		AnsweredCount:  sess.AnsweredCount(),
		Answers:        sess.Answers(),
	}, nil
}

// Submit grades and records a session at the student's request. Every
// question must be answered; the rejection message carries the count of
// unanswered ones.
func (s *AttemptService) Submit(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttemptRecord, error) {
	sess, err := s.ownedSession(sessionID, studentID)
	if err != nil {
		return nil, err
	}

	total := len(sess.Instance.Questions)
	if n := sess.AnsweredCount(); n < total {
		return nil, &IncompleteAnswersError{Unanswered: total - n}
	}

	return s.finish(ctx, sess, time.Now())
}

// SubmitExpired grades and records a session whose countdown ran out.
// Unanswered questions are scored as wrong; there is no completeness check.
// The time taken is pinned to the full duration.
func (s *AttemptService) SubmitExpired(ctx context.Context, sess *quiz.Session) (*model.AttemptRecord, error) {
	return s.finish(ctx, sess, sess.StartedAt.Add(sess.Duration))
}

// Cancel abandons a running session without recording anything. The student
// keeps their attempt and may start the chapter again later.
func (s *AttemptService) Cancel(sessionID uuid.UUID, studentID int) error {
	sess, err := s.ownedSession(sessionID, studentID)
	if err != nil {
		return err
	}
	if sess.State() == quiz.StateSubmitting {
		return quiz.ErrSubmitInProgress
	}

	sess.Close()
	s.sessions.Remove(sess.ID)
	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("student_id", studentID).
		Msg("Quiz session cancelled")
	return nil
}

// ListAttempts returns a student's recorded attempts, newest first.
func (s *AttemptService) ListAttempts(ctx context.Context, studentID int) ([]model.AttemptRecord, error) {
	return s.ledger.ListByStudent(ctx, studentID)
}

// ExpiredSessions exposes the store's expired-but-running snapshot for the
// expiry sweeper.
func (s *AttemptService) ExpiredSessions(now time.Time) []*quiz.Session {
	return s.sessions.ExpiredRunning(now)
}

// finish is the single submission path shared by manual and expiry submits.
// BeginSubmit serializes concurrent submitters; the ledger write is
// synchronous so a failure can return the session to RUNNING with its answer
// set intact.
func (s *AttemptService) finish(ctx context.Context, sess *quiz.Session, submittedAt time.Time) (*model.AttemptRecord, error) {
	if err := sess.BeginSubmit(); err != nil {
		return nil, err
	}

	// Translate saved selections from shuffled display coordinates back to
	// the pool's original option indices before grading.
	answers := make(map[int][]int)
	for num, sels := range sess.Answers() {
		q := sess.Instance.Questions[num-1]
		answers[num] = quiz.ToOriginal(q.Mapping, sels)
	}

	res := quiz.Score(sess.Instance, answers)

	timeTaken := int(submittedAt.Sub(sess.StartedAt).Seconds())
	if maxSecs := int(sess.Duration.Seconds()); timeTaken > maxSecs {
		timeTaken = maxSecs
	}
	if timeTaken < 0 {
		timeTaken = 0
	}

	rec := &model.AttemptRecord{
		StudentID:      sess.StudentID,
		BatchID:        sess.BatchID,
		Chapter:        sess.Chapter,
		TotalQuestions: res.TotalQuestions,
		CorrectCount:   res.CorrectCount,
		WrongCount:     res.WrongCount,
		Score:          res.Score,
		Answers:        buildAnswers(sess.Instance, answers),
		Questions:      snapshotQuestions(sess.Instance),
		TimeTakenSecs:  timeTaken,
	}

	if err := s.ledger.RecordAttempt(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttempt) {
			// Another submission of the same triple won the race. The
			// session is spent either way.
			sess.Close()
			s.sessions.Remove(sess.ID)
			return nil, ErrAlreadyAttempted
		}
		sess.FailSubmit()
		s.log.Error().Err(err).
			Str("session_id", sess.ID.String()).
			Int("student_id", sess.StudentID).
			Msg("Attempt ledger write failed, session kept for retry")
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	sess.Close()
	s.sessions.Remove(sess.ID)
	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("student_id", sess.StudentID).
		Str("chapter", sess.Chapter).
		Int("score", res.Score).
		Msg("Attempt recorded")
	return rec, nil
}

func (s *AttemptService) ownedSession(sessionID uuid.UUID, studentID int) (*quiz.Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.StudentID != studentID {
		return nil, ErrNotSessionOwner
	}
	return sess, nil
}

func (s *AttemptService) payload(sess *quiz.Session) *SessionPayload {
	questions := make([]PayloadQuestion, 0, len(sess.Instance.Questions))
	for _, q := range sess.Instance.Questions {
		questions = append(questions, PayloadQuestion{
			Number:       q.Number,
			QuestionText: q.Text,
			Options:      slices.Clone(q.Options),
		})
	}
	return &SessionPayload{
		SessionID:     sess.ID,
		Title:         sess.Instance.Title,
		Chapter:       sess.Chapter,
		DurationSecs:  int(sess.Duration.Seconds()),
		RemainingSecs: int(sess.Remaining(time.Now()).Seconds()),
		Questions:     questions,
	}
}

// buildAnswers records per-question selections and correctness in original
// option coordinates, for the audit trail stored with the attempt.
func buildAnswers(inst *quiz.Instance, answers map[int][]int) []model.AttemptAnswer {
	out := make([]model.AttemptAnswer, 0, len(inst.Questions))
	for _, q := range inst.Questions {
		want := quiz.ToOriginal(q.Mapping, q.Correct)
		got := answers[q.Number]
		if got == nil {
			got = []int{}
		}
		out = append(out, model.AttemptAnswer{
			QuestionID: q.ID,
			Selected:   got,
			Correct:    len(got) > 0 && slices.Equal(got, want),
		})
	}
	return out
}

// snapshotQuestions captures the questions as they were posed, restored to
// original option order so stored attempts are comparable across students.
func snapshotQuestions(inst *quiz.Instance) []model.AttemptQuestion {
	out := make([]model.AttemptQuestion, 0, len(inst.Questions))
	for _, q := range inst.Questions {
		original := make([]string, len(q.Options))
		for pos, opt := range q.Options {
			original[q.Mapping[pos]] = opt
		}
		out = append(out, model.AttemptQuestion{
			QuestionID:     q.ID,
			QuestionText:   q.Text,
			Options:        original,
			CorrectAnswers: quiz.ToOriginal(q.Mapping, q.Correct),
		})
	}
	return out
}
