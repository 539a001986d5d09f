package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/brightlearn/tutoring-backend/internal/middleware"
	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/quiz"
	"github.com/brightlearn/tutoring-backend/internal/response"
	"github.com/brightlearn/tutoring-backend/internal/service"
	"github.com/brightlearn/tutoring-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AttemptHandler handles the student quiz attempt endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
	quizService    *service.QuizService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, quizService *service.QuizService, rdb *redis.Client) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		quizService:    quizService,
		rdb:            rdb,
		log:            log.With().Str("component", "attempt_handler").Logger(),
	}
}

// ListChapters godoc
// GET /api/v1/student/quiz/chapters
// Lists the chapters of the student's course, flagging attempted ones.
func (h *AttemptHandler) ListChapters(c *gin.Context) {
	claims := middleware.GetClaims(c)

	chapters, err := h.quizService.ListChapters(c.Request.Context(), claims.CourseID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	attempts, err := h.attemptService.ListAttempts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	scores := make(map[string]int, len(attempts))
	for _, a := range attempts {
		scores[a.Chapter] = a.Score
	}

	type chapterEntry struct {
		Chapter   string `json:"chapter"`
		Attempted bool   `json:"attempted"`
		Score     *int   `json:"score,omitempty"`
	}
	out := make([]chapterEntry, 0, len(chapters))
	for _, ch := range chapters {
		entry := chapterEntry{Chapter: ch}
		if score, ok := scores[ch]; ok {
			entry.Attempted = true
			entry.Score = &score
		}
		out = append(out, entry)
	}

	response.Success(c, http.StatusOK, gin.H{"chapters": out})
}

// Start godoc
// POST /api/v1/student/quiz/start
// Begins a fresh attempt for a chapter and returns the generated quiz.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.StartQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	payload, err := h.attemptService.Start(c.Request.Context(), claims.UserID, claims.BatchID, claims.CourseID, req.Chapter)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusCreated, payload)
}

// Resume godoc
// GET /api/v1/student/quiz/session?chapter=...
// Returns the student's running session for a chapter, for reconnecting
// clients. Saved answers are fetched via State.
func (h *AttemptHandler) Resume(c *gin.Context) {
	claims := middleware.GetClaims(c)

	chapter := c.Query("chapter")
	if chapter == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	payload, err := h.attemptService.Resume(claims.UserID, chapter)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// State godoc
// GET /api/v1/student/quiz/:sessionID/state
// Returns the countdown and answer progress of a session.
func (h *AttemptHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)

	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.attemptService.State(sessionID, claims.UserID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// PUT /api/v1/student/quiz/:sessionID/answers
// Records the selection set for one question. The answer is also mirrored
// into Redis and queued for database persistence as an audit trail.
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveAnswer(sessionID, claims.UserID, req.QuestionNum, req.Selections); err != nil {
		h.failAttempt(c, err)
		return
	}

	h.mirrorAnswer(c, sessionID, claims.UserID, req.QuestionNum, req.Selections)
	response.Success(c, http.StatusOK, gin.H{"question_num": req.QuestionNum})
}

// Submit godoc
// POST /api/v1/student/quiz/:sessionID/submit
// Grades the attempt and records it. Rejected while any question is
// unanswered; a ledger failure keeps the session alive for a retry.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	rec, err := h.attemptService.Submit(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	h.clearSessionAnswers(c, sessionID)
	response.Success(c, http.StatusOK, rec)
}

// Cancel godoc
// POST /api/v1/student/quiz/:sessionID/cancel
// Abandons the session without recording an attempt.
func (h *AttemptHandler) Cancel(c *gin.Context) {
	claims := middleware.GetClaims(c)

	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.attemptService.Cancel(sessionID, claims.UserID); err != nil {
		h.failAttempt(c, err)
		return
	}

	h.clearSessionAnswers(c, sessionID)
	response.Success(c, http.StatusOK, gin.H{})
}

// ListAttempts godoc
// GET /api/v1/student/quiz/attempts
// Lists the student's recorded attempts, newest first.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attempts, err := h.attemptService.ListAttempts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// mirrorAnswer writes the answer to the Redis session hash and queues it for
// database persistence. Both are best-effort; the in-memory session already
// holds the answer.
func (h *AttemptHandler) mirrorAnswer(c *gin.Context, sessionID uuid.UUID, studentID, questionNum int, selections []int) {
	ctx := c.Request.Context()

	sels, err := json.Marshal(selections)
	if err != nil {
		return
	}
	key := config.CacheKey.SessionAnswersKey(sessionID)
	if err := h.rdb.HSet(ctx, key, questionNum, sels).Err(); err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to mirror answer to Redis")
	}

	payload, err := json.Marshal(gin.H{
		"session_id":   sessionID.String(),
		"student_id":   studentID,
		"question_num": questionNum,
		"selections":   selections,
	})
	if err != nil {
		return
	}
	if err := h.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to queue answer for persistence")
	}
}

// clearSessionAnswers drops the Redis answer mirror once a session ends.
func (h *AttemptHandler) clearSessionAnswers(c *gin.Context, sessionID uuid.UUID) {
	key := config.CacheKey.SessionAnswersKey(sessionID)
	if err := h.rdb.Del(c.Request.Context(), key).Err(); err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to clear session answers")
	}
}

// failAttempt maps attempt errors onto API error codes.
func (h *AttemptHandler) failAttempt(c *gin.Context, err error) {
	var incomplete *service.IncompleteAnswersError

	switch {
	case errors.Is(err, service.ErrAlreadyAttempted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
	case errors.Is(err, quiz.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
	case errors.Is(err, quiz.ErrActiveSession):
		response.Fail(c, http.StatusConflict, response.ErrActiveQuizSession)
	case errors.As(err, &incomplete):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrIncompleteAnswers,
			map[string]string{"unanswered": err.Error()})
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, quiz.ErrSessionClosed), errors.Is(err, quiz.ErrSubmitInProgress):
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
	case errors.Is(err, quiz.ErrQuestionOutOfRange), errors.Is(err, quiz.ErrOptionOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	case errors.Is(err, service.ErrSubmissionFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrSubmissionFailed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
