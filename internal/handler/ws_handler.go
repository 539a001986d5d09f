package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/brightlearn/tutoring-backend/internal/middleware"
	"github.com/brightlearn/tutoring-backend/internal/quiz"
	"github.com/brightlearn/tutoring-backend/internal/service"
	ws "github.com/brightlearn/tutoring-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a quiz session over WebSocket: real-time autosave,
// countdown pushes, and submit with instant grading.
type WSHandler struct {
	rdb            *redis.Client
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, attemptService *service.AttemptService, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:            rdb,
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// QuizSessionStream godoc
// WS /ws/v1/student/quiz/:sessionID/stream
// Upgrades to WebSocket for the lifetime of one quiz session.
func (h *WSHandler) QuizSessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID

	if _, err := h.attemptService.State(sessionID, studentID); err != nil {
		ws.WriteError(conn, "SESSION_NOT_FOUND", "no running session with this ID")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "", "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, sessionID, studentID, raw)
		case ws.ActionState:
			h.handleState(conn, sessionID, studentID)
		case ws.ActionSubmit:
			// The session is spent after a successful submit; close the
			// stream right behind the graded event.
			if done := h.handleSubmit(conn, wsLog, sessionID, studentID); done {
				return
			}
		case ws.ActionCancel:
			h.handleCancel(conn, wsLog, sessionID, studentID)
			return
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "", "unknown action: "+string(envelope.Action))
		}
	}
}

// handleAutosave saves one selection set in the session, mirrors it to Redis,
// and queues it for database persistence.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, sessionID uuid.UUID, studentID int, raw json.RawMessage) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "", "malformed autosave payload")
		return
	}

	if err := h.attemptService.SaveAnswer(sessionID, studentID, msg.QuestionNum, msg.Selections); err != nil {
		ws.WriteError(conn, wsErrCode(err), err.Error())
		return
	}

	ctx := context.Background()
	if sels, err := json.Marshal(msg.Selections); err == nil {
		key := config.CacheKey.SessionAnswersKey(sessionID)
		if err := h.rdb.HSet(ctx, key, msg.QuestionNum, sels).Err(); err != nil {
			h.log.Warn().Err(err).Int("student_id", studentID).Msg("Autosave Redis mirror failed")
		}
	}
	if payload, err := json.Marshal(map[string]interface{}{
		"session_id":   sessionID.String(),
		"student_id":   studentID,
		"question_num": msg.QuestionNum,
		"selections":   msg.Selections,
	}); err == nil {
		if err := h.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
			h.log.Warn().Err(err).Int("student_id", studentID).Msg("Autosave queue push failed")
		}
	}

	state, err := h.attemptService.State(sessionID, studentID)
	if err != nil {
		ws.WriteError(conn, wsErrCode(err), err.Error())
		return
	}
	ws.WriteTyped(conn, ws.AutosaveResponse{
		Event:         ws.EventSuccess,
		QuestionNum:   msg.QuestionNum,
		AnsweredCount: state.AnsweredCount,
	})
}

func (h *WSHandler) handleState(conn *websocket.Conn, sessionID uuid.UUID, studentID int) {
	state, err := h.attemptService.State(sessionID, studentID)
	if err != nil {
		ws.WriteError(conn, wsErrCode(err), err.Error())
		return
	}
	ws.WriteTyped(conn, ws.StateResponse{
		Event:          ws.EventState,
		State:          string(state.State),
		RemainingSecs:  state.RemainingSecs,
		TotalQuestions: state.TotalQuestions,
		AnsweredCount:  state.AnsweredCount,
		Answers:        state.Answers,
	})
}

// handleSubmit grades the session. Returns true when the session ended and
// the stream should close.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, studentID int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rec, err := h.attemptService.Submit(ctx, sessionID, studentID)
	if err != nil {
		ws.WriteError(conn, wsErrCode(err), err.Error())
		// The session survives an incomplete or failed submit.
		return false
	}

	h.rdb.Del(ctx, config.CacheKey.SessionAnswersKey(sessionID))

	wsLog.Info().Int("score", rec.Score).Msg("Attempt submitted over WebSocket")
	ws.WriteTyped(conn, ws.GradedResponse{
		Event:          ws.EventGraded,
		Score:          rec.Score,
		CorrectAnswers: rec.CorrectCount,
		WrongAnswers:   rec.WrongCount,
		TotalQuestions: rec.TotalQuestions,
		TimeTaken:      rec.TimeTakenSecs,
	})
	return true
}

func (h *WSHandler) handleCancel(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, studentID int) {
	if err := h.attemptService.Cancel(sessionID, studentID); err != nil {
		ws.WriteError(conn, wsErrCode(err), err.Error())
		return
	}

	h.rdb.Del(context.Background(), config.CacheKey.SessionAnswersKey(sessionID))
	wsLog.Info().Msg("Session cancelled over WebSocket")
	ws.WriteTyped(conn, ws.CancelledResponse{Event: ws.EventCancelled})
}

// wsErrCode maps attempt errors onto the API error codes so WebSocket
// clients can branch on the same identifiers as REST clients.
func wsErrCode(err error) string {
	var incomplete *service.IncompleteAnswersError

	switch {
	case errors.Is(err, service.ErrAlreadyAttempted):
		return "ALREADY_ATTEMPTED"
	case errors.As(err, &incomplete):
		return "INCOMPLETE_ANSWERS"
	case errors.Is(err, service.ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, service.ErrNotSessionOwner):
		return "FORBIDDEN"
	case errors.Is(err, quiz.ErrSessionClosed), errors.Is(err, quiz.ErrSubmitInProgress):
		return "SESSION_CLOSED"
	case errors.Is(err, quiz.ErrQuestionOutOfRange), errors.Is(err, quiz.ErrOptionOutOfRange):
		return "INVALID_PAYLOAD"
	case errors.Is(err, service.ErrSubmissionFailed):
		return "SUBMISSION_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}
