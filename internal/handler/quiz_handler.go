package handler

import (
	"net/http"
	"strconv"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/repository"
	"github.com/brightlearn/tutoring-backend/internal/response"
	"github.com/brightlearn/tutoring-backend/internal/service"
	"github.com/brightlearn/tutoring-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuizHandler handles the admin quiz management endpoints.
type QuizHandler struct {
	quizService *service.QuizService
	attemptRepo *repository.AttemptRepository
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, attemptRepo *repository.AttemptRepository) *QuizHandler {
	return &QuizHandler{quizService: quizService, attemptRepo: attemptRepo}
}

// Create godoc
// POST /api/v1/admin/quizzes
func (h *QuizHandler) Create(c *gin.Context) {
	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), &req)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"questions": err.Error()})
		return
	}

	response.Success(c, http.StatusCreated, quiz)
}

// Get godoc
// GET /api/v1/admin/quizzes/:quizID
func (h *QuizHandler) Get(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quizID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	quiz, questions, err := h.quizService.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"quiz":      quiz,
		"questions": questions,
	})
}

// List godoc
// GET /api/v1/admin/quizzes?course_id=...
func (h *QuizHandler) List(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Query("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	quizzes, err := h.quizService.ListQuizzes(c.Request.Context(), courseID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// Update godoc
// PUT /api/v1/admin/quizzes/:quizID
func (h *QuizHandler) Update(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quizID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.UpdateQuiz(c.Request.Context(), quizID, &req)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, quiz)
}

// Delete godoc
// DELETE /api/v1/admin/quizzes/:quizID
func (h *QuizHandler) Delete(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quizID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.quizService.DeleteQuiz(c.Request.Context(), quizID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AddQuestion godoc
// POST /api/v1/admin/quizzes/:quizID/questions
func (h *QuizHandler) AddQuestion(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quizID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.quizService.AddQuestion(c.Request.Context(), quizID, &req)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"question": err.Error()})
		return
	}

	response.Success(c, http.StatusCreated, question)
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/quizzes/:quizID/questions
// Atomically replaces the full question set of a quiz.
func (h *QuizHandler) ReplaceQuestions(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quizID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.quizService.ReplaceQuestions(c.Request.Context(), quizID, &req)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"questions": err.Error()})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetResults godoc
// GET /api/v1/admin/results?page=&per_page=&batch_id=&chapter=
// Paginated attempt results across students, with optional filters.
func (h *QuizHandler) GetResults(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var batchID *int
	if raw := c.Query("batch_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		batchID = &id
	}

	var chapter *string
	if raw := c.Query("chapter"); raw != "" {
		chapter = &raw
	}

	results, total, err := h.attemptRepo.ListResults(c.Request.Context(), page, perPage, batchID, chapter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}
