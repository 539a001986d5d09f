package handler

import (
	"net/http"
	"strconv"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/response"
	"github.com/brightlearn/tutoring-backend/internal/service"
	"github.com/brightlearn/tutoring-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// StudentHandler handles the admin student management endpoints.
type StudentHandler struct {
	studentService *service.StudentService
	batchService   *service.BatchService
	authService    *service.AuthService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(studentService *service.StudentService, batchService *service.BatchService, authService *service.AuthService) *StudentHandler {
	return &StudentHandler{
		studentService: studentService,
		batchService:   batchService,
		authService:    authService,
	}
}

// List godoc
// GET /api/v1/admin/students?page=&per_page=&batch_id=
func (h *StudentHandler) List(c *gin.Context) {
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

	students, total, err := h.studentService.List(c.Request.Context(), page, perPage, batchID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// Create godoc
// POST /api/v1/admin/students
func (h *StudentHandler) Create(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	response.Success(c, http.StatusCreated, student)
}

// Update godoc
// PUT /api/v1/admin/students/:studentID
func (h *StudentHandler) Update(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("studentID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), studentID, &req)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, student)
}

// Delete godoc
// DELETE /api/v1/admin/students/:studentID
func (h *StudentHandler) Delete(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("studentID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), studentID); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ResetSession godoc
// POST /api/v1/admin/students/:studentID/reset-session
// Releases a student's single-device login session so they can log in again.
func (h *StudentHandler) ResetSession(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("studentID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), studentID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListBatches godoc
// GET /api/v1/admin/batches
func (h *StudentHandler) ListBatches(c *gin.Context) {
	batches, err := h.batchService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batches": batches})
}

// CreateBatch godoc
// POST /api/v1/admin/batches
func (h *StudentHandler) CreateBatch(c *gin.Context) {
	var req model.CreateBatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	batch, err := h.batchService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	response.Success(c, http.StatusCreated, batch)
}

// ListCourses godoc
// GET /api/v1/admin/courses
func (h *StudentHandler) ListCourses(c *gin.Context) {
	courses, err := h.batchService.ListCourses(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}
