package handler

import (
	"errors"
	"net/http"

	"github.com/brightlearn/tutoring-backend/internal/middleware"
	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/response"
	"github.com/brightlearn/tutoring-backend/internal/service"
	"github.com/brightlearn/tutoring-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	studentService *service.StudentService
	adminService   *service.AdminService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	studentService *service.StudentService,
	adminService *service.AdminService,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		studentService: studentService,
		adminService:   adminService,
	}
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Validates email + password, rejects if another session is active, returns JWT.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(student.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	batch, err := h.studentService.GetBatch(c.Request.Context(), student.BatchID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	token, err := h.authService.GenerateStudentToken(c.Request.Context(), student.ID, batch.ID, batch.CourseID)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.StudentLoginResponse{
		Token:   token,
		Student: *student,
	})
}

// StudentLogout godoc
// POST /api/v1/auth/student/logout
// Releases the student's single-device session.
func (h *AuthHandler) StudentLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetStudentProfile godoc
// GET /api/v1/auth/student/me
// Returns the profile of the currently authenticated student.
func (h *AuthHandler) GetStudentProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates email + password, returns JWT. Admin logins are not single-device.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.adminService.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateAdminToken(admin.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.AdminLoginResponse{
		Token: token,
		Admin: *admin,
	})
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
// Returns the profile of the currently authenticated admin.
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	admin, err := h.adminService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"admin": admin})
}
