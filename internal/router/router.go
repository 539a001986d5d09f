package router

import (
	"net/http"
	"time"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/brightlearn/tutoring-backend/internal/handler"
	"github.com/brightlearn/tutoring-backend/internal/middleware"
	"github.com/brightlearn/tutoring-backend/internal/response"
	"github.com/brightlearn/tutoring-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Attempt *handler.AttemptHandler
	Quiz    *handler.QuizHandler
	Student *handler.StudentHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/quiz/chapters", handlers.Attempt.ListChapters)
		studentAPI.POST("/quiz/start", handlers.Attempt.Start)
		studentAPI.GET("/quiz/session", handlers.Attempt.Resume)
		studentAPI.GET("/quiz/attempts", handlers.Attempt.ListAttempts)
		studentAPI.GET("/quiz/:sessionID/state", handlers.Attempt.State)
		studentAPI.PUT("/quiz/:sessionID/answers", handlers.Attempt.SaveAnswer)
		studentAPI.POST("/quiz/:sessionID/submit", handlers.Attempt.Submit)
		studentAPI.POST("/quiz/:sessionID/cancel", handlers.Attempt.Cancel)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/quiz/:sessionID/stream", handlers.WS.QuizSessionStream)
	}

	// ─── 4. Admin Group (Admin JWT) ────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/quizzes", handlers.Quiz.List)
		adminAPI.POST("/quizzes", handlers.Quiz.Create)
		adminAPI.GET("/quizzes/:quizID", handlers.Quiz.Get)
		adminAPI.PUT("/quizzes/:quizID", handlers.Quiz.Update)
		adminAPI.DELETE("/quizzes/:quizID", handlers.Quiz.Delete)
		adminAPI.POST("/quizzes/:quizID/questions", handlers.Quiz.AddQuestion)
		adminAPI.PUT("/quizzes/:quizID/questions", handlers.Quiz.ReplaceQuestions)

		adminAPI.GET("/results", handlers.Quiz.GetResults)

		adminAPI.GET("/students", handlers.Student.List)
		adminAPI.POST("/students", handlers.Student.Create)
		adminAPI.PUT("/students/:studentID", handlers.Student.Update)
		adminAPI.DELETE("/students/:studentID", handlers.Student.Delete)
		adminAPI.POST("/students/:studentID/reset-session", handlers.Student.ResetSession)

		adminAPI.GET("/batches", handlers.Student.ListBatches)
		adminAPI.POST("/batches", handlers.Student.CreateBatch)
		adminAPI.GET("/courses", handlers.Student.ListCourses)
	}

	return router
}
