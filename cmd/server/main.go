package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/brightlearn/tutoring-backend/internal/database"
	"github.com/brightlearn/tutoring-backend/internal/handler"
	"github.com/brightlearn/tutoring-backend/internal/logger"
	"github.com/brightlearn/tutoring-backend/internal/quiz"
	"github.com/brightlearn/tutoring-backend/internal/repository"
	"github.com/brightlearn/tutoring-backend/internal/router"
	"github.com/brightlearn/tutoring-backend/internal/service"
	"github.com/brightlearn/tutoring-backend/internal/validator"
	"github.com/brightlearn/tutoring-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting BrightLearn Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	batchRepo := repository.NewBatchRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	sessions := quiz.NewStore()

	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, batchRepo, authService)
	adminService := service.NewAdminService(adminRepo, authService)
	batchService := service.NewBatchService(batchRepo)
	quizService := service.NewQuizService(quizRepo, rdb)
	attemptService := service.NewAttemptService(attemptRepo, quizService, sessions, cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, studentService, adminService),
		Attempt: handler.NewAttemptHandler(attemptService, quizService, rdb),
		Quiz:    handler.NewQuizHandler(quizService, attemptRepo),
		Student: handler.NewStudentHandler(studentService, batchService, authService),
		WS:      handler.NewWSHandler(rdb, attemptService, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	answerWorker := worker.NewAnswerWorker(pool, rdb)
	expiryWorker := worker.NewExpiryWorker(attemptService, rdb)

	go answerWorker.Start(workerCtx)
	go expiryWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load every chapter pool into Redis BEFORE accepting traffic so the
	// first attempts of the day do not stampede the database.
	if err := quizService.PrewarmPools(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the answer queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
