package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/database"
	"github.com/examarena/examarena-backend/internal/handler"
	"github.com/examarena/examarena-backend/internal/logger"
	"github.com/examarena/examarena-backend/internal/repository"
	"github.com/examarena/examarena-backend/internal/router"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/examarena/examarena-backend/internal/validator"
	"github.com/examarena/examarena-backend/internal/worker"
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
		Msg("Starting ExamArena Backend")

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
	profileRepo := repository.NewProfileRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	leaderboardRepo := repository.NewLeaderboardRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	mediaService := service.NewMediaService(cfg)
	profileService := service.NewProfileService(profileRepo, authService, mediaService, log)
	examService := service.NewExamService(examRepo, questionRepo, attemptRepo, rdb, log)
	attemptService := service.NewAttemptService(attemptRepo, examRepo, questionRepo, examService, rdb, log)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(profileService),
		Catalog:     handler.NewCatalogHandler(examService),
		Attempt:     handler.NewAttemptHandler(attemptService),
		Leaderboard: handler.NewLeaderboardHandler(leaderboardService),
		Profile:     handler.NewProfileHandler(profileService),
		AdminExam:   handler.NewAdminExamHandler(examService, attemptService),
		Dashboard:   handler.NewDashboardHandler(dashboardService),
		WS:          handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(pool, rdb, log)
	scoringWorker := worker.NewScoringWorker(pool, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	statusWorker := worker.NewStatusWorker(examRepo, attemptRepo, examService, rdb, log)

	go autosaveWorker.Start(workerCtx)
	go scoringWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)
	go statusWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load upcoming and active exams into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := examService.PrewarmActiveCaches(ctx); err != nil {
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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
