package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hlmaths/practice-backend/internal/config"
	"github.com/hlmaths/practice-backend/internal/database"
	"github.com/hlmaths/practice-backend/internal/email"
	"github.com/hlmaths/practice-backend/internal/handler"
	"github.com/hlmaths/practice-backend/internal/logger"
	"github.com/hlmaths/practice-backend/internal/progress"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/hlmaths/practice-backend/internal/router"
	"github.com/hlmaths/practice-backend/internal/service"
	"github.com/hlmaths/practice-backend/internal/validator"
	"github.com/hlmaths/practice-backend/internal/worker"
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
		Msg("Starting Practice Backend")

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

	// ─── Load Paper Map ────────────────────────────────────────────────
	pm := progress.DefaultPaperMap()
	if cfg.PaperMapPath != "" {
		loaded, err := progress.LoadPaperMap(cfg.PaperMapPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PaperMapPath).Msg("Failed to load paper map")
		}
		pm = loaded
		log.Info().Int("topics", len(pm)).Str("path", cfg.PaperMapPath).Msg("Paper map loaded")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	verificationRepo := repository.NewVerificationRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)

	// ─── Initialize Mailer ─────────────────────────────────────────────
	var mailer email.Mailer
	if cfg.SendgridAPIKey != "" {
		mailer = email.NewSendgridMailer(cfg.SendgridAPIKey, cfg.EmailFrom, log)
	} else {
		log.Warn().Msg("SENDGRID_API_KEY not set, verification codes will be logged only")
		mailer = email.NewConsoleMailer(log)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, activityRepo, log)
	questionService := service.NewQuestionService(questionRepo, pm, log)
	practiceService := service.NewPracticeService(pool, rdb, attemptRepo, questionRepo, pm, log)
	verifyService := service.NewVerificationService(
		cfg, verificationRepo, service.NewRedisCooldownCache(rdb), mailer, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, userService, verifyService),
		Practice: handler.NewPracticeHandler(practiceService, userService),
		Question: handler.NewQuestionHandler(questionService),
		Admin:    handler.NewAdminHandler(userService, authService),
		WS:       handler.NewWSHandler(rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	progressWorker := worker.NewProgressWorker(pool, rdb, log)
	go progressWorker.Start(workerCtx)

	cleanupWorker := worker.NewCleanupWorker(verificationRepo, log)
	if err := cleanupWorker.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start cleanup worker")
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
	cleanupWorker.Stop()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
