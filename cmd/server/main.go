package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"neurolearn-backend/internal/cache"
	"neurolearn-backend/internal/config"
	"neurolearn-backend/internal/database"
	"neurolearn-backend/internal/handlers"
	"neurolearn-backend/internal/logging"
	"neurolearn-backend/internal/middleware"
	"neurolearn-backend/internal/repository"
	"neurolearn-backend/internal/router"
	"neurolearn-backend/internal/services"
	"neurolearn-backend/internal/websocket"
	"neurolearn-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("🚀 Starting NeuroLearn Backend...", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("✗ PostgreSQL connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("✗ Redis connection failed", zap.Error(err))
	}
	defer redisClients.Close()
	logger.Info("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, "migrations", logger); err != nil {
		logger.Fatal("✗ Database migration failed", zap.Error(err))
	}
	logger.Info("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	jobRepo := repository.NewJobRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	activityRepo := repository.NewActivityRepo(pool)

	// ──── Step 5: Initialize Gemini Clients ────
	geminiService, err := services.NewGeminiService(
		ctx,
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.GeminiTemperature,
		cfg.GeminiConcurrentReqs,
		logger,
	)
	if err != nil {
		logger.Fatal("✗ Gemini client initialization failed", zap.Error(err))
	}
	defer geminiService.Close()

	imageService, err := services.NewImageService(ctx, cfg.GeminiAPIKey, cfg.GeminiImageModel, cfg.StoragePath, cfg.GeminiConcurrentReqs, logger)
	if err != nil {
		logger.Fatal("✗ Image client initialization failed", zap.Error(err))
	}
	logger.Info("✓ Gemini clients initialized", zap.String("model", cfg.GeminiModel), zap.String("image_model", cfg.GeminiImageModel))

	// ──── Initialize Services ────
	generationCache := cache.New(redisClients.Queue, time.Duration(cfg.CacheTTLMinutes)*time.Minute, logger)
	learningService := services.NewLearningService(
		geminiService,
		imageService,
		generationCache,
		activityRepo,
		cfg.GeminiMaxAttempts,
		logger,
	)
	contentService := services.NewContentSourceService(
		services.NewFileExtractService(),
		services.NewYouTubeService(logger),
	)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		learningService,
		jobRepo,
		profileRepo,
		cfg.WorkerCount,
		logger,
	)
	workerPool.Start()
	logger.Info("✓ Worker pool started", zap.Int("workers", cfg.WorkerCount))

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, logger)
	logger.Info("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(ctx, jwtAuth, router.Handlers{
		Health: handlers.NewHealthHandler(map[string]func(ctx context.Context) error{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClients.Queue.Ping(ctx).Err()
			},
		}),
		Learning: handlers.NewLearningHandler(learningService, profileRepo, jobRepo, redisClients.Queue, logger),
		Profile:  handlers.NewProfileHandler(profileRepo),
		Activity: handlers.NewActivityHandler(activityRepo),
		Content:  handlers.NewContentHandler(contentService, "", logger),
		Jobs:     handlers.NewJobHandler(jobRepo),
	}, wsHub, router.Options{
		FrontendURL:         cfg.FrontendURL,
		StoragePath:         cfg.StoragePath,
		AIRequestsPerMinute: cfg.AIRequestsPerMinute,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		logger.Info("Shutting down...")
		workerPool.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("✓ NeuroLearn Backend ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", zap.Error(err))
	}
}
