package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studycoach-backend/internal/config"
	"studycoach-backend/internal/database"
	"studycoach-backend/internal/handlers"
	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/middleware"
	"studycoach-backend/internal/repository"
	"studycoach-backend/internal/router"
	"studycoach-backend/internal/services"
	"studycoach-backend/internal/websocket"
	"studycoach-backend/internal/worker"
)

const shutdownTimeout = 30 * time.Second

type llmProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting study coach backend", "env", cfg.Env)

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("PostgreSQL connection failed", "error", err)
	}
	defer pool.Close()
	log.Info("PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatal("Redis connection failed", "error", err)
	}
	defer redisClients.Close()
	log.Info("Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("database migration failed", "error", err)
	}
	log.Info("database migrations applied")

	statsLoc, err := time.LoadLocation(cfg.StatsTimezone)
	if err != nil {
		log.Fatal("invalid STATS_TIMEZONE", "zone", cfg.StatsTimezone, "error", err)
	}

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewStudySessionRepo(pool)
	completionRepo := repository.NewTaskCompletionRepo(pool)
	revisionRepo := repository.NewRevisionRepo(pool)

	// ──── Step 5: Initialize LLM Client ────
	var llm llmProvider
	switch cfg.LLMProvider {
	case "groq":
		llm = services.NewGroqClient(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel)
	default:
		gemini, err := services.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Fatal("Gemini client initialization failed", "error", err)
		}
		defer gemini.Close()
		llm = gemini
	}
	log.Info("LLM client initialized", "provider", cfg.LLMProvider, "concurrency", cfg.LLMConcurrentReqs)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	publisher := services.NewRedisPublisher(redisClients.Main, log)
	quizCache := services.NewRedisQuizCache(redisClients.Main, time.Duration(cfg.QuizCacheTTLMinutes)*time.Minute)
	generator := services.NewGenerator(llm, cfg.LLMConcurrentReqs, log)
	studyService := services.NewStudyService(sessionRepo, completionRepo, revisionRepo, publisher, quizCache, log)
	statsService := services.NewStatsService(sessionRepo, statsLoc)
	userService := services.NewUserService(userRepo, log)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL, log)

	// ──── Initialize Handlers ────
	studyHandler := handlers.NewStudyHandler(studyService, statsService, log)
	generateHandler := handlers.NewGenerateHandler(generator, studyService, log)
	userHandler := handlers.NewUserHandler(userService, log)

	// ──── Step 6: Start Reminder Worker Pool ────
	workerPool := worker.NewPool(redisClients.Main, emailService, revisionRepo, cfg.ReminderWorkers, log)
	workerPool.Start()

	reminderScheduler := services.NewReminderScheduler(revisionRepo, studyService, redisClients.Main, log)
	reminderScheduler.Start()

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, log)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		studyHandler,
		generateHandler,
		userHandler,
		wsHub,
		cfg.FrontendURL,
		cfg.GenerateRatePerMinute,
		log,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatal("failed to listen", "addr", server.Addr, "error", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("study coach backend ready", "addr", server.Addr, "api", "/api/v1", "ws", "/api/v1/ws")

	stopBackground := func() {
		reminderScheduler.Stop()
		workerPool.Stop()
	}
	if err := runServer(server, ln, sigChan, stopBackground, log); err != nil {
		log.Fatal("server error", "error", err)
	}
	log.Info("server stopped")
}

// runServer serves on ln until stop fires, then stops background work and
// returns only after in-flight requests have drained.
func runServer(server *http.Server, ln net.Listener, stop <-chan os.Signal, beforeShutdown func(), log *logger.Logger) error {
	shutdownErr := make(chan error, 1)
	go func() {
		<-stop
		log.Info("shutting down")
		if beforeShutdown != nil {
			beforeShutdown()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
