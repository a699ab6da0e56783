package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studycoach-backend/internal/handlers"
	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/middleware"
	"studycoach-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	studyHandler *handlers.StudyHandler,
	generateHandler *handlers.GenerateHandler,
	userHandler *handlers.UserHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	generatePerMinute int,
	log *logger.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	generateLimiter := middleware.NewRateLimiter(generatePerMinute, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", handlers.Catalog)

		// ──── Generation (LLM backed) ────
		r.Route("/generate", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(generateLimiter.Middleware)
			r.Post("/study", generateHandler.Study)
			r.Post("/quiz", generateHandler.Quiz)
		})

		// ──── Study Sessions ────
		r.Route("/sessions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Optional)
				r.Get("/active", studyHandler.ActiveSession)
				r.Get("/history", studyHandler.History)
			})

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/", studyHandler.CreateSession)
				r.Post("/{id}/tasks/{index}/complete", studyHandler.CompleteTask)
				r.Post("/{id}/complete", studyHandler.CompleteSession)
			})
		})

		// ──── Revisions ────
		r.Route("/revisions", func(r chi.Router) {
			r.With(jwtAuth.Optional).Get("/", studyHandler.Revisions)
			r.With(jwtAuth.Middleware).Post("/{id}/complete", studyHandler.CompleteRevision)
		})

		// ──── Dashboard ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Optional)
			r.Get("/stats", studyHandler.Stats)
			r.Get("/profile", studyHandler.Profile)
		})

		// ──── Users ────
		r.Route("/users", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/sync", userHandler.Sync)
			r.Get("/me", userHandler.Me)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
