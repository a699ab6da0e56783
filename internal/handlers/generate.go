package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/middleware"
	"studycoach-backend/internal/models"
)

type generator interface {
	GenerateTasks(ctx context.Context, req models.StudyRequest) (*models.TaskPlan, error)
	GenerateQuiz(ctx context.Context, subject, topic string) (*models.Quiz, error)
}

type quizCacher interface {
	CacheQuiz(ctx context.Context, owner string, sessionID uuid.UUID, quiz *models.Quiz) error
}

type GenerateHandler struct {
	gen     generator
	quizzes quizCacher
	log     *logger.Logger
}

func NewGenerateHandler(gen generator, quizzes quizCacher, log *logger.Logger) *GenerateHandler {
	return &GenerateHandler{gen: gen, quizzes: quizzes, log: log}
}

// Study POST /api/v1/generate/study
func (h *GenerateHandler) Study(w http.ResponseWriter, r *http.Request) {
	var req models.StudyRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid request body", r))
		return
	}

	plan, err := h.gen.GenerateTasks(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	h.log.Info("study plan generated",
		"user_id", middleware.GetUserID(r.Context()),
		"subject", req.Subject,
		"tasks", len(plan.Tasks),
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tasks":   plan.Tasks,
	})
}

// Quiz POST /api/v1/generate/quiz
// With a session_id the quiz is cached so the session can later be completed with raw answers.
func (h *GenerateHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuizRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid request body", r))
		return
	}

	quiz, err := h.gen.GenerateQuiz(r.Context(), req.Subject, req.Topic)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	if req.SessionID != nil && h.quizzes != nil {
		if err := h.quizzes.CacheQuiz(r.Context(), middleware.GetUserID(r.Context()), *req.SessionID, quiz); err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, quiz)
}
