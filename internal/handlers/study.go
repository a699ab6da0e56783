package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/middleware"
	"studycoach-backend/internal/models"
	"studycoach-backend/internal/services"
)

type studyService interface {
	CreateSession(ctx context.Context, owner string, req models.CreateSessionRequest) (uuid.UUID, error)
	GetActiveSession(ctx context.Context, owner string) (*models.ActiveSession, error)
	CompleteTask(ctx context.Context, owner string, sessionID uuid.UUID, taskIndex int, timeSpent *int) error
	CompleteSession(ctx context.Context, owner string, sessionID uuid.UUID, confidence int, quizScore *int) error
	CompleteSessionWithAnswers(ctx context.Context, owner string, sessionID uuid.UUID, confidence int, answers []int) (int, error)
	GetRevisionSchedule(ctx context.Context, owner string) ([]*models.RevisionEntry, error)
	CompleteRevision(ctx context.Context, owner string, revisionID uuid.UUID) error
}

type statsService interface {
	Location(name string) (*time.Location, error)
	GetUserStats(ctx context.Context, owner string, loc *time.Location) (*models.UserStats, error)
	GetSessionHistory(ctx context.Context, owner string) ([]*models.StudySession, error)
}

type StudyHandler struct {
	study studyService
	stats statsService
	log   *logger.Logger
}

func NewStudyHandler(study studyService, stats statsService, log *logger.Logger) *StudyHandler {
	return &StudyHandler{study: study, stats: stats, log: log}
}

// CreateSession POST /api/v1/sessions
func (h *StudyHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid request body", r))
		return
	}

	id, err := h.study.CreateSession(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session_id": id})
}

// ActiveSession GET /api/v1/sessions/active
func (h *StudyHandler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.study.GetActiveSession(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// History GET /api/v1/sessions/history
func (h *StudyHandler) History(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.stats.GetSessionHistory(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// CompleteTask POST /api/v1/sessions/{id}/tasks/{index}/complete
func (h *StudyHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, ok := uuidParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid session ID", r))
		return
	}
	taskIndex, ok := intParam(r, "index")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid task index", r))
		return
	}

	var req models.CompleteTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid request body", r))
		return
	}

	if err := h.study.CompleteTask(r.Context(), userID, sessionID, taskIndex, req.TimeSpent); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CompleteSession POST /api/v1/sessions/{id}/complete
// Raw quiz answers take precedence over a client-side score.
func (h *StudyHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, ok := uuidParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid session ID", r))
		return
	}

	var req models.CompleteSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid request body", r))
		return
	}

	resp := models.CompleteSessionResponse{Success: true}
	if len(req.QuizAnswers) > 0 {
		score, err := h.study.CompleteSessionWithAnswers(r.Context(), userID, sessionID, req.ConfidenceScore, req.QuizAnswers)
		if err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		resp.QuizScore = &score
	} else {
		if err := h.study.CompleteSession(r.Context(), userID, sessionID, req.ConfidenceScore, req.QuizScore); err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		resp.QuizScore = req.QuizScore
	}
	if resp.QuizScore != nil {
		resp.ScoreMessage = services.ScoreMessage(*resp.QuizScore)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Revisions GET /api/v1/revisions
func (h *StudyHandler) Revisions(w http.ResponseWriter, r *http.Request) {
	revisions, err := h.study.GetRevisionSchedule(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if revisions == nil {
		revisions = []*models.RevisionEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"revisions": revisions})
}

// CompleteRevision POST /api/v1/revisions/{id}/complete
func (h *StudyHandler) CompleteRevision(w http.ResponseWriter, r *http.Request) {
	revisionID, ok := uuidParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid revision ID", r))
		return
	}

	if err := h.study.CompleteRevision(r.Context(), middleware.GetUserID(r.Context()), revisionID); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Stats GET /api/v1/stats?tz=Europe/Berlin
func (h *StudyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	loc, err := h.stats.Location(r.URL.Query().Get("tz"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	stats, err := h.stats.GetUserStats(r.Context(), middleware.GetUserID(r.Context()), loc)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}
