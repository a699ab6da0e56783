package handlers

import (
	"context"
	"net/http"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/middleware"
	"studycoach-backend/internal/models"
)

type userService interface {
	Sync(ctx context.Context, owner string, req models.SyncUserRequest) (*models.User, error)
	Me(ctx context.Context, owner string) (*models.User, error)
}

type UserHandler struct {
	users userService
	log   *logger.Logger
}

func NewUserHandler(users userService, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// Sync POST /api/v1/users/sync
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req models.SyncUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Invalid request body", r))
		return
	}

	user, err := h.users.Sync(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Me GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
