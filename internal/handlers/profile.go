package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"studycoach-backend/internal/middleware"
	"studycoach-backend/internal/models"
)

// Profile GET /api/v1/profile
// Loads the dashboard aggregate concurrently. Anonymous callers get an empty profile.
func (h *StudyHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	loc, err := h.stats.Location(r.URL.Query().Get("tz"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	profile := models.Profile{
		Revisions: []*models.RevisionEntry{},
		History:   []*models.StudySession{},
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		active, err := h.study.GetActiveSession(ctx, userID)
		profile.ActiveSession = active
		return err
	})
	g.Go(func() error {
		stats, err := h.stats.GetUserStats(ctx, userID, loc)
		profile.Stats = stats
		return err
	})
	g.Go(func() error {
		revisions, err := h.study.GetRevisionSchedule(ctx, userID)
		if revisions != nil {
			profile.Revisions = revisions
		}
		return err
	})
	g.Go(func() error {
		history, err := h.stats.GetSessionHistory(ctx, userID)
		if history != nil {
			profile.History = history
		}
		return err
	})

	if err := g.Wait(); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
