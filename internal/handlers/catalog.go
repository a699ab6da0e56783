package handlers

import (
	"net/http"

	"studycoach-backend/internal/services"
)

// Catalog GET /api/v1/catalog
func Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, services.Catalog())
}
