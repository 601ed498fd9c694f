package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/espelita/portfolio/backend/internal/model/profile"
	"github.com/espelita/portfolio/backend/pkg/utils"
)

// Handler serves the portfolio copy.
type Handler struct {
	profiles profile.Store
}

// New creates a profile handler.
func New(profiles profile.Store) *Handler {
	return &Handler{profiles: profiles}
}

// RegisterRoutes mounts GET /profile.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.handleGetProfile)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.profiles.Get())
}
