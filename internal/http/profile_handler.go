package http

import (
	"net/http"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// SignIn creates the caller's profile on first use. The token was already verified by AuthMiddleware.
func (h *ProfileHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	p, err := h.profiles.GetOrCreateProfile(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var upd domain.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		badJSON(w, err)
		return
	}
	p, err := h.profiles.UpdateProfile(r.Context(), userID, upd)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
