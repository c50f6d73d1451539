package api

import (
	"net/http"
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// ProfilesHandler lists stored leagues.
type ProfilesHandler struct {
	deps    Dependencies
	timeout time.Duration
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps Dependencies, timeout time.Duration) *ProfilesHandler {
	return &ProfilesHandler{deps: deps, timeout: timeout}
}

// HandleGetProfiles handles GET /profiles.
func (h *ProfilesHandler) HandleGetProfiles(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profiles"
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	profiles, err := h.deps.Profiles(ctx)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, classify(op, err))
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}
