package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// RoundsHandler serves per-round results.
type RoundsHandler struct {
	deps    Dependencies
	timeout time.Duration
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps Dependencies, timeout time.Duration) *RoundsHandler {
	return &RoundsHandler{deps: deps, timeout: timeout}
}

// HandleGetStandings handles GET /rounds/{round_id}/standings.
func (h *RoundsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_round_standings"
	round := strings.TrimSpace(r.PathValue("round_id"))
	if round == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	profile := model.ProfileID(strings.TrimSpace(r.URL.Query().Get(paramProfile)))

	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	standings, err := h.deps.RoundStandings(ctx, profile, model.RoundID(round))
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, standings)
}
