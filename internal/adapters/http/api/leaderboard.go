package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

// leaderboardResponse is the body of GET /leaderboard. IsLoading is always
// false: a body is only written once the computation has finished.
type leaderboardResponse struct {
	Entries    []types.LeaderboardEntry `json:"entries"`
	Statistics types.Statistics         `json:"statistics"`
	IsLoading  bool                     `json:"isLoading"`
	Error      string                   `json:"error"`
}

// LeaderboardHandler serves ranked queries.
type LeaderboardHandler struct {
	deps    Dependencies
	timeout time.Duration
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, timeout time.Duration) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, timeout: timeout}
}

// HandleGetLeaderboard handles GET /leaderboard.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	profile, q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	res, err := h.deps.Leaderboard(ctx, profile, q)
	if err != nil {
		status, code := statusFor(err)
		var fe *service.FetchError
		if status == http.StatusBadGateway && errors.As(err, &fe) {
			writeJSON(w, status, leaderboardResponse{Entries: []types.LeaderboardEntry{}, Error: fe.Error()})
			return
		}
		writeError(w, status, code, classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: res.Entries, Statistics: res.Statistics})
}

// HandleGetRank handles GET /rank/{competitor_id}.
func (h *LeaderboardHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	id := strings.TrimSpace(r.PathValue("competitor_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	profile, q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	entry, err := h.deps.Rank(ctx, profile, model.CompetitorID(id), q)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

