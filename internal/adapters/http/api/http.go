// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/tally/internal/adapters/repository"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/leaderboard"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Leaderboard(ctx context.Context, profile model.ProfileID, q leaderboard.Query) (*leaderboard.Result, error)
	Rank(ctx context.Context, profile model.ProfileID, id model.CompetitorID, q leaderboard.Query) (types.LeaderboardEntry, error)
	RoundStandings(ctx context.Context, profile model.ProfileID, round model.RoundID) ([]types.RoundStanding, error)
	Profiles(ctx context.Context) ([]model.Profile, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	roundsHandler      *RoundsHandler
	profilesHandler    *ProfilesHandler
}

// NewServer creates a new API server with all handlers. A positive
// readTimeout bounds every handler's call into deps.
func NewServer(deps Dependencies, statsProvider StatsProvider, readTimeout time.Duration) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps, readTimeout),
		roundsHandler:      NewRoundsHandler(deps, readTimeout),
		profilesHandler:    NewProfilesHandler(deps, readTimeout),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /profiles", MetricsMiddleware(s.profilesHandler.HandleGetProfiles, "profiles"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{competitor_id}", MetricsMiddleware(s.leaderboardHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /rounds/{round_id}/standings", MetricsMiddleware(s.roundsHandler.HandleGetStandings, "standings"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps an upstream error to a status code and response code.
// Not-found checks run first: an unknown profile fails every source of a
// fetch with repository.ErrNotFound.
func statusFor(err error) (int, string) {
	var fe *service.FetchError
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, leaderboard.ErrUnknownMetric),
		errors.Is(err, leaderboard.ErrInvalidQuery),
		errors.Is(err, leaderboard.ErrInvalidTimeRange):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrCompetitorNotRanked),
		errors.Is(err, service.ErrRoundNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &fe):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// classify tags an upstream failure with op, marking deadline overruns as
// ErrTimeout.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapKind(op, ErrTimeout, err)
	}
	return Wrap(op, err)
}

// withTimeout derives the handler context from r.
func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), d)
}
