package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/tally/internal/domain/leaderboard"
	"github.com/okian/tally/internal/domain/model"
)

// Query string parameters.
const (
	paramProfile          = "profile"
	paramMetric           = "metric"
	paramMinParticipation = "min_participation"
	paramExclude          = "exclude"
	paramFrom             = "from"
	paramTo               = "to"
	paramRoundIDs         = "round_ids"
)

// parseQuery reads the profile and leaderboard query from v. An absent
// metric is left empty for the service default.
func parseQuery(v url.Values) (model.ProfileID, leaderboard.Query, error) {
	var q leaderboard.Query

	if s := strings.TrimSpace(v.Get(paramMetric)); s != "" {
		m, err := leaderboard.ParseMetric(s)
		if err != nil {
			return "", q, err
		}
		q.Metric = m
	}

	if s := strings.TrimSpace(v.Get(paramMinParticipation)); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return "", q, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, paramMinParticipation)
		}
		q.Competitors.MinParticipation = n
	}

	for _, id := range splitList(v.Get(paramExclude)) {
		q.Competitors.ExcludeIDs = append(q.Competitors.ExcludeIDs, model.CompetitorID(id))
	}
	for _, id := range splitList(v.Get(paramRoundIDs)) {
		q.Time.RoundIDs = append(q.Time.RoundIDs, model.RoundID(id))
	}

	var err error
	if q.Time.From, err = parseTime(v, paramFrom); err != nil {
		return "", q, err
	}
	if q.Time.To, err = parseTime(v, paramTo); err != nil {
		return "", q, err
	}

	return model.ProfileID(strings.TrimSpace(v.Get(paramProfile))), q, nil
}

func parseTime(v url.Values, name string) (*time.Time, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", ErrBadRequest, name)
	}
	return &t, nil
}

// splitList splits a comma separated parameter, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
