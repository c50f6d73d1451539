// Package leaderboard ranks league competitors across a filtered set of rounds.
//
// Compute is a pure function of its inputs: it resolves the round filter,
// scores each round, folds the per-round positions into performance
// histories, derives metrics per competitor and assigns ranks. It performs no
// I/O and keeps no state between calls, so identical inputs always produce
// identical output.
package leaderboard

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/internal/domain/types"
)

var validate = validator.New()

// Query selects the ranking metric and the working set.
type Query struct {
	Metric      Metric `validate:"required"`
	Competitors CompetitorFilter
	Time        TimeFilter
}

// Result is the ranked leaderboard for one query.
type Result struct {
	Entries    []types.LeaderboardEntry `json:"entries"`
	Statistics types.Statistics         `json:"statistics"`
}

// Validate reports whether q can be computed.
func (q Query) Validate() error {
	if !q.Metric.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, string(q.Metric))
	}
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if q.Time.From != nil && q.Time.To != nil && q.Time.From.After(*q.Time.To) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Key returns a canonical representation of q suitable as a cache key.
// Queries that select the same working set and metric share a key.
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString(string(q.Metric))
	b.WriteString("|min=")
	b.WriteString(strconv.Itoa(q.Competitors.MinParticipation))

	exclude := make([]string, len(q.Competitors.ExcludeIDs))
	for i, id := range q.Competitors.ExcludeIDs {
		exclude[i] = string(id)
	}
	slices.Sort(exclude)
	b.WriteString("|exclude=")
	b.WriteString(strings.Join(slices.Compact(exclude), ","))

	b.WriteString("|from=")
	if q.Time.From != nil {
		b.WriteString(q.Time.From.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString("|to=")
	if q.Time.To != nil {
		b.WriteString(q.Time.To.UTC().Format(time.RFC3339Nano))
	}

	rounds := make([]string, len(q.Time.RoundIDs))
	for i, id := range q.Time.RoundIDs {
		rounds[i] = string(id)
	}
	slices.Sort(rounds)
	b.WriteString("|rounds=")
	b.WriteString(strings.Join(slices.Compact(rounds), ","))
	return b.String()
}

// Compute ranks the competitors of ds under q.
// An empty working set is not an error; it yields no entries and zeroed
// statistics.
func Compute(ds model.Dataset, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	rounds := ResolveRounds(ds.Rounds, q.Time)
	ix := scoring.Index(ds.Votes, ds.Submissions)

	var (
		votes       []model.Vote
		submissions []model.Submission
	)
	for _, r := range rounds {
		votes = append(votes, ix.VotesFor(r.ID)...)
		submissions = append(submissions, ix.SubmissionsFor(r.ID)...)
	}

	perfs := Aggregate(rounds, ix)
	entries := AssignRanks(BuildEntries(ds.Competitors, perfs, votes, submissions, q.Competitors), q.Metric)

	return Result{
		Entries:    entries,
		Statistics: Summarize(rounds, votes, len(entries)),
	}, nil
}

// Standings scores a single round of ds and attaches competitor names.
func Standings(ds model.Dataset, round model.RoundID) []types.RoundStanding {
	ix := scoring.Index(ds.Votes, ds.Submissions)
	names := ds.CompetitorNames()

	result := ix.Score(round)
	out := make([]types.RoundStanding, len(result.Standings))
	for i, s := range result.Standings {
		out[i] = types.RoundStanding{
			CompetitorID:   s.CompetitorID,
			CompetitorName: names[s.CompetitorID],
			Points:         s.Points,
			Position:       s.Position,
		}
	}
	return out
}
