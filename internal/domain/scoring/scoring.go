// Package scoring computes per-round point totals and finishing positions.
//
// A round's totals are derived from votes only. Two rules apply:
//   - a vote for a URI with no matching submission in the round is ignored;
//   - a submitter who cast no vote in the round only accrues negative votes.
//
// Positions use standard competition ranking: tied totals share a position
// and the next distinct total takes its one-based index, so [10 10 8 5]
// yields positions [1 1 3 4].
package scoring

import (
	"sort"

	"github.com/okian/tally/internal/domain/model"
)

// Points maps a competitor to its net points for one round.
type Points map[model.CompetitorID]int

// Standing is one competitor's total and finishing position in a round.
type Standing struct {
	CompetitorID model.CompetitorID
	Points       int
	Position     int
}

// Result is the scored outcome of one round.
type Result struct {
	// Standings ordered by points desc, then competitor id asc.
	Standings []Standing
	Points    Points
	Positions map[model.CompetitorID]int
}

// Position returns the finishing position of a competitor, if any.
func (r Result) Position(id model.CompetitorID) (int, bool) {
	p, ok := r.Positions[id]
	return p, ok
}

// RoundPoints computes net points per submitter from one round's votes and
// submissions. Only submitters with at least one counted vote appear.
func RoundPoints(votes []model.Vote, submissions []model.Submission) Points {
	submitterByURI := make(map[string]model.CompetitorID, len(submissions))
	for _, s := range submissions {
		submitterByURI[s.URI] = s.SubmitterID
	}

	voters := make(map[model.CompetitorID]struct{}, len(votes))
	for _, v := range votes {
		voters[v.VoterID] = struct{}{}
	}

	points := make(Points)
	for _, v := range votes {
		submitter, ok := submitterByURI[v.SubmissionURI]
		if !ok {
			continue
		}
		if _, voted := voters[submitter]; !voted && v.Points >= 0 {
			continue
		}
		points[submitter] += v.Points
	}
	return points
}

// AssignPositions orders the round totals and assigns tie-aware positions.
func AssignPositions(points Points) []Standing {
	standings := make([]Standing, 0, len(points))
	for id, p := range points {
		standings = append(standings, Standing{CompetitorID: id, Points: p})
	}

	// The id key only fixes the order among equal totals; it never changes a position.
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].CompetitorID < standings[j].CompetitorID
	})

	ranks := CompetitionRanks(len(standings), func(i int) bool {
		return standings[i].Points == standings[i-1].Points
	})
	for i := range standings {
		standings[i].Position = ranks[i]
	}
	return standings
}

// ScoreRound runs RoundPoints and AssignPositions for one round.
func ScoreRound(votes []model.Vote, submissions []model.Submission) Result {
	points := RoundPoints(votes, submissions)
	standings := AssignPositions(points)

	positions := make(map[model.CompetitorID]int, len(standings))
	for _, s := range standings {
		positions[s.CompetitorID] = s.Position
	}
	return Result{Standings: standings, Points: points, Positions: positions}
}

// CompetitionRanks returns standard competition ranks for n items that are
// already in rank order. tied(i) reports whether item i ties item i-1; it is
// never called with i == 0.
func CompetitionRanks(n int, tied func(i int) bool) []int {
	ranks := make([]int, n)
	for i := 0; i < n; i++ {
		if i > 0 && tied(i) {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}
