package leaderboard

import (
	"math"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

type submissionKey struct {
	round model.RoundID
	uri   string
}

// voteTally holds per-competitor counts over positive votes only.
// Zero-point votes exist to carry a comment and are never counted here.
type voteTally struct {
	received map[model.CompetitorID]int
	castSum  map[model.CompetitorID]int
	castN    map[model.CompetitorID]int
}

func tallyVotes(votes []model.Vote, submissions []model.Submission) voteTally {
	submitter := make(map[submissionKey]model.CompetitorID, len(submissions))
	for _, s := range submissions {
		submitter[submissionKey{round: s.RoundID, uri: s.URI}] = s.SubmitterID
	}

	t := voteTally{
		received: make(map[model.CompetitorID]int),
		castSum:  make(map[model.CompetitorID]int),
		castN:    make(map[model.CompetitorID]int),
	}
	for _, v := range votes {
		if v.Points <= 0 {
			continue
		}
		t.castSum[v.VoterID] += v.Points
		t.castN[v.VoterID]++
		if id, ok := submitter[submissionKey{round: v.RoundID, uri: v.SubmissionURI}]; ok {
			t.received[id]++
		}
	}
	return t
}

// BuildEntries derives unranked leaderboard entries for every competitor
// that passes f and has at least one performance. votes and submissions
// must already be restricted to the filtered round set.
func BuildEntries(
	competitors []model.Competitor,
	perfs *Performances,
	votes []model.Vote,
	submissions []model.Submission,
	f CompetitorFilter,
) []types.LeaderboardEntry {
	excluded := make(map[model.CompetitorID]struct{}, len(f.ExcludeIDs))
	for _, id := range f.ExcludeIDs {
		excluded[id] = struct{}{}
	}
	minimum := max(f.MinParticipation, 1)

	tally := tallyVotes(votes, submissions)

	entries := make([]types.LeaderboardEntry, 0, len(competitors))
	seen := make(map[model.CompetitorID]struct{}, len(competitors))
	for _, c := range competitors {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		history := perfs.For(c.ID)
		if len(history) < minimum {
			continue
		}
		entries = append(entries, buildEntry(c, history, tally))
	}
	return entries
}

func buildEntry(c model.Competitor, history []types.RoundPerformance, tally voteTally) types.LeaderboardEntry {
	n := len(history)
	var points, wins, podiums int
	positions := make([]float64, n)
	for i, p := range history {
		points += p.PointsReceived
		if p.Position == 1 {
			wins++
		}
		if p.Position <= 3 {
			podiums++
		}
		positions[i] = float64(p.Position)
	}
	mean, stddev := meanStdDev(positions)

	var avgCast float64
	if cast := tally.castN[c.ID]; cast > 0 {
		avgCast = float64(tally.castSum[c.ID]) / float64(cast)
	}

	return types.LeaderboardEntry{
		CompetitorID:       c.ID,
		CompetitorName:     c.Name,
		TotalPoints:        points,
		WinRate:            float64(wins) / float64(n),
		PodiumRate:         float64(podiums) / float64(n),
		AveragePosition:    mean,
		ConsistencyScore:   stddev,
		RoundsParticipated: n,
		VotesReceived:      tally.received[c.ID],
		AvgVoteCast:        avgCast,
		Performances:       append([]types.RoundPerformance(nil), history...),
	}
}

// meanStdDev returns the mean and population standard deviation of xs.
func meanStdDev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
