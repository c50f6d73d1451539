package leaderboard

import (
	"sort"

	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/internal/domain/types"
)

// AssignRanks returns a copy of entries ordered by metric and ranked with
// standard competition ranking. Averages and consistency rank ascending;
// every other metric ranks descending. Equal values keep their input order.
func AssignRanks(entries []types.LeaderboardEntry, metric Metric) []types.LeaderboardEntry {
	ranked := make([]types.LeaderboardEntry, len(entries))
	copy(ranked, entries)
	asc := metric.Ascending()

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := metric.Value(&ranked[i]), metric.Value(&ranked[j])
		if asc {
			return a < b
		}
		return a > b
	})

	ranks := scoring.CompetitionRanks(len(ranked), func(i int) bool {
		return metric.Value(&ranked[i]) == metric.Value(&ranked[i-1])
	})
	for i := range ranked {
		ranked[i].Rank = ranks[i]
	}
	return ranked
}
