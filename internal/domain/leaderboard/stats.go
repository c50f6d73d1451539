package leaderboard

import (
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

// Summarize computes aggregate counts for the filtered working set. Votes
// are counted raw, whatever their points.
func Summarize(rounds []model.Round, votes []model.Vote, competitors int) types.Statistics {
	stats := types.Statistics{
		TotalRounds:      len(rounds),
		TotalCompetitors: competitors,
		TotalVotes:       len(votes),
	}
	for i, v := range votes {
		if i == 0 {
			stats.DateRange = &types.DateRange{Earliest: v.CreatedAt, Latest: v.CreatedAt}
			continue
		}
		if v.CreatedAt.Before(stats.DateRange.Earliest) {
			stats.DateRange.Earliest = v.CreatedAt
		}
		if v.CreatedAt.After(stats.DateRange.Latest) {
			stats.DateRange.Latest = v.CreatedAt
		}
	}
	return stats
}
