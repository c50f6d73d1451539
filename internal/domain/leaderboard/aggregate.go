package leaderboard

import (
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/internal/domain/types"
)

// Performances holds per-competitor round results.
type Performances struct {
	byID map[model.CompetitorID][]types.RoundPerformance
}

func newPerformances() *Performances {
	return &Performances{byID: make(map[model.CompetitorID][]types.RoundPerformance)}
}

func (p *Performances) add(id model.CompetitorID, perf types.RoundPerformance) {
	p.byID[id] = append(p.byID[id], perf)
}

// For returns the performances recorded for a competitor.
func (p *Performances) For(id model.CompetitorID) []types.RoundPerformance {
	return p.byID[id]
}

// Aggregate scores every round and records one performance per positioned
// competitor. Rounds are visited in the given order.
func Aggregate(rounds []model.Round, ix *scoring.RoundIndex) *Performances {
	perfs := newPerformances()
	for _, r := range rounds {
		result := ix.Score(r.ID)
		total := len(result.Standings)
		for _, s := range result.Standings {
			if s.Position <= 0 {
				continue
			}
			perfs.add(s.CompetitorID, types.RoundPerformance{
				RoundID:          r.ID,
				RoundName:        r.Name,
				RoundDate:        r.CreatedAt,
				PointsReceived:   s.Points,
				Position:         s.Position,
				TotalCompetitors: total,
			})
		}
	}
	return perfs
}
