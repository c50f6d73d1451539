package leaderboard

import (
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// TimeFilter narrows the round set. Bounds are inclusive and optional.
// A non-empty RoundIDs list is intersected with the date bounds.
type TimeFilter struct {
	From     *time.Time
	To       *time.Time
	RoundIDs []model.RoundID `validate:"dive,required"`
}

// CompetitorFilter narrows the competitor set.
type CompetitorFilter struct {
	// MinParticipation is the minimum number of positioned rounds required.
	MinParticipation int                  `validate:"gte=0"`
	ExcludeIDs       []model.CompetitorID `validate:"dive,required"`
}

// ResolveRounds returns the rounds that satisfy every constraint of f, in
// input order. A repeated round id is kept once.
func ResolveRounds(rounds []model.Round, f TimeFilter) []model.Round {
	var allowed map[model.RoundID]struct{}
	if len(f.RoundIDs) > 0 {
		allowed = make(map[model.RoundID]struct{}, len(f.RoundIDs))
		for _, id := range f.RoundIDs {
			allowed[id] = struct{}{}
		}
	}

	out := make([]model.Round, 0, len(rounds))
	seen := make(map[model.RoundID]struct{}, len(rounds))
	for _, r := range rounds {
		if f.From != nil && r.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && r.CreatedAt.After(*f.To) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[r.ID]; !ok {
				continue
			}
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
