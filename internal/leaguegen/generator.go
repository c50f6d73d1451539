// Package leaguegen generates synthetic, internally consistent leagues for
// seeding stores and exercising the standings engine.
package leaguegen

import (
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/okian/tally/internal/domain/model"
)

// idSpace namespaces the deterministic v5 ids minted by the generator.
var idSpace = uuid.MustParse("6f1c3a52-8d0e-4b7a-9a43-2f7d61c0b8e5")

const maxVoteDelayHours = 72

// Generate builds a league from cfg. The output depends only on cfg.
func Generate(cfg Config) model.Dataset {
	g := &generator{
		cfg:   cfg,
		faker: gofakeit.New(uint64(cfg.Seed)), //nolint:gosec // seed sign is irrelevant
	}
	return g.run()
}

type generator struct {
	cfg   Config
	faker *gofakeit.Faker
}

func (g *generator) id(kind string, parts ...int) string {
	key := kind + ":" + strconv.FormatInt(g.cfg.Seed, 10)
	for _, p := range parts {
		key += ":" + strconv.Itoa(p)
	}
	return uuid.NewSHA1(idSpace, []byte(key)).String()
}

func (g *generator) chance(p float64) bool {
	return g.faker.Float64() < p
}

func (g *generator) run() model.Dataset {
	var ds model.Dataset

	for i := 0; i < g.cfg.Competitors; i++ {
		ds.Competitors = append(ds.Competitors, model.Competitor{
			ID:   model.CompetitorID(g.id("competitor", i)),
			Name: g.faker.Name(),
		})
	}

	for r := 0; r < g.cfg.Rounds; r++ {
		round := model.Round{
			ID:          model.RoundID(g.id("round", r)),
			Name:        fmt.Sprintf("%s %s", g.faker.Adjective(), g.faker.Noun()),
			CreatedAt:   g.cfg.Start.Add(time.Duration(r) * g.cfg.RoundInterval),
			Description: g.faker.Phrase(),
		}
		ds.Rounds = append(ds.Rounds, round)

		subs := g.submissions(round, ds.Competitors, r)
		votes := g.votes(round, ds.Competitors, subs)

		totals := make(map[string]int, len(subs))
		for _, v := range votes {
			totals[v.SubmissionURI] += v.Points
		}
		for i := range subs {
			subs[i].TotalPoints = totals[subs[i].URI]
		}

		ds.Submissions = append(ds.Submissions, subs...)
		ds.Votes = append(ds.Votes, votes...)
	}
	return ds
}

func (g *generator) submissions(round model.Round, competitors []model.Competitor, r int) []model.Submission {
	var subs []model.Submission
	for i, c := range competitors {
		if !g.chance(g.cfg.SubmitRate) {
			continue
		}
		subs = append(subs, model.Submission{
			URI:         "spotify:track:" + g.id("track", r, i),
			RoundID:     round.ID,
			SubmitterID: c.ID,
			Title:       g.faker.Noun(),
			Album:       g.faker.Adjective(),
			Artists:     g.faker.Name(),
			CreatedAt:   round.CreatedAt.Add(time.Hour),
		})
	}
	return subs
}

func (g *generator) votes(round model.Round, competitors []model.Competitor, subs []model.Submission) []model.Vote {
	var votes []model.Vote
	for _, voter := range competitors {
		if g.chance(g.cfg.NonVoterRate) {
			continue
		}
		targets := make([]model.Submission, 0, len(subs))
		for _, s := range subs {
			if s.SubmitterID != voter.ID {
				targets = append(targets, s)
			}
		}
		if len(targets) == 0 {
			continue
		}
		g.faker.ShuffleAnySlice(targets)

		at := func() time.Time {
			return round.CreatedAt.Add(time.Duration(g.faker.Number(2, maxVoteDelayHours)) * time.Hour)
		}

		first := len(votes)
		remaining := g.cfg.PointsPerVoter
		given := 0
		for ; remaining > 0 && given < len(targets); given++ {
			pts := remaining
			if given < len(targets)-1 {
				pts = g.faker.Number(1, remaining)
			}
			remaining -= pts
			votes = append(votes, model.Vote{
				RoundID:       round.ID,
				VoterID:       voter.ID,
				SubmissionURI: targets[given].URI,
				Points:        pts,
				CreatedAt:     at(),
			})
		}

		// one vote per voter and submission; the downvote needs an untouched target
		if given < len(targets) && g.chance(g.cfg.DownvoteRate) {
			votes = append(votes, model.Vote{
				RoundID:       round.ID,
				VoterID:       voter.ID,
				SubmissionURI: targets[len(targets)-1].URI,
				Points:        -1,
				CreatedAt:     at(),
			})
		}
		if len(votes) > first && g.chance(g.cfg.CommentRate) {
			votes[first].Comment = g.faker.Phrase()
		}
	}
	return votes
}
