package leaderboard_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/domain/leaderboard"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/internal/leaguegen"
)

var (
	day1 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	day2 = day1.Add(7 * 24 * time.Hour)
)

// twoRoundLeague: round 1 is a 10-10 tie between A and B; in round 2 only A
// submits and B awards 5. A registers as a voter with a zero-point comment.
func twoRoundLeague() model.Dataset {
	return model.Dataset{
		Competitors: []model.Competitor{{ID: "A", Name: "Ann"}, {ID: "B", Name: "Bo"}},
		Rounds: []model.Round{
			{ID: "r1", Name: "Openers", CreatedAt: day1},
			{ID: "r2", Name: "Closers", CreatedAt: day2},
		},
		Submissions: []model.Submission{
			{URI: "s:a1", RoundID: "r1", SubmitterID: "A"},
			{URI: "s:b1", RoundID: "r1", SubmitterID: "B"},
			{URI: "s:a2", RoundID: "r2", SubmitterID: "A"},
		},
		Votes: []model.Vote{
			{RoundID: "r1", VoterID: "A", SubmissionURI: "s:b1", Points: 10, CreatedAt: day1.Add(time.Hour)},
			{RoundID: "r1", VoterID: "B", SubmissionURI: "s:a1", Points: 10, CreatedAt: day1.Add(2 * time.Hour)},
			{RoundID: "r2", VoterID: "B", SubmissionURI: "s:a2", Points: 5, CreatedAt: day2.Add(time.Hour)},
			{RoundID: "r2", VoterID: "A", SubmissionURI: "s:a2", Points: 0, Comment: "mine", CreatedAt: day2.Add(3 * time.Hour)},
		},
	}
}

func entryFor(entries []types.LeaderboardEntry, id model.CompetitorID) (types.LeaderboardEntry, bool) {
	for _, e := range entries {
		if e.CompetitorID == id {
			return e, true
		}
	}
	return types.LeaderboardEntry{}, false
}

func TestComputeTwoRoundLeague(t *testing.T) {
	Convey("Given a two round league ranked by total points", t, func() {
		ds := twoRoundLeague()
		res, err := leaderboard.Compute(ds, leaderboard.Query{Metric: leaderboard.MetricTotalPoints})
		So(err, ShouldBeNil)
		So(res.Entries, ShouldHaveLength, 2)

		Convey("Then A leads with both rounds won", func() {
			a := res.Entries[0]
			So(a.CompetitorID, ShouldEqual, model.CompetitorID("A"))
			So(a.CompetitorName, ShouldEqual, "Ann")
			So(a.TotalPoints, ShouldEqual, 15)
			So(a.RoundsParticipated, ShouldEqual, 2)
			So(a.AveragePosition, ShouldEqual, 1.0)
			So(a.WinRate, ShouldEqual, 1.0)
			So(a.ConsistencyScore, ShouldEqual, 0.0)
			So(a.Rank, ShouldEqual, 1)
		})

		Convey("And B is second with a single tied win", func() {
			b := res.Entries[1]
			So(b.CompetitorID, ShouldEqual, model.CompetitorID("B"))
			So(b.TotalPoints, ShouldEqual, 10)
			So(b.RoundsParticipated, ShouldEqual, 1)
			So(b.AveragePosition, ShouldEqual, 1.0)
			So(b.Rank, ShouldEqual, 2)
		})

		Convey("And performances carry round context", func() {
			a := res.Entries[0]
			So(a.Performances, ShouldHaveLength, 2)
			So(a.Performances[0].RoundName, ShouldEqual, "Openers")
			So(a.Performances[0].TotalCompetitors, ShouldEqual, 2)
			So(a.Performances[1].TotalCompetitors, ShouldEqual, 1)
			So(a.Performances[1].PointsReceived, ShouldEqual, 5)
		})

		Convey("And zero-point votes are ignored by vote metrics", func() {
			a := res.Entries[0]
			So(a.VotesReceived, ShouldEqual, 2)
			So(a.AvgVoteCast, ShouldEqual, 10.0)
			b := res.Entries[1]
			So(b.VotesReceived, ShouldEqual, 1)
			So(b.AvgVoteCast, ShouldEqual, 7.5)
		})

		Convey("And statistics describe the working set", func() {
			So(res.Statistics.TotalRounds, ShouldEqual, 2)
			So(res.Statistics.TotalCompetitors, ShouldEqual, 2)
			So(res.Statistics.TotalVotes, ShouldEqual, 4)
			So(res.Statistics.DateRange, ShouldNotBeNil)
			So(res.Statistics.DateRange.Earliest, ShouldEqual, day1.Add(time.Hour))
			So(res.Statistics.DateRange.Latest, ShouldEqual, day2.Add(3*time.Hour))
		})

		Convey("And computing again yields the same result", func() {
			again, err := leaderboard.Compute(ds, leaderboard.Query{Metric: leaderboard.MetricTotalPoints})
			So(err, ShouldBeNil)
			So(cmp.Diff(res, again), ShouldBeEmpty)
		})
	})
}

func TestAvgVoteCastIgnoresCommentVotes(t *testing.T) {
	Convey("Given a voter casting a zero-point comment and a three point vote", t, func() {
		ds := model.Dataset{
			Competitors: []model.Competitor{{ID: "C", Name: "Cy"}, {ID: "D", Name: "Di"}},
			Rounds:      []model.Round{{ID: "r1", CreatedAt: day1}},
			Submissions: []model.Submission{
				{URI: "s:c", RoundID: "r1", SubmitterID: "C"},
				{URI: "s:d", RoundID: "r1", SubmitterID: "D"},
			},
			Votes: []model.Vote{
				{RoundID: "r1", VoterID: "C", SubmissionURI: "s:d", Points: 0, Comment: "nice"},
				{RoundID: "r1", VoterID: "C", SubmissionURI: "s:d", Points: 3},
				{RoundID: "r1", VoterID: "D", SubmissionURI: "s:c", Points: 1},
			},
		}

		Convey("Then avgVoteCast is 3.0", func() {
			res, err := leaderboard.Compute(ds, leaderboard.Query{Metric: leaderboard.MetricAvgVoteCast})
			So(err, ShouldBeNil)
			c, ok := entryFor(res.Entries, "C")
			So(ok, ShouldBeTrue)
			So(c.AvgVoteCast, ShouldEqual, 3.0)
			So(c.Rank, ShouldEqual, 1)
		})
	})
}

func TestConsistencyScoreIsPopulationStdDev(t *testing.T) {
	Convey("Given two competitors who swap first and second place", t, func() {
		ds := model.Dataset{
			Competitors: []model.Competitor{{ID: "A", Name: "Ann"}, {ID: "B", Name: "Bo"}},
			Rounds: []model.Round{
				{ID: "r1", CreatedAt: day1},
				{ID: "r2", CreatedAt: day2},
			},
			Submissions: []model.Submission{
				{URI: "s:a1", RoundID: "r1", SubmitterID: "A"},
				{URI: "s:b1", RoundID: "r1", SubmitterID: "B"},
				{URI: "s:a2", RoundID: "r2", SubmitterID: "A"},
				{URI: "s:b2", RoundID: "r2", SubmitterID: "B"},
			},
			Votes: []model.Vote{
				{RoundID: "r1", VoterID: "B", SubmissionURI: "s:a1", Points: 10},
				{RoundID: "r1", VoterID: "A", SubmissionURI: "s:b1", Points: 5},
				{RoundID: "r2", VoterID: "B", SubmissionURI: "s:a2", Points: 5},
				{RoundID: "r2", VoterID: "A", SubmissionURI: "s:b2", Points: 10},
			},
		}

		Convey("Then positions 1 and 2 give a consistency score of 0.5", func() {
			res, err := leaderboard.Compute(ds, leaderboard.Query{Metric: leaderboard.MetricConsistencyScore})
			So(err, ShouldBeNil)
			So(res.Entries, ShouldHaveLength, 2)
			for _, e := range res.Entries {
				So(e.AveragePosition, ShouldEqual, 1.5)
				So(e.ConsistencyScore, ShouldEqual, 0.5)
				So(e.Rank, ShouldEqual, 1)
			}
		})
	})
}

func TestComputeFilters(t *testing.T) {
	Convey("Given the two round league", t, func() {
		ds := twoRoundLeague()

		Convey("When the date bounds equal the round creation times", func() {
			from, to := day1, day2
			res, err := leaderboard.Compute(ds, leaderboard.Query{
				Metric: leaderboard.MetricTotalPoints,
				Time:   leaderboard.TimeFilter{From: &from, To: &to},
			})

			Convey("Then both boundary rounds are included", func() {
				So(err, ShouldBeNil)
				So(res.Statistics.TotalRounds, ShouldEqual, 2)
				So(res.Statistics.TotalVotes, ShouldEqual, 4)
			})
		})

		Convey("When both bounds sit on the second round", func() {
			from, to := day2, day2
			res, err := leaderboard.Compute(ds, leaderboard.Query{
				Metric: leaderboard.MetricTotalPoints,
				Time:   leaderboard.TimeFilter{From: &from, To: &to},
			})

			Convey("Then only that round is kept", func() {
				So(err, ShouldBeNil)
				So(res.Statistics.TotalRounds, ShouldEqual, 1)
				So(res.Entries, ShouldHaveLength, 1)
				So(res.Entries[0].TotalPoints, ShouldEqual, 5)
			})
		})

		Convey("When the date bound and round list do not overlap", func() {
			to := day1.Add(time.Hour)
			q := leaderboard.Query{
				Metric: leaderboard.MetricTotalPoints,
				Time:   leaderboard.TimeFilter{To: &to, RoundIDs: []model.RoundID{"r2"}},
			}
			res, err := leaderboard.Compute(ds, q)

			Convey("Then the intersection is empty and so is the board", func() {
				So(err, ShouldBeNil)
				So(res.Entries, ShouldNotBeNil)
				So(res.Entries, ShouldBeEmpty)
				So(res.Statistics.TotalRounds, ShouldEqual, 0)
				So(res.Statistics.TotalVotes, ShouldEqual, 0)
				So(res.Statistics.DateRange, ShouldBeNil)
			})
		})

		Convey("When only round 1 is selected", func() {
			q := leaderboard.Query{
				Metric: leaderboard.MetricTotalPoints,
				Time:   leaderboard.TimeFilter{RoundIDs: []model.RoundID{"r1"}},
			}
			res, err := leaderboard.Compute(ds, q)

			Convey("Then A and B tie for rank 1", func() {
				So(err, ShouldBeNil)
				So(res.Entries, ShouldHaveLength, 2)
				So(res.Entries[0].Rank, ShouldEqual, 1)
				So(res.Entries[1].Rank, ShouldEqual, 1)
				So(res.Statistics.TotalVotes, ShouldEqual, 2)
			})
		})

		Convey("When requiring two rounds of participation", func() {
			q := leaderboard.Query{
				Metric:      leaderboard.MetricTotalPoints,
				Competitors: leaderboard.CompetitorFilter{MinParticipation: 2},
			}
			res, err := leaderboard.Compute(ds, q)

			Convey("Then B is dropped", func() {
				So(err, ShouldBeNil)
				So(res.Entries, ShouldHaveLength, 1)
				So(res.Entries[0].CompetitorID, ShouldEqual, model.CompetitorID("A"))
				So(res.Statistics.TotalCompetitors, ShouldEqual, 1)
			})
		})

		Convey("When excluding A", func() {
			q := leaderboard.Query{
				Metric:      leaderboard.MetricTotalPoints,
				Competitors: leaderboard.CompetitorFilter{ExcludeIDs: []model.CompetitorID{"A"}},
			}
			res, err := leaderboard.Compute(ds, q)

			Convey("Then B is ranked alone", func() {
				So(err, ShouldBeNil)
				So(res.Entries, ShouldHaveLength, 1)
				So(res.Entries[0].CompetitorID, ShouldEqual, model.CompetitorID("B"))
				So(res.Entries[0].Rank, ShouldEqual, 1)
			})
		})
	})
}

func TestAssignRanksDirection(t *testing.T) {
	Convey("Given entries with distinct averages and totals", t, func() {
		entries := []types.LeaderboardEntry{
			{CompetitorID: "x", AveragePosition: 3.5, TotalPoints: 100},
			{CompetitorID: "y", AveragePosition: 2.0, TotalPoints: 80},
		}

		Convey("Then average position ranks lower values first", func() {
			ranked := leaderboard.AssignRanks(entries, leaderboard.MetricAveragePosition)
			So(ranked[0].CompetitorID, ShouldEqual, model.CompetitorID("y"))
			So(ranked[0].Rank, ShouldEqual, 1)
			So(ranked[1].Rank, ShouldEqual, 2)
		})

		Convey("And total points ranks higher values first", func() {
			ranked := leaderboard.AssignRanks(entries, leaderboard.MetricTotalPoints)
			So(ranked[0].CompetitorID, ShouldEqual, model.CompetitorID("x"))
			So(ranked[0].Rank, ShouldEqual, 1)
		})

		Convey("And the input slice is left untouched", func() {
			_ = leaderboard.AssignRanks(entries, leaderboard.MetricAveragePosition)
			So(entries[0].CompetitorID, ShouldEqual, model.CompetitorID("x"))
			So(entries[0].Rank, ShouldEqual, 0)
		})
	})

	Convey("Given tied values", t, func() {
		entries := []types.LeaderboardEntry{
			{CompetitorID: "a", TotalPoints: 10},
			{CompetitorID: "b", TotalPoints: 10},
			{CompetitorID: "c", TotalPoints: 8},
			{CompetitorID: "d", TotalPoints: 5},
		}

		Convey("Then ranks have gaps after the tie", func() {
			ranked := leaderboard.AssignRanks(entries, leaderboard.MetricTotalPoints)
			got := []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank, ranked[3].Rank}
			So(got, ShouldResemble, []int{1, 1, 3, 4})
		})
	})

	Convey("Given no entries", t, func() {
		Convey("Then an empty non-nil slice is returned", func() {
			ranked := leaderboard.AssignRanks(nil, leaderboard.MetricWinRate)
			So(ranked, ShouldNotBeNil)
			So(ranked, ShouldBeEmpty)
		})
	})
}

func TestQueryValidate(t *testing.T) {
	Convey("Given query inputs", t, func() {
		Convey("An unknown metric is rejected", func() {
			err := leaderboard.Query{Metric: "bogus"}.Validate()
			So(errors.Is(err, leaderboard.ErrUnknownMetric), ShouldBeTrue)
		})

		Convey("A negative participation floor is rejected", func() {
			q := leaderboard.Query{
				Metric:      leaderboard.MetricWinRate,
				Competitors: leaderboard.CompetitorFilter{MinParticipation: -1},
			}
			So(errors.Is(q.Validate(), leaderboard.ErrInvalidQuery), ShouldBeTrue)
		})

		Convey("An empty round id is rejected", func() {
			q := leaderboard.Query{
				Metric: leaderboard.MetricWinRate,
				Time:   leaderboard.TimeFilter{RoundIDs: []model.RoundID{""}},
			}
			So(errors.Is(q.Validate(), leaderboard.ErrInvalidQuery), ShouldBeTrue)
		})

		Convey("An inverted time range is rejected", func() {
			from, to := day2, day1
			q := leaderboard.Query{
				Metric: leaderboard.MetricWinRate,
				Time:   leaderboard.TimeFilter{From: &from, To: &to},
			}
			So(errors.Is(q.Validate(), leaderboard.ErrInvalidTimeRange), ShouldBeTrue)

			_, err := leaderboard.Compute(twoRoundLeague(), q)
			So(errors.Is(err, leaderboard.ErrInvalidTimeRange), ShouldBeTrue)
		})

		Convey("A well formed query passes", func() {
			So(leaderboard.Query{Metric: leaderboard.MetricPodiumRate}.Validate(), ShouldBeNil)
		})
	})
}

func TestQueryKey(t *testing.T) {
	Convey("Given queries selecting the same working set", t, func() {
		a := leaderboard.Query{
			Metric:      leaderboard.MetricTotalPoints,
			Competitors: leaderboard.CompetitorFilter{ExcludeIDs: []model.CompetitorID{"b", "a", "a"}},
			Time:        leaderboard.TimeFilter{RoundIDs: []model.RoundID{"r2", "r1"}},
		}
		b := leaderboard.Query{
			Metric:      leaderboard.MetricTotalPoints,
			Competitors: leaderboard.CompetitorFilter{ExcludeIDs: []model.CompetitorID{"a", "b"}},
			Time:        leaderboard.TimeFilter{RoundIDs: []model.RoundID{"r1", "r2"}},
		}

		Convey("Then their keys match", func() {
			So(a.Key(), ShouldEqual, b.Key())
		})

		Convey("And a different metric changes the key", func() {
			b.Metric = leaderboard.MetricWinRate
			So(a.Key(), ShouldNotEqual, b.Key())
		})

		Convey("And equal instants in different zones share a key", func() {
			utc := day1
			local := day1.In(time.FixedZone("x", 3600))
			a.Time.From, b.Time.From = &utc, &local
			b.Metric = a.Metric
			So(a.Key(), ShouldEqual, b.Key())
		})
	})
}

func TestParseMetric(t *testing.T) {
	Convey("Metric names parse case-insensitively", t, func() {
		m, err := leaderboard.ParseMetric("  TotalPoints ")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, leaderboard.MetricTotalPoints)

		_, err = leaderboard.ParseMetric("elo")
		So(errors.Is(err, leaderboard.ErrUnknownMetric), ShouldBeTrue)
	})

	Convey("Only position-style metrics rank ascending", t, func() {
		for _, m := range leaderboard.Metrics {
			want := m == leaderboard.MetricAveragePosition || m == leaderboard.MetricConsistencyScore
			So(m.Ascending(), ShouldEqual, want)
		}
	})
}

func TestComputeGeneratedLeague(t *testing.T) {
	Convey("Given a generated league", t, func() {
		cfg := leaguegen.DefaultConfig()
		cfg.Seed = 7
		ds := leaguegen.Generate(cfg)

		for _, m := range leaderboard.Metrics {
			res, err := leaderboard.Compute(ds, leaderboard.Query{Metric: m})
			So(err, ShouldBeNil)

			Convey("Ranks by "+string(m)+" are ordered and start at one", func() {
				So(res.Entries, ShouldNotBeEmpty)
				So(res.Entries[0].Rank, ShouldEqual, 1)
				for i := 1; i < len(res.Entries); i++ {
					prev, cur := res.Entries[i-1], res.Entries[i]
					So(cur.Rank, ShouldBeGreaterThanOrEqualTo, prev.Rank)
					if m.Value(&cur) == m.Value(&prev) {
						So(cur.Rank, ShouldEqual, prev.Rank)
					} else {
						So(cur.Rank, ShouldEqual, i+1)
					}
				}
			})

			Convey("Every entry of "+string(m)+" has consistent rates", func() {
				for _, e := range res.Entries {
					So(e.RoundsParticipated, ShouldEqual, len(e.Performances))
					So(e.WinRate, ShouldBeBetweenOrEqual, 0, 1)
					So(e.PodiumRate, ShouldBeGreaterThanOrEqualTo, e.WinRate)
					So(e.AveragePosition, ShouldBeGreaterThanOrEqualTo, 1)
				}
			})
		}
	})
}
