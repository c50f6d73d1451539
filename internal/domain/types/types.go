// Package types contains the derived read models produced by the standings engine.
package types

import (
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// RoundPerformance is one competitor's result in one round.
type RoundPerformance struct {
	RoundID          model.RoundID `json:"roundId"`
	RoundName        string        `json:"roundName"`
	RoundDate        time.Time     `json:"roundDate"`
	PointsReceived   int           `json:"pointsReceived"`
	Position         int           `json:"position"`
	TotalCompetitors int           `json:"totalCompetitors"`
}

// LeaderboardEntry aggregates a competitor's performances and metrics.
type LeaderboardEntry struct {
	CompetitorID       model.CompetitorID `json:"competitorId"`
	CompetitorName     string             `json:"competitorName"`
	TotalPoints        int                `json:"totalPoints"`
	WinRate            float64            `json:"winRate"`
	PodiumRate         float64            `json:"podiumRate"`
	AveragePosition    float64            `json:"averagePosition"`
	ConsistencyScore   float64            `json:"consistencyScore"`
	RoundsParticipated int                `json:"roundsParticipated"`
	VotesReceived      int                `json:"votesReceived"`
	AvgVoteCast        float64            `json:"avgVoteCast"`
	Performances       []RoundPerformance `json:"performances"`
	Rank               int                `json:"rank"`
}

// DateRange is an inclusive timestamp range.
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Statistics summarizes the filtered working set.
type Statistics struct {
	TotalRounds      int        `json:"totalRounds"`
	TotalCompetitors int        `json:"totalCompetitors"`
	TotalVotes       int        `json:"totalVotes"`
	DateRange        *DateRange `json:"dateRange,omitempty"`
}

// RoundStanding is one row of a single round's results table.
type RoundStanding struct {
	CompetitorID   model.CompetitorID `json:"competitorId"`
	CompetitorName string             `json:"competitorName"`
	Points         int                `json:"points"`
	Position       int                `json:"position"`
}
