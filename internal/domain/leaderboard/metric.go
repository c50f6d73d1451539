package leaderboard

import (
	"fmt"
	"strings"

	"github.com/okian/tally/internal/domain/types"
)

// Metric names a rankable leaderboard column.
type Metric string

// Rankable metrics.
const (
	MetricTotalPoints        Metric = "totalPoints"
	MetricWinRate            Metric = "winRate"
	MetricPodiumRate         Metric = "podiumRate"
	MetricAveragePosition    Metric = "averagePosition"
	MetricConsistencyScore   Metric = "consistencyScore"
	MetricVotesReceived      Metric = "votesReceived"
	MetricAvgVoteCast        Metric = "avgVoteCast"
	MetricRoundsParticipated Metric = "roundsParticipated"
)

// Metrics lists every rankable metric.
var Metrics = []Metric{
	MetricTotalPoints,
	MetricWinRate,
	MetricPodiumRate,
	MetricAveragePosition,
	MetricConsistencyScore,
	MetricVotesReceived,
	MetricAvgVoteCast,
	MetricRoundsParticipated,
}

// ParseMetric resolves a metric name case-insensitively.
func ParseMetric(s string) (Metric, error) {
	s = strings.TrimSpace(s)
	for _, m := range Metrics {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// Valid reports whether m is one of the canonical metric names.
func (m Metric) Valid() bool {
	for _, known := range Metrics {
		if m == known {
			return true
		}
	}
	return false
}

// Ascending reports whether lower values rank better.
func (m Metric) Ascending() bool {
	return m == MetricAveragePosition || m == MetricConsistencyScore
}

// Value extracts the metric from an entry.
func (m Metric) Value(e *types.LeaderboardEntry) float64 {
	switch m {
	case MetricTotalPoints:
		return float64(e.TotalPoints)
	case MetricWinRate:
		return e.WinRate
	case MetricPodiumRate:
		return e.PodiumRate
	case MetricAveragePosition:
		return e.AveragePosition
	case MetricConsistencyScore:
		return e.ConsistencyScore
	case MetricVotesReceived:
		return float64(e.VotesReceived)
	case MetricAvgVoteCast:
		return e.AvgVoteCast
	case MetricRoundsParticipated:
		return float64(e.RoundsParticipated)
	default:
		return 0
	}
}
