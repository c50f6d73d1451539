package leaguegen

import "time"

// Config holds the shape of a generated league.
type Config struct {
	Seed           int64         // same seed, same league
	Competitors    int           // number of competitors
	Rounds         int           // number of rounds
	PointsPerVoter int           // points each voter spreads per round
	SubmitRate     float64       // chance a competitor submits in a round
	NonVoterRate   float64       // chance a competitor skips voting in a round
	DownvoteRate   float64       // chance a voter also casts a -1 vote
	CommentRate    float64       // chance a voter adds a zero-point comment vote
	Start          time.Time     // creation time of the first round
	RoundInterval  time.Duration // spacing between rounds
}

// Default generator settings.
const (
	defaultCompetitors    = 12
	defaultRounds         = 10
	defaultPointsPerVoter = 10
	defaultSubmitRate     = 0.9
	defaultNonVoterRate   = 0.1
	defaultDownvoteRate   = 0.15
	defaultCommentRate    = 0.3
	defaultRoundInterval  = 7 * 24 * time.Hour
)

// DefaultConfig returns a small weekly league.
func DefaultConfig() Config {
	return Config{
		Seed:           1,
		Competitors:    defaultCompetitors,
		Rounds:         defaultRounds,
		PointsPerVoter: defaultPointsPerVoter,
		SubmitRate:     defaultSubmitRate,
		NonVoterRate:   defaultNonVoterRate,
		DownvoteRate:   defaultDownvoteRate,
		CommentRate:    defaultCommentRate,
		Start:          time.Date(2024, time.January, 1, 18, 0, 0, 0, time.UTC),
		RoundInterval:  defaultRoundInterval,
	}
}
