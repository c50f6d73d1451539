package leaderboard

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrInvalidQuery     = errors.New("invalid leaderboard query")
	ErrInvalidTimeRange = errors.New("time filter from is after to")
)
