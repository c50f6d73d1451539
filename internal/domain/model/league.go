// Package model contains domain models passed between layers.
package model

import "time"

// CompetitorID identifies a league participant across rounds.
type CompetitorID string

// RoundID identifies a single round of a league.
type RoundID string

// ProfileID identifies one league's data set. The empty profile selects the
// aggregated view across every stored league.
type ProfileID string

// Profile names one stored league.
type Profile struct {
	ID   ProfileID `json:"id" yaml:"id"`
	Name string    `json:"name" yaml:"name"`
}

// Competitor is a league participant.
type Competitor struct {
	ID   CompetitorID
	Name string
}

// Round is one scored cycle of submissions and voting.
type Round struct {
	ID          RoundID
	Name        string
	CreatedAt   time.Time // round creation; the time filter applies to this value
	Description string
	PlaylistURL string
}

// Submission is one track entered by one competitor in one round.
// URI is unique within a round.
type Submission struct {
	URI         string
	RoundID     RoundID
	SubmitterID CompetitorID
	Title       string
	Album       string
	Artists     string
	CreatedAt   time.Time
	Comment     string
	TotalPoints int // pre-computed by the import; standings recompute points from votes
}

// Vote is one competitor's point allocation to one submission.
type Vote struct {
	RoundID       RoundID
	VoterID       CompetitorID
	SubmissionURI string
	Points        int    // signed; zero-point votes carry only a comment
	Comment       string // optional
	CreatedAt     time.Time
}

// Dataset is the fully materialized working set for one computation.
// Consumers must treat it as read-only.
type Dataset struct {
	Competitors []Competitor
	Rounds      []Round
	Submissions []Submission
	Votes       []Vote
}

// Round returns the round with the given id.
func (d Dataset) Round(id RoundID) (Round, bool) {
	for _, r := range d.Rounds {
		if r.ID == id {
			return r, true
		}
	}
	return Round{}, false
}

// CompetitorNames maps competitor ids to display names.
func (d Dataset) CompetitorNames() map[CompetitorID]string {
	names := make(map[CompetitorID]string, len(d.Competitors))
	for _, c := range d.Competitors {
		names[c.ID] = c.Name
	}
	return names
}
