package scoring

import "github.com/okian/tally/internal/domain/model"

// RoundIndex groups votes and submissions by round for constant-time lookup.
// It is built from the unfiltered collections; callers intersect with their
// own round set.
type RoundIndex struct {
	votes       map[model.RoundID][]model.Vote
	submissions map[model.RoundID][]model.Submission
}

// Index builds a RoundIndex. The input slices are not retained or modified.
func Index(votes []model.Vote, submissions []model.Submission) *RoundIndex {
	ix := &RoundIndex{
		votes:       make(map[model.RoundID][]model.Vote),
		submissions: make(map[model.RoundID][]model.Submission),
	}
	for _, v := range votes {
		ix.votes[v.RoundID] = append(ix.votes[v.RoundID], v)
	}
	for _, s := range submissions {
		ix.submissions[s.RoundID] = append(ix.submissions[s.RoundID], s)
	}
	return ix
}

// VotesFor returns the votes cast in a round.
func (ix *RoundIndex) VotesFor(id model.RoundID) []model.Vote {
	return ix.votes[id]
}

// SubmissionsFor returns the submissions entered in a round.
func (ix *RoundIndex) SubmissionsFor(id model.RoundID) []model.Submission {
	return ix.submissions[id]
}

// Score scores a single indexed round.
func (ix *RoundIndex) Score(id model.RoundID) Result {
	return ScoreRound(ix.VotesFor(id), ix.SubmissionsFor(id))
}
