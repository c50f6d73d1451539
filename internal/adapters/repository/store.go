// Package repository provides the league data providers used by the
// standings service.
//
// Reads are scoped to a profile. The empty profile selects the aggregated
// view over every stored league; there round ids are qualified as
// "profile/round" so leagues that reuse a round id stay apart.
package repository

import (
	"context"

	"github.com/okian/tally/internal/domain/model"
)

// CompetitorSource lists the competitors of a profile.
type CompetitorSource interface {
	Competitors(ctx context.Context, profile model.ProfileID) ([]model.Competitor, error)
}

// RoundSource lists the rounds of a profile ordered by creation time, then id.
type RoundSource interface {
	Rounds(ctx context.Context, profile model.ProfileID) ([]model.Round, error)
}

// VoteSource lists the votes of a profile.
type VoteSource interface {
	Votes(ctx context.Context, profile model.ProfileID) ([]model.Vote, error)
}

// SubmissionSource lists the submissions of a profile.
type SubmissionSource interface {
	Submissions(ctx context.Context, profile model.ProfileID) ([]model.Submission, error)
}

// Writer persists league data. Saving into an unknown profile creates it.
// Every collection is upserted by key, so saving the same data twice is a
// no-op. Votes are keyed by round, voter and submission URI.
type Writer interface {
	SaveProfile(ctx context.Context, profile model.Profile) error
	SaveCompetitors(ctx context.Context, profile model.ProfileID, competitors []model.Competitor) error
	SaveRounds(ctx context.Context, profile model.ProfileID, rounds []model.Round) error
	SaveSubmissions(ctx context.Context, profile model.ProfileID, submissions []model.Submission) error
	SaveVotes(ctx context.Context, profile model.ProfileID, votes []model.Vote) error
}

// Store combines every source with a Writer.
type Store interface {
	CompetitorSource
	RoundSource
	VoteSource
	SubmissionSource
	Writer

	// Profiles lists stored leagues ordered by id.
	Profiles(ctx context.Context) ([]model.Profile, error)
	// Version changes after every successful write.
	Version(ctx context.Context) (uint64, error)
	Close() error
}

// Load reads a whole profile from s into a Dataset.
func Load(ctx context.Context, s Store, profile model.ProfileID) (model.Dataset, error) {
	var (
		ds  model.Dataset
		err error
	)
	if ds.Competitors, err = s.Competitors(ctx, profile); err != nil {
		return model.Dataset{}, err
	}
	if ds.Rounds, err = s.Rounds(ctx, profile); err != nil {
		return model.Dataset{}, err
	}
	if ds.Submissions, err = s.Submissions(ctx, profile); err != nil {
		return model.Dataset{}, err
	}
	if ds.Votes, err = s.Votes(ctx, profile); err != nil {
		return model.Dataset{}, err
	}
	return ds, nil
}

// Save writes every collection of ds into profile.
func Save(ctx context.Context, w Writer, profile model.ProfileID, ds model.Dataset) error {
	if err := w.SaveCompetitors(ctx, profile, ds.Competitors); err != nil {
		return err
	}
	if err := w.SaveRounds(ctx, profile, ds.Rounds); err != nil {
		return err
	}
	if err := w.SaveSubmissions(ctx, profile, ds.Submissions); err != nil {
		return err
	}
	return w.SaveVotes(ctx, profile, ds.Votes)
}

// QualifyRound returns the id a round of owner carries in the aggregated view.
func QualifyRound(owner model.ProfileID, id model.RoundID) model.RoundID {
	return model.RoundID(string(owner) + "/" + string(id))
}

// roundIn returns the id a round of owner carries when read under profile.
func roundIn(profile, owner model.ProfileID, id model.RoundID) model.RoundID {
	if profile != "" {
		return id
	}
	return QualifyRound(owner, id)
}
