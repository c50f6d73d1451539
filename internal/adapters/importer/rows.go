package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// Export file names.
const (
	CompetitorsFile = "competitors.csv"
	RoundsFile      = "rounds.csv"
	SubmissionsFile = "submissions.csv"
	VotesFile       = "votes.csv"
)

type competitorRow struct {
	ID   string `col:"ID" validate:"required"`
	Name string `col:"Name" validate:"required"`
}

func (r competitorRow) model() (model.Competitor, error) {
	return model.Competitor{ID: model.CompetitorID(r.ID), Name: r.Name}, nil
}

type roundRow struct {
	ID          string `col:"ID" validate:"required"`
	Created     string `col:"Created" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Name        string `col:"Name" validate:"required"`
	Description string `col:"Description" validate:"-"`
	PlaylistURL string `col:"Playlist URL" validate:"omitempty,url"`
}

func (r roundRow) model() (model.Round, error) {
	at, err := time.Parse(time.RFC3339, r.Created)
	if err != nil {
		return model.Round{}, err
	}
	return model.Round{
		ID:          model.RoundID(r.ID),
		Name:        r.Name,
		CreatedAt:   at,
		Description: r.Description,
		PlaylistURL: r.PlaylistURL,
	}, nil
}

type submissionRow struct {
	URI         string `col:"Spotify URI" validate:"required"`
	Title       string `col:"Title" validate:"-"`
	Album       string `col:"Album" validate:"-"`
	Artists     string `col:"Artist(s)" validate:"-"`
	SubmitterID string `col:"Submitter ID" validate:"required"`
	Created     string `col:"Created" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Comment     string `col:"Comment" validate:"-"`
	RoundID     string `col:"Round ID" validate:"required"`
}

func (r submissionRow) model() (model.Submission, error) {
	at, err := parseOptionalTime(r.Created)
	if err != nil {
		return model.Submission{}, err
	}
	return model.Submission{
		URI:         r.URI,
		RoundID:     model.RoundID(r.RoundID),
		SubmitterID: model.CompetitorID(r.SubmitterID),
		Title:       r.Title,
		Album:       r.Album,
		Artists:     r.Artists,
		CreatedAt:   at,
		Comment:     r.Comment,
	}, nil
}

type voteRow struct {
	URI     string `col:"Spotify URI" validate:"required"`
	VoterID string `col:"Voter ID" validate:"required"`
	Created string `col:"Created" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Points  string `col:"Points Assigned" validate:"required,numeric"`
	Comment string `col:"Comment" validate:"-"`
	RoundID string `col:"Round ID" validate:"required"`
}

func (r voteRow) model() (model.Vote, error) {
	points, err := strconv.Atoi(strings.TrimPrefix(r.Points, "+"))
	if err != nil {
		return model.Vote{}, fmt.Errorf("points: %w", err)
	}
	at, err := parseOptionalTime(r.Created)
	if err != nil {
		return model.Vote{}, err
	}
	return model.Vote{
		RoundID:       model.RoundID(r.RoundID),
		VoterID:       model.CompetitorID(r.VoterID),
		SubmissionURI: r.URI,
		Points:        points,
		Comment:       r.Comment,
		CreatedAt:     at,
	}, nil
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
