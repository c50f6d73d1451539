package importer_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/importer"
	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/leaderboard"
	"github.com/okian/tally/internal/domain/model"
)

func export() fstest.MapFS {
	return fstest.MapFS{
		importer.CompetitorsFile: {Data: []byte("\ufeffID,Name\n" +
			"a,Ann\n" +
			"b,Bo\n" +
			"c,\n")},
		importer.RoundsFile: {Data: []byte("ID,Created,Name,Description,Playlist URL\n" +
			"r1,2024-03-01T12:00:00Z,Openers,first one,https://open.spotify.com/playlist/1\n" +
			"r2,2024-03-08T12:00:00.250Z,Closers,,\n" +
			"r3,last tuesday,Broken,,\n")},
		importer.SubmissionsFile: {Data: []byte("Spotify URI,Title,Album,Artist(s),Submitter ID,Created,Comment,Round ID,Visible To Voters\n" +
			"s:a1,One,LP,Band,a,2024-03-01T13:00:00Z,,r1,No\n" +
			"s:b1,Two,LP,Band,b,2024-03-01T13:05:00Z,\"nice, right\",r1,No\n" +
			"s:a2,Three,EP,Band,a,2024-03-08T13:00:00Z,,r2,No\n")},
		importer.VotesFile: {Data: []byte("Spotify URI,Voter ID,Created,Points Assigned,Comment,Round ID\n" +
			"s:b1,a,2024-03-02T10:00:00Z,10,,r1\n" +
			"s:a1,b,2024-03-02T11:00:00Z,10,,r1\n" +
			"s:a1,b,2024-03-02T11:00:00Z,10,,r1\n" +
			"s:a2,b,2024-03-09T11:00:00Z,5,,r2\n" +
			"s:a2,a,2024-03-09T12:00:00Z,0,my own,r2\n" +
			"s:a2,b,2024-03-09T12:00:00Z,lots,,r2\n")},
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	Convey("Given a league export", t, func() {
		store := repository.NewMemoryStore()
		im := importer.New(store)

		Convey("When it is imported", func() {
			report, err := im.Import(ctx, model.Profile{ID: "spring", Name: "Spring"}, export())
			So(err, ShouldBeNil)

			Convey("Then every file is reported", func() {
				So(report.BatchID, ShouldNotBeEmpty)
				So(report.Profile, ShouldEqual, model.ProfileID("spring"))
				So(report.Files, ShouldHaveLength, 4)

				byFile := map[string]importer.FileReport{}
				for _, f := range report.Files {
					byFile[f.File] = f
				}
				So(byFile[importer.CompetitorsFile], ShouldResemble, importer.FileReport{File: importer.CompetitorsFile, Rows: 3, Imported: 2, Invalid: 1})
				So(byFile[importer.RoundsFile].Invalid, ShouldEqual, 1)
				So(byFile[importer.SubmissionsFile].Imported, ShouldEqual, 3)
				So(byFile[importer.VotesFile], ShouldResemble, importer.FileReport{File: importer.VotesFile, Rows: 6, Imported: 4, Invalid: 1, Duplicates: 1})
			})

			Convey("And the store holds the valid rows", func() {
				ds, err := repository.Load(ctx, store, "spring")
				So(err, ShouldBeNil)
				So(ds.Competitors, ShouldHaveLength, 2)
				So(ds.Rounds, ShouldHaveLength, 2)
				So(ds.Rounds[0].PlaylistURL, ShouldEqual, "https://open.spotify.com/playlist/1")
				So(ds.Rounds[1].CreatedAt.Nanosecond(), ShouldEqual, 250000000)
				So(ds.Votes, ShouldHaveLength, 4)

				totals := map[string]int{}
				for _, s := range ds.Submissions {
					totals[s.URI] = s.TotalPoints
				}
				So(totals["s:a1"], ShouldEqual, 10)
				So(totals["s:a2"], ShouldEqual, 5)
				So(ds.Submissions[1].Comment, ShouldEqual, "nice, right")

				profiles, err := store.Profiles(ctx)
				So(err, ShouldBeNil)
				So(profiles, ShouldResemble, []model.Profile{{ID: "spring", Name: "Spring"}})
			})

			Convey("And the imported league ranks as expected", func() {
				ds, err := repository.Load(ctx, store, "spring")
				So(err, ShouldBeNil)
				res, err := leaderboard.Compute(ds, leaderboard.Query{Metric: leaderboard.MetricTotalPoints})
				So(err, ShouldBeNil)
				So(res.Entries, ShouldHaveLength, 2)
				So(res.Entries[0].CompetitorID, ShouldEqual, model.CompetitorID("a"))
				So(res.Entries[0].TotalPoints, ShouldEqual, 15)
				So(res.Entries[1].TotalPoints, ShouldEqual, 10)
			})
		})

		Convey("When the same export is imported twice", func() {
			_, err := im.Import(ctx, model.Profile{ID: "spring", Name: "Spring"}, export())
			So(err, ShouldBeNil)
			_, err = im.Import(ctx, model.Profile{ID: "spring", Name: "Spring"}, export())
			So(err, ShouldBeNil)

			Convey("Then votes are stored once and points are not doubled", func() {
				ds, err := repository.Load(ctx, store, "spring")
				So(err, ShouldBeNil)
				So(ds.Votes, ShouldHaveLength, 4)
				res, err := leaderboard.Compute(ds, leaderboard.Query{Metric: leaderboard.MetricTotalPoints})
				So(err, ShouldBeNil)
				So(res.Entries[0].TotalPoints, ShouldEqual, 15)
				So(res.Entries[1].TotalPoints, ShouldEqual, 10)
			})
		})

		Convey("When a file is missing", func() {
			fsys := export()
			delete(fsys, importer.VotesFile)
			_, err := im.Import(ctx, model.Profile{ID: "spring"}, fsys)

			Convey("Then the import fails before writing", func() {
				So(errors.Is(err, importer.ErrMissingFile), ShouldBeTrue)
				profiles, _ := store.Profiles(ctx)
				So(profiles, ShouldBeEmpty)
			})
		})

		Convey("When a required column is missing", func() {
			fsys := export()
			fsys[importer.CompetitorsFile] = &fstest.MapFile{Data: []byte("Name\nAnn\n")}
			_, err := im.Import(ctx, model.Profile{ID: "spring"}, fsys)

			Convey("Then the import fails", func() {
				So(errors.Is(err, importer.ErrMissingColumn), ShouldBeTrue)
			})
		})

		Convey("When no profile is given", func() {
			_, err := im.Import(ctx, model.Profile{}, export())

			Convey("Then the import is refused", func() {
				So(errors.Is(err, importer.ErrNoProfile), ShouldBeTrue)
			})
		})
	})
}
