package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// SQLStore is a Store backed by database/sql. It supports SQLite and
// PostgreSQL with one schema.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger logger.Logger
}

var _ Store = (*SQLStore)(nil)

// Open returns the Store for driver. The memory driver ignores dsn.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	if driver == DriverMemory {
		return NewMemoryStore(opts...), nil
	}
	s, err := OpenSQL(ctx, driver, dsn, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQL connects to a SQL database and creates the schema.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	switch {
	case driver == DriverSQLite:
		// one connection keeps :memory: databases shared and serializes writers
		db.SetMaxOpenConns(1)
	case o.maxOpenConns > 0:
		db.SetMaxOpenConns(o.maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := createSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	o.logger.Info(ctx, "store opened", logger.String("driver", driver))
	return &SQLStore{db: db, driver: driver, logger: o.logger}, nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) q(query string) string {
	return rebind(s.driver, query)
}

// observe records the latency of a read and counts its failure.
func (s *SQLStore) observe(op string, start time.Time, err *error) {
	metrics.RecordStoreQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil {
		metrics.RecordErrorByComponent("repository", op)
	}
}

// scope returns the WHERE clause and args that restrict a query to profile.
func (s *SQLStore) scope(ctx context.Context, profile model.ProfileID) (string, []any, error) {
	if profile == "" {
		return "", nil, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM tally_profiles WHERE id = ?`), string(profile)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("%w: %s", ErrNotFound, profile)
	}
	if err != nil {
		return "", nil, fmt.Errorf("lookup profile: %w", err)
	}
	return " WHERE profile_id = ?", []any{string(profile)}, nil
}

// query runs a scoped select and scans each row with scan.
func query[T any](ctx context.Context, s *SQLStore, op, base, order string, profile model.ProfileID, scan func(*sql.Rows) (T, error)) (out []T, err error) {
	defer s.observe(op, time.Now(), &err)

	where, args, err := s.scope(ctx, profile)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(base+where+" ORDER BY "+order), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Competitors implements CompetitorSource.
func (s *SQLStore) Competitors(ctx context.Context, profile model.ProfileID) ([]model.Competitor, error) {
	return query(ctx, s, "competitors",
		`SELECT id, name FROM tally_competitors`, "profile_id, id", profile,
		func(rows *sql.Rows) (model.Competitor, error) {
			var c model.Competitor
			err := rows.Scan(&c.ID, &c.Name)
			return c, err
		})
}

// Rounds implements RoundSource.
func (s *SQLStore) Rounds(ctx context.Context, profile model.ProfileID) ([]model.Round, error) {
	rounds, err := query(ctx, s, "rounds",
		`SELECT profile_id, id, name, created_at, description, playlist_url FROM tally_rounds`, "profile_id, id", profile,
		func(rows *sql.Rows) (model.Round, error) {
			var (
				r     model.Round
				owner model.ProfileID
				at    string
			)
			if err := rows.Scan(&owner, &r.ID, &r.Name, &at, &r.Description, &r.PlaylistURL); err != nil {
				return r, err
			}
			r.ID = roundIn(profile, owner, r.ID)
			var err error
			r.CreatedAt, err = parseTime(at)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortRounds(rounds)
	return rounds, nil
}

// Submissions implements SubmissionSource.
func (s *SQLStore) Submissions(ctx context.Context, profile model.ProfileID) ([]model.Submission, error) {
	return query(ctx, s, "submissions",
		`SELECT profile_id, round_id, uri, submitter_id, title, album, artists, created_at, comment, total_points FROM tally_submissions`,
		"profile_id, round_id, uri", profile,
		func(rows *sql.Rows) (model.Submission, error) {
			var (
				sub   model.Submission
				owner model.ProfileID
				at    string
			)
			if err := rows.Scan(&owner, &sub.RoundID, &sub.URI, &sub.SubmitterID, &sub.Title, &sub.Album,
				&sub.Artists, &at, &sub.Comment, &sub.TotalPoints); err != nil {
				return sub, err
			}
			sub.RoundID = roundIn(profile, owner, sub.RoundID)
			var err error
			sub.CreatedAt, err = parseTime(at)
			return sub, err
		})
}

// Votes implements VoteSource.
func (s *SQLStore) Votes(ctx context.Context, profile model.ProfileID) ([]model.Vote, error) {
	return query(ctx, s, "votes",
		`SELECT profile_id, round_id, voter_id, submission_uri, points, comment, created_at FROM tally_votes`,
		"profile_id, round_id, created_at, voter_id, submission_uri", profile,
		func(rows *sql.Rows) (model.Vote, error) {
			var (
				v     model.Vote
				owner model.ProfileID
				at    string
			)
			if err := rows.Scan(&owner, &v.RoundID, &v.VoterID, &v.SubmissionURI, &v.Points, &v.Comment, &at); err != nil {
				return v, err
			}
			v.RoundID = roundIn(profile, owner, v.RoundID)
			var err error
			v.CreatedAt, err = parseTime(at)
			return v, err
		})
}

// Profiles implements Store.
func (s *SQLStore) Profiles(ctx context.Context) (out []model.Profile, err error) {
	defer s.observe("profiles", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tally_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	defer rows.Close()

	out = []model.Profile{}
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("profiles: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	return out, nil
}

// Version implements Store.
func (s *SQLStore) Version(ctx context.Context) (uint64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM tally_meta WHERE key = 'version'`).Scan(&v); err != nil {
		return 0, fmt.Errorf("version: %w", err)
	}
	return uint64(v), nil //nolint:gosec // version never goes negative
}

// SaveProfile implements Writer.
func (s *SQLStore) SaveProfile(ctx context.Context, p model.Profile) error {
	if p.ID == "" {
		return ErrProfileRequired
	}
	name := p.Name
	if name == "" {
		name = string(p.ID)
	}
	return s.write(ctx, "profiles", "", 1, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO tally_profiles (id, name) VALUES (?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name`), string(p.ID), name)
		return err
	})
}

// SaveCompetitors implements Writer.
func (s *SQLStore) SaveCompetitors(ctx context.Context, profile model.ProfileID, competitors []model.Competitor) error {
	return s.write(ctx, "competitors", profile, len(competitors), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(`
			INSERT INTO tally_competitors (profile_id, id, name) VALUES (?, ?, ?)
			ON CONFLICT (profile_id, id) DO UPDATE SET name = excluded.name`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range competitors {
			if _, err := stmt.ExecContext(ctx, string(profile), string(c.ID), c.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveRounds implements Writer.
func (s *SQLStore) SaveRounds(ctx context.Context, profile model.ProfileID, rounds []model.Round) error {
	return s.write(ctx, "rounds", profile, len(rounds), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(`
			INSERT INTO tally_rounds (profile_id, id, name, created_at, description, playlist_url)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (profile_id, id) DO UPDATE SET
				name = excluded.name,
				created_at = excluded.created_at,
				description = excluded.description,
				playlist_url = excluded.playlist_url`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rounds {
			if _, err := stmt.ExecContext(ctx, string(profile), string(r.ID), r.Name,
				formatTime(r.CreatedAt), r.Description, r.PlaylistURL); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSubmissions implements Writer.
func (s *SQLStore) SaveSubmissions(ctx context.Context, profile model.ProfileID, submissions []model.Submission) error {
	return s.write(ctx, "submissions", profile, len(submissions), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(`
			INSERT INTO tally_submissions
				(profile_id, round_id, uri, submitter_id, title, album, artists, created_at, comment, total_points)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (profile_id, round_id, uri) DO UPDATE SET
				submitter_id = excluded.submitter_id,
				title = excluded.title,
				album = excluded.album,
				artists = excluded.artists,
				created_at = excluded.created_at,
				comment = excluded.comment,
				total_points = excluded.total_points`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, sub := range submissions {
			if _, err := stmt.ExecContext(ctx, string(profile), string(sub.RoundID), sub.URI,
				string(sub.SubmitterID), sub.Title, sub.Album, sub.Artists,
				formatTime(sub.CreatedAt), sub.Comment, sub.TotalPoints); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveVotes implements Writer.
func (s *SQLStore) SaveVotes(ctx context.Context, profile model.ProfileID, votes []model.Vote) error {
	return s.write(ctx, "votes", profile, len(votes), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(`
			INSERT INTO tally_votes (profile_id, round_id, voter_id, submission_uri, points, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (profile_id, round_id, voter_id, submission_uri) DO UPDATE SET
				points = excluded.points,
				comment = excluded.comment,
				created_at = excluded.created_at`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, v := range votes {
			if _, err := stmt.ExecContext(ctx, string(profile), string(v.RoundID), string(v.VoterID),
				v.SubmissionURI, v.Points, v.Comment, formatTime(v.CreatedAt)); err != nil {
				return err
			}
		}
		return nil
	})
}

// write runs apply in a transaction that also registers profile and bumps the
// store version. An empty profile is only valid for SaveProfile.
func (s *SQLStore) write(ctx context.Context, table string, profile model.ProfileID, rows int, apply func(*sql.Tx) error) (err error) {
	if profile == "" && table != "profiles" {
		return ErrProfileRequired
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			metrics.RecordErrorByComponent("repository", "save_"+table)
		}
	}()

	if profile != "" {
		if _, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO tally_profiles (id, name) VALUES (?, ?)
			ON CONFLICT (id) DO NOTHING`), string(profile), string(profile)); err != nil {
			return fmt.Errorf("save %s: %w", table, err)
		}
	}
	if err = apply(tx); err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE tally_meta SET value = value + 1 WHERE key = 'version'`); err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}

	metrics.RecordStoreRowsWritten(table, rows)
	s.logger.Debug(ctx, "rows saved",
		logger.String("table", table),
		logger.String("profile", string(profile)),
		logger.Int("rows", rows))
	return nil
}
