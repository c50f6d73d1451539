package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// createSchema creates every table. Safe to call repeatedly.
func createSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS tally_meta (
    key TEXT PRIMARY KEY,
    value BIGINT NOT NULL
);

INSERT INTO tally_meta (key, value) VALUES ('version', 0) ON CONFLICT (key) DO NOTHING;

CREATE TABLE IF NOT EXISTS tally_profiles (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tally_competitors (
    profile_id TEXT NOT NULL REFERENCES tally_profiles(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    PRIMARY KEY (profile_id, id)
);

CREATE TABLE IF NOT EXISTS tally_rounds (
    profile_id TEXT NOT NULL REFERENCES tally_profiles(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    playlist_url TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (profile_id, id)
);

CREATE TABLE IF NOT EXISTS tally_submissions (
    profile_id TEXT NOT NULL REFERENCES tally_profiles(id) ON DELETE CASCADE,
    round_id TEXT NOT NULL,
    uri TEXT NOT NULL,
    submitter_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    album TEXT NOT NULL DEFAULT '',
    artists TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    total_points INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (profile_id, round_id, uri)
);

CREATE TABLE IF NOT EXISTS tally_votes (
    profile_id TEXT NOT NULL REFERENCES tally_profiles(id) ON DELETE CASCADE,
    round_id TEXT NOT NULL,
    voter_id TEXT NOT NULL,
    submission_uri TEXT NOT NULL,
    points INTEGER NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    PRIMARY KEY (profile_id, round_id, voter_id, submission_uri)
);
`

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
