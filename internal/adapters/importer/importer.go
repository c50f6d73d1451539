// Package importer loads a league export (four CSV files in the Music League
// column layout) into a repository.Writer.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/dedupe"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// FileReport counts what happened to the rows of one file.
type FileReport struct {
	File       string `json:"file" yaml:"file"`
	Rows       int    `json:"rows" yaml:"rows"`
	Imported   int    `json:"imported" yaml:"imported"`
	Invalid    int    `json:"invalid" yaml:"invalid"`
	Duplicates int    `json:"duplicates" yaml:"duplicates"`
}

// ImportReport summarizes one import run.
type ImportReport struct {
	BatchID  string          `json:"batchId" yaml:"batchId"`
	Profile  model.ProfileID `json:"profile" yaml:"profile"`
	Files    []FileReport    `json:"files" yaml:"files"`
	Duration time.Duration   `json:"duration" yaml:"duration"`
}

// Importer reads exports and writes them to a store.
type Importer struct {
	w        repository.Writer
	logger   logger.Logger
	validate *validator.Validate
	dedupe   func() dedupe.Deduper
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(l logger.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// WithDedupeWindow bounds how many recent rows per file are checked for
// exact duplicates. Zero or less keeps every row.
func WithDedupeWindow(n int) Option {
	return func(im *Importer) {
		im.dedupe = func() dedupe.Deduper { return dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(n)) }
	}
}

// New returns an Importer writing to w.
func New(w repository.Writer, opts ...Option) *Importer {
	im := &Importer{
		w:        w,
		logger:   logger.Nop(),
		validate: validator.New(),
		dedupe:   func() dedupe.Deduper { return dedupe.NewInMemoryDeduper() },
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportDir imports the export stored in dir.
func (im *Importer) ImportDir(ctx context.Context, profile model.Profile, dir string) (ImportReport, error) {
	return im.Import(ctx, profile, os.DirFS(dir))
}

// Import reads the four export files from fsys and saves them under profile.
// Invalid and duplicate rows are skipped and counted. Submission totals are
// recomputed from the imported votes.
func (im *Importer) Import(ctx context.Context, profile model.Profile, fsys fs.FS) (ImportReport, error) {
	if profile.ID == "" {
		return ImportReport{}, ErrNoProfile
	}
	start := time.Now()
	report := ImportReport{BatchID: uuid.NewString(), Profile: profile.ID}
	log := im.logger.Named("importer")

	var ds model.Dataset
	var err error
	steps := []func() error{
		func() (err error) {
			ds.Competitors, err = readFile[competitorRow, model.Competitor](ctx, im, fsys, CompetitorsFile, &report)
			return err
		},
		func() (err error) {
			ds.Rounds, err = readFile[roundRow, model.Round](ctx, im, fsys, RoundsFile, &report)
			return err
		},
		func() (err error) {
			ds.Submissions, err = readFile[submissionRow, model.Submission](ctx, im, fsys, SubmissionsFile, &report)
			return err
		},
		func() (err error) {
			ds.Votes, err = readFile[voteRow, model.Vote](ctx, im, fsys, VotesFile, &report)
			return err
		},
	}
	for _, step := range steps {
		if err = step(); err != nil {
			return report, err
		}
	}

	totals := make(map[string]int, len(ds.Submissions))
	for _, v := range ds.Votes {
		totals[string(v.RoundID)+"\x00"+v.SubmissionURI] += v.Points
	}
	for i, s := range ds.Submissions {
		ds.Submissions[i].TotalPoints = totals[string(s.RoundID)+"\x00"+s.URI]
	}

	if profile.Name != "" {
		if err := im.w.SaveProfile(ctx, profile); err != nil {
			return report, fmt.Errorf("import %s: %w", profile.ID, err)
		}
	}
	if err := repository.Save(ctx, im.w, profile.ID, ds); err != nil {
		return report, fmt.Errorf("import %s: %w", profile.ID, err)
	}

	report.Duration = time.Since(start)
	log.Info(ctx, "league imported",
		logger.String("batch_id", report.BatchID),
		logger.String("profile", string(profile.ID)),
		logger.Int("competitors", len(ds.Competitors)),
		logger.Int("rounds", len(ds.Rounds)),
		logger.Int("votes", len(ds.Votes)),
		logger.Duration("duration", report.Duration))
	return report, nil
}

type row[M any] interface {
	model() (M, error)
}

type column struct {
	field    int
	name     string
	required bool
}

func columnsOf(t reflect.Type) []column {
	cols := make([]column, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("col")
		if name == "" {
			continue
		}
		cols = append(cols, column{
			field:    i,
			name:     name,
			required: strings.Contains(f.Tag.Get("validate"), "required"),
		})
	}
	return cols
}

func readFile[R row[M], M any](ctx context.Context, im *Importer, fsys fs.FS, name string, report *ImportReport) ([]M, error) {
	f, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	out, fr, err := decode[R, M](ctx, im, name, f)
	report.Files = append(report.Files, fr)
	metrics.RecordImportRows(name, "imported", fr.Imported)
	metrics.RecordImportRows(name, "invalid", fr.Invalid)
	metrics.RecordImportRows(name, "duplicate", fr.Duplicates)
	return out, err
}

// decode reads a CSV stream with a header row into models. Columns are
// matched by header name, case-insensitively; unknown columns are ignored.
func decode[R row[M], M any](ctx context.Context, im *Importer, name string, r io.Reader) ([]M, FileReport, error) {
	fr := FileReport{File: name}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fr, nil
	}
	if err != nil {
		return nil, fr, fmt.Errorf("%s header: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := columnsOf(reflect.TypeFor[R]())
	pos := make([]int, len(cols))
	for i, c := range cols {
		p, ok := index[strings.ToLower(c.name)]
		if !ok && c.required {
			return nil, fr, fmt.Errorf("%w: %s in %s", ErrMissingColumn, c.name, name)
		}
		if !ok {
			p = -1
		}
		pos[i] = p
	}

	seen := im.dedupe()
	var out []M
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fr, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		fr.Rows++

		if seen.SeenAndRecord(ctx, dedupe.Key(record...)) {
			fr.Duplicates++
			continue
		}

		var rec R
		v := reflect.ValueOf(&rec).Elem()
		for i, c := range cols {
			if p := pos[i]; p >= 0 && p < len(record) {
				v.Field(c.field).SetString(strings.TrimSpace(record[p]))
			}
		}

		if err := im.validate.Struct(rec); err != nil {
			fr.Invalid++
			im.logger.Debug(ctx, "invalid row skipped",
				logger.String("file", name), logger.Int("line", line), logger.Error(err))
			continue
		}
		m, err := rec.model()
		if err != nil {
			fr.Invalid++
			im.logger.Debug(ctx, "invalid row skipped",
				logger.String("file", name), logger.Int("line", line), logger.Error(err))
			continue
		}
		out = append(out, m)
		fr.Imported++
	}
	return out, fr, nil
}
