// Command tallyctl imports, generates and ranks league data against the
// configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/okian/tally/internal/adapters/importer"
	"github.com/okian/tally/internal/adapters/repository"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/config"
	"github.com/okian/tally/internal/domain/leaderboard"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/internal/leaguegen"
	"github.com/okian/tally/pkg/logger"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func main() {
	if err := logger.InitWith(os.Stderr, "text"); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "tallyctl:", err)
		code := 1
		if ec, ok := err.(cli.ExitCoder); ok {
			code = ec.ExitCode()
		}
		os.Exit(code)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "tallyctl",
		Usage:     "manage and rank league standings",
		Writer:    out,
		ErrWriter: os.Stderr,
		// exit codes are applied in main
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "driver", Usage: "store driver (memory, sqlite, postgres); overrides TALLY_DB_DRIVER"},
			&cli.StringFlag{Name: "dsn", Usage: "store DSN; overrides TALLY_DB_DSN"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "log verbosity"},
		},
		Before: func(c *cli.Context) error {
			return logger.SetLevelString(c.String("log-level"))
		},
		Commands: []*cli.Command{
			importCommand(),
			seedCommand(),
			rankCommand(),
			standingsCommand(),
			profilesCommand(),
		},
	}
}

func profileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Usage: "league profile id"},
		&cli.StringFlag{Name: "name", Usage: "league display name"},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "load a league export directory",
		ArgsUsage: "DIR",
		Flags: append(profileFlags(),
			&cli.IntFlag{Name: "dedupe-window", Usage: "bound on remembered rows per file; 0 remembers all"},
			&cli.StringFlag{Name: "format", Value: formatYAML, Usage: "report format (json, yaml)"},
		),
		Action: func(c *cli.Context) error {
			dir := c.Args().First()
			if dir == "" {
				return cli.Exit("import: DIR is required", 2)
			}
			profile, err := requireProfile(c)
			if err != nil {
				return err
			}
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			im := importer.New(store,
				importer.WithLogger(logger.Named("tallyctl")),
				importer.WithDedupeWindow(c.Int("dedupe-window")),
			)
			report, err := im.ImportDir(c.Context, profile, dir)
			if err != nil {
				return err
			}
			return encode(c.App.Writer, c.String("format"), report)
		},
	}
}

func seedCommand() *cli.Command {
	defaults := leaguegen.DefaultConfig()
	return &cli.Command{
		Name:  "seed",
		Usage: "generate a synthetic league",
		Flags: append(profileFlags(),
			&cli.Int64Flag{Name: "seed", Value: defaults.Seed, Usage: "generator seed"},
			&cli.IntFlag{Name: "competitors", Value: defaults.Competitors},
			&cli.IntFlag{Name: "rounds", Value: defaults.Rounds},
		),
		Action: func(c *cli.Context) error {
			profile, err := requireProfile(c)
			if err != nil {
				return err
			}
			cfg := defaults
			cfg.Seed = c.Int64("seed")
			cfg.Competitors = c.Int("competitors")
			cfg.Rounds = c.Int("rounds")

			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			ds := leaguegen.Generate(cfg)
			if profile.Name != "" {
				if err := store.SaveProfile(c.Context, profile); err != nil {
					return err
				}
			}
			if err := repository.Save(c.Context, store, profile.ID, ds); err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.App.Writer, "seeded %s: %d competitors, %d rounds, %d submissions, %d votes\n",
				profile.ID, len(ds.Competitors), len(ds.Rounds), len(ds.Submissions), len(ds.Votes))
			return err
		},
	}
}

func rankCommand() *cli.Command {
	return &cli.Command{
		Name:  "rank",
		Usage: "print the leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Usage: "league profile id; empty aggregates all"},
			&cli.StringFlag{Name: "metric", Aliases: []string{"m"}, Value: string(leaderboard.MetricTotalPoints)},
			&cli.IntFlag{Name: "min-participation"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "competitor ids to leave out"},
			&cli.StringSliceFlag{Name: "round", Usage: "restrict to these round ids"},
			&cli.TimestampFlag{Name: "from", Layout: time.RFC3339},
			&cli.TimestampFlag{Name: "to", Layout: time.RFC3339},
			&cli.IntFlag{Name: "limit", Usage: "print at most this many entries; 0 prints all"},
			&cli.StringFlag{Name: "format", Aliases: []string{"o"}, Value: formatTable, Usage: "table, json or yaml"},
		},
		Action: func(c *cli.Context) error {
			q, err := queryFrom(c)
			if err != nil {
				return err
			}
			svc, err := startService(c)
			if err != nil {
				return err
			}
			defer svc.Stop()

			res, err := svc.Leaderboard(c.Context, model.ProfileID(c.String("profile")), q)
			if err != nil {
				return err
			}
			if n := c.Int("limit"); n > 0 && n < len(res.Entries) {
				trimmed := *res
				trimmed.Entries = res.Entries[:n]
				res = &trimmed
			}
			if c.String("format") == formatTable {
				return writeTable(c.App.Writer, res.Entries)
			}
			return encode(c.App.Writer, c.String("format"), res)
		},
	}
}

func standingsCommand() *cli.Command {
	return &cli.Command{
		Name:      "standings",
		Usage:     "print one round's results",
		ArgsUsage: "ROUND_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}},
			&cli.StringFlag{Name: "format", Aliases: []string{"o"}, Value: formatTable, Usage: "table, json or yaml"},
		},
		Action: func(c *cli.Context) error {
			round := c.Args().First()
			if round == "" {
				return cli.Exit("standings: ROUND_ID is required", 2)
			}
			svc, err := startService(c)
			if err != nil {
				return err
			}
			defer svc.Stop()

			standings, err := svc.RoundStandings(c.Context, model.ProfileID(c.String("profile")), model.RoundID(round))
			if err != nil {
				return err
			}
			if c.String("format") != formatTable {
				return encode(c.App.Writer, c.String("format"), standings)
			}
			rows := make([][]string, 0, len(standings))
			for _, s := range standings {
				rows = append(rows, []string{strconv.Itoa(s.Position), s.CompetitorName, strconv.Itoa(s.Points)})
			}
			renderTable(c.App.Writer, []string{"Pos", "Competitor", "Points"}, rows)
			return nil
		},
	}
}

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "list stored leagues",
		Action: func(c *cli.Context) error {
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			profiles, err := store.Profiles(c.Context)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				rows = append(rows, []string{string(p.ID), p.Name})
			}
			renderTable(c.App.Writer, []string{"ID", "Name"}, rows)
			return nil
		},
	}
}

func requireProfile(c *cli.Context) (model.Profile, error) {
	id := strings.TrimSpace(c.String("profile"))
	if id == "" {
		return model.Profile{}, cli.Exit(c.Command.Name+": --profile is required", 2)
	}
	return model.Profile{ID: model.ProfileID(id), Name: c.String("name")}, nil
}

// loadConfig applies the driver and dsn flags over the environment config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.Context)
	if err != nil {
		return nil, err
	}
	if c.IsSet("driver") {
		cfg.DBDriver = c.String("driver")
	}
	if c.IsSet("dsn") {
		cfg.DBDSN = c.String("dsn")
	}
	return cfg, cfg.Validate()
}

func openStore(c *cli.Context) (repository.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return repository.Open(c.Context, cfg.DBDriver, cfg.DBDSN, repository.WithLogger(logger.Named("repository")))
}

func startService(c *cli.Context) (*service.Service, error) {
	store, err := openStore(c)
	if err != nil {
		return nil, err
	}
	svc := service.New(service.WithStore(store), service.WithLogger(logger.Named("service")))
	if err := svc.Start(context.WithoutCancel(c.Context)); err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}

func queryFrom(c *cli.Context) (leaderboard.Query, error) {
	metric, err := leaderboard.ParseMetric(c.String("metric"))
	if err != nil {
		return leaderboard.Query{}, err
	}
	q := leaderboard.Query{Metric: metric}
	q.Competitors.MinParticipation = c.Int("min-participation")
	for _, id := range c.StringSlice("exclude") {
		q.Competitors.ExcludeIDs = append(q.Competitors.ExcludeIDs, model.CompetitorID(id))
	}
	for _, id := range c.StringSlice("round") {
		q.Time.RoundIDs = append(q.Time.RoundIDs, model.RoundID(id))
	}
	q.Time.From = c.Timestamp("from")
	q.Time.To = c.Timestamp("to")
	return q, q.Validate()
}

func writeTable(w io.Writer, entries []types.LeaderboardEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			e.CompetitorName,
			strconv.Itoa(e.TotalPoints),
			fmt.Sprintf("%.1f", e.WinRate*100),
			fmt.Sprintf("%.1f", e.PodiumRate*100),
			fmt.Sprintf("%.2f", e.AveragePosition),
			fmt.Sprintf("%.2f", e.ConsistencyScore),
			strconv.Itoa(e.RoundsParticipated),
			strconv.Itoa(e.VotesReceived),
			fmt.Sprintf("%.2f", e.AvgVoteCast),
		})
	}
	renderTable(w, []string{"Rank", "Competitor", "Points", "Win%", "Podium%", "Avg Pos", "StdDev", "Rounds", "Votes", "Avg Cast"}, rows)
	return nil
}

// renderTable prints a borderless, upper-cased header table.
func renderTable(w io.Writer, header []string, rows [][]string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(true)
	t.SetBorder(false)
	t.SetColumnSeparator("")
	t.SetHeaderLine(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.AppendBulk(rows)
	t.Render()
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q", format), 2)
	}
}
