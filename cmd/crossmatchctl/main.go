package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"crossmatch/internal/blueprint"
	"crossmatch/internal/config"
	"crossmatch/internal/loader"
	"crossmatch/internal/logging"
	"crossmatch/internal/model"
	"crossmatch/internal/report"
	"crossmatch/internal/storage"
	"crossmatch/pkg/crossmatch"
)

const (
	defaultDBPath     = "crossmatch.db"
	defaultResultsDir = "results"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "example":
		return runExample(ctx, args[1:])
	case "defaults":
		return runDefaults(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "matches":
		return runMatches(ctx, args[1:])
	case "summary":
		return runSummary(ctx, args[1:])
	case "engines":
		return runEngines(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "tournament config YAML")
	runID := fs.String("run-id", "", "explicit run id (generated when empty)")
	storeKind := fs.String("store", "", "store backend override: memory|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database path override")
	workers := fs.Int("workers", 0, "concurrent matches override")
	outDir := fs.String("out", "", "artifacts directory override")
	resumePath := fs.String("resume", "", "results matrix to resume from")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("run requires --config")
	}
	if *workers < 0 {
		return errors.New("workers must be >= 0")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *storeKind != "" {
		cfg.Store.Kind = *storeKind
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if *workers > 0 {
		cfg.Run.Workers = *workers
	}
	if *outDir != "" {
		if cfg.Output.Dir, err = filepath.Abs(*outDir); err != nil {
			return err
		}
	}
	if *resumePath != "" {
		if cfg.Output.ResumeMatrix, err = filepath.Abs(*resumePath); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	client, err := crossmatch.NewClient(ctx, crossmatch.Options{
		StoreKind:  cfg.Store.Kind,
		DBPath:     cfg.Path(cfg.Store.Path),
		ResultsDir: defaultResultsDir,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.RunTournament(ctx, crossmatch.RunRequest{Config: cfg, RunID: *runID})
	if err != nil {
		return err
	}

	fmt.Printf("run_id=%s fixtures=%d matches=%d failures=%d skipped=%d\n",
		summary.RunID,
		summary.Fixtures,
		summary.Matches,
		len(summary.Failures),
		len(summary.Skipped),
	)
	printSummary(summary.Summary)
	fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	return nil
}

func runExample(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("example", flag.ContinueOnError)
	blueprintPath := fs.String("blueprint", "", "blueprint description YAML (default blueprint when empty)")
	out := fs.String("out", "", "genotype file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("example requires --out")
	}

	var desc blueprint.Description
	if *blueprintPath != "" {
		loaded, err := blueprint.LoadDescription(*blueprintPath)
		if err != nil {
			return err
		}
		desc = loaded
	} else {
		cfg, err := config.Defaults()
		if err != nil {
			return err
		}
		desc = cfg.Blueprint
	}

	genotype, err := crossmatch.ExampleGenotype(desc)
	if err != nil {
		return err
	}
	if err := loader.WriteGenotypeFile(*out, genotype); err != nil {
		return err
	}
	fmt.Printf("wrote example genotype size=%d path=%s\n", len(genotype), *out)
	return nil
}

func runDefaults(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("defaults", flag.ContinueOnError)
	out := fs.String("out", "", "config file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("defaults requires --out")
	}
	cfg, err := config.Defaults()
	if err != nil {
		return err
	}
	if err := cfg.WriteYAML(*out); err != nil {
		return err
	}
	fmt.Printf("wrote default config path=%s\n", *out)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := openClient(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s engine=%s schedule=%s aggregation=%s teams=%d matches=%d failures=%d skipped=%d\n",
			r.ID,
			r.CreatedAtUTC,
			r.Engine,
			r.Schedule,
			r.Aggregation,
			len(r.Teams),
			r.Matches,
			r.Failures,
			r.Skipped,
		)
	}
	return nil
}

func runMatches(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("matches", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	resultsDir := fs.String("results-dir", defaultResultsDir, "artifacts directory searched when the store has no such run")
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit match log as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("matches requires --run-id")
	}

	client, err := openClient(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	records, err := client.Matches(ctx, *runID)
	if errors.Is(err, crossmatch.ErrRunNotFound) {
		records, err = readDetailedArtifact(filepath.Join(*resultsDir, *runID), err)
	}
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(records)
	}
	for _, r := range records {
		fmt.Printf("home=%s/%d away=%s/%d home_won=%t home_score=%.1f away_score=%.1f duration=%.3f\n",
			r.HomeTeam, r.HomeAgent,
			r.AwayTeam, r.AwayAgent,
			r.HomeWon,
			r.HomeScore,
			r.AwayScore,
			r.Duration,
		)
	}
	return nil
}

func readDetailedArtifact(runDir string, notFound error) ([]model.MatchRecord, error) {
	f, err := os.Open(filepath.Join(runDir, report.DetailedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound
		}
		return nil, err
	}
	defer f.Close()
	return report.ReadDetailedResults(f)
}

func runSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	resultsDir := fs.String("results-dir", defaultResultsDir, "artifacts directory searched when the store has no such run")
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("summary requires --run-id")
	}

	client, err := openClient(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Summary(ctx, *runID)
	if errors.Is(err, crossmatch.ErrRunNotFound) {
		stored, ok, readErr := report.ReadSummary(filepath.Join(*resultsDir, *runID))
		switch {
		case readErr != nil:
			err = readErr
		case ok:
			summary, err = stored, nil
		}
	}
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(summary)
	}
	printSummary(summary)
	return nil
}

func runEngines(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("engines", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range crossmatch.Engines() {
		fmt.Println(name)
	}
	return nil
}

func openClient(ctx context.Context, storeKind, dbPath string) (*crossmatch.Client, error) {
	return crossmatch.NewClient(ctx, crossmatch.Options{
		StoreKind: storeKind,
		DBPath:    dbPath,
		Logger:    logging.Discard(),
	})
}

func printSummary(s model.Summary) {
	fmt.Printf("matches=%d most_home_wins=%s (%d) most_away_wins=%s (%d) best_average_score=%s (%.3f)\n",
		s.Matches,
		displayTeam(s.MostHomeWins.Team), s.MostHomeWins.Count,
		displayTeam(s.MostAwayWins.Team), s.MostAwayWins.Count,
		displayTeam(s.BestAverageScore.Team), s.BestAverageScore.Score,
	)
	teams := make([]string, 0, len(s.AverageScoreByTeam))
	for team := range s.AverageScoreByTeam {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	for _, team := range teams {
		duration := "n/a"
		if d, ok := s.AverageHomeWinDuration[team]; ok {
			duration = fmt.Sprintf("%.3f", d)
		}
		fmt.Printf("team=%s average_score=%.3f average_home_win_duration=%s\n", team, s.AverageScoreByTeam[team], duration)
	}
}

func displayTeam(team string) string {
	if team == "" {
		return "n/a"
	}
	return team
}

func printJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: crossmatchctl <run|example|defaults|runs|matches|summary|engines> [flags]", msg)
}
