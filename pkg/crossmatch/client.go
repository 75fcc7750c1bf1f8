// Package crossmatch is the public entry point for running cross-team
// tournaments and reading back persisted runs.
package crossmatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"crossmatch/internal/arena"
	"crossmatch/internal/blueprint"
	"crossmatch/internal/config"
	"crossmatch/internal/loader"
	"crossmatch/internal/mapper"
	"crossmatch/internal/model"
	"crossmatch/internal/report"
	"crossmatch/internal/results"
	"crossmatch/internal/storage"
	"crossmatch/internal/tournament"
)

const (
	defaultResultsDir = "results"
	defaultDBPath     = "crossmatch.db"
)

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind  string
	DBPath     string
	ResultsDir string
	Logger     *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	resultsDir string
}

type RunRequest struct {
	Config *config.Config
	// RunID is generated when empty.
	RunID string
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Fixtures     int
	Matches      int
	Failures     []tournament.Failure
	Skipped      []loader.Skipped
	Cells        []model.ResultsCell
	Summary      model.Summary
}

// NewClient opens and initializes the configured store.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	resultsDir := opts.ResultsDir
	if resultsDir == "" {
		resultsDir = defaultResultsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init store: %w", err)
	}
	return &Client{store: store, logger: logger, resultsDir: resultsDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// RunTournament loads every team, plays the configured schedule, persists
// the run and writes its artifacts. Genotype files and contests that fail
// are reported in the summary without aborting the run.
func (c *Client) RunTournament(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if cfg == nil {
		return RunSummary{}, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, fmt.Errorf("invalid config: %w", err)
	}
	schedule, err := tournament.ParsePolicy(cfg.Schedule.Policy)
	if err != nil {
		return RunSummary{}, err
	}
	aggregation, err := results.ParsePolicy(cfg.Aggregation.Policy)
	if err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := c.logger.With("run_id", runID)

	teams, skipped, err := c.loadTeams(cfg, log)
	if err != nil {
		return RunSummary{}, err
	}

	agg := results.NewAggregator(aggregation)
	if cfg.Output.ResumeMatrix != "" {
		if err := resume(cfg.Path(cfg.Output.ResumeMatrix), agg); err != nil {
			return RunSummary{}, err
		}
		log.Info("results_resumed", "path", cfg.Output.ResumeMatrix, "cells", len(agg.Cells()))
	}

	var observer arena.Observer
	if cfg.Engine.Observe {
		observer = func(s arena.Snapshot) {
			log.Debug("match_snapshot", "time", s.Time, "home_position", s.HomePosition, "away_position", s.AwayPosition, "contact", s.Contact)
		}
	}
	scheduler, err := tournament.NewScheduler(tournament.Config{
		Engine:     arena.NewNamedResolver(cfg.Engine.Name, arena.Params(cfg.Engine.Params)),
		Policy:     schedule,
		Aggregator: agg,
		Workers:    cfg.Run.Workers,
		Observer:   observer,
		Logger:     log,
	})
	if err != nil {
		return RunSummary{}, err
	}

	res, err := scheduler.Run(ctx, teams)
	if err != nil {
		return RunSummary{}, err
	}

	names := make([]string, len(teams))
	for i, team := range teams {
		names[i] = team.Name()
	}
	run := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339Nano),
		Engine:          cfg.Engine.Name,
		Schedule:        string(schedule),
		Aggregation:     string(aggregation),
		Teams:           names,
		Matches:         len(res.Records),
		Failures:        len(res.Failures),
		Skipped:         len(skipped),
	}
	cells := agg.Cells()
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveMatchRecords(ctx, runID, res.Records); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveResultsCells(ctx, runID, cells); err != nil {
		return RunSummary{}, err
	}

	outDir := c.resultsDir
	if cfg.Output.Dir != "" {
		outDir = cfg.Path(cfg.Output.Dir)
	}
	runDir, err := report.WriteRunArtifacts(outDir, report.Artifacts{Run: run, Aggregator: agg, Summary: res.Summary})
	if err != nil {
		return RunSummary{}, err
	}
	log.Info("run_saved", "dir", runDir, "matches", run.Matches, "failures", run.Failures, "skipped", run.Skipped)

	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Fixtures:     res.Fixtures,
		Matches:      len(res.Records),
		Failures:     res.Failures,
		Skipped:      skipped,
		Cells:        cells,
		Summary:      res.Summary,
	}, nil
}

func (c *Client) loadTeams(cfg *config.Config, log *slog.Logger) ([]tournament.Team, []loader.Skipped, error) {
	teams := make([]tournament.Team, 0, len(cfg.Teams))
	var skipped []loader.Skipped
	for _, tc := range cfg.Teams {
		desc, err := cfg.TeamBlueprint(tc)
		if err != nil {
			return nil, nil, fmt.Errorf("team %s: %w", tc.Name, err)
		}
		codec, err := mapper.FromDescription(desc)
		if err != nil {
			return nil, nil, fmt.Errorf("team %s: %w", tc.Name, err)
		}
		team, teamSkipped, err := loader.LoadTeam(tc.Name, cfg.Path(tc.Dir), codec, log.With("team", tc.Name))
		if err != nil {
			return nil, nil, fmt.Errorf("team %s: %w", tc.Name, err)
		}
		teams = append(teams, team)
		skipped = append(skipped, teamSkipped...)
	}
	return teams, skipped, nil
}

func resume(path string, agg *results.Aggregator) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open resume matrix: %w", err)
	}
	defer f.Close()
	return report.ReadResultsMatrix(f, agg)
}

// Runs lists persisted runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	return c.store.ListRuns(ctx, limit)
}

func (c *Client) Run(ctx context.Context, runID string) (model.RunRecord, error) {
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// Matches returns the match log of a run in recording order.
func (c *Client) Matches(ctx context.Context, runID string) ([]model.MatchRecord, error) {
	records, ok, err := c.store.GetMatchRecords(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return records, nil
}

func (c *Client) Cells(ctx context.Context, runID string) ([]model.ResultsCell, error) {
	cells, ok, err := c.store.GetResultsCells(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return cells, nil
}

// Summary recomputes the summary of a run from its stored match log.
func (c *Client) Summary(ctx context.Context, runID string) (model.Summary, error) {
	records, err := c.Matches(ctx, runID)
	if err != nil {
		return model.Summary{}, err
	}
	return results.Summarize(records), nil
}

// ExampleGenotype returns a zero genotype of the size desc decodes.
func ExampleGenotype(desc blueprint.Description) (model.Genotype, error) {
	codec, err := mapper.FromDescription(desc)
	if err != nil {
		return nil, err
	}
	return codec.ExampleGenotype(), nil
}

func Engines() []string {
	return arena.Names()
}
