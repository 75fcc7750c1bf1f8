package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"crossmatch/internal/arena"
	"crossmatch/internal/match"
	"crossmatch/internal/model"
	"crossmatch/internal/results"
)

type Config struct {
	// Engine is resolved once per scheduler and shared by every match.
	Engine     *arena.Resolver
	Policy     Policy
	Aggregator *results.Aggregator
	// Workers above one runs matches concurrently. Outcomes are still
	// recorded by a single goroutine, in plan order.
	Workers  int
	Observer arena.Observer
	Scoring  []match.Option
	Logger   *slog.Logger
}

// Failure is a contest that produced no outcome.
type Failure struct {
	Fixture  Fixture
	HomeTeam string
	AwayTeam string
	Err      error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s/%d vs %s/%d: %v", f.HomeTeam, f.Fixture.HomeAgent, f.AwayTeam, f.Fixture.AwayAgent, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

type Result struct {
	Fixtures int
	Records  []model.MatchRecord
	Failures []Failure
	Summary  model.Summary
}

type Scheduler struct {
	cfg Config
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine resolver is required")
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyFullCross
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = results.NewAggregator(results.PolicyAverage)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{cfg: cfg}, nil
}

func (s *Scheduler) Aggregator() *results.Aggregator {
	return s.cfg.Aggregator
}

// Run plays every fixture of the configured policy. A failed contest is
// logged and collected without stopping the run. Planning and engine
// resolution errors abort before any contest starts. A cancelled context
// stops scheduling new contests; the partial result is returned with the
// context error.
func (s *Scheduler) Run(ctx context.Context, teams []Team) (Result, error) {
	fixtures, err := Plan(teams, s.cfg.Policy)
	if err != nil {
		return Result{}, err
	}
	engine, err := s.cfg.Engine.Engine()
	if err != nil {
		return Result{}, fmt.Errorf("resolve engine: %w", err)
	}
	opts := append([]match.Option{match.WithObserver(s.cfg.Observer)}, s.cfg.Scoring...)
	executor, err := match.NewExecutor(engine, opts...)
	if err != nil {
		return Result{}, err
	}

	log := s.cfg.Logger.With("engine", engine.Name(), "policy", string(s.cfg.Policy))
	log.Info("tournament_started", "teams", len(teams), "fixtures", len(fixtures), "workers", s.cfg.Workers)

	res := Result{Fixtures: len(fixtures)}
	collect := func(o played) {
		if o.err != nil {
			failure := Failure{
				Fixture:  o.fixture,
				HomeTeam: teams[o.fixture.HomeTeam].Name(),
				AwayTeam: teams[o.fixture.AwayTeam].Name(),
				Err:      o.err,
			}
			log.Warn("match_failed", "fixture", o.fixture, "home_team", failure.HomeTeam, "away_team", failure.AwayTeam, "err", o.err)
			res.Failures = append(res.Failures, failure)
			return
		}
		rec := newRecord(teams, o.fixture, o.outcome)
		if err := s.cfg.Aggregator.Record(rec); err != nil {
			log.Warn("match_not_recorded", "fixture", o.fixture, "err", err)
			res.Failures = append(res.Failures, Failure{Fixture: o.fixture, HomeTeam: rec.HomeTeam, AwayTeam: rec.AwayTeam, Err: err})
			return
		}
		log.Debug("match_recorded", "record", rec)
		res.Records = append(res.Records, rec)
	}

	var runErr error
	if s.cfg.Workers == 1 || len(fixtures) < 2 {
		runErr = s.runSequential(ctx, executor, teams, fixtures, collect)
	} else {
		runErr = s.runConcurrent(ctx, executor, teams, fixtures, collect)
	}

	res.Summary = s.cfg.Aggregator.Summarize()
	log.Info("tournament_finished", "matches", len(res.Records), "failures", len(res.Failures))
	return res, runErr
}

type played struct {
	fixture Fixture
	outcome model.Outcome
	err     error
}

func (s *Scheduler) runSequential(ctx context.Context, executor *match.Executor, teams []Team, fixtures []Fixture, collect func(played)) error {
	for _, fixture := range fixtures {
		if err := ctx.Err(); err != nil {
			return err
		}
		collect(play(ctx, executor, teams, fixture))
	}
	return nil
}

func (s *Scheduler) runConcurrent(ctx context.Context, executor *match.Executor, teams []Team, fixtures []Fixture, collect func(played)) error {
	jobs := make(chan Fixture)
	outcomes := make(chan played, len(fixtures))

	workerCount := s.cfg.Workers
	if workerCount > len(fixtures) {
		workerCount = len(fixtures)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for fixture := range jobs {
				outcomes <- play(ctx, executor, teams, fixture)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, fixture := range fixtures {
			select {
			case <-ctx.Done():
				return
			case jobs <- fixture:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Outcomes arrive in completion order and are released in plan order.
	pending := make(map[int]played)
	next := 0
	for o := range outcomes {
		pending[o.fixture.Seq] = o
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			collect(ready)
			next++
		}
	}
	// Gaps are only left by fixtures a cancelled context never dispatched.
	if len(pending) > 0 {
		seqs := make([]int, 0, len(pending))
		for seq := range pending {
			seqs = append(seqs, seq)
		}
		sort.Ints(seqs)
		for _, seq := range seqs {
			collect(pending[seq])
		}
	}
	return ctx.Err()
}

func play(ctx context.Context, executor *match.Executor, teams []Team, fixture Fixture) played {
	home := teams[fixture.HomeTeam].Factory(fixture.HomeAgent)
	away := teams[fixture.AwayTeam].Factory(fixture.AwayAgent)
	outcome, err := executor.Run(ctx, home, away)
	return played{fixture: fixture, outcome: outcome, err: err}
}

func newRecord(teams []Team, fixture Fixture, outcome model.Outcome) model.MatchRecord {
	return model.MatchRecord{
		HomeTeam:  teams[fixture.HomeTeam].Name(),
		HomeAgent: fixture.HomeAgent,
		AwayTeam:  teams[fixture.AwayTeam].Name(),
		AwayAgent: fixture.AwayAgent,
		HomeWon:   outcome.HomeScore > outcome.AwayScore,
		HomeScore: outcome.HomeScore,
		AwayScore: outcome.AwayScore,
		Duration:  outcome.Duration,
	}
}
