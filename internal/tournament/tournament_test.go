package tournament

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"crossmatch/internal/arena"
	"crossmatch/internal/blueprint"
	"crossmatch/internal/match"
	"crossmatch/internal/results"
)

type taggedAgent struct {
	tag string
}

func (a *taggedAgent) Shape() blueprint.Shape                     { return blueprint.ShapeCentralized }
func (a *taggedAgent) SubUnits() []blueprint.SubUnit              { return nil }
func (a *taggedAgent) Act(blueprint.Observation) (float64, error) { return 0, nil }

type taggedFactory string

func (f taggedFactory) Apply() (blueprint.Agent, error) {
	return &taggedAgent{tag: string(f)}, nil
}

// tableEngine looks contests up by "home|away" tag. Home and away scores are
// carried in the final positions.
type tableEngine struct {
	table  map[string]arena.Result
	fail   map[string]bool
	panics map[string]bool
}

func (e *tableEngine) Name() string { return "table" }

func (e *tableEngine) Run(_ context.Context, home, away blueprint.Agent, _ arena.Observer) (arena.Result, error) {
	key := home.(*taggedAgent).tag + "|" + away.(*taggedAgent).tag
	if e.fail[key] {
		return arena.Result{}, errors.New("simulation diverged")
	}
	if e.panics[key] {
		panic("body index out of range")
	}
	result, ok := e.table[key]
	if !ok {
		return arena.Result{Duration: 1}, nil
	}
	return result, nil
}

var positionScoring = match.WithScoring(
	func(r arena.Result) float64 { return r.HomePosition },
	func(r arena.Result) float64 { return r.AwayPosition },
)

func scenarioEngine() *tableEngine {
	return &tableEngine{table: map[string]arena.Result{
		"A0|B0": {Duration: 4.2, HomePosition: 3.0, AwayPosition: 1.0},
		"A1|B0": {Duration: 5.0, HomePosition: 0.5, AwayPosition: 2.0},
		"B0|A0": {Duration: 4.2, HomePosition: 1.0, AwayPosition: 3.0},
		"B0|A1": {Duration: 5.0, HomePosition: 2.0, AwayPosition: 0.5},
	}}
}

func scenarioTeams(t *testing.T) []Team {
	t.Helper()
	a, err := NewTeam("A", []match.Factory{taggedFactory("A0"), taggedFactory("A1")})
	if err != nil {
		t.Fatalf("team A: %v", err)
	}
	b, err := NewTeam("B", []match.Factory{taggedFactory("B0")})
	if err != nil {
		t.Fatalf("team B: %v", err)
	}
	return []Team{a, b}
}

func newTestScheduler(t *testing.T, engine arena.Engine, workers int) *Scheduler {
	t.Helper()
	scheduler, err := NewScheduler(Config{
		Engine:     arena.NewResolver(func() (arena.Engine, error) { return engine, nil }),
		Policy:     PolicyFullCross,
		Aggregator: results.NewAggregator(results.PolicyAverage),
		Workers:    workers,
		Scoring:    []match.Option{positionScoring},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return scheduler
}

func TestPlanPolicies(t *testing.T) {
	sizes := []int{2, 1, 3}
	teams := make([]Team, len(sizes))
	for i, size := range sizes {
		factories := make([]match.Factory, size)
		for k := range factories {
			factories[k] = taggedFactory("x")
		}
		team, err := NewTeam(string(rune('A'+i)), factories)
		if err != nil {
			t.Fatalf("team: %v", err)
		}
		teams[i] = team
	}

	cases := []struct {
		policy Policy
		want   int
	}{
		{PolicyFullCross, 22},
		{PolicySingleDirection, 22},
		{PolicySelfPlay, 12},
	}
	for _, tc := range cases {
		fixtures, err := Plan(teams, tc.policy)
		if err != nil {
			t.Fatalf("%s: %v", tc.policy, err)
		}
		if len(fixtures) != tc.want {
			t.Fatalf("%s: got %d fixtures want %d", tc.policy, len(fixtures), tc.want)
		}
		again, _ := Plan(teams, tc.policy)
		if !reflect.DeepEqual(fixtures, again) {
			t.Fatalf("%s: plan is not deterministic", tc.policy)
		}
		for i, f := range fixtures {
			if f.Seq != i {
				t.Fatalf("%s: fixture %d has seq %d", tc.policy, i, f.Seq)
			}
			diagonal := f.HomeTeam == f.AwayTeam
			if diagonal != (tc.policy == PolicySelfPlay) {
				t.Fatalf("%s: unexpected diagonal fixture %+v", tc.policy, f)
			}
		}
	}
}

func TestPlanFullCrossOrder(t *testing.T) {
	fixtures, err := Plan(scenarioTeams(t), PolicyFullCross)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := []Fixture{
		{Seq: 0, HomeTeam: 0, HomeAgent: 0, AwayTeam: 1, AwayAgent: 0},
		{Seq: 1, HomeTeam: 0, HomeAgent: 1, AwayTeam: 1, AwayAgent: 0},
		{Seq: 2, HomeTeam: 1, HomeAgent: 0, AwayTeam: 0, AwayAgent: 0},
		{Seq: 3, HomeTeam: 1, HomeAgent: 0, AwayTeam: 0, AwayAgent: 1},
	}
	if !reflect.DeepEqual(fixtures, want) {
		t.Fatalf("unexpected order:\n got %+v\nwant %+v", fixtures, want)
	}
}

func TestPlanRejectsBadInput(t *testing.T) {
	a, _ := NewTeam("A", nil)
	if _, err := Plan([]Team{a, a}, PolicyFullCross); !errors.Is(err, ErrDuplicateTeam) {
		t.Fatalf("expected ErrDuplicateTeam, got %v", err)
	}
	if _, err := Plan([]Team{a}, Policy("round_robin")); err == nil {
		t.Fatal("expected unsupported policy error")
	}
	if _, err := ParsePolicy("round_robin"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := NewTeam(" ", nil); err == nil {
		t.Fatal("expected missing name error")
	}
	if _, err := NewTeam("A", []match.Factory{nil}); err == nil {
		t.Fatal("expected nil factory error")
	}
}

func TestSchedulerEndToEndScenario(t *testing.T) {
	scheduler := newTestScheduler(t, scenarioEngine(), 1)
	res, err := scheduler.Run(context.Background(), scenarioTeams(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Fixtures != 4 || len(res.Records) != 4 || len(res.Failures) != 0 {
		t.Fatalf("unexpected result sizes: fixtures=%d records=%d failures=%d", res.Fixtures, len(res.Records), len(res.Failures))
	}
	wantWon := []bool{true, false, false, true}
	for i, rec := range res.Records {
		if rec.HomeWon != wantWon[i] {
			t.Fatalf("record %d: home won=%v", i, rec.HomeWon)
		}
	}

	agg := scheduler.Aggregator()
	ab, _ := agg.Cell("A", "B")
	ba, _ := agg.Cell("B", "A")
	if ab.Wins != 1 || ba.Wins != 1 {
		t.Fatalf("unexpected win counts: A/B=%d B/A=%d", ab.Wins, ba.Wins)
	}
	if res.Summary.MostHomeWins.Team != "A" || res.Summary.MostHomeWins.Count != 1 {
		t.Fatalf("unexpected most home wins: %+v", res.Summary.MostHomeWins)
	}
	if math.Abs(res.Summary.AverageHomeWinDuration["A"]-4.2) > 1e-12 {
		t.Fatalf("unexpected A duration: %+v", res.Summary.AverageHomeWinDuration)
	}
}

func TestSchedulerContinuesAfterFailure(t *testing.T) {
	engine := scenarioEngine()
	engine.fail = map[string]bool{"A1|B0": true}
	scheduler := newTestScheduler(t, engine, 1)
	res, err := scheduler.Run(context.Background(), scenarioTeams(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 3 || len(res.Failures) != 1 {
		t.Fatalf("unexpected records=%d failures=%d", len(res.Records), len(res.Failures))
	}
	failure := res.Failures[0]
	if failure.HomeTeam != "A" || failure.Fixture.HomeAgent != 1 || failure.AwayTeam != "B" {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if !errors.Is(failure, match.ErrEngineFailure) {
		t.Fatalf("failure should wrap ErrEngineFailure: %v", failure.Err)
	}
	if res.Summary.Matches != 3 {
		t.Fatalf("summary must cover the successful subset, got %d", res.Summary.Matches)
	}
}

func TestSchedulerSurvivesEnginePanic(t *testing.T) {
	for _, workers := range []int{1, 3} {
		engine := scenarioEngine()
		engine.panics = map[string]bool{"A0|B0": true}
		res, err := newTestScheduler(t, engine, workers).Run(context.Background(), scenarioTeams(t))
		if err != nil {
			t.Fatalf("workers=%d run: %v", workers, err)
		}
		if len(res.Records) != 3 || len(res.Failures) != 1 {
			t.Fatalf("workers=%d unexpected records=%d failures=%d", workers, len(res.Records), len(res.Failures))
		}
		failure := res.Failures[0]
		if failure.HomeTeam != "A" || failure.Fixture.HomeAgent != 0 {
			t.Fatalf("workers=%d unexpected failure: %+v", workers, failure)
		}
		if !errors.Is(failure, match.ErrEnginePanic) || !errors.Is(failure, match.ErrEngineFailure) {
			t.Fatalf("workers=%d failure should wrap ErrEnginePanic: %v", workers, failure.Err)
		}
	}
}

func TestSchedulerConcurrentMatchesSequential(t *testing.T) {
	sequential, err := newTestScheduler(t, scenarioEngine(), 1).Run(context.Background(), scenarioTeams(t))
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	concurrent, err := newTestScheduler(t, scenarioEngine(), 3).Run(context.Background(), scenarioTeams(t))
	if err != nil {
		t.Fatalf("concurrent: %v", err)
	}
	if !reflect.DeepEqual(sequential.Records, concurrent.Records) {
		t.Fatalf("records differ:\n seq %+v\n par %+v", sequential.Records, concurrent.Records)
	}
	if !reflect.DeepEqual(sequential.Summary, concurrent.Summary) {
		t.Fatalf("summaries differ:\n seq %+v\n par %+v", sequential.Summary, concurrent.Summary)
	}
}

func TestSchedulerSelfPlayPopulatesDiagonal(t *testing.T) {
	engine := &tableEngine{table: map[string]arena.Result{
		"A0|A0": {Duration: 2, HomePosition: 1, AwayPosition: 0},
	}}
	scheduler, err := NewScheduler(Config{
		Engine:  arena.NewResolver(func() (arena.Engine, error) { return engine, nil }),
		Policy:  PolicySelfPlay,
		Scoring: []match.Option{positionScoring},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	res, err := scheduler.Run(context.Background(), scenarioTeams(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 6 {
		t.Fatalf("expected 6 self-play records, got %d", len(res.Records))
	}
	cell, ok := scheduler.Aggregator().Cell("A", "A")
	if !ok || cell.Matches != 4 || cell.Wins != 2 {
		t.Fatalf("unexpected diagonal cell: %+v", cell)
	}
}

func TestSchedulerAbortsOnSetupErrors(t *testing.T) {
	if _, err := NewScheduler(Config{}); err == nil {
		t.Fatal("expected missing engine error")
	}

	calls := 0
	scheduler, err := NewScheduler(Config{
		Engine: arena.NewResolver(func() (arena.Engine, error) {
			calls++
			return nil, errors.New("no physics")
		}),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	res, err := scheduler.Run(context.Background(), scenarioTeams(t))
	if err == nil {
		t.Fatal("expected engine resolution error")
	}
	if len(res.Records) != 0 || calls != 1 {
		t.Fatalf("nothing should run after a setup error, records=%d calls=%d", len(res.Records), calls)
	}
}

func TestSchedulerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newTestScheduler(t, scenarioEngine(), 1).Run(ctx, scenarioTeams(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(res.Records) != 0 {
		t.Fatalf("no match should be recorded, got %d", len(res.Records))
	}
	if res.Summary.Matches != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
}
