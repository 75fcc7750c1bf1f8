// Package match runs single contests between two agent factories.
package match

import (
	"context"
	"errors"
	"fmt"
	"math"

	"crossmatch/internal/arena"
	"crossmatch/internal/blueprint"
	"crossmatch/internal/model"
)

var (
	ErrEngineFailure = errors.New("engine failure")
	ErrEnginePanic   = errors.New("engine panic")
)

// EngineFailure wraps anything that prevented a contest from producing a
// valid outcome.
type EngineFailure struct {
	Engine string
	Err    error
}

func (e *EngineFailure) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
}

func (e *EngineFailure) Unwrap() []error {
	return []error{ErrEngineFailure, e.Err}
}

// Factory is the only agent capability the executor needs: producing a
// fresh runnable agent on every call.
type Factory interface {
	Apply() (blueprint.Agent, error)
}

// ScoreFunc rates one side of a finished contest.
type ScoreFunc func(arena.Result) float64

type Executor struct {
	engine    arena.Engine
	observer  arena.Observer
	homeScore ScoreFunc
	awayScore ScoreFunc
}

type Option func(*Executor)

// WithObserver forwards intermediate snapshots of every contest.
func WithObserver(observer arena.Observer) Option {
	return func(e *Executor) {
		e.observer = observer
	}
}

// WithScoring replaces the directional scoring functions.
func WithScoring(home, away ScoreFunc) Option {
	return func(e *Executor) {
		if home != nil {
			e.homeScore = home
		}
		if away != nil {
			e.awayScore = away
		}
	}
}

func NewExecutor(engine arena.Engine, opts ...Option) (*Executor, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	e := &Executor{
		engine:    engine,
		homeScore: arena.ScoreHomeVsAway,
		awayScore: arena.ScoreAwayVsHome,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run plays one contest with home and away agents freshly built from their
// factories. Failures are not retried.
func (e *Executor) Run(ctx context.Context, home, away Factory) (model.Outcome, error) {
	homeAgent, err := home.Apply()
	if err != nil {
		return model.Outcome{}, e.fail(fmt.Errorf("build home agent: %w", err))
	}
	awayAgent, err := away.Apply()
	if err != nil {
		return model.Outcome{}, e.fail(fmt.Errorf("build away agent: %w", err))
	}

	result, err := e.runEngine(ctx, homeAgent, awayAgent)
	if err != nil {
		return model.Outcome{}, e.fail(err)
	}

	outcome := model.Outcome{
		Duration:  result.Duration,
		HomeScore: e.homeScore(result),
		AwayScore: e.awayScore(result),
	}
	if err := validateOutcome(outcome); err != nil {
		return model.Outcome{}, e.fail(err)
	}
	return outcome, nil
}

// runEngine turns an engine panic into an error so that only this contest
// fails.
func (e *Executor) runEngine(ctx context.Context, home, away blueprint.Agent) (result arena.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEnginePanic, r)
		}
	}()
	return e.engine.Run(ctx, home, away, e.observer)
}

func (e *Executor) fail(err error) error {
	return &EngineFailure{Engine: e.engine.Name(), Err: err}
}

func validateOutcome(o model.Outcome) error {
	if math.IsNaN(o.Duration) || math.IsInf(o.Duration, 0) || o.Duration < 0 {
		return fmt.Errorf("invalid duration %v", o.Duration)
	}
	if math.IsNaN(o.HomeScore) || math.IsInf(o.HomeScore, 0) {
		return fmt.Errorf("invalid home score %v", o.HomeScore)
	}
	if math.IsNaN(o.AwayScore) || math.IsInf(o.AwayScore, 0) {
		return fmt.Errorf("invalid away score %v", o.AwayScore)
	}
	return nil
}
