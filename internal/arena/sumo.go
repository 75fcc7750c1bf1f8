package arena

import (
	"context"
	"fmt"
	"math"
	"sort"

	"crossmatch/internal/blueprint"
)

// SumoConfig holds the physical constants of the push ring.
type SumoConfig struct {
	Duration      float64
	DT            float64
	HalfWidth     float64
	StartOffset   float64
	BodySize      float64
	MaxForce      float64
	Mass          float64
	Friction      float64
	SnapshotEvery int
}

func DefaultSumoConfig() SumoConfig {
	return SumoConfig{
		Duration:      30,
		DT:            0.05,
		HalfWidth:     10,
		StartOffset:   3,
		BodySize:      1,
		MaxForce:      8,
		Mass:          1,
		Friction:      0.5,
		SnapshotEvery: 10,
	}
}

// Apply overrides fields from a parameter map. Unknown keys are rejected.
func (c SumoConfig) Apply(params Params) (SumoConfig, error) {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := params[key]
		switch key {
		case "duration":
			c.Duration = value
		case "dt":
			c.DT = value
		case "half_width":
			c.HalfWidth = value
		case "start_offset":
			c.StartOffset = value
		case "body_size":
			c.BodySize = value
		case "max_force":
			c.MaxForce = value
		case "mass":
			c.Mass = value
		case "friction":
			c.Friction = value
		case "snapshot_every":
			c.SnapshotEvery = int(value)
		default:
			return SumoConfig{}, fmt.Errorf("unknown sumo parameter: %s", key)
		}
	}
	return c, c.Validate()
}

func (c SumoConfig) Validate() error {
	switch {
	case c.Duration <= 0:
		return fmt.Errorf("sumo duration must be positive")
	case c.DT <= 0 || c.DT > c.Duration:
		return fmt.Errorf("sumo dt must be in (0, duration]")
	case c.HalfWidth <= 0:
		return fmt.Errorf("sumo half width must be positive")
	case c.BodySize <= 0:
		return fmt.Errorf("sumo body size must be positive")
	case 2*c.StartOffset < c.BodySize || c.StartOffset >= c.HalfWidth:
		return fmt.Errorf("sumo start offset must keep bodies apart and inside the ring")
	case c.Mass <= 0:
		return fmt.Errorf("sumo mass must be positive")
	case c.Friction < 0:
		return fmt.Errorf("sumo friction must not be negative")
	}
	return nil
}

// SumoEngine is a one-dimensional push contest: each agent applies a force
// along the ring axis, bodies in contact move as one, and the contest ends
// when a body leaves the ring or the time budget runs out. It holds no
// per-contest state and is safe for concurrent use.
type SumoEngine struct {
	cfg SumoConfig
}

func NewSumoEngine(cfg SumoConfig) (*SumoEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SumoEngine{cfg: cfg}, nil
}

func (e *SumoEngine) Name() string {
	return "sumo"
}

func (e *SumoEngine) Config() SumoConfig {
	return e.cfg
}

type body struct {
	x float64
	v float64
}

func (e *SumoEngine) Run(ctx context.Context, home, away blueprint.Agent, observer Observer) (Result, error) {
	if home == nil || away == nil {
		return Result{}, fmt.Errorf("sumo needs two agents")
	}
	cfg := e.cfg
	h := body{x: -cfg.StartOffset}
	a := body{x: cfg.StartOffset}
	result := Result{HomeStart: h.x, AwayStart: a.x, RingHalfWidth: cfg.HalfWidth}

	steps := int(math.Ceil(cfg.Duration / cfg.DT))
	elapsed := 0.0
	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		contact := a.x-h.x <= cfg.BodySize+1e-9

		// away perceives a mirrored ring so that the opponent is always ahead
		homeObs := blueprint.Observation{
			Position:         h.x,
			Velocity:         h.v,
			OpponentPosition: a.x,
			OpponentVelocity: a.v,
			EdgeDistance:     cfg.HalfWidth + h.x,
			Contact:          contact,
			Elapsed:          elapsed / cfg.Duration,
		}
		awayObs := blueprint.Observation{
			Position:         -a.x,
			Velocity:         -a.v,
			OpponentPosition: -h.x,
			OpponentVelocity: -h.v,
			EdgeDistance:     cfg.HalfWidth - a.x,
			Contact:          contact,
			Elapsed:          elapsed / cfg.Duration,
		}
		homeCmd, err := home.Act(homeObs)
		if err != nil {
			return Result{}, fmt.Errorf("home agent: %w", err)
		}
		awayCmd, err := away.Act(awayObs)
		if err != nil {
			return Result{}, fmt.Errorf("away agent: %w", err)
		}
		fh := clampForce(homeCmd) * cfg.MaxForce
		fa := -clampForce(awayCmd) * cfg.MaxForce

		if contact {
			shared := (h.v + a.v) / 2
			shared += (fh + fa) / (2 * cfg.Mass) * cfg.DT
			h.v, a.v = shared, shared
			result.ContactTime += cfg.DT
		} else {
			h.v += fh / cfg.Mass * cfg.DT
			a.v += fa / cfg.Mass * cfg.DT
		}
		damping := math.Max(0, 1-cfg.Friction*cfg.DT)
		h.v *= damping
		a.v *= damping
		h.x += h.v * cfg.DT
		a.x += a.v * cfg.DT
		if gap := a.x - h.x; gap < cfg.BodySize {
			mid := (a.x + h.x) / 2
			h.x = mid - cfg.BodySize/2
			a.x = mid + cfg.BodySize/2
		}
		elapsed += cfg.DT

		if observer != nil && cfg.SnapshotEvery > 0 && step%cfg.SnapshotEvery == 0 {
			observer(Snapshot{
				Time:         elapsed,
				HomePosition: h.x,
				AwayPosition: a.x,
				HomeForce:    fh,
				AwayForce:    fa,
				Contact:      contact,
			})
		}

		result.HomeOut = h.x < -cfg.HalfWidth || h.x > cfg.HalfWidth
		result.AwayOut = a.x < -cfg.HalfWidth || a.x > cfg.HalfWidth
		if result.HomeOut || result.AwayOut {
			break
		}
	}

	result.Duration = math.Min(elapsed, cfg.Duration)
	result.HomePosition = h.x
	result.AwayPosition = a.x
	return result, nil
}

func clampForce(cmd float64) float64 {
	if math.IsNaN(cmd) {
		return 0
	}
	return math.Max(-1, math.Min(1, cmd))
}
