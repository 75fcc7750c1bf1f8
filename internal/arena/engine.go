package arena

import (
	"context"

	"crossmatch/internal/blueprint"
)

// Result is the raw end state of one contest, in world coordinates. Home
// starts on the negative side of the ring, away on the positive side.
type Result struct {
	Duration      float64
	HomeStart     float64
	AwayStart     float64
	HomePosition  float64
	AwayPosition  float64
	HomeOut       bool
	AwayOut       bool
	ContactTime   float64
	RingHalfWidth float64
}

// Snapshot is an intermediate simulation state handed to observers.
type Snapshot struct {
	Time         float64
	HomePosition float64
	AwayPosition float64
	HomeForce    float64
	AwayForce    float64
	Contact      bool
}

// Observer receives intermediate snapshots. It must not retain state that
// the core relies on.
type Observer func(Snapshot)

// Engine runs one contest between two agents within its own time budget.
type Engine interface {
	Name() string
	Run(ctx context.Context, home, away blueprint.Agent, observer Observer) (Result, error)
}
