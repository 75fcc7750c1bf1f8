// Package blueprint describes agent structures and builds fresh agent
// instances from them. An agent exposes its controllable sub-units in a
// fixed enumeration order; parameter injection is done by internal/mapper.
package blueprint

import "fmt"

type Shape string

const (
	ShapeCentralized Shape = "centralized"
	ShapeDistributed Shape = "distributed"
)

// SubUnit is one independently parametrized controller inside an agent.
type SubUnit interface {
	ParamCount() int
	Params() []float64
	SetParams(params []float64) error
}

// Agent is a runnable phenotype. Act maps one observation to a normalized
// force command in [-1, 1].
type Agent interface {
	Shape() Shape
	SubUnits() []SubUnit
	Act(obs Observation) (float64, error)
}

// Blueprint builds fresh, independently stateful agents.
type Blueprint interface {
	Name() string
	Build() (Agent, error)
}

// SubUnitSizes builds one sample agent and reports the parameter count of
// each of its sub-units in enumeration order.
func SubUnitSizes(bp Blueprint) ([]int, error) {
	if bp == nil {
		return nil, fmt.Errorf("blueprint is required")
	}
	sample, err := bp.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", bp.Name(), err)
	}
	units := sample.SubUnits()
	if len(units) == 0 {
		return nil, fmt.Errorf("blueprint %s has no controllable sub-units", bp.Name())
	}
	sizes := make([]int, len(units))
	for i, unit := range units {
		sizes[i] = unit.ParamCount()
	}
	return sizes, nil
}
