package blueprint

import (
	"fmt"

	"crossmatch/internal/nn"
)

// Centralized is a body driven by a single brain that reads every sensor.
type Centralized struct {
	name       string
	sensors    []string
	hidden     []int
	activation string
}

func NewCentralized(name string, sensors []string, hidden []int, activation string) (*Centralized, error) {
	if name == "" {
		name = string(ShapeCentralized)
	}
	if _, err := resolveSensors(sensors); err != nil {
		return nil, fmt.Errorf("blueprint %s: %w", name, err)
	}
	return &Centralized{
		name:       name,
		sensors:    append([]string(nil), sensors...),
		hidden:     append([]int(nil), hidden...),
		activation: activation,
	}, nil
}

func (c *Centralized) Name() string {
	return c.name
}

func (c *Centralized) Build() (Agent, error) {
	sensors, err := resolveSensors(c.sensors)
	if err != nil {
		return nil, err
	}
	sizes := append([]int{len(sensors)}, c.hidden...)
	sizes = append(sizes, 1)
	brain, err := nn.NewMLP(sizes, c.activation)
	if err != nil {
		return nil, fmt.Errorf("blueprint %s: %w", c.name, err)
	}
	return &centralizedAgent{sensors: sensors, brain: brain}, nil
}

type centralizedAgent struct {
	sensors []sensorFunc
	brain   *nn.MLP
}

func (a *centralizedAgent) Shape() Shape {
	return ShapeCentralized
}

func (a *centralizedAgent) SubUnits() []SubUnit {
	return []SubUnit{a.brain}
}

func (a *centralizedAgent) Act(obs Observation) (float64, error) {
	out, err := a.brain.Step(readSensors(a.sensors, obs))
	if err != nil {
		return 0, err
	}
	return clampUnit(out[0]), nil
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
