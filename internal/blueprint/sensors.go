package blueprint

import (
	"fmt"
	"sort"
)

// Observation is what one contestant perceives at a simulation step.
// Positions are expressed in the contestant's own frame, so the opponent is
// always on the positive side at the start of a contest.
type Observation struct {
	Position         float64
	Velocity         float64
	OpponentPosition float64
	OpponentVelocity float64
	EdgeDistance     float64
	Contact          bool
	Elapsed          float64
}

type sensorFunc func(Observation) float64

var sensorCatalog = map[string]sensorFunc{
	"position":          func(o Observation) float64 { return o.Position },
	"velocity":          func(o Observation) float64 { return o.Velocity },
	"opponent_position": func(o Observation) float64 { return o.OpponentPosition },
	"opponent_velocity": func(o Observation) float64 { return o.OpponentVelocity },
	"opponent_distance": func(o Observation) float64 { return o.OpponentPosition - o.Position },
	"edge_distance":     func(o Observation) float64 { return o.EdgeDistance },
	"contact": func(o Observation) float64 {
		if o.Contact {
			return 1
		}
		return 0
	},
	"elapsed": func(o Observation) float64 { return o.Elapsed },
	"bias":    func(Observation) float64 { return 1 },
}

// SensorNames lists every sensor a description may reference.
func SensorNames() []string {
	names := make([]string, 0, len(sensorCatalog))
	for name := range sensorCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveSensors(names []string) ([]sensorFunc, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one sensor is required")
	}
	out := make([]sensorFunc, len(names))
	for i, name := range names {
		fn, ok := sensorCatalog[name]
		if !ok {
			return nil, fmt.Errorf("unknown sensor: %s", name)
		}
		out[i] = fn
	}
	return out, nil
}

func readSensors(sensors []sensorFunc, obs Observation, extra ...float64) []float64 {
	inputs := make([]float64, 0, len(sensors)+len(extra))
	for _, sensor := range sensors {
		inputs = append(inputs, sensor(obs))
	}
	return append(inputs, extra...)
}
