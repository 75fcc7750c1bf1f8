package blueprint

import (
	"fmt"
	"sort"

	"crossmatch/internal/nn"
)

// Cell is one voxel of a distributed body. A cell with no sensors of its own
// reads the body-wide sensor set.
type Cell struct {
	X       int      `yaml:"x"`
	Y       int      `yaml:"y"`
	Sensors []string `yaml:"sensors,omitempty"`
}

// Distributed is a grid body with one brain per cell. Each brain reads its
// sensors plus the cell's normalized column, and the body force is the mean
// of the cell outputs. Sub-units are enumerated row by row, left to right.
type Distributed struct {
	name       string
	width      int
	height     int
	cells      []Cell
	hidden     []int
	activation string
}

func NewDistributed(name string, width, height int, cells []Cell, sensors []string, hidden []int, activation string) (*Distributed, error) {
	if name == "" {
		name = string(ShapeDistributed)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("blueprint %s: grid must be positive, got %dx%d", name, width, height)
	}
	if len(cells) == 0 {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				cells = append(cells, Cell{X: x, Y: y})
			}
		}
	}

	resolved := make([]Cell, 0, len(cells))
	seen := make(map[[2]int]struct{}, len(cells))
	for _, cell := range cells {
		if cell.X < 0 || cell.X >= width || cell.Y < 0 || cell.Y >= height {
			return nil, fmt.Errorf("blueprint %s: cell (%d,%d) outside %dx%d grid", name, cell.X, cell.Y, width, height)
		}
		key := [2]int{cell.X, cell.Y}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("blueprint %s: duplicate cell (%d,%d)", name, cell.X, cell.Y)
		}
		seen[key] = struct{}{}
		if len(cell.Sensors) == 0 {
			cell.Sensors = append([]string(nil), sensors...)
		} else {
			cell.Sensors = append([]string(nil), cell.Sensors...)
		}
		if _, err := resolveSensors(cell.Sensors); err != nil {
			return nil, fmt.Errorf("blueprint %s: cell (%d,%d): %w", name, cell.X, cell.Y, err)
		}
		resolved = append(resolved, cell)
	}
	sort.Slice(resolved, func(i, j int) bool {
		if resolved[i].Y != resolved[j].Y {
			return resolved[i].Y < resolved[j].Y
		}
		return resolved[i].X < resolved[j].X
	})

	return &Distributed{
		name:       name,
		width:      width,
		height:     height,
		cells:      resolved,
		hidden:     append([]int(nil), hidden...),
		activation: activation,
	}, nil
}

func (d *Distributed) Name() string {
	return d.name
}

func (d *Distributed) Cells() []Cell {
	out := make([]Cell, len(d.cells))
	copy(out, d.cells)
	return out
}

func (d *Distributed) Build() (Agent, error) {
	agent := &distributedAgent{
		cells: make([]distributedCell, 0, len(d.cells)),
	}
	for _, cell := range d.cells {
		sensors, err := resolveSensors(cell.Sensors)
		if err != nil {
			return nil, err
		}
		sizes := append([]int{len(sensors) + 1}, d.hidden...)
		sizes = append(sizes, 1)
		brain, err := nn.NewMLP(sizes, d.activation)
		if err != nil {
			return nil, fmt.Errorf("blueprint %s: cell (%d,%d): %w", d.name, cell.X, cell.Y, err)
		}
		column := 0.0
		if d.width > 1 {
			column = float64(cell.X)/float64(d.width-1)*2 - 1
		}
		agent.cells = append(agent.cells, distributedCell{sensors: sensors, column: column, brain: brain})
	}
	return agent, nil
}

type distributedCell struct {
	sensors []sensorFunc
	column  float64
	brain   *nn.MLP
}

type distributedAgent struct {
	cells []distributedCell
}

func (a *distributedAgent) Shape() Shape {
	return ShapeDistributed
}

func (a *distributedAgent) SubUnits() []SubUnit {
	units := make([]SubUnit, len(a.cells))
	for i := range a.cells {
		units[i] = a.cells[i].brain
	}
	return units
}

func (a *distributedAgent) Act(obs Observation) (float64, error) {
	total := 0.0
	for i, cell := range a.cells {
		out, err := cell.brain.Step(readSensors(cell.sensors, obs, cell.column))
		if err != nil {
			return 0, fmt.Errorf("cell %d: %w", i, err)
		}
		total += out[0]
	}
	return clampUnit(total / float64(len(a.cells))), nil
}
