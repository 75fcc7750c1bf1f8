// Package mapper converts between flat genotypes and agent factories for a
// blueprint. Heterogeneous codecs assign one distinct block per sub-unit;
// homogeneous codecs broadcast a single block to every sub-unit.
package mapper

import (
	"fmt"
	"strings"

	"crossmatch/internal/blueprint"
	"crossmatch/internal/model"
)

type Mode string

const (
	ModeHomogeneous   Mode = "homogeneous"
	ModeHeterogeneous Mode = "heterogeneous"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeHomogeneous, "homo":
		return ModeHomogeneous, nil
	case ModeHeterogeneous, "hetero", "":
		return ModeHeterogeneous, nil
	default:
		return "", fmt.Errorf("%w: unsupported mapper mode %q", ErrConfiguration, value)
	}
}

type Codec interface {
	Mode() Mode
	Blueprint() blueprint.Blueprint
	ExpectedSize() int
	Decode(genotype model.Genotype) (*Factory, error)
	ExampleGenotype() model.Genotype
	Encode(agent blueprint.Agent) (model.Genotype, error)
}

func New(mode Mode, bp blueprint.Blueprint) (Codec, error) {
	switch mode {
	case ModeHomogeneous:
		return NewHomogeneous(bp)
	case ModeHeterogeneous:
		return NewHeterogeneous(bp)
	default:
		return nil, fmt.Errorf("%w: unsupported mapper mode %q", ErrConfiguration, mode)
	}
}

// FromDescription builds the blueprint and the codec named by desc.
func FromDescription(desc blueprint.Description) (Codec, error) {
	mode, err := ParseMode(desc.Mapper)
	if err != nil {
		return nil, err
	}
	bp, err := blueprint.FromDescription(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return New(mode, bp)
}

type Heterogeneous struct {
	bp    blueprint.Blueprint
	sizes []int
	total int
}

func NewHeterogeneous(bp blueprint.Blueprint) (*Heterogeneous, error) {
	sizes, err := blueprint.SubUnitSizes(bp)
	if err != nil {
		return nil, &ConfigurationError{Blueprint: blueprintName(bp), Reason: err.Error()}
	}
	total := 0
	for _, size := range sizes {
		total += size
	}
	return &Heterogeneous{bp: bp, sizes: sizes, total: total}, nil
}

func (h *Heterogeneous) Mode() Mode                     { return ModeHeterogeneous }
func (h *Heterogeneous) Blueprint() blueprint.Blueprint { return h.bp }
func (h *Heterogeneous) ExpectedSize() int              { return h.total }

func (h *Heterogeneous) ExampleGenotype() model.Genotype {
	return make(model.Genotype, h.total)
}

func (h *Heterogeneous) Decode(genotype model.Genotype) (*Factory, error) {
	if len(genotype) != h.total {
		return nil, &ArityError{Expected: h.total, Found: len(genotype)}
	}
	blocks := make([][]float64, len(h.sizes))
	offset := 0
	for i, size := range h.sizes {
		blocks[i] = append([]float64(nil), genotype[offset:offset+size]...)
		offset += size
	}
	return newFactory(h.bp, genotype, blocks), nil
}

func (h *Heterogeneous) Encode(agent blueprint.Agent) (model.Genotype, error) {
	units := agent.SubUnits()
	if len(units) != len(h.sizes) {
		return nil, fmt.Errorf("agent has %d sub-units, blueprint %s declares %d", len(units), h.bp.Name(), len(h.sizes))
	}
	out := make(model.Genotype, 0, h.total)
	for i, unit := range units {
		params := unit.Params()
		if len(params) != h.sizes[i] {
			return nil, &ArityError{Expected: h.sizes[i], Found: len(params)}
		}
		out = append(out, params...)
	}
	return out, nil
}

type Homogeneous struct {
	bp    blueprint.Blueprint
	units int
	size  int
}

func NewHomogeneous(bp blueprint.Blueprint) (*Homogeneous, error) {
	sizes, err := blueprint.SubUnitSizes(bp)
	if err != nil {
		return nil, &ConfigurationError{Blueprint: blueprintName(bp), Reason: err.Error()}
	}
	for _, size := range sizes[1:] {
		if size != sizes[0] {
			return nil, &ConfigurationError{
				Blueprint: bp.Name(),
				Sizes:     sizes,
				Reason:    "sub-units are not uniformly sized",
			}
		}
	}
	return &Homogeneous{bp: bp, units: len(sizes), size: sizes[0]}, nil
}

func (h *Homogeneous) Mode() Mode                     { return ModeHomogeneous }
func (h *Homogeneous) Blueprint() blueprint.Blueprint { return h.bp }

// ExpectedSize is the size of one sub-unit block, since that block is
// shared by every sub-unit.
func (h *Homogeneous) ExpectedSize() int { return h.size }

func (h *Homogeneous) ExampleGenotype() model.Genotype {
	return make(model.Genotype, h.size)
}

func (h *Homogeneous) Decode(genotype model.Genotype) (*Factory, error) {
	if len(genotype) != h.size {
		return nil, &ArityError{Expected: h.size, Found: len(genotype)}
	}
	blocks := make([][]float64, h.units)
	for i := range blocks {
		blocks[i] = append([]float64(nil), genotype...)
	}
	return newFactory(h.bp, genotype, blocks), nil
}

func (h *Homogeneous) Encode(agent blueprint.Agent) (model.Genotype, error) {
	units := agent.SubUnits()
	if len(units) == 0 {
		return nil, fmt.Errorf("agent has no sub-units")
	}
	first := units[0].Params()
	if len(first) != h.size {
		return nil, &ArityError{Expected: h.size, Found: len(first)}
	}
	for i, unit := range units[1:] {
		params := unit.Params()
		if len(params) != len(first) {
			return nil, &ArityError{Expected: h.size, Found: len(params)}
		}
		for j := range params {
			if params[j] != first[j] {
				return nil, fmt.Errorf("sub-unit %d does not share the parameters of sub-unit 0", i+1)
			}
		}
	}
	return model.Genotype(first), nil
}

func blueprintName(bp blueprint.Blueprint) string {
	if bp == nil {
		return "<nil>"
	}
	return bp.Name()
}
