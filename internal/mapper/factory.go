package mapper

import (
	"fmt"

	"crossmatch/internal/blueprint"
	"crossmatch/internal/model"
)

// Factory produces fresh agents with a bound genotype already injected.
// It is immutable after construction and safe for concurrent use.
type Factory struct {
	bp       blueprint.Blueprint
	genotype model.Genotype
	blocks   [][]float64
}

func newFactory(bp blueprint.Blueprint, genotype model.Genotype, blocks [][]float64) *Factory {
	return &Factory{bp: bp, genotype: genotype.Clone(), blocks: blocks}
}

func (f *Factory) Blueprint() blueprint.Blueprint {
	return f.bp
}

func (f *Factory) Genotype() model.Genotype {
	return f.genotype.Clone()
}

// Blocks returns a copy of the per-sub-unit parameter assignment, in
// sub-unit enumeration order.
func (f *Factory) Blocks() [][]float64 {
	out := make([][]float64, len(f.blocks))
	for i, block := range f.blocks {
		out[i] = append([]float64(nil), block...)
	}
	return out
}

// Apply builds a new agent from the blueprint and then injects the bound
// parameters into its sub-units.
func (f *Factory) Apply() (blueprint.Agent, error) {
	agent, err := f.bp.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", f.bp.Name(), err)
	}
	units := agent.SubUnits()
	if len(units) != len(f.blocks) {
		return nil, fmt.Errorf("blueprint %s built %d sub-units, factory holds %d blocks", f.bp.Name(), len(units), len(f.blocks))
	}
	for i, unit := range units {
		if err := unit.SetParams(append([]float64(nil), f.blocks[i]...)); err != nil {
			return nil, fmt.Errorf("sub-unit %d: %w", i, err)
		}
	}
	return agent, nil
}
