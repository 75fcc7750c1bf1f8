package nn

import (
	"fmt"
)

// MLP is a fully connected feed-forward network whose weights and biases
// are exposed as one flat parameter vector. For every layer, each output
// neuron owns len(input) weights followed by one bias.
type MLP struct {
	sizes      []int
	activation string
	fn         ActivationFunc
	params     []float64
}

func NewMLP(sizes []int, activation string) (*MLP, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("mlp needs at least input and output layer, got %d sizes", len(sizes))
	}
	for i, size := range sizes {
		if size <= 0 {
			return nil, fmt.Errorf("mlp layer %d size must be positive, got %d", i, size)
		}
	}
	if activation == "" {
		activation = "tanh"
	}
	fn, err := GetActivation(activation)
	if err != nil {
		return nil, err
	}
	return &MLP{
		sizes:      append([]int(nil), sizes...),
		activation: activation,
		fn:         fn,
		params:     make([]float64, ParamCountFor(sizes)),
	}, nil
}

// ParamCountFor returns the parameter count of an MLP with the given layer sizes.
func ParamCountFor(sizes []int) int {
	total := 0
	for i := 1; i < len(sizes); i++ {
		total += (sizes[i-1] + 1) * sizes[i]
	}
	return total
}

func (m *MLP) Sizes() []int {
	return append([]int(nil), m.sizes...)
}

func (m *MLP) Activation() string {
	return m.activation
}

func (m *MLP) InputSize() int {
	return m.sizes[0]
}

func (m *MLP) OutputSize() int {
	return m.sizes[len(m.sizes)-1]
}

func (m *MLP) ParamCount() int {
	return len(m.params)
}

// Params returns a copy of the current parameters.
func (m *MLP) Params() []float64 {
	return append([]float64(nil), m.params...)
}

// SetParams replaces all parameters. The slice is copied.
func (m *MLP) SetParams(params []float64) error {
	if len(params) != len(m.params) {
		return fmt.Errorf("mlp expects %d params, got %d", len(m.params), len(params))
	}
	copy(m.params, params)
	return nil
}

func (m *MLP) Step(inputs []float64) ([]float64, error) {
	if len(inputs) != m.sizes[0] {
		return nil, fmt.Errorf("mlp expects %d inputs, got %d", m.sizes[0], len(inputs))
	}
	values := append([]float64(nil), inputs...)
	offset := 0
	for layer := 1; layer < len(m.sizes); layer++ {
		next := make([]float64, m.sizes[layer])
		for j := range next {
			total := 0.0
			for i, v := range values {
				total += v * m.params[offset+i]
			}
			offset += len(values)
			total += m.params[offset]
			offset++
			next[j] = m.fn(total)
		}
		values = next
	}
	return values, nil
}
