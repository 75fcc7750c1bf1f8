package nn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
)

// ActivationFunc is the transfer function applied after every MLP layer.
type ActivationFunc func(x float64) float64

var builtinActivations = map[string]ActivationFunc{
	"identity": func(x float64) float64 { return x },
	"relu":     func(x float64) float64 { return math.Max(0, x) },
	"tanh":     math.Tanh,
	"sigmoid":  func(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) },
	"sin":      math.Sin,
	"softsign": func(x float64) float64 { return x / (1 + math.Abs(x)) },
	"gaussian": func(x float64) float64 { return math.Exp(-x * x) },
}

// Names are matched case-insensitively.
var activations = struct {
	mu  sync.RWMutex
	fns map[string]ActivationFunc
}{
	fns: builtinSet(),
}

func builtinSet() map[string]ActivationFunc {
	fns := make(map[string]ActivationFunc, len(builtinActivations))
	for name, fn := range builtinActivations {
		fns[name] = fn
	}
	return fns
}

func activationKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterActivation makes fn available to blueprints under name. Existing
// names, built-ins included, cannot be replaced.
func RegisterActivation(name string, fn ActivationFunc) error {
	key := activationKey(name)
	if key == "" {
		return errors.New("activation name is required")
	}
	if fn == nil {
		return fmt.Errorf("activation %s: function is required", name)
	}

	activations.mu.Lock()
	defer activations.mu.Unlock()

	if _, exists := activations.fns[key]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, key)
	}
	activations.fns[key] = fn
	return nil
}

func GetActivation(name string) (ActivationFunc, error) {
	activations.mu.RLock()
	fn, ok := activations.fns[activationKey(name)]
	activations.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActivationNotFound, name)
	}
	return fn, nil
}

func ListActivations() []string {
	activations.mu.RLock()
	names := make([]string, 0, len(activations.fns))
	for name := range activations.fns {
		names = append(names, name)
	}
	activations.mu.RUnlock()
	sort.Strings(names)
	return names
}

func resetActivationsForTests() {
	activations.mu.Lock()
	activations.fns = builtinSet()
	activations.mu.Unlock()
}
