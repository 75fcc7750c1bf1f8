package arena

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrEngineExists   = errors.New("engine already registered")
	ErrEngineNotFound = errors.New("engine not found")
)

// Params are engine-specific numeric overrides, usually read from config.
type Params map[string]float64

// Factory creates an engine from its parameters.
type Factory func(params Params) (Engine, error)

var engineRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	initializeBuiltInEngines()
}

func initializeBuiltInEngines() {
	MustRegister("sumo", func(params Params) (Engine, error) {
		cfg, err := DefaultSumoConfig().Apply(params)
		if err != nil {
			return nil, err
		}
		return NewSumoEngine(cfg)
	})
}

func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("engine name is required")
	}
	if factory == nil {
		return errors.New("engine factory is required")
	}

	engineRegistry.mu.Lock()
	defer engineRegistry.mu.Unlock()

	if _, exists := engineRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrEngineExists, name)
	}
	engineRegistry.m[name] = factory
	return nil
}

func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

func Lookup(name string) (Factory, error) {
	engineRegistry.mu.RLock()
	factory, ok := engineRegistry.m[name]
	engineRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, name)
	}
	return factory, nil
}

func Names() []string {
	engineRegistry.mu.RLock()
	defer engineRegistry.mu.RUnlock()

	names := make([]string, 0, len(engineRegistry.m))
	for name := range engineRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	engineRegistry.mu.Lock()
	engineRegistry.m = make(map[string]Factory)
	engineRegistry.mu.Unlock()
	initializeBuiltInEngines()
}

// Resolver resolves an engine once and hands the same instance to every
// caller afterwards. A failed resolution is also remembered.
type Resolver struct {
	resolve func() (Engine, error)

	once   sync.Once
	engine Engine
	err    error
}

func NewResolver(resolve func() (Engine, error)) *Resolver {
	return &Resolver{resolve: resolve}
}

// NewNamedResolver resolves a registered engine by name.
func NewNamedResolver(name string, params Params) *Resolver {
	return NewResolver(func() (Engine, error) {
		factory, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		return factory(params)
	})
}

func (r *Resolver) Engine() (Engine, error) {
	r.once.Do(func() {
		if r.resolve == nil {
			r.err = errors.New("engine resolver has no factory")
			return
		}
		r.engine, r.err = r.resolve()
		if r.err == nil && r.engine == nil {
			r.err = errors.New("engine factory returned nil engine")
		}
	})
	return r.engine, r.err
}
