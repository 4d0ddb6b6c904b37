package strategy

import (
	"fmt"
	"sort"
)

// Factory builds a strategy instance from raw params (YAML or JSON).
type Factory func(params []byte) (Strategy, error)

// Registry maps strategy names to factories. Unknown names are rejected
// before a run starts.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry preloaded with the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register("ma_crossover", func(params []byte) (Strategy, error) {
		return NewMACrossover(params)
	})
	r.Register("rsi", func(params []byte) (Strategy, error) {
		return NewRSIThreshold(params)
	})

	return r
}

// Register adds or replaces a factory under the given name.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Names returns all registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// New constructs a strategy by name. Unknown names fail with the list of
// known ones.
func (r *Registry) New(name string, params []byte) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %v)", name, r.Names())
	}

	return factory(params)
}
