// Package evaluator holds the measurement functions a sweep invokes at
// every step, resolved by name from a registry before a run starts.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/nvandessel/sweepgen/internal/reservoir"
)

// InputFactor sets generated input length relative to the subject's units.
const InputFactor = 4

var (
	ErrNotRegistered = errors.New("evaluator not registered")
	ErrDuplicate     = errors.New("evaluator already registered")
)

// PluginLoadError reports an evaluator that cannot be resolved.
type PluginLoadError struct {
	Name string
	Err  error
}

func (e *PluginLoadError) Error() string {
	return fmt.Sprintf("loading evaluator %q: %v", e.Name, e.Err)
}

func (e *PluginLoadError) Unwrap() error { return e.Err }

// Call carries everything an evaluator sees for one sweep step.
type Call struct {
	Subject reservoir.Subject
	// Input is nil when input generation is disabled.
	Input  []float64
	Params Params
	// Rand is seeded from the dataset replica; evaluators draw from it
	// instead of global state.
	Rand *rand.Rand
}

// Evaluator measures a subject and returns a JSON-serializable result.
type Evaluator interface {
	Evaluate(ctx context.Context, call Call) (any, error)
}

// Func adapts a function to Evaluator.
type Func func(ctx context.Context, call Call) (any, error)

// Evaluate implements Evaluator.
func (f Func) Evaluate(ctx context.Context, call Call) (any, error) { return f(ctx, call) }

// Info describes a registered evaluator.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

type entry struct {
	info Info
	eval Evaluator
}

// Registry maps evaluator names to implementations. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds an evaluator under info.Name.
func (r *Registry) Register(info Info, e Evaluator) error {
	if info.Name == "" {
		return errors.New("evaluator name is empty")
	}
	if e == nil {
		return fmt.Errorf("evaluator %q is nil", info.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[info.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, info.Name)
	}
	r.entries[info.Name] = entry{info: info, eval: e}
	return nil
}

// Lookup resolves name. Unknown names yield a *PluginLoadError.
func (r *Registry) Lookup(name string) (Evaluator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, &PluginLoadError{Name: name, Err: ErrNotRegistered}
	}
	return e.eval, nil
}

// List returns registered evaluators sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GenerateInput returns InputFactor*units values drawn uniformly from
// [-0.5, 0.5).
func GenerateInput(rng *rand.Rand, units int) []float64 {
	input := make([]float64, InputFactor*units)
	for i := range input {
		input[i] = rng.Float64() - 0.5
	}
	return input
}

// inputFor returns the call's input, generating one when none was given.
func inputFor(call Call) []float64 {
	if call.Input != nil {
		return call.Input
	}
	rng := call.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(call.Subject.Units()), 0))
	}
	return GenerateInput(rng, call.Subject.Units())
}

// Builtin returns a registry holding the built-in evaluators.
func Builtin() *Registry {
	r := NewRegistry()
	for _, b := range []struct {
		info Info
		eval Evaluator
	}{
		{Info{
			Name:        "shannon_entropy",
			Description: "Normalized Shannon entropy of the bucketed output sequence",
			Params:      []string{"columnwise", "history_length", "bucket_count"},
		}, Func(ShannonEntropy)},
		{Info{
			Name:        "memory_capacity",
			Description: "NMSE of a one-step readout prediction against the order-n Legendre target (needs a readout)",
			Params:      []string{"nc", "order"},
		}, Func(MemoryCapacity)},
		{Info{
			Name:        "value_spread",
			Description: "Max, min and spread of the output matrix as [max, min, spread]",
		}, Func(ValueSpread)},
		{Info{
			Name:        "config_value",
			Description: "The subject's configuration value for a key",
			Params:      []string{"key"},
		}, Func(ConfigValue)},
	} {
		if err := r.Register(b.info, b.eval); err != nil {
			panic(err)
		}
	}
	return r
}
