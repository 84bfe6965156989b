package runner

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nvandessel/sweepgen/internal/evaluator"
	"github.com/nvandessel/sweepgen/internal/naming"
	"github.com/nvandessel/sweepgen/internal/reservoir"
	"github.com/nvandessel/sweepgen/internal/sweep"
)

// InputPolicy controls how often the synthesized input is re-drawn.
type InputPolicy string

const (
	// PerStep draws a new input sequence at every step.
	PerStep InputPolicy = "per-step"
	// PerReplica reuses one input sequence for every step of a replica.
	PerReplica InputPolicy = "per-replica"
)

// ParseInputPolicy accepts "per-step", "per-replica" or "" (per-step).
func ParseInputPolicy(s string) (InputPolicy, error) {
	switch InputPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PerStep:
		return PerStep, nil
	case PerReplica:
		return PerReplica, nil
	}
	return "", &ConfigurationError{Field: "input policy", Msg: fmt.Sprintf("unknown policy %q", s)}
}

// Target is what a swept name writes to.
type Target int

const (
	TargetConfig Target = iota + 1
	TargetParam
)

func (t Target) String() string {
	switch t {
	case TargetConfig:
		return "config"
	case TargetParam:
		return "param"
	}
	return "unknown"
}

// Binding routes a swept parameter to a configuration key or an evaluator
// parameter.
type Binding struct {
	Target Target
	Name   string
}

func (b Binding) String() string { return b.Target.String() + ":" + b.Name }

// ParseBinding parses "config:<key>" or "param:<name>".
func ParseBinding(s string) (Binding, error) {
	kind, name, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Binding{}, &ConfigurationError{Field: "binding", Msg: fmt.Sprintf("%q: want config:<key> or param:<name>", s)}
	}
	switch strings.TrimSpace(kind) {
	case "config":
		return Binding{Target: TargetConfig, Name: name}, nil
	case "param":
		return Binding{Target: TargetParam, Name: name}, nil
	}
	return Binding{}, &ConfigurationError{Field: "binding", Msg: fmt.Sprintf("%q: unknown target %q", s, kind)}
}

// Options describe one generation run.
type Options struct {
	// Datasets is the number of replicas per combination.
	Datasets int
	// OutputDir must exist; results go to OutputDir/<Evaluator>/.
	OutputDir     string
	DoubleSweep   bool
	Training      bool
	GenerateInput bool
	KeepBuildPath bool

	Evaluator       string
	Parameters      sweep.Specs
	EvaluatorParams evaluator.Params

	// Bindings override how swept names are routed. Without an entry a
	// name binds to the configuration key or evaluator parameter of the
	// same name.
	Bindings map[string]Binding

	// Defaults is the baseline table; reservoir.DefaultTable when nil.
	Defaults *reservoir.Table

	// Subjects, when set, are used instead of the producer: step i of
	// every replica gets Subjects[i].
	Subjects []reservoir.Subject

	// Seed of 0 draws a random seed per replica. Other values derive
	// replica seeds deterministically.
	Seed        uint64
	InputPolicy InputPolicy

	NamerAlphabet string
	NamerWidth    int
}

func (o *Options) validate() error {
	if o.Datasets <= 0 {
		return &ConfigurationError{Field: "datasets", Msg: fmt.Sprintf("must be positive, got %d", o.Datasets)}
	}
	if o.OutputDir == "" {
		return &ConfigurationError{Field: "output dir", Msg: "not set"}
	}
	if o.Evaluator == "" {
		return &ConfigurationError{Field: "evaluator", Msg: "not set"}
	}
	if len(o.Parameters) == 0 {
		return &ConfigurationError{Field: "parameters", Msg: "no parameters to sweep"}
	}
	if err := o.Parameters.Validate(); err != nil {
		var setErr *sweep.InvalidParameterSetError
		if errors.As(err, &setErr) {
			return &ConfigurationError{Field: "parameters", Msg: err.Error()}
		}
		return err
	}

	info, err := os.Stat(o.OutputDir)
	if err != nil {
		return &PathError{Path: o.OutputDir, Err: err}
	}
	if !info.IsDir() {
		return &PathError{Path: o.OutputDir, Err: errors.New("not a directory")}
	}

	policy, err := ParseInputPolicy(string(o.InputPolicy))
	if err != nil {
		return err
	}
	o.InputPolicy = policy

	if o.NamerAlphabet == "" {
		o.NamerAlphabet = naming.DefaultAlphabet
	}
	if o.NamerWidth == 0 {
		o.NamerWidth = naming.DefaultWidth
	}
	if o.Defaults == nil {
		o.Defaults = reservoir.DefaultTable()
	}
	return nil
}

// resolveBindings decides where every swept name writes.
func (o *Options) resolveBindings() (map[string]Binding, error) {
	out := make(map[string]Binding, len(o.Parameters))
	for name, b := range o.Bindings {
		if _, ok := o.Parameters.Lookup(name); !ok {
			return nil, &ConfigurationError{Field: "binding", Msg: fmt.Sprintf("%q is not a swept parameter", name)}
		}
		switch b.Target {
		case TargetConfig:
			if !reservoir.IsKey(b.Name) {
				return nil, &ConfigurationError{Field: "binding", Msg: fmt.Sprintf("%q: unknown configuration key %q", name, b.Name)}
			}
		case TargetParam:
			if o.EvaluatorParams.Index(b.Name) < 0 {
				return nil, &ConfigurationError{Field: "binding", Msg: fmt.Sprintf("%q: evaluator has no parameter %q", name, b.Name)}
			}
		default:
			return nil, &ConfigurationError{Field: "binding", Msg: fmt.Sprintf("%q: no target", name)}
		}
		out[name] = b
	}

	for _, name := range o.Parameters.Names() {
		if _, ok := out[name]; ok {
			continue
		}
		switch {
		case reservoir.IsKey(name):
			out[name] = Binding{Target: TargetConfig, Name: name}
		case o.EvaluatorParams.Index(name) >= 0:
			out[name] = Binding{Target: TargetParam, Name: name}
		default:
			return nil, &ConfigurationError{
				Field: "parameters",
				Msg:   fmt.Sprintf("%q is neither a configuration key nor an evaluator parameter; add a binding", name),
			}
		}
	}

	// A pair sweeping two names into one target would overwrite itself.
	if o.DoubleSweep {
		owner := make(map[Binding]string, len(out))
		for _, name := range o.Parameters.Names() {
			b := out[name]
			if prev, ok := owner[b]; ok {
				return nil, &ConfigurationError{
					Field: "binding",
					Msg:   fmt.Sprintf("%q and %q both write %s", prev, name, b),
				}
			}
			owner[b] = name
		}
	}
	return out, nil
}
