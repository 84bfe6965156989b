package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/sweepgen/internal/evaluator"
	"github.com/nvandessel/sweepgen/internal/pathutil"
	"github.com/nvandessel/sweepgen/internal/runner"
	"github.com/nvandessel/sweepgen/internal/sweep"
)

// Request is a sweep request file:
//
//	evaluator: shannon_entropy
//	datasets: 3
//	parameters:
//	  leak rate: [0.1, 0.9, 0.1]
//	  spectral radius: [0.5, 1.5, 0.5]
//	double_sweep: true
//	evaluator_params:
//	  history_length: 2
//
// Unset fields fall back to the tool configuration.
type Request struct {
	Evaluator       string            `json:"evaluator" yaml:"evaluator"`
	Datasets        int               `json:"datasets" yaml:"datasets"`
	Output          string            `json:"output,omitempty" yaml:"output,omitempty"`
	DoubleSweep     bool              `json:"double_sweep" yaml:"double_sweep"`
	Training        bool              `json:"training" yaml:"training"`
	GenerateInput   bool              `json:"generate_input" yaml:"generate_input"`
	KeepBuildPath   *bool             `json:"keep_build_path,omitempty" yaml:"keep_build_path,omitempty"`
	Seed            *uint64           `json:"seed,omitempty" yaml:"seed,omitempty"`
	InputPolicy     string            `json:"input_policy,omitempty" yaml:"input_policy,omitempty"`
	Parameters      sweep.Specs       `json:"parameters" yaml:"parameters"`
	EvaluatorParams evaluator.Params  `json:"evaluator_params,omitempty" yaml:"evaluator_params,omitempty"`
	Bindings        map[string]string `json:"bindings,omitempty" yaml:"bindings,omitempty"`

	// Defaults overrides defaults-table entries for this request only.
	Defaults map[string]float64 `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// LoadRequest reads a YAML request file.
func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	return ParseRequest(data)
}

// ParseRequest decodes a YAML request. Unknown fields are rejected.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("parsing request: %w", err)
	}
	return &req, nil
}

// Options merges the request with cfg into runner options. Request fields
// win over configuration.
func (r *Request) Options(cfg *SweepgenConfig) (runner.Options, error) {
	if cfg == nil {
		cfg = Default()
	}

	out := r.Output
	if out == "" {
		out = cfg.Output.Dir
	}
	dir, err := pathutil.ExpandHome(out)
	if err != nil {
		return runner.Options{}, err
	}

	table, err := cfg.DefaultsTable()
	if err != nil {
		return runner.Options{}, err
	}
	keys := make([]string, 0, len(r.Defaults))
	for k := range r.Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := table.Set(k, r.Defaults[k]); err != nil {
			return runner.Options{}, &runner.ConfigurationError{Field: "defaults", Msg: err.Error()}
		}
	}

	var bindings map[string]runner.Binding
	if len(r.Bindings) > 0 {
		bindings = make(map[string]runner.Binding, len(r.Bindings))
		for name, text := range r.Bindings {
			b, err := runner.ParseBinding(text)
			if err != nil {
				return runner.Options{}, err
			}
			bindings[name] = b
		}
	}

	policy := r.InputPolicy
	if policy == "" {
		policy = cfg.Output.InputPolicy
	}
	inputPolicy, err := runner.ParseInputPolicy(policy)
	if err != nil {
		return runner.Options{}, err
	}

	opts := runner.Options{
		Datasets:        r.Datasets,
		OutputDir:       dir,
		DoubleSweep:     r.DoubleSweep,
		Training:        r.Training,
		GenerateInput:   r.GenerateInput,
		KeepBuildPath:   cfg.Output.KeepBuildPath,
		Evaluator:       r.Evaluator,
		Parameters:      r.Parameters,
		EvaluatorParams: r.EvaluatorParams,
		Bindings:        bindings,
		Defaults:        table,
		Seed:            cfg.Output.Seed,
		InputPolicy:     inputPolicy,
		NamerAlphabet:   cfg.Naming.Alphabet,
		NamerWidth:      cfg.Naming.Width,
	}
	if r.KeepBuildPath != nil {
		opts.KeepBuildPath = *r.KeepBuildPath
	}
	if r.Seed != nil {
		opts.Seed = *r.Seed
	}
	return opts, nil
}
