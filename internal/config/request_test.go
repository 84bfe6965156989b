package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/sweepgen/internal/reservoir"
	"github.com/nvandessel/sweepgen/internal/runner"
)

const sampleRequest = `
evaluator: shannon_entropy
datasets: 3
output: /srv/out
double_sweep: true
generate_input: true
seed: 42
parameters:
  spectral radius: [0.5, 1.5, 0.5]
  leak rate: [0.1, 0.9, 0.1]
evaluator_params:
  history_length: 2
  bucket_count: 8
bindings:
  lr: config:leak rate
defaults:
  node count: 40
`

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}

	if req.Evaluator != "shannon_entropy" || req.Datasets != 3 || !req.DoubleSweep || !req.GenerateInput {
		t.Errorf("unexpected request %+v", req)
	}
	names := req.Parameters.Names()
	if len(names) != 2 || names[0] != "spectral radius" || names[1] != "leak rate" {
		t.Errorf("parameter order = %v, want file order", names)
	}
	if req.EvaluatorParams[0].Name != "history_length" || req.EvaluatorParams[1].Name != "bucket_count" {
		t.Errorf("evaluator param order = %+v", req.EvaluatorParams)
	}
	if req.Seed == nil || *req.Seed != 42 {
		t.Errorf("seed = %v, want 42", req.Seed)
	}
}

func TestParseRequest_UnknownField(t *testing.T) {
	if _, err := ParseRequest([]byte("evaluator: x\ndatasetz: 3\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestLoadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.yaml")
	if err := os.WriteFile(path, []byte(sampleRequest), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRequest(path); err != nil {
		t.Fatalf("LoadRequest failed: %v", err)
	}
	if _, err := LoadRequest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRequest_Options(t *testing.T) {
	req, err := ParseRequest([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	cfg := Default()
	cfg.Output.KeepBuildPath = true
	cfg.Output.Seed = 7

	opts, err := req.Options(cfg)
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}

	if opts.OutputDir != "/srv/out" {
		t.Errorf("OutputDir = %q, want /srv/out", opts.OutputDir)
	}
	if opts.Seed != 42 {
		t.Errorf("Seed = %d, want the request's 42", opts.Seed)
	}
	if !opts.KeepBuildPath {
		t.Error("KeepBuildPath should come from the config when the request is silent")
	}
	if opts.InputPolicy != runner.PerStep {
		t.Errorf("InputPolicy = %q, want per-step", opts.InputPolicy)
	}
	if b := opts.Bindings["lr"]; b.Target != runner.TargetConfig || b.Name != reservoir.KeyLeakRate {
		t.Errorf("binding lr = %+v", b)
	}
	if v, _ := opts.Defaults.Get(reservoir.KeyNodeCount); v != 40 {
		t.Errorf("node count = %v, want 40", v)
	}
	if opts.NamerWidth != cfg.Naming.Width {
		t.Errorf("NamerWidth = %d, want %d", opts.NamerWidth, cfg.Naming.Width)
	}
}

func TestRequest_OptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"bad binding", Request{Bindings: map[string]string{"x": "nowhere"}}},
		{"bad default key", Request{Defaults: map[string]float64{"bogus": 1}}},
		{"bad input policy", Request{InputPolicy: "never"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Options(Default())
			if !errors.Is(err, runner.ErrConfiguration) {
				t.Errorf("Options() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestRequest_OptionsFallsBackToConfigOutput(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = "/data/sweeps"
	opts, err := (&Request{}).Options(cfg)
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if opts.OutputDir != "/data/sweeps" {
		t.Errorf("OutputDir = %q, want /data/sweeps", opts.OutputDir)
	}
}
