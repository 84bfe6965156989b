package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/sweepgen/internal/naming"
	"github.com/nvandessel/sweepgen/internal/ratelimit"
	"github.com/nvandessel/sweepgen/internal/reservoir"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if config.Output.Dir != filepath.Join("~", ".sweepgen", "data") {
		t.Errorf("expected Output.Dir '~/.sweepgen/data', got '%s'", config.Output.Dir)
	}
	if config.Output.KeepBuildPath {
		t.Error("expected KeepBuildPath to be false by default")
	}
	if config.Output.Seed != 0 {
		t.Errorf("expected Seed 0, got %d", config.Output.Seed)
	}
	if config.Output.InputPolicy != "per-step" {
		t.Errorf("expected InputPolicy 'per-step', got '%s'", config.Output.InputPolicy)
	}
	if config.Naming.Alphabet != naming.DefaultAlphabet || config.Naming.Width != naming.DefaultWidth {
		t.Errorf("unexpected naming defaults %+v", config.Naming)
	}
	if config.Reservoir.Distribution != reservoir.DistUniform {
		t.Errorf("expected Distribution 'uniform', got '%s'", config.Reservoir.Distribution)
	}
	if _, ok := config.MCP.RateLimits["sweep_generate"]; !ok {
		t.Error("expected a default rate limit for sweep_generate")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: debug
output:
  dir: /srv/sweeps
  keep_build_path: true
  seed: 1234
  input_policy: per-replica
naming:
  alphabet: "0123456789"
  width: 4
reservoir:
  distribution: normal
  ridge: 0.001
  defaults:
    node count: 50
    leak rate: 0.3
mcp:
  rate_limits:
    sweep_generate:
      per_minute: 1
      burst: 1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
	if config.Output.Dir != "/srv/sweeps" || !config.Output.KeepBuildPath || config.Output.Seed != 1234 {
		t.Errorf("unexpected output config %+v", config.Output)
	}
	if config.Naming.Width != 4 || config.Naming.Alphabet != "0123456789" {
		t.Errorf("unexpected naming config %+v", config.Naming)
	}
	if config.Reservoir.Distribution != "normal" || config.Reservoir.Ridge != 0.001 {
		t.Errorf("unexpected reservoir config %+v", config.Reservoir)
	}
	if got := config.MCP.RateLimits["sweep_generate"]; got != (ratelimit.Limit{PerMinute: 1, Burst: 1}) {
		t.Errorf("sweep_generate limit = %+v", got)
	}

	table, err := config.DefaultsTable()
	if err != nil {
		t.Fatalf("DefaultsTable failed: %v", err)
	}
	if v, _ := table.Get(reservoir.KeyNodeCount); v != 50 {
		t.Errorf("node count = %v, want 50", v)
	}
	if v, _ := table.Get(reservoir.KeySpectralRadius); v != 1.0 {
		t.Errorf("spectral radius = %v, want the default 1.0", v)
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: trace\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.Logging.Level != "trace" {
		t.Errorf("expected Logging.Level 'trace', got '%s'", config.Logging.Level)
	}
	if config.Naming.Width != naming.DefaultWidth {
		t.Errorf("expected default naming width, got %d", config.Naming.Width)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SWEEPGEN_LOG_LEVEL", "debug")
	t.Setenv("SWEEPGEN_OUTPUT_DIR", "/tmp/sweeps")
	t.Setenv("SWEEPGEN_KEEP_BUILD", "1")
	t.Setenv("SWEEPGEN_SEED", "77")
	t.Setenv("SWEEPGEN_INPUT_POLICY", "per-replica")

	config := Default()
	applyEnvOverrides(config)

	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
	if config.Output.Dir != "/tmp/sweeps" {
		t.Errorf("expected Output.Dir '/tmp/sweeps', got '%s'", config.Output.Dir)
	}
	if !config.Output.KeepBuildPath {
		t.Error("expected KeepBuildPath to be true")
	}
	if config.Output.Seed != 77 {
		t.Errorf("expected Seed 77, got %d", config.Output.Seed)
	}
	if config.Output.InputPolicy != "per-replica" {
		t.Errorf("expected InputPolicy 'per-replica', got '%s'", config.Output.InputPolicy)
	}
}

func TestEnvOverrides_BadSeedIgnored(t *testing.T) {
	t.Setenv("SWEEPGEN_SEED", "not-a-number")

	config := Default()
	config.Output.Seed = 5
	applyEnvOverrides(config)

	if config.Output.Seed != 5 {
		t.Errorf("expected Seed to stay 5, got %d", config.Output.Seed)
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*SweepgenConfig)
	}{
		{"log level", func(c *SweepgenConfig) { c.Logging.Level = "verbose" }},
		{"input policy", func(c *SweepgenConfig) { c.Output.InputPolicy = "sometimes" }},
		{"naming alphabet", func(c *SweepgenConfig) { c.Naming.Alphabet = "fedcba" }},
		{"naming width", func(c *SweepgenConfig) { c.Naming.Width = 0 }},
		{"distribution", func(c *SweepgenConfig) { c.Reservoir.Distribution = "cauchy" }},
		{"ridge", func(c *SweepgenConfig) { c.Reservoir.Ridge = -1 }},
		{"defaults key", func(c *SweepgenConfig) { c.Reservoir.Defaults = map[string]float64{"bogus": 1} }},
		{"rate limit", func(c *SweepgenConfig) {
			c.MCP.RateLimits = map[string]ratelimit.Limit{"sweep_generate": {PerMinute: 1, Burst: 0}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modify(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"", "info", "debug", "trace"} {
		t.Run(level, func(t *testing.T) {
			config := Default()
			config.Logging.Level = level
			if err := config.Validate(); err != nil {
				t.Errorf("expected log level '%s' to be valid, got error: %v", level, err)
			}
		})
	}
}

func TestOutputDir_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	dir, err := Default().OutputDir()
	if err != nil {
		t.Fatalf("OutputDir failed: %v", err)
	}
	if want := filepath.Join(home, ".sweepgen", "data"); dir != want {
		t.Errorf("OutputDir() = %q, want %q", dir, want)
	}
}

func TestProducer(t *testing.T) {
	config := Default()
	config.Reservoir.Distribution = reservoir.DistNormal
	p, ok := config.Producer().(reservoir.ESNProducer)
	if !ok {
		t.Fatalf("Producer() = %T, want reservoir.ESNProducer", config.Producer())
	}
	if p.Distribution != reservoir.DistNormal {
		t.Errorf("Distribution = %q, want normal", p.Distribution)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: [invalid yaml\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_UsesHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("SWEEPGEN_LOG_LEVEL", "")

	dir := filepath.Join(home, ".sweepgen")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("output:\n  seed: 9\n"), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Output.Seed != 9 {
		t.Errorf("expected Seed 9 from the home config, got %d", config.Output.Seed)
	}
}

func TestLoadFrom_ExplicitPathWithEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sweepgen.yaml")
	if err := os.WriteFile(configPath, []byte("output:\n  seed: 3\n  dir: /data\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SWEEPGEN_SEED", "11")

	config, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if config.Output.Dir != "/data" {
		t.Errorf("expected Output.Dir '/data', got '%s'", config.Output.Dir)
	}
	if config.Output.Seed != 11 {
		t.Errorf("expected the environment seed 11, got %d", config.Output.Seed)
	}
}
