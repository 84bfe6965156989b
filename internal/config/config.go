// Package config loads sweepgen's tool configuration and sweep request
// files. Tool configuration comes from defaults, then
// ~/.sweepgen/config.yaml, then SWEEPGEN_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/sweepgen/internal/logging"
	"github.com/nvandessel/sweepgen/internal/naming"
	"github.com/nvandessel/sweepgen/internal/pathutil"
	"github.com/nvandessel/sweepgen/internal/ratelimit"
	"github.com/nvandessel/sweepgen/internal/reservoir"
	"github.com/nvandessel/sweepgen/internal/runner"
)

// SweepgenConfig contains all tool settings.
type SweepgenConfig struct {
	// Logging sets operational verbosity and run tracing.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Output sets where and how documents are written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Naming sets the step identifier alphabet and width.
	Naming NamingConfig `json:"naming" yaml:"naming"`

	// Reservoir sets how model subjects are built.
	Reservoir ReservoirConfig `json:"reservoir" yaml:"reservoir"`

	// MCP configures the MCP server.
	MCP MCPConfig `json:"mcp" yaml:"mcp"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is "info" (default), "debug" or "trace". "debug" and "trace"
	// also write <output>/<evaluator>/trace.jsonl.
	Level string `json:"level" yaml:"level"`
}

// OutputConfig configures document output.
type OutputConfig struct {
	// Dir is the default output directory. Supports ~ and ${VAR}.
	Dir string `json:"dir" yaml:"dir"`

	// KeepBuildPath keeps build directories after stitching.
	KeepBuildPath bool `json:"keep_build_path" yaml:"keep_build_path"`

	// Seed is the default base seed; 0 draws random seeds.
	Seed uint64 `json:"seed" yaml:"seed"`

	// InputPolicy is "per-step" (default) or "per-replica".
	InputPolicy string `json:"input_policy" yaml:"input_policy"`
}

// NamingConfig configures step identifiers.
type NamingConfig struct {
	Alphabet string `json:"alphabet" yaml:"alphabet"`
	Width    int    `json:"width" yaml:"width"`
}

// ReservoirConfig configures the default model producer.
type ReservoirConfig struct {
	// Distribution is "uniform" (default) or "normal".
	Distribution string `json:"distribution" yaml:"distribution"`

	// Ridge is the readout regularization.
	Ridge float64 `json:"ridge" yaml:"ridge"`

	// Defaults overrides entries of the defaults table, keyed by
	// configuration key (e.g. "node count").
	Defaults map[string]float64 `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// MCPConfig configures the MCP server.
type MCPConfig struct {
	// RateLimits maps tool names to token buckets.
	RateLimits map[string]ratelimit.Limit `json:"rate_limits" yaml:"rate_limits"`
}

// Default returns a SweepgenConfig with the built-in defaults.
func Default() *SweepgenConfig {
	return &SweepgenConfig{
		Logging: LoggingConfig{Level: "info"},
		Output: OutputConfig{
			Dir:         filepath.Join("~", pathutil.DataDir),
			InputPolicy: string(runner.PerStep),
		},
		Naming: NamingConfig{
			Alphabet: naming.DefaultAlphabet,
			Width:    naming.DefaultWidth,
		},
		Reservoir: ReservoirConfig{
			Distribution: reservoir.DistUniform,
			Ridge:        reservoir.DefaultRidge,
		},
		MCP: MCPConfig{RateLimits: ratelimit.DefaultLimits()},
	}
}

// Path returns ~/.sweepgen/config.yaml.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".sweepgen", "config.yaml"), nil
}

// Load loads the configuration.
// Order: defaults -> ~/.sweepgen/config.yaml -> environment variables
func Load() (*SweepgenConfig, error) {
	cfg := Default()

	if path, err := Path(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			fileCfg, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			cfg = fileCfg
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFrom loads path instead of the home config when path is set.
// Environment variables still apply.
func LoadFrom(path string) (*SweepgenConfig, error) {
	if path == "" {
		return Load()
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*SweepgenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *SweepgenConfig) Validate() error {
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	if _, err := runner.ParseInputPolicy(c.Output.InputPolicy); err != nil {
		return err
	}
	if _, err := naming.New(c.Naming.Alphabet, c.Naming.Width); err != nil {
		return err
	}
	switch c.Reservoir.Distribution {
	case "", reservoir.DistUniform, reservoir.DistNormal:
	default:
		return fmt.Errorf("invalid distribution: %s (valid: %s, %s)", c.Reservoir.Distribution, reservoir.DistUniform, reservoir.DistNormal)
	}
	if c.Reservoir.Ridge < 0 {
		return fmt.Errorf("ridge must be non-negative, got %g", c.Reservoir.Ridge)
	}
	for key := range c.Reservoir.Defaults {
		if !reservoir.IsKey(key) {
			return fmt.Errorf("reservoir defaults: unknown configuration key %q", key)
		}
	}
	for tool, l := range c.MCP.RateLimits {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("rate limit for %s: %w", tool, err)
		}
	}
	return nil
}

// OutputDir returns Output.Dir with ~ and ${VAR} expanded.
func (c *SweepgenConfig) OutputDir() (string, error) {
	return pathutil.ExpandHome(c.Output.Dir)
}

// DefaultsTable returns the baseline table with Reservoir.Defaults applied.
func (c *SweepgenConfig) DefaultsTable() (*reservoir.Table, error) {
	t := reservoir.DefaultTable()
	for key, v := range c.Reservoir.Defaults {
		if err := t.Set(key, v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Producer returns the model producer described by Reservoir.
func (c *SweepgenConfig) Producer() reservoir.Producer {
	return reservoir.ESNProducer{Distribution: c.Reservoir.Distribution, Ridge: c.Reservoir.Ridge}
}

// applyEnvOverrides applies SWEEPGEN_* variables. Unparseable values are
// ignored.
func applyEnvOverrides(c *SweepgenConfig) {
	if v := os.Getenv("SWEEPGEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SWEEPGEN_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("SWEEPGEN_KEEP_BUILD"); v != "" {
		c.Output.KeepBuildPath = v == "true" || v == "1"
	}
	if v := os.Getenv("SWEEPGEN_SEED"); v != "" {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			c.Output.Seed = n
		}
	}
	if v := os.Getenv("SWEEPGEN_INPUT_POLICY"); v != "" {
		c.Output.InputPolicy = v
	}
}
