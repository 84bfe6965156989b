// Package reservoir builds echo state networks: the model subjects that
// sweeps configure and evaluators measure.
package reservoir

import (
	"fmt"
	"math"
)

// Configuration keys of the defaults table, in table order.
const (
	KeyNodeCount         = "node count"
	KeyLeakRate          = "leak rate"
	KeySpectralRadius    = "spectral radius"
	KeyConnectivity      = "connectivity"
	KeyInputScaling      = "input scaling"
	KeyInputConnectivity = "input connectivity"
)

// Keys lists the configuration keys in table order.
var Keys = []string{
	KeyNodeCount,
	KeyLeakRate,
	KeySpectralRadius,
	KeyConnectivity,
	KeyInputScaling,
	KeyInputConnectivity,
}

// IsKey reports whether name is a configuration key.
func IsKey(name string) bool {
	for _, k := range Keys {
		if k == name {
			return true
		}
	}
	return false
}

// Config holds the hyperparameters of one network.
type Config struct {
	NodeCount         int     `json:"node_count"`
	LeakRate          float64 `json:"leak_rate"`
	SpectralRadius    float64 `json:"spectral_radius"`
	Connectivity      float64 `json:"connectivity"`
	InputScaling      float64 `json:"input_scaling"`
	InputConnectivity float64 `json:"input_connectivity"`
}

// Value returns the configuration value stored under a table key.
func (c Config) Value(key string) (float64, bool) {
	switch key {
	case KeyNodeCount:
		return float64(c.NodeCount), true
	case KeyLeakRate:
		return c.LeakRate, true
	case KeySpectralRadius:
		return c.SpectralRadius, true
	case KeyConnectivity:
		return c.Connectivity, true
	case KeyInputScaling:
		return c.InputScaling, true
	case KeyInputConnectivity:
		return c.InputConnectivity, true
	}
	return 0, false
}

// Validate checks the ranges the network construction relies on.
func (c Config) Validate() error {
	switch {
	case c.NodeCount < 1:
		return fmt.Errorf("%w: node count must be at least 1, got %d", ErrInvalidConfig, c.NodeCount)
	case c.LeakRate <= 0 || c.LeakRate > 1:
		return fmt.Errorf("%w: leak rate must be in (0, 1], got %g", ErrInvalidConfig, c.LeakRate)
	case c.SpectralRadius < 0:
		return fmt.Errorf("%w: spectral radius must be non-negative, got %g", ErrInvalidConfig, c.SpectralRadius)
	case c.Connectivity < 0 || c.Connectivity > 1:
		return fmt.Errorf("%w: connectivity must be in [0, 1], got %g", ErrInvalidConfig, c.Connectivity)
	case c.InputConnectivity < 0 || c.InputConnectivity > 1:
		return fmt.Errorf("%w: input connectivity must be in [0, 1], got %g", ErrInvalidConfig, c.InputConnectivity)
	}
	return nil
}

// Table is the defaults table: one value per configuration key. Sweeps
// overwrite entries in place; callers Clone before mutating a shared table.
type Table struct {
	values map[string]float64
}

// DefaultTable returns the baseline values.
func DefaultTable() *Table {
	return &Table{values: map[string]float64{
		KeyNodeCount:         100,
		KeyLeakRate:          0.1,
		KeySpectralRadius:    1.0,
		KeyConnectivity:      0.1,
		KeyInputScaling:      1.0,
		KeyInputConnectivity: 0.1,
	}}
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	values := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		values[k] = v
	}
	return &Table{values: values}
}

// Get returns the value of key.
func (t *Table) Get(key string) (float64, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Set overwrites key. Unknown keys are rejected.
func (t *Table) Set(key string, v float64) error {
	if !IsKey(key) {
		return fmt.Errorf("unknown configuration key %q", key)
	}
	t.values[key] = v
	return nil
}

// Each calls fn for every key in table order.
func (t *Table) Each(fn func(key string, v float64)) {
	for _, k := range Keys {
		fn(k, t.values[k])
	}
}

// Config converts the table into a network configuration. The node count is
// rounded to the nearest integer.
func (t *Table) Config() Config {
	return Config{
		NodeCount:         int(math.Round(t.values[KeyNodeCount])),
		LeakRate:          t.values[KeyLeakRate],
		SpectralRadius:    t.values[KeySpectralRadius],
		Connectivity:      t.values[KeyConnectivity],
		InputScaling:      t.values[KeyInputScaling],
		InputConnectivity: t.values[KeyInputConnectivity],
	}
}
