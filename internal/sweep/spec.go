// Package sweep plans parameter sweeps: it turns range specs into ordered
// sample axes and parameter names into the combinations a run iterates.
package sweep

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParameterSpec describes the range swept for one named parameter.
type ParameterSpec struct {
	Name  string  `json:"name" yaml:"name"`
	Start float64 `json:"start" yaml:"start"`
	Stop  float64 `json:"stop" yaml:"stop"`
	Step  float64 `json:"step" yaml:"step"`
}

// Bound returns the spec as the [start, stop, step] triple recorded in a
// test bed.
func (s ParameterSpec) Bound() []float64 {
	return []float64{s.Start, s.Stop, s.Step}
}

// ParseSpec parses the CLI form "name=start:stop:step".
func ParseSpec(text string) (ParameterSpec, error) {
	name, rng, ok := strings.Cut(text, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return ParameterSpec{}, fmt.Errorf("parameter %q: want name=start:stop:step", text)
	}

	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return ParameterSpec{}, fmt.Errorf("parameter %q: want three ':'-separated numbers, got %d", name, len(parts))
	}

	var bounds [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ParameterSpec{}, fmt.Errorf("parameter %q: %w", name, err)
		}
		bounds[i] = v
	}

	return ParameterSpec{Name: name, Start: bounds[0], Stop: bounds[1], Step: bounds[2]}, nil
}

// Specs is an ordered list of parameter specs. Order decides combination
// order, so YAML mappings keep their key order when decoded.
type Specs []ParameterSpec

// Names returns the spec names in order.
func (s Specs) Names() []string {
	names := make([]string, len(s))
	for i, spec := range s {
		names[i] = spec.Name
	}
	return names
}

// Lookup returns the spec with the given name.
func (s Specs) Lookup(name string) (ParameterSpec, bool) {
	for _, spec := range s {
		if spec.Name == name {
			return spec, true
		}
	}
	return ParameterSpec{}, false
}

// Validate rejects empty names, duplicate names and invalid ranges.
func (s Specs) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, spec := range s {
		if spec.Name == "" {
			return &InvalidParameterSetError{Names: s.Names(), Msg: "parameter name is empty"}
		}
		if seen[spec.Name] {
			return &InvalidParameterSetError{Names: s.Names(), Msg: fmt.Sprintf("parameter %q given twice", spec.Name)}
		}
		seen[spec.Name] = true
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalYAML accepts either a mapping of name to [start, stop, step] or a
// sequence of {name, start, stop, step} objects.
func (s *Specs) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		specs := make(Specs, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			var bounds []float64
			if err := node.Content[i+1].Decode(&bounds); err != nil {
				return fmt.Errorf("parameter %q: %w", name, err)
			}
			if len(bounds) != 3 {
				return fmt.Errorf("parameter %q: want [start, stop, step], got %d values", name, len(bounds))
			}
			specs = append(specs, ParameterSpec{Name: name, Start: bounds[0], Stop: bounds[1], Step: bounds[2]})
		}
		*s = specs
		return nil
	case yaml.SequenceNode:
		var specs []ParameterSpec
		if err := node.Decode(&specs); err != nil {
			return err
		}
		*s = specs
		return nil
	default:
		return fmt.Errorf("line %d: parameters must be a mapping or a sequence", node.Line)
	}
}
