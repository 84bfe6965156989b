package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Param is one named evaluator parameter.
type Param struct {
	Name  string
	Value any
}

// Params is the ordered parameter list passed to an evaluator. Positional
// parameters are named arg0, arg1, ...
type Params []Param

// Clone returns a copy that can be mutated independently.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Index returns the position of name, or -1.
func (p Params) Index(name string) int {
	for i, param := range p {
		if param.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the value of name.
func (p Params) Get(name string) (any, bool) {
	if i := p.Index(name); i >= 0 {
		return p[i].Value, true
	}
	return nil, false
}

// Float returns name as a float64, or def when absent.
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("parameter %q: want a number, got %T", name, v)
	}
	return f, nil
}

// Int returns name as an int, or def when absent. Non-integral numbers are
// rejected.
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("parameter %q: want an integer, got %v", name, v)
	}
	return int(f), nil
}

// Bool returns name as a bool, or def when absent.
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("parameter %q: %w", name, err)
		}
		return parsed, nil
	}
	return false, fmt.Errorf("parameter %q: want a bool, got %T", name, v)
}

// String returns name as a string, or def when absent.
func (p Params) String(name, def string) (string, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q: want a string, got %T", name, v)
	}
	return s, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ParseParam parses "name=value". The value is read as JSON when it parses
// as JSON, otherwise it is kept as a string.
func ParseParam(text string) (Param, error) {
	name, raw, ok := strings.Cut(text, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Param{}, fmt.Errorf("evaluator parameter %q: want name=value", text)
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	return Param{Name: name, Value: v}, nil
}

// Set replaces the value of name, appending it when absent.
func (p *Params) Set(name string, v any) {
	if i := p.Index(name); i >= 0 {
		(*p)[i].Value = v
		return
	}
	*p = append(*p, Param{Name: name, Value: v})
}

// UnmarshalYAML accepts a mapping (named, ordered) or a sequence
// (positional).
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		params := make(Params, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var v any
			if err := node.Content[i+1].Decode(&v); err != nil {
				return fmt.Errorf("evaluator parameter %q: %w", node.Content[i].Value, err)
			}
			params = append(params, Param{Name: node.Content[i].Value, Value: v})
		}
		*p = params
	case yaml.SequenceNode:
		var values []any
		if err := node.Decode(&values); err != nil {
			return err
		}
		*p = positional(values)
	default:
		return fmt.Errorf("line %d: evaluator parameters must be a mapping or a sequence", node.Line)
	}
	return nil
}

// MarshalJSON encodes the parameters as an object in order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, param := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(param.Name)
		val, err := json.Marshal(param.Value)
		if err != nil {
			return nil, fmt.Errorf("evaluator parameter %q: %w", param.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object (named, ordered) or an array (positional).
func (p *Params) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var values []any
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return err
		}
		*p = positional(values)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("evaluator parameters must be an object or an array")
	}
	params := Params{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("evaluator parameter %q: %w", name, err)
		}
		params = append(params, Param{Name: name, Value: v})
	}
	*p = params
	return nil
}

func positional(values []any) Params {
	params := make(Params, len(values))
	for i, v := range values {
		params[i] = Param{Name: "arg" + strconv.Itoa(i), Value: v}
	}
	return params
}
