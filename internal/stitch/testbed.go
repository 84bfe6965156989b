package stitch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nvandessel/sweepgen/internal/sweep"
)

// Entry is one key of a TestBed.
type Entry struct {
	Key   string
	Value any
}

// TestBed records the configuration a dataset replica was generated under.
// Keys keep insertion order when encoded: model defaults first, then
// evaluator parameters.
type TestBed struct {
	entries []Entry
	index   map[string]int
}

// NewTestBed builds a test bed from snapshots of the defaults table and the
// evaluator parameters, with every swept name replaced by its
// [start, stop, step] bound. Swept names missing from both snapshots are
// appended.
func NewTestBed(defaults, params []Entry, swept []sweep.ParameterSpec) *TestBed {
	tb := &TestBed{}
	for _, e := range defaults {
		tb.Set(e.Key, e.Value)
	}
	for _, e := range params {
		tb.Set(e.Key, e.Value)
	}
	for _, s := range swept {
		tb.Set(s.Name, s.Bound())
	}
	return tb
}

// Set stores value under key, replacing an existing entry in place.
func (tb *TestBed) Set(key string, value any) {
	if tb.index == nil {
		tb.index = make(map[string]int)
	}
	value = normalize(value)
	if i, ok := tb.index[key]; ok {
		tb.entries[i].Value = value
		return
	}
	tb.index[key] = len(tb.entries)
	tb.entries = append(tb.entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (tb *TestBed) Get(key string) (any, bool) {
	i, ok := tb.index[key]
	if !ok {
		return nil, false
	}
	return tb.entries[i].Value, true
}

// Keys returns the keys in encoding order.
func (tb *TestBed) Keys() []string {
	keys := make([]string, len(tb.entries))
	for i, e := range tb.entries {
		keys[i] = e.Key
	}
	return keys
}

// Len returns the number of entries.
func (tb *TestBed) Len() int { return len(tb.entries) }

// MarshalJSON encodes the test bed as an object in insertion order.
func (tb *TestBed) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range tb.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("test bed entry %q: %w", e.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order. Values are kept as raw
// JSON so that re-encoding reproduces them exactly.
func (tb *TestBed) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("test bed must be a JSON object")
	}

	*tb = TestBed{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("test bed key %v is not a string", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("test bed entry %q: %w", key, err)
		}
		tb.Set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// normalize maps fixed-width numeric kinds onto int64, uint64 and float64.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case float32:
		return float64(n)
	case []float32:
		out := make([]float64, len(n))
		for i, f := range n {
			out[i] = float64(f)
		}
		return out
	case []int:
		out := make([]int64, len(n))
		for i, x := range n {
			out[i] = int64(x)
		}
		return out
	}
	return v
}
