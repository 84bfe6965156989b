// Package artifact persists per-step evaluator results in a build directory.
//
// Each step is stored in its own file, data_<id>.json, holding an envelope
// with an explicit sequence number. Readers order steps by that number and
// never by directory enumeration order.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// StepPrefix and StepExt frame the namer identifier in step file names.
	StepPrefix = "data_"
	StepExt    = ".json"
)

var ErrSequence = errors.New("artifact sequence broken")

// Envelope wraps one evaluator result with its position in the sweep.
type Envelope struct {
	// Seq is the zero-based step number within a dataset replica.
	Seq int `json:"seq"`

	// ID is the namer identifier used in the file name.
	ID string `json:"id"`

	// Values are the axis values of this step, in combination order.
	Values []float64 `json:"values"`

	// Result is the raw JSON returned by the evaluator.
	Result json.RawMessage `json:"result"`
}

// UnserializableError reports an evaluator result that cannot be encoded as JSON.
type UnserializableError struct {
	Err error
}

func (e *UnserializableError) Error() string {
	return fmt.Sprintf("evaluator result is not JSON-serializable: %v", e.Err)
}

func (e *UnserializableError) Unwrap() error { return e.Err }

// Encode marshals an evaluator result. NaN and infinities are rejected.
func Encode(result any) (json.RawMessage, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, &UnserializableError{Err: err}
	}
	return data, nil
}

// StepPath returns the file that holds the step with the given identifier.
func StepPath(dir, id string) string {
	return filepath.Join(dir, StepPrefix+id+StepExt)
}

// Write persists env under its identifier in dir.
func Write(dir string, env Envelope) error {
	if env.ID == "" {
		return fmt.Errorf("writing step %d: empty identifier", env.Seq)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding step %d: %w", env.Seq, err)
	}
	if err := os.WriteFile(StepPath(dir, env.ID), data, 0644); err != nil {
		return fmt.Errorf("writing step %d: %w", env.Seq, err)
	}
	return nil
}

// ReadAll loads every step file in dir ordered by Seq. The sequence must
// run 0..n-1 without gaps or duplicates.
func ReadAll(dir string) ([]Envelope, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading build directory: %w", err)
	}

	var steps []Envelope
	for _, e := range entries {
		if e.IsDir() || !isStepFile(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		steps = append(steps, env)
	}

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Seq < steps[j].Seq })
	for i, env := range steps {
		if env.Seq != i {
			return nil, fmt.Errorf("%w: expected step %d, found %d (id %s)", ErrSequence, i, env.Seq, env.ID)
		}
	}
	return steps, nil
}

// Clear removes step files left in dir by an earlier replica. Other files
// are kept. A missing directory is not an error.
func Clear(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading build directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isStepFile(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing stale step %s: %w", e.Name(), err)
		}
	}
	return nil
}

func isStepFile(name string) bool {
	return strings.HasPrefix(name, StepPrefix) && strings.HasSuffix(name, StepExt)
}
