package runner

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("invalid sweep configuration")
	ErrPath          = errors.New("invalid output path")
	ErrStep          = errors.New("sweep step failed")
)

// ConfigurationError reports a request that cannot run.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %s", e.Msg)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// PathError reports an output directory that is missing or unusable.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("output path %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() []error { return []error{ErrPath, e.Err} }

// StepError reports the step that aborted a run.
type StepError struct {
	Combination string
	Replica     int
	Step        int
	Err         error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("combination %s, dataset %d, step %d: %v", e.Combination, e.Replica, e.Step, e.Err)
}

func (e *StepError) Unwrap() []error { return []error{ErrStep, e.Err} }
