package sweep

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange        = errors.New("invalid sweep range")
	ErrInvalidParameterSet = errors.New("invalid parameter set")
)

// InvalidRangeError reports a ParameterSpec that cannot produce an axis.
type InvalidRangeError struct {
	Spec ParameterSpec
	Msg  string
}

func (e *InvalidRangeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s for %q (%g, %g, %g): %s",
		ErrInvalidRange, e.Spec.Name, e.Spec.Start, e.Spec.Stop, e.Spec.Step, e.Msg)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// InvalidParameterSetError reports a set of names the planner cannot combine.
type InvalidParameterSetError struct {
	Names []string
	Msg   string
}

func (e *InvalidParameterSetError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidParameterSet, e.Names, e.Msg)
}

func (e *InvalidParameterSetError) Unwrap() error { return ErrInvalidParameterSet }
