package reservoir

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig       = errors.New("invalid reservoir configuration")
	ErrUnknownDistribution = errors.New("unknown weight distribution")
	ErrNoReadout           = errors.New("network has no readout")
	ErrNotFitted           = errors.New("readout has not been fitted")
)

// InitError reports a failure to initialize network weights.
type InitError struct {
	Distribution string
	Err          error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s weights: %v", e.Distribution, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
