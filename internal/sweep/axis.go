package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// boundaryTolerance absorbs floating point error in (stop-start)/step so the
// nominal stop value is never dropped.
const boundaryTolerance = 1e-9

// maxDecimals bounds the rounding applied to generated samples.
const maxDecimals = 15

// MaxSamples is the largest axis Axis will materialize.
const MaxSamples = 1 << 24

// Length returns the number of samples spec describes without building
// them. The result is a float64 so that huge ranges do not overflow.
func Length(spec ParameterSpec) (float64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	return math.Floor((spec.Stop-spec.Start)/spec.Step+boundaryTolerance) + 1, nil
}

// Axis returns the ordered samples of spec from Start to Stop inclusive.
//
// Sample i is computed as Start + i*Step (never by accumulation) and rounded
// to the decimals carried by Start and Step, so (0.1, 0.3, 0.1) yields
// exactly [0.1 0.2 0.3].
func Axis(spec ParameterSpec) ([]float64, error) {
	n, err := Length(spec)
	if err != nil {
		return nil, err
	}
	if n > MaxSamples {
		return nil, &InvalidRangeError{Spec: spec, Msg: fmt.Sprintf("%.0f samples exceed the limit of %d", n, MaxSamples)}
	}

	count := int(n)
	decimals := max(decimalPlaces(spec.Start), decimalPlaces(spec.Step))

	values := make([]float64, count)
	for i := range values {
		values[i] = roundTo(spec.Start+float64(i)*spec.Step, decimals)
	}
	return values, nil
}

// Validate checks that the spec describes a non-empty ascending range.
func (s ParameterSpec) Validate() error {
	for _, v := range []float64{s.Start, s.Stop, s.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidRangeError{Spec: s, Msg: "bounds must be finite"}
		}
	}
	if s.Step <= 0 {
		return &InvalidRangeError{Spec: s, Msg: "step must be positive"}
	}
	if s.Stop < s.Start {
		return &InvalidRangeError{Spec: s, Msg: "stop is below start"}
	}
	return nil
}

func decimalPlaces(v float64) int {
	text := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		return 0
	}
	return min(len(text)-dot-1, maxDecimals)
}

func roundTo(v float64, decimals int) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return rounded
}
