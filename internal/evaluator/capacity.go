package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/nvandessel/sweepgen/internal/reservoir"
)

// ErrNeedsReadout is returned when an evaluator needs a trainable subject.
var ErrNeedsReadout = errors.New("subject has no trainable readout")

// MemoryCapacity trains the subject's readout as a one-step predictor on
// the first half of the input and returns the normalized mean squared
// error of its predictions on the second half against the order-n
// Legendre transform of the true next inputs. At order 1 this is the
// plain one-step prediction NMSE.
func MemoryCapacity(ctx context.Context, call Call) (any, error) {
	trainable, ok := call.Subject.(reservoir.Trainable)
	if !ok {
		return nil, fmt.Errorf("memory_capacity: %w", ErrNeedsReadout)
	}
	if r, ok := call.Subject.(interface{ HasReadout() bool }); ok && !r.HasReadout() {
		return nil, fmt.Errorf("memory_capacity: %w (enable training)", ErrNeedsReadout)
	}
	nc, err := call.Params.Int("nc", 0)
	if err != nil {
		return nil, err
	}
	order, err := call.Params.Int("order", 1)
	if err != nil {
		return nil, err
	}
	if order < 0 {
		return nil, fmt.Errorf("memory_capacity: order %d is negative", order)
	}

	input := inputFor(call)
	half := len(input) / 2
	if half < 2 || len(input)-half < 2 {
		return nil, fmt.Errorf("memory_capacity: input of %d values is too short", len(input))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := trainable.Fit(input[:half], input[1:half+1], 0); err != nil {
		return nil, fmt.Errorf("memory_capacity: %w", err)
	}
	pred, err := trainable.Predict(input[half:])
	if err != nil {
		return nil, fmt.Errorf("memory_capacity: %w", err)
	}

	// pred[i] forecasts input[half+i+1]; the last prediction has no truth.
	n := len(pred) - 1
	if nc > 0 && nc < n {
		n = nc
	}
	target := make([]float64, n)
	for i := range target {
		target[i] = legendre(order, input[half+i+1])
	}

	variance := stat.PopVariance(target, nil)
	if variance == 0 {
		return nil, fmt.Errorf("memory_capacity: order-%d target has zero variance", order)
	}
	var sq float64
	for i, t := range target {
		d := t - pred[i]
		sq += d * d
	}
	nmse := sq / float64(n) / variance
	if math.IsNaN(nmse) || math.IsInf(nmse, 0) {
		return nil, fmt.Errorf("memory_capacity: prediction diverged")
	}
	return nmse, nil
}

// legendre evaluates P_n(x) = 2^-n sum_k C(n,k)^2 (x-1)^(n-k) (x+1)^k.
func legendre(n int, x float64) float64 {
	var sum float64
	for k := 0; k <= n; k++ {
		c := float64(combin.Binomial(n, k))
		sum += c * c * math.Pow(x-1, float64(n-k)) * math.Pow(x+1, float64(k))
	}
	return sum / math.Pow(2, float64(n))
}
