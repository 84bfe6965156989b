package evaluator

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// maxEntropyStates bounds bucket_count^(history_length+1).
const maxEntropyStates = 1 << 22

// zeroOccurrence stands in for states that never occur.
const zeroOccurrence = 1e-10

// ShannonEntropy drives the subject with the input, min-max scales the
// output matrix to [0, 1], buckets it and returns the entropy of the
// (history_length+1)-gram distribution normalized by the log of the number
// of states.
func ShannonEntropy(ctx context.Context, call Call) (any, error) {
	columnwise, err := call.Params.Bool("columnwise", false)
	if err != nil {
		return nil, err
	}
	history, err := call.Params.Int("history_length", 2)
	if err != nil {
		return nil, err
	}
	buckets, err := call.Params.Int("bucket_count", 10)
	if err != nil {
		return nil, err
	}
	if history < 0 {
		return nil, fmt.Errorf("shannon_entropy: history_length %d is negative", history)
	}
	if buckets < 2 {
		return nil, fmt.Errorf("shannon_entropy: bucket_count %d is below 2", buckets)
	}
	states := 1
	for i := 0; i <= history; i++ {
		states *= buckets
		if states > maxEntropyStates {
			return nil, fmt.Errorf("shannon_entropy: %d^%d states exceed %d", buckets, history+1, maxEntropyStates)
		}
	}

	outputs, err := drive(ctx, call)
	if err != nil {
		return nil, err
	}
	series := flatten(outputs, columnwise)
	if len(series) <= history {
		return nil, fmt.Errorf("shannon_entropy: %d values is too short for history %d", len(series), history)
	}

	lo, hi := floats.Min(series), floats.Max(series)
	span := hi - lo
	digits := make([]int, len(series))
	for i, v := range series {
		scaled := 0.0
		if span > 0 {
			scaled = (v - lo) / span
		}
		b := int(scaled * float64(buckets))
		if b >= buckets {
			b = buckets - 1
		}
		digits[i] = b
	}

	// Full-history states first, then one state per shorter history for
	// the leading samples that have no full window yet.
	occurrences := make([]float64, states, states+history)
	for end := history; end < len(digits); end++ {
		idx := 0
		for k := end - history; k <= end; k++ {
			idx = idx*buckets + digits[k]
		}
		occurrences[idx]++
	}
	for i := 0; i < history; i++ {
		occurrences = append(occurrences, 1)
	}
	for i, c := range occurrences {
		if c == 0 {
			occurrences[i] = zeroOccurrence
		}
	}
	floats.Scale(1/floats.Sum(occurrences), occurrences)

	return stat.Entropy(occurrences) / math.Log(float64(len(occurrences))), nil
}

// drive feeds the input through a freshly reset subject and collects every
// output row.
func drive(ctx context.Context, call Call) ([][]float64, error) {
	input := inputFor(call)
	if len(input) == 0 {
		return nil, fmt.Errorf("input is empty")
	}
	call.Subject.Reset()
	outputs := make([][]float64, len(input))
	for t, u := range input {
		if t%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		outputs[t] = call.Subject.Step(u)
	}
	return outputs, nil
}

func flatten(rows [][]float64, columnwise bool) []float64 {
	if len(rows) == 0 {
		return nil
	}
	cols := len(rows[0])
	out := make([]float64, 0, len(rows)*cols)
	if !columnwise {
		for _, row := range rows {
			out = append(out, row...)
		}
		return out
	}
	for j := 0; j < cols; j++ {
		for _, row := range rows {
			out = append(out, row[j])
		}
	}
	return out
}
