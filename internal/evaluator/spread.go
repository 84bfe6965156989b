package evaluator

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/nvandessel/sweepgen/internal/reservoir"
)

// ValueSpread drives the subject and returns [max, min, max-min] over every
// output value.
func ValueSpread(ctx context.Context, call Call) (any, error) {
	outputs, err := drive(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("value_spread: %w", err)
	}
	values := flatten(outputs, false)
	if len(values) == 0 {
		return nil, errors.New("value_spread: subject produced no output")
	}
	hi, lo := floats.Max(values), floats.Min(values)
	return []float64{hi, lo, hi - lo}, nil
}

// ConfigValue returns the subject's configuration value for the "key"
// parameter (or the first positional parameter).
func ConfigValue(_ context.Context, call Call) (any, error) {
	key, err := call.Params.String("key", "")
	if err != nil {
		return nil, err
	}
	if key == "" {
		if key, err = call.Params.String("arg0", ""); err != nil {
			return nil, err
		}
	}
	if key == "" {
		return nil, errors.New("config_value: no key given")
	}
	configured, ok := call.Subject.(interface{ Config() reservoir.Config })
	if !ok {
		return nil, fmt.Errorf("config_value: subject %T exposes no configuration", call.Subject)
	}
	v, ok := configured.Config().Value(key)
	if !ok {
		return nil, fmt.Errorf("config_value: unknown key %q", key)
	}
	return v, nil
}
