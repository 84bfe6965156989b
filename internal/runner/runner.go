// Package runner executes parameter sweeps: for every planned combination
// and dataset replica it configures a subject at each axis point, invokes
// the evaluator, persists the result and stitches the replica's document.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/sweepgen/internal/artifact"
	"github.com/nvandessel/sweepgen/internal/evaluator"
	"github.com/nvandessel/sweepgen/internal/logging"
	"github.com/nvandessel/sweepgen/internal/naming"
	"github.com/nvandessel/sweepgen/internal/reservoir"
	"github.com/nvandessel/sweepgen/internal/stitch"
	"github.com/nvandessel/sweepgen/internal/sweep"
)

// BuildPrefix prefixes the per-combination build directories.
const BuildPrefix = "build_"

// inputStream selects the PCG stream used for synthesized input.
const inputStream = 0x1badc0de

// Runner executes sweeps. A Runner holds no per-run state and may be reused.
type Runner struct {
	producer   reservoir.Producer
	registry   *evaluator.Registry
	logger     *slog.Logger
	traceLevel string
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithTraceLevel enables the JSONL run trace at "debug" or "trace".
func WithTraceLevel(level string) Option {
	return func(r *Runner) { r.traceLevel = level }
}

// New creates a Runner. Nil arguments fall back to the ESN producer, the
// built-in evaluators and a discarding logger.
func New(producer reservoir.Producer, registry *evaluator.Registry, logger *slog.Logger, opts ...Option) *Runner {
	if producer == nil {
		producer = reservoir.ESNProducer{}
	}
	if registry == nil {
		registry = evaluator.Builtin()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Runner{
		producer:   producer,
		registry:   registry,
		logger:     logger,
		traceLevel: "info",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Document describes one stitched replica.
type Document struct {
	Combination string `json:"combination"`
	Key         string `json:"key"`
	Replica     int    `json:"replica"`
	Seed        uint64 `json:"seed"`
	Path        string `json:"path"`
	Steps       int    `json:"steps"`
	Bytes       int    `json:"bytes"`
}

// Summary reports a completed run.
type Summary struct {
	RunID     string     `json:"run_id"`
	Evaluator string     `json:"evaluator"`
	Dir       string     `json:"dir"`
	Seeds     []uint64   `json:"seeds"`
	Documents []Document `json:"documents"`
	Started   time.Time  `json:"started"`
	Finished  time.Time  `json:"finished"`
}

// run carries the resolved state of one Run call.
type run struct {
	opts     Options
	eval     evaluator.Evaluator
	bindings map[string]Binding
	axes     map[string][]float64
	namer    *naming.Namer
	dir      string
	trace    *logging.TraceLogger
}

// Run validates opts and executes every combination and replica in order.
// The first failing step aborts the run; documents already written stay.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	eval, err := r.registry.Lookup(opts.Evaluator)
	if err != nil {
		return nil, err
	}
	combos, err := sweep.Plan(opts.Parameters.Names(), opts.DoubleSweep)
	if err != nil {
		return nil, err
	}
	bindings, err := opts.resolveBindings()
	if err != nil {
		return nil, err
	}
	namer, err := naming.New(opts.NamerAlphabet, opts.NamerWidth)
	if err != nil {
		return nil, &ConfigurationError{Field: "namer", Msg: err.Error()}
	}
	lengths := make(map[string]float64, len(opts.Parameters))
	for _, spec := range opts.Parameters {
		n, err := sweep.Length(spec)
		if err != nil {
			return nil, err
		}
		lengths[spec.Name] = n
	}
	for _, c := range combos {
		steps := 1.0
		for _, name := range c.Names {
			steps *= lengths[name]
		}
		if steps > float64(namer.Capacity()) {
			last := math.MaxInt
			if steps-1 < float64(math.MaxInt) {
				last = int(steps - 1)
			}
			return nil, &naming.NamerExhaustedError{Index: last, Capacity: namer.Capacity()}
		}
	}

	axes := make(map[string][]float64, len(opts.Parameters))
	for _, spec := range opts.Parameters {
		axis, err := sweep.Axis(spec)
		if err != nil {
			return nil, err
		}
		axes[spec.Name] = axis
	}
	if opts.Subjects != nil {
		for _, c := range combos {
			if steps := stepCount(c, axes); steps > len(opts.Subjects) {
				return nil, &ConfigurationError{
					Field: "subjects",
					Msg:   fmt.Sprintf("combination %s has %d steps but only %d subjects were given", c, steps, len(opts.Subjects)),
				}
			}
		}
	}

	dir := filepath.Join(opts.OutputDir, opts.Evaluator)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &PathError{Path: dir, Err: err}
	}

	sum := &Summary{
		RunID:     uuid.NewString(),
		Evaluator: opts.Evaluator,
		Dir:       dir,
		Seeds:     replicaSeeds(opts.Seed, opts.Datasets),
		Started:   r.now(),
	}
	rn := &run{
		opts:     opts,
		eval:     eval,
		bindings: bindings,
		axes:     axes,
		namer:    namer,
		dir:      dir,
		trace:    logging.NewTraceLogger(dir, r.traceLevel, sum.RunID),
	}
	defer rn.trace.Close()

	r.logger.Info("sweep starting",
		"run", sum.RunID,
		"evaluator", opts.Evaluator,
		"combinations", len(combos),
		"datasets", opts.Datasets)
	rn.trace.Event("run_start", map[string]any{
		"evaluator":    opts.Evaluator,
		"combinations": len(combos),
		"datasets":     opts.Datasets,
		"double":       opts.DoubleSweep,
		"seeds":        sum.Seeds,
	})

	for _, c := range combos {
		for replica := 1; replica <= opts.Datasets; replica++ {
			doc, err := r.runReplica(ctx, rn, c, replica, sum.Seeds[replica-1])
			if err != nil {
				rn.trace.Event("run_failed", map[string]any{"error": err.Error()})
				return nil, err
			}
			sum.Documents = append(sum.Documents, *doc)
		}
	}

	sum.Finished = r.now()
	r.logger.Info("sweep finished",
		"run", sum.RunID,
		"documents", len(sum.Documents),
		"elapsed", sum.Finished.Sub(sum.Started).Round(time.Millisecond))
	rn.trace.Event("run_done", map[string]any{"documents": len(sum.Documents)})
	return sum, nil
}

func (r *Runner) runReplica(ctx context.Context, rn *run, c sweep.Combination, replica int, seed uint64) (*Document, error) {
	opts := rn.opts
	key := c.Key()
	buildDir := filepath.Join(rn.dir, BuildPrefix+key)
	outPath := filepath.Join(rn.dir, opts.Evaluator+strconv.Itoa(replica), key+".json")
	fail := func(step int, err error) error {
		return &StepError{Combination: c.String(), Replica: replica, Step: step, Err: err}
	}

	// Every replica starts from the run's original values.
	table := opts.Defaults.Clone()
	params := opts.EvaluatorParams.Clone()
	// The bound is recorded under the key the swept name writes to.
	swept := make([]sweep.ParameterSpec, len(c.Names))
	for i, name := range c.Names {
		swept[i], _ = opts.Parameters.Lookup(name)
		swept[i].Name = rn.bindings[name].Name
	}
	tb := stitch.NewTestBed(tableEntries(table), paramEntries(params), swept)

	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return nil, fail(0, err)
	}
	if err := artifact.Clear(buildDir); err != nil {
		return nil, fail(0, err)
	}
	rn.namer.Reset()

	r.logger.Debug("dataset starting", "combination", c.String(), "dataset", replica, "seed", seed)

	inputs := rand.New(rand.NewPCG(seed, inputStream))
	step := 0
	err := eachPoint(c, rn.axes, func(values []float64) error {
		if err := ctx.Err(); err != nil {
			return fail(step, err)
		}
		for i, name := range c.Names {
			b := rn.bindings[name]
			switch b.Target {
			case TargetConfig:
				if err := table.Set(b.Name, values[i]); err != nil {
					return fail(step, err)
				}
			case TargetParam:
				params.Set(b.Name, values[i])
			}
		}

		subject, err := r.subject(ctx, opts, table, seed, step)
		if err != nil {
			return fail(step, err)
		}

		call := evaluator.Call{
			Subject: subject,
			Params:  params,
			Rand:    rand.New(rand.NewPCG(seed, uint64(step)+1)),
		}
		if opts.GenerateInput {
			src := inputs
			if opts.InputPolicy == PerReplica {
				src = rand.New(rand.NewPCG(seed, inputStream))
			}
			call.Input = evaluator.GenerateInput(src, subject.Units())
		}

		result, err := rn.eval.Evaluate(ctx, call)
		if err != nil {
			return fail(step, err)
		}
		raw, err := artifact.Encode(result)
		if err != nil {
			return fail(step, err)
		}
		id, err := rn.namer.Next()
		if err != nil {
			return fail(step, err)
		}
		env := artifact.Envelope{
			Seq:    step,
			ID:     id,
			Values: append([]float64(nil), values...),
			Result: raw,
		}
		if err := artifact.Write(buildDir, env); err != nil {
			return fail(step, err)
		}

		r.logger.Log(ctx, logging.LevelTrace, "step",
			"combination", c.String(), "dataset", replica, "seq", step, "values", values)
		rn.trace.Event("step", map[string]any{
			"combination": c.String(),
			"dataset":     replica,
			"seq":         step,
			"id":          id,
			"values":      env.Values,
			"bytes":       len(raw),
		})
		step++
		return nil
	})
	if err != nil {
		return nil, err
	}

	res, err := stitch.Stitch(buildDir, tb, outPath, opts.KeepBuildPath)
	if err != nil {
		return nil, fail(step, fmt.Errorf("stitching: %w", err))
	}
	r.logger.Debug("dataset stitched", "combination", c.String(), "dataset", replica, "path", res.Path, "steps", res.Steps)
	rn.trace.Event("stitched", map[string]any{
		"combination": c.String(),
		"dataset":     replica,
		"path":        res.Path,
		"steps":       res.Steps,
	})

	return &Document{
		Combination: c.String(),
		Key:         key,
		Replica:     replica,
		Seed:        seed,
		Path:        res.Path,
		Steps:       res.Steps,
		Bytes:       res.Bytes,
	}, nil
}

// subject returns the subject for one step: a pre-built one when given,
// otherwise a fresh one from the producer.
func (r *Runner) subject(ctx context.Context, opts Options, table *reservoir.Table, seed uint64, step int) (reservoir.Subject, error) {
	if opts.Subjects != nil {
		s := opts.Subjects[step]
		if s == nil {
			return nil, fmt.Errorf("subject %d is nil", step)
		}
		return s, nil
	}
	return r.producer.Produce(ctx, table.Config(), reservoir.Options{
		Seed:    stepSeed(seed, step),
		Readout: opts.Training,
	})
}

// eachPoint visits every axis point of c; the first name is the outer loop.
func eachPoint(c sweep.Combination, axes map[string][]float64, fn func(values []float64) error) error {
	outer := axes[c.Names[0]]
	if !c.IsPair() {
		for _, v := range outer {
			if err := fn([]float64{v}); err != nil {
				return err
			}
		}
		return nil
	}
	inner := axes[c.Names[1]]
	for _, a := range outer {
		for _, b := range inner {
			if err := fn([]float64{a, b}); err != nil {
				return err
			}
		}
	}
	return nil
}

func stepCount(c sweep.Combination, axes map[string][]float64) int {
	n := 1
	for _, name := range c.Names {
		n *= len(axes[name])
	}
	return n
}

func tableEntries(t *reservoir.Table) []stitch.Entry {
	entries := make([]stitch.Entry, 0, len(reservoir.Keys))
	t.Each(func(key string, v float64) {
		entries = append(entries, stitch.Entry{Key: key, Value: v})
	})
	return entries
}

func paramEntries(p evaluator.Params) []stitch.Entry {
	entries := make([]stitch.Entry, len(p))
	for i, param := range p {
		entries[i] = stitch.Entry{Key: param.Name, Value: param.Value}
	}
	return entries
}
