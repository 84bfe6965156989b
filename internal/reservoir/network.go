package reservoir

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Weight distributions accepted by NewNetwork.
const (
	DistUniform = "uniform"
	DistNormal  = "normal"
)

// DefaultRidge is the readout regularization used when none is given.
const DefaultRidge = 1e-7

// Subject is anything an evaluator can drive one input at a time.
type Subject interface {
	// Units is the number of internal (reservoir) units.
	Units() int
	// OutputDim is the length of the slices Step returns.
	OutputDim() int
	// Step feeds one input value and returns the resulting output.
	Step(u float64) []float64
	// Reset clears internal state.
	Reset()
}

// Trainable is a Subject with a trainable linear readout.
type Trainable interface {
	Subject
	// Fit trains the readout so that inputs map onto targets. The first
	// warmup states are discarded.
	Fit(inputs, targets []float64, warmup int) error
	// Predict runs inputs through the network and readout.
	Predict(inputs []float64) ([]float64, error)
}

// Network is a leaky-integrator echo state network with an optional ridge
// readout. It is not safe for concurrent use.
type Network struct {
	cfg   Config
	w     *mat.Dense
	win   *mat.VecDense
	state *mat.VecDense
	pre   *mat.VecDense

	readout bool
	ridge   float64
	wout    *mat.VecDense
}

// Options control how a network is built.
type Options struct {
	// Seed drives every random draw; equal seeds give equal networks.
	Seed uint64
	// Distribution is DistUniform (default) or DistNormal.
	Distribution string
	// Readout attaches a ridge readout stage.
	Readout bool
	// Ridge is the readout regularization; DefaultRidge when zero.
	Ridge float64
}

// NewNetwork builds a network from cfg. The recurrent matrix is rescaled so
// that its largest eigenvalue modulus equals cfg.SpectralRadius.
func NewNetwork(cfg Config, opts Options) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dist := opts.Distribution
	if dist == "" {
		dist = DistUniform
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	draw, err := sampler(dist, rng)
	if err != nil {
		return nil, &InitError{Distribution: dist, Err: err}
	}

	n := cfg.NodeCount
	w := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if rng.Float64() < cfg.Connectivity {
				w.Set(i, j, draw())
			}
		}
	}
	if err := scaleSpectralRadius(w, cfg.SpectralRadius); err != nil {
		return nil, &InitError{Distribution: dist, Err: err}
	}

	win := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if rng.Float64() < cfg.InputConnectivity {
			win.SetVec(i, draw()*cfg.InputScaling)
		}
	}

	ridge := opts.Ridge
	if ridge == 0 {
		ridge = DefaultRidge
	}
	return &Network{
		cfg:     cfg,
		w:       w,
		win:     win,
		state:   mat.NewVecDense(n, nil),
		pre:     mat.NewVecDense(n, nil),
		readout: opts.Readout,
		ridge:   ridge,
	}, nil
}

func sampler(dist string, rng *rand.Rand) (func() float64, error) {
	switch dist {
	case DistUniform:
		return func() float64 { return rng.Float64()*2 - 1 }, nil
	case DistNormal:
		return rng.NormFloat64, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDistribution, dist)
}

func scaleSpectralRadius(w *mat.Dense, target float64) error {
	rho, err := SpectralRadius(w)
	if err != nil {
		return err
	}
	if rho > 0 {
		w.Scale(target/rho, w)
	}
	return nil
}

// SpectralRadius returns the largest eigenvalue modulus of a square matrix.
func SpectralRadius(m mat.Matrix) (float64, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenNone); !ok {
		return 0, errors.New("eigendecomposition did not converge")
	}
	var rho float64
	for _, v := range eig.Values(nil) {
		rho = math.Max(rho, cmplx.Abs(v))
	}
	return rho, nil
}

// Config returns the configuration the network was built from.
func (n *Network) Config() Config { return n.cfg }

// HasReadout reports whether a readout stage is attached.
func (n *Network) HasReadout() bool { return n.readout }

// Units implements Subject.
func (n *Network) Units() int { return n.cfg.NodeCount }

// OutputDim is 1 once the readout is fitted, otherwise the unit count.
func (n *Network) OutputDim() int {
	if n.wout != nil {
		return 1
	}
	return n.cfg.NodeCount
}

// Reset zeroes the reservoir state. A fitted readout is kept.
func (n *Network) Reset() {
	n.state.Zero()
}

// Step advances the reservoir by one input:
// x = (1-lr) x + lr tanh(W x + Win u).
func (n *Network) Step(u float64) []float64 {
	n.advance(u)
	if n.wout != nil {
		return []float64{n.readoutValue()}
	}
	out := make([]float64, n.cfg.NodeCount)
	copy(out, n.state.RawVector().Data)
	return out
}

func (n *Network) advance(u float64) {
	n.pre.MulVec(n.w, n.state)
	n.pre.AddScaledVec(n.pre, u, n.win)
	lr := n.cfg.LeakRate
	for i := 0; i < n.cfg.NodeCount; i++ {
		x := n.state.AtVec(i)
		n.state.SetVec(i, (1-lr)*x+lr*math.Tanh(n.pre.AtVec(i)))
	}
}

func (n *Network) readoutValue() float64 {
	units := n.cfg.NodeCount
	y := n.wout.AtVec(units)
	for i := 0; i < units; i++ {
		y += n.wout.AtVec(i) * n.state.AtVec(i)
	}
	return y
}

// Fit trains the readout by ridge regression on the reservoir states
// produced by inputs, starting from a zero state.
func (n *Network) Fit(inputs, targets []float64, warmup int) error {
	if !n.readout {
		return ErrNoReadout
	}
	if len(inputs) != len(targets) {
		return fmt.Errorf("fit: %d inputs but %d targets", len(inputs), len(targets))
	}
	if warmup < 0 || warmup >= len(inputs) {
		return fmt.Errorf("fit: warmup %d leaves no samples out of %d", warmup, len(inputs))
	}

	units := n.cfg.NodeCount
	rows := len(inputs) - warmup
	x := mat.NewDense(rows, units+1, nil)
	y := mat.NewVecDense(rows, nil)

	n.Reset()
	for t, u := range inputs {
		n.advance(u)
		if t < warmup {
			continue
		}
		r := t - warmup
		for i := 0; i < units; i++ {
			x.Set(r, i, n.state.AtVec(i))
		}
		x.Set(r, units, 1)
		y.SetVec(r, targets[t])
	}

	var gram mat.Dense
	gram.Mul(x.T(), x)
	for i := 0; i <= units; i++ {
		gram.Set(i, i, gram.At(i, i)+n.ridge)
	}
	var rhs mat.VecDense
	rhs.MulVec(x.T(), y)

	var wout mat.VecDense
	if err := wout.SolveVec(&gram, &rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("fit: solving readout: %w", err)
		}
	}
	n.wout = &wout
	return nil
}

// Predict feeds inputs through the reservoir, continuing from the current
// state, and returns the readout output for each.
func (n *Network) Predict(inputs []float64) ([]float64, error) {
	if !n.readout {
		return nil, ErrNoReadout
	}
	if n.wout == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(inputs))
	for t, u := range inputs {
		n.advance(u)
		out[t] = n.readoutValue()
	}
	return out, nil
}
