package gonleis

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
)

// randlesCase is a charge-transfer electrode whose nonlinear response is
// governed by the symmetry factor alone.
type randlesCase struct {
	truth []float64
	f     []float64
	z1    []complex128
	z2    []complex128
}

func newRandlesCase(t *testing.T) randlesCase {
	t.Helper()
	c := randlesCase{
		truth: []float64{10, 1e-3, 0.1},
		f:     logspace(-1, 3, 17),
	}
	sc, err := NewSimulCircuit(NewStandardRegistry(), "RCO0", "RCOn0", "RCOn0", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.z1, c.z2, err = sc.WrappedImpedance(c.f, c.f, c.truth); err != nil {
		t.Fatal(err)
	}
	return c
}

func (c randlesCase) input(guess []float64, bounds *Bounds) FitInput {
	return FitInput{
		Frequencies:  c.f,
		Z1:           c.z1,
		Z2:           c.z2,
		Circuit1:     "RCO0",
		Circuit2:     "RCOn0",
		Merged:       "RCOn0",
		InitialGuess: guess,
		Bounds:       bounds,
	}
}

func randlesBounds() *Bounds {
	return &Bounds{
		Lower: []float64{0, 0, -0.5},
		Upper: []float64{100, 0.01, 0.5},
	}
}

// stubOptimizer evaluates the problem once at its initial point and
// returns it.
type stubOptimizer struct{}

func (stubOptimizer) Minimize(p Problem) ([]float64, error) {
	if p.Residual != nil {
		p.Residual(make([]float64, p.Size), p.Init)
	}
	if p.Objective != nil {
		p.Objective(p.Init)
	}
	if err := p.Status(); err != nil {
		return nil, err
	}
	return p.Init, nil
}

func TestSimulFitAtOptimum(t *testing.T) {
	t.Parallel()
	c := newRandlesCase(t)

	tests := []struct {
		name   string
		bounds *Bounds
		opts   []FitOption
	}{
		{"default bounds", nil, nil},
		{"normalized bounds", randlesBounds(), nil},
		{"raw bounds", randlesBounds(), []FitOption{WithParamNorm(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]FitOption{
				WithOptimizer(stubOptimizer{}),
				WithMaxNLFrequency(1e4),
				WithLogger(discard),
			}, tt.opts...)
			res, err := SimulFit(context.Background(), NewStandardRegistry(), c.input(c.truth, tt.bounds), opts...)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(res.Names, []string{"RCOn0_0", "RCOn0_1", "RCOn0_2"}) {
				t.Errorf("unexpected names %v", res.Names)
			}
			for i, v := range c.truth {
				if !closeToFloat(res.Params[i], v, 1e-9) {
					t.Errorf("parameter %d: expected %v, got %v", i, v, res.Params[i])
				}
				if e := res.Errors[i]; math.IsNaN(e) || e < 0 || e > 1e-6*math.Abs(v) {
					t.Errorf("parameter %d: expected a small error, got %v", i, e)
				}
			}
			if res.Cost > 1e-20 {
				t.Errorf("expected zero cost, got %v", res.Cost)
			}
			if res.ChiSqLinear > 1e-20 || res.ChiSqNonlinear > 1e-20 {
				t.Errorf("expected zero chi-square, got %v and %v", res.ChiSqLinear, res.ChiSqNonlinear)
			}
			if len(res.Linear) != len(c.f) || len(res.Nonlinear) != len(c.f) {
				t.Errorf("expected %d model points, got %d and %d", len(c.f), len(res.Linear), len(res.Nonlinear))
			}
			if res.Evaluations == 0 {
				t.Error("expected evaluations to be counted")
			}
		})
	}
}

func TestSimulFitTransmissionLineSegments(t *testing.T) {
	t.Parallel()
	inf := math.Inf(1)
	f := logspace(-1, 3, 17)
	sc, err := NewSimulCircuit(NewStandardRegistry(), "TLM0", "TLMn0", "TLMn0", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	segments := func(lo, hi float64) *Bounds {
		return &Bounds{
			Lower: []float64{0, 0, 0, 0, 0, lo, -0.5, -0.5},
			Upper: []float64{100, 100, 0.1, 100, 0.1, hi, 0.5, 0.5},
		}
	}

	tests := []struct {
		name   string
		n      float64
		bounds *Bounds
		opts   []FitOption
	}{
		{"six segments with default bounds", 6, nil, nil},
		{"six segments with normalized bounds", 6, segments(1, 20), nil},
		{"six segments with raw bounds", 6, segments(1, 20), []FitOption{WithParamNorm(false)}},
		{"six segments with an open upper bound", 6, segments(0, inf), []FitOption{WithParamNorm(false)}},
		{"one segment with default bounds", 1, nil, nil},
		{"one segment at the lower bound", 1, segments(1, 5), nil},
		{"one segment at the lower bound without normalization", 1, segments(1, 5), []FitOption{WithParamNorm(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			truth := []float64{30, 10, 1e-3, 2, 1e-4, tt.n, 0.1, -0.05}
			z1, z2, err := sc.WrappedImpedance(f, f, truth)
			if err != nil {
				t.Fatal(err)
			}
			in := FitInput{
				Frequencies:  f,
				Z1:           z1,
				Z2:           z2,
				Circuit1:     "TLM0",
				Circuit2:     "TLMn0",
				Merged:       "TLMn0",
				InitialGuess: truth,
				Bounds:       tt.bounds,
			}
			opts := append([]FitOption{
				WithOptimizer(stubOptimizer{}),
				WithMaxNLFrequency(1e4),
				WithLogger(discard),
			}, tt.opts...)
			res, err := SimulFit(context.Background(), NewStandardRegistry(), in, opts...)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			n, err := segmentCount(res.Params[5])
			if err != nil {
				t.Fatalf("expected a valid segment count, got %v", err)
			}
			if n != int(tt.n) {
				t.Errorf("expected %v segments, got %d", tt.n, n)
			}
			if tt.bounds == nil && res.Params[5] != tt.n {
				t.Errorf("expected N = %v exactly, got %v", tt.n, res.Params[5])
			}
			if res.ChiSqLinear > 1e-20 || res.ChiSqNonlinear > 1e-20 {
				t.Errorf("expected zero chi-square, got %v and %v", res.ChiSqLinear, res.ChiSqNonlinear)
			}
			if len(res.Errors) != len(truth) {
				t.Errorf("expected %d errors, got %d", len(truth), len(res.Errors))
			}
		})
	}
}

func TestSimulFitRecoversParameters(t *testing.T) {
	t.Parallel()
	c := newRandlesCase(t)
	guess := []float64{12, 1.2e-3, 0.12}

	tests := []struct {
		name string
		opts []FitOption
	}{
		{"levenberg-marquardt", nil},
		{"nelder-mead", []FitOption{WithOptimizer(NelderMead{})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]FitOption{WithMaxNLFrequency(1e4), WithLogger(discard)}, tt.opts...)
			res, err := SimulFit(context.Background(), NewStandardRegistry(), c.input(guess, randlesBounds()), opts...)
			if err != nil {
				t.Fatal(err)
			}
			for i, v := range c.truth {
				if !closeToFloat(res.Params[i], v, 1e-2) {
					t.Errorf("parameter %d: expected %v, got %v", i, v, res.Params[i])
				}
			}
		})
	}
}

func TestSimulFitNormalizationInvariance(t *testing.T) {
	t.Parallel()
	c := newRandlesCase(t)
	guess := []float64{11, 0.9e-3, 0.08}

	fit := func(norm bool) []float64 {
		res, err := SimulFit(context.Background(), NewStandardRegistry(), c.input(guess, randlesBounds()),
			WithParamNorm(norm), WithMaxNLFrequency(1e4), WithLogger(discard))
		if err != nil {
			t.Fatal(err)
		}
		return res.Params
	}
	a, b := fit(true), fit(false)
	for i := range a {
		if !closeToFloat(a[i], b[i], 1e-6) {
			t.Errorf("parameter %d: normalized %v, raw %v", i, a[i], b[i])
		}
	}
}

func TestSimulFitErrors(t *testing.T) {
	t.Parallel()
	c := newRandlesCase(t)

	inductive := c.input(c.truth, nil)
	inductive.Z1 = make([]complex128, len(c.f))
	for i := range inductive.Z1 {
		inductive.Z1[i] = 1 + 1i
	}

	tests := []struct {
		name     string
		in       FitInput
		opts     []FitOption
		expected error
	}{
		{"zero cost", c.input(c.truth, nil), []FitOption{WithCost(0)}, ErrCost},
		{"unit cost", c.input(c.truth, nil), []FitOption{WithCost(1)}, ErrCost},
		{"short guess", c.input(c.truth[:2], nil), nil, ErrParameterCount},
		{"guess outside bounds", c.input([]float64{200, 1e-3, 0.1}, randlesBounds()), nil, ErrInfeasibleGuess},
		{"invalid bounds", c.input(c.truth, &Bounds{Lower: []float64{0}, Upper: []float64{1}}), nil, ErrBounds},
		{
			"negative upper bound",
			c.input([]float64{10, 1e-3, -0.7}, &Bounds{Lower: []float64{0, 0, -1}, Upper: []float64{100, 0.01, -0.5}}),
			nil, ErrBoundNormalization,
		},
		{"no linear data", inductive, nil, ErrNoData},
		{"no nonlinear data", c.input(c.truth, nil), []FitOption{WithMaxNLFrequency(0.01)}, ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]FitOption{WithOptimizer(stubOptimizer{}), WithLogger(discard)}, tt.opts...)
			_, err := SimulFit(context.Background(), NewStandardRegistry(), tt.in, opts...)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestSimulFitNegativeUpperBoundWithoutNormalization(t *testing.T) {
	t.Parallel()
	c := newRandlesCase(t)
	in := c.input([]float64{10, 1e-3, -0.7}, &Bounds{Lower: []float64{0, 0, -1}, Upper: []float64{100, 0.01, -0.5}})
	_, err := SimulFit(context.Background(), NewStandardRegistry(), in,
		WithParamNorm(false), WithOptimizer(stubOptimizer{}), WithLogger(discard), WithMaxNLFrequency(1e4))
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestSimulFitCancelled(t *testing.T) {
	t.Parallel()
	c := newRandlesCase(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SimulFit(ctx, NewStandardRegistry(), c.input(c.truth, nil), WithMaxEvaluations(50), WithLogger(discard))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected %v, got %v", context.Canceled, err)
	}
}

func TestSimulFitEvaluationError(t *testing.T) {
	t.Parallel()
	c := newRandlesCase(t)
	boom := errors.New("boom")
	reg := NewStandardRegistry()
	err := reg.Register("Bad", 1, []string{"Ohm"}, func(_, _ []float64) ([]complex128, error) {
		return nil, boom
	}, false)
	if err != nil {
		t.Fatal(err)
	}

	in := c.input([]float64{1, 10, 1e-3, 0.1}, nil)
	in.Circuit1 = "Bad0-RCO0"
	in.Merged = "Bad0-RCOn0"
	_, err = SimulFit(context.Background(), reg, in, WithOptimizer(stubOptimizer{}), WithLogger(discard))
	if !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
}

func TestSimulFitNegMode(t *testing.T) {
	t.Parallel()
	c := newRandlesCase(t)
	// perturb the data so the log objective stays finite at the truth
	in := c.input(c.truth, nil)
	in.Z1 = slices.Clone(c.z1)
	in.Z2 = slices.Clone(c.z2)
	in.Z1[0] *= 1.01
	in.Z2[0] *= 1.01

	res, err := SimulFit(context.Background(), NewStandardRegistry(), in,
		WithMode(FitNeg), WithOptimizer(stubOptimizer{}), WithMaxNLFrequency(1e4), WithLogger(discard))
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors != nil {
		t.Errorf("expected no errors in neg mode, got %v", res.Errors)
	}
	if res.Mode != FitNeg {
		t.Errorf("expected mode %v, got %v", FitNeg, res.Mode)
	}
	if math.IsInf(res.Cost, 0) || math.IsNaN(res.Cost) {
		t.Errorf("expected a finite cost, got %v", res.Cost)
	}
}

func TestParseFitMode(t *testing.T) {
	t.Parallel()
	for _, m := range []FitMode{FitMax, FitNeg} {
		got, err := ParseFitMode(m.String())
		if err != nil || got != m {
			t.Errorf("expected %v, got %v (%v)", m, got, err)
		}
	}
	if _, err := ParseFitMode("min"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
