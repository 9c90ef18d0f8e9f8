package gonleis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FitMode selects the objective of SimulFit.
type FitMode int

const (
	// FitMax is weighted least squares with each spectrum scaled by its
	// largest modulus.
	FitMax FitMode = iota
	// FitNeg minimises the weighted sum of the log residual sums of squares.
	// It is experimental and often fails to converge for porous-electrode
	// models; it reports no parameter errors.
	FitNeg
)

func (m FitMode) String() string {
	switch m {
	case FitMax:
		return "max"
	case FitNeg:
		return "neg"
	default:
		return fmt.Sprintf("FitMode(%d)", int(m))
	}
}

// ParseFitMode parses "max" or "neg".
func ParseFitMode(s string) (FitMode, error) {
	switch strings.ToLower(s) {
	case "max":
		return FitMax, nil
	case "neg":
		return FitNeg, nil
	}
	return 0, fmt.Errorf("unknown fit mode %q, want max or neg", s)
}

// FitInput is the data and circuit description of a simultaneous fit.
// Bounds may be nil for DefaultBounds.
type FitInput struct {
	Frequencies  []float64
	Z1           []complex128
	Z2           []complex128
	Circuit1     string
	Circuit2     string
	Merged       string
	InitialGuess []float64
	Constants1   Constants
	Constants2   Constants
	Bounds       *Bounds
}

// FitResult is the outcome of SimulFit. Errors holds one standard deviation
// per parameter and is nil in FitNeg mode. Linear and Nonlinear are the
// model spectra at the optimum on Frequencies and NLFrequencies.
type FitResult struct {
	Names          []string
	Params         []float64
	Errors         []float64
	Cost           float64
	ChiSqLinear    float64
	ChiSqNonlinear float64
	Mode           FitMode
	Runtime        time.Duration
	Evaluations    int
	Frequencies    []float64
	NLFrequencies  []float64
	Linear         []complex128
	Nonlinear      []complex128
}

type fitSettings struct {
	mode           FitMode
	cost           float64
	maxNLFrequency float64
	paramNorm      bool
	positive       bool
	maxEvaluations int
	ftol           float64
	xtol           float64
	logger         *slog.Logger
	optimizer      Optimizer
}

// FitOption configures SimulFit.
type FitOption func(*fitSettings)

// WithMode selects the objective. The default is FitMax.
func WithMode(m FitMode) FitOption {
	return func(s *fitSettings) { s.mode = m }
}

// WithCost sets the weight of the linear spectrum; the nonlinear spectrum
// gets 1-cost. The default is 0.5.
func WithCost(cost float64) FitOption {
	return func(s *fitSettings) { s.cost = cost }
}

// WithMaxNLFrequency sets the frequency below which nonlinear points are
// fitted. The default is 10 Hz.
func WithMaxNLFrequency(f float64) FitOption {
	return func(s *fitSettings) { s.maxNLFrequency = f }
}

// WithParamNorm enables dividing explicit bounds and parameters by the
// upper bounds. The default is true.
func WithParamNorm(on bool) FitOption {
	return func(s *fitSettings) { s.paramNorm = on }
}

// WithPositive enables dropping inductive points (Im Z1 >= 0). The default
// is true.
func WithPositive(on bool) FitOption {
	return func(s *fitSettings) { s.positive = on }
}

// WithMaxEvaluations caps optimizer iterations or evaluations. The default
// is 100000.
func WithMaxEvaluations(n int) FitOption {
	return func(s *fitSettings) { s.maxEvaluations = n }
}

// WithTolerances sets the objective and step tolerances.
func WithTolerances(ftol, xtol float64) FitOption {
	return func(s *fitSettings) {
		s.ftol = ftol
		s.xtol = xtol
	}
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) FitOption {
	return func(s *fitSettings) { s.logger = l }
}

// WithOptimizer replaces the optimizer of the selected mode.
func WithOptimizer(o Optimizer) FitOption {
	return func(s *fitSettings) { s.optimizer = o }
}

func defaultFitSettings() fitSettings {
	return fitSettings{
		mode:           FitMax,
		cost:           0.5,
		maxNLFrequency: 10,
		paramNorm:      true,
		positive:       true,
		maxEvaluations: 100000,
		ftol:           1e-13,
		xtol:           1e-10,
	}
}

// evalGuard records the first failure seen inside the objective so it can
// be returned once the optimizer stops.
type evalGuard struct {
	ctx   context.Context
	mu    sync.Mutex
	err   error
	evals int
}

func (g *evalGuard) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err == nil {
		g.err = err
	}
}

func (g *evalGuard) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err == nil && g.ctx.Err() != nil {
		g.err = g.ctx.Err()
	}
	return g.err
}

func (g *evalGuard) count() {
	g.mu.Lock()
	g.evals++
	g.mu.Unlock()
}

// residual wraps f so that its first error is recorded by g and every
// later call returns the failure value without evaluating f.
func (g *evalGuard) residual(f func(dst, x []float64) error) func(dst, x []float64) {
	return func(dst, x []float64) {
		if g.Err() != nil {
			fillValue(dst, failedResidual)
			return
		}
		g.count()
		if err := f(dst, x); err != nil {
			g.fail(err)
			fillValue(dst, failedResidual)
		}
	}
}

// failedResidual is written to every residual component when the model
// cannot be evaluated.
const failedResidual = 1e10

// SimulFit fits the linear circuit to Z1 and the nonlinear circuit to Z2
// simultaneously. Parameters shared by both circuits appear once in the
// combined vector, ordered as in the merged circuit.
func SimulFit(ctx context.Context, reg *Registry, in FitInput, opts ...FitOption) (*FitResult, error) {
	start := time.Now()
	s := defaultFitSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if !(s.cost > 0 && s.cost < 1) {
		return nil, fmt.Errorf("%w: got %v", ErrCost, s.cost)
	}
	if len(in.Z1) != len(in.Frequencies) || len(in.Z2) != len(in.Frequencies) {
		return nil, fmt.Errorf("%w: %d frequencies, %d linear and %d nonlinear points", ErrArity, len(in.Frequencies), len(in.Z1), len(in.Z2))
	}

	sc, err := NewSimulCircuit(reg, in.Circuit1, in.Circuit2, in.Merged, in.Constants1, in.Constants2)
	if err != nil {
		return nil, err
	}
	names := sc.ParameterNames()
	n := len(in.InitialGuess)
	if n != len(names) {
		return nil, fmt.Errorf("%w: merged circuit %s takes %d parameters, initial guess has %d", ErrParameterCount, sc.Merged, len(names), n)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: nothing to fit", ErrParameterCount)
	}

	var bounds Bounds
	scale := make([]float64, n)
	floats.AddConst(1, scale)
	if in.Bounds == nil {
		bounds = defaultBounds(reg, sc.Merged, in.Constants1, in.Constants2)
	} else {
		if err := in.Bounds.validate(n); err != nil {
			return nil, err
		}
		bounds = *in.Bounds
		if s.paramNorm {
			if bounds, scale, err = bounds.normalize(s.logger); err != nil {
				return nil, err
			}
		}
	}
	x0 := make([]float64, n)
	floats.DivTo(x0, in.InitialGuess, scale)
	if i := bounds.contains(x0); i >= 0 {
		return nil, fmt.Errorf("%w: %s = %v not in [%v, %v]", ErrInfeasibleGuess, names[i], in.InitialGuess[i], bounds.Lower[i]*scale[i], bounds.Upper[i]*scale[i])
	}

	data := preprocess(in.Frequencies, in.Z1, in.Z2, s.maxNLFrequency, s.positive)
	if len(data.F) == 0 || len(data.F2) == 0 {
		return nil, fmt.Errorf("%w: %d linear and %d nonlinear points left after preprocessing", ErrNoData, len(data.F), len(data.F2))
	}
	s.logger.Debug("simultaneous fit",
		"mode", s.mode,
		"parameters", n,
		"linear_points", len(data.F),
		"nonlinear_points", len(data.F2),
		"cost", s.cost,
	)

	guard := &evalGuard{ctx: ctx}
	model := func(x []float64) ([]complex128, []complex128, error) {
		params := make([]float64, len(x))
		floats.MulTo(params, x, scale)
		return sc.WrappedImpedance(data.F, data.F2, params)
	}
	m1, m2 := len(data.F), len(data.F2)
	size := 2*m1 + 2*m2
	sigma1 := nonZero(maxModulus(data.Z1)) / math.Sqrt(s.cost)
	sigma2 := nonZero(maxModulus(data.Z2Truncated)) / math.Sqrt(1-s.cost)

	// weighted residual of the normalized parameters x
	weighted := func(dst, x []float64) error {
		x1, x2, err := model(x)
		if err != nil {
			return err
		}
		for i := 0; i < m1; i++ {
			dst[i] = (real(x1[i]) - real(data.Z1[i])) / sigma1
			dst[m1+i] = (imag(x1[i]) - imag(data.Z1[i])) / sigma1
		}
		off := 2 * m1
		for i := 0; i < m2; i++ {
			dst[off+i] = (real(x2[i]) - real(data.Z2Truncated[i])) / sigma2
			dst[off+m2+i] = (imag(x2[i]) - imag(data.Z2Truncated[i])) / sigma2
		}
		return nil
	}
	residual := guard.residual(weighted)
	negLogLikelihood := func(x []float64) float64 {
		if guard.Err() != nil {
			return math.Inf(1)
		}
		guard.count()
		x1, x2, err := model(x)
		if err != nil {
			guard.fail(err)
			return math.Inf(1)
		}
		return s.cost*math.Log(sumSquaredDeviation(data.Z1, x1)) +
			(1-s.cost)*math.Log(sumSquaredDeviation(data.Z2Truncated, x2))
	}

	t := newBoxTransform(bounds, x0)
	internal := func(f func(dst, x []float64)) func(dst, u []float64) {
		return func(dst, u []float64) {
			x := make([]float64, len(u))
			t.external(x, u)
			f(dst, x)
		}
	}
	problem := Problem{
		Dim:            n,
		Size:           size,
		Init:           slices.Clone(t.u0),
		MaxEvaluations: s.maxEvaluations,
		Ftol:           s.ftol,
		Xtol:           s.xtol,
		Status:         guard.Err,
	}
	optimizer := s.optimizer
	switch s.mode {
	case FitMax:
		problem.Residual = internal(residual)
		if optimizer == nil {
			optimizer = LevenbergMarquardt{}
		}
	case FitNeg:
		problem.Objective = func(u []float64) float64 {
			x := make([]float64, len(u))
			t.external(x, u)
			return negLogLikelihood(x)
		}
		if optimizer == nil {
			optimizer = NelderMead{}
		}
	default:
		return nil, fmt.Errorf("unknown fit mode %v", s.mode)
	}

	u, err := optimizer.Minimize(problem)
	if gerr := guard.Err(); gerr != nil {
		return nil, gerr
	}
	if err != nil {
		return nil, err
	}

	xBest := make([]float64, n)
	t.external(xBest, u)
	res := &FitResult{
		Names:         names,
		Params:        make([]float64, n),
		Mode:          s.mode,
		Evaluations:   guard.evals,
		Frequencies:   data.F,
		NLFrequencies: data.F2,
	}
	floats.MulTo(res.Params, xBest, scale)

	if res.Linear, res.Nonlinear, err = sc.WrappedImpedance(data.F, data.F2, res.Params); err != nil {
		return nil, err
	}
	res.ChiSqLinear = ChiSq(data.Z1, res.Linear, MODULUS)
	res.ChiSqNonlinear = ChiSq(data.Z2Truncated, res.Nonlinear, MODULUS)

	switch s.mode {
	case FitMax:
		r := make([]float64, size)
		residual(r, xBest)
		res.Cost = floats.Dot(r, r)
		res.Errors = parameterErrors(ctx, weighted, xBest, size, bounds, scale, s.logger)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	case FitNeg:
		res.Cost = negLogLikelihood(xBest)
	}
	res.Runtime = time.Since(start)

	s.logger.Info("fit finished",
		"mode", s.mode,
		"cost", res.Cost,
		"evaluations", res.Evaluations,
		"runtime", res.Runtime,
	)
	return res, nil
}

var errNoCovariance = errors.New("covariance unavailable")

// parameterErrors returns one standard deviation per parameter from
// s²·(JᵀJ)⁻¹ of the weighted residual at x, with s² = χ²/(m-n), scaled
// back to parameter units. Parameters whose variance cannot be estimated
// get +Inf; a model failure while differentiating does not fail the fit.
func parameterErrors(ctx context.Context, weighted func(dst, x []float64) error, x []float64, size int, b Bounds, scale []float64, logger *slog.Logger) []float64 {
	n := len(x)
	out := make([]float64, n)
	guard := &evalGuard{ctx: ctx}
	cov, err := covariance(guard.residual(weighted), x, size, b)
	if gerr := guard.Err(); gerr != nil {
		err = fmt.Errorf("%w: %w", errNoCovariance, gerr)
	}
	if err != nil {
		logger.Warn("covariance of the parameters could not be estimated", "error", err)
		floats.AddConst(math.Inf(1), out)
		return out
	}
	for i := range out {
		v := cov.At(i, i)
		if v < 0 || math.IsNaN(v) {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = scale[i] * math.Sqrt(v)
	}
	return out
}

// covariance differentiates the residual column by column, central where
// possible and one-sided where a central step would leave b.
func covariance(residual func(dst, x []float64), x []float64, size int, b Bounds) (*mat.SymDense, error) {
	n := len(x)
	if size <= n {
		return nil, fmt.Errorf("%w: %d residuals for %d parameters", errNoCovariance, size, n)
	}
	r := make([]float64, size)
	residual(r, x)
	chi2 := floats.Dot(r, r)

	jac := mat.NewDense(size, n, nil)
	col := mat.NewDense(size, 1, nil)
	xs := slices.Clone(x)
	for j := range x {
		formula := fd.Central
		switch {
		case x[j]-fd.Central.Step < b.Lower[j]:
			formula = fd.Forward
		case x[j]+fd.Central.Step > b.Upper[j]:
			formula = fd.Backward
		}
		fd.Jacobian(col, func(dst, y []float64) {
			xs[j] = y[0]
			residual(dst, xs)
			xs[j] = x[j]
		}, []float64{x[j]}, &fd.JacobianSettings{
			Formula:     formula,
			OriginValue: r,
		})
		jac.SetCol(j, mat.Col(nil, 0, col))
	}

	var jtj mat.SymDense
	jtj.SymOuterK(1, jac.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&jtj); !ok {
		return nil, fmt.Errorf("%w: JᵀJ is singular", errNoCovariance)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", errNoCovariance, err)
	}
	inv.ScaleSym(chi2/float64(size-n), &inv)
	return &inv, nil
}

func sumSquaredDeviation(observed, calculated []complex128) float64 {
	s := 0.0
	for i, o := range observed {
		d := o - calculated[i]
		s += real(d)*real(d) + imag(d)*imag(d)
	}
	return s
}

func fillValue(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
