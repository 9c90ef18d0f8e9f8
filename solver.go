package gonleis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/optimize"
)

type Weighting int

const (
	MODULUS Weighting = iota
	UNITY
)

// Problem is a minimisation over unbounded variables. Residual defines a
// least-squares problem of Size components; Objective a scalar one.
// Status, when set, is polled between evaluations and stops the run with
// its error.
type Problem struct {
	Dim            int
	Size           int
	Residual       func(dst, x []float64)
	Objective      func(x []float64) float64
	Init           []float64
	MaxEvaluations int
	Ftol           float64
	Xtol           float64
	Status         func() error
}

// Optimizer minimises a Problem and returns the best point found.
type Optimizer interface {
	Minimize(p Problem) ([]float64, error)
}

// LevenbergMarquardt minimises the residual of a Problem in the least-squares
// sense.
type LevenbergMarquardt struct{}

func (LevenbergMarquardt) Minimize(p Problem) (x []float64, err error) {
	if p.Residual == nil {
		return nil, fmt.Errorf("%w: levenberg-marquardt needs a residual", ErrOptimizer)
	}

	jac := lm.NumJac{Func: p.Residual}
	problem := lm.LMProblem{
		Dim:        p.Dim,
		Size:       p.Size,
		Func:       p.Residual,
		Jac:        jac.Jac,
		InitParams: p.Init,
		Tau:        1e-3,
		Eps1:       p.Xtol,
		Eps2:       p.Xtol,
	}

	// Recover from LM panics (e.g., singular matrix)
	defer func() {
		if r := recover(); r != nil {
			x, err = nil, fmt.Errorf("%w: levenberg-marquardt panicked: %v", ErrOptimizer, r)
		}
	}()

	res, err := lm.LM(problem, &lm.Settings{Iterations: p.MaxEvaluations, ObjectiveTol: p.Ftol})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOptimizer, err)
	}
	if p.Status != nil {
		if err := p.Status(); err != nil {
			return nil, err
		}
	}
	return res.X, nil
}

// NelderMead minimises the objective of a Problem, or the sum of squares
// of its residual, with the downhill simplex method.
type NelderMead struct{}

func (NelderMead) Minimize(p Problem) ([]float64, error) {
	objective := p.Objective
	if objective == nil {
		if p.Residual == nil {
			return nil, fmt.Errorf("%w: nelder-mead needs an objective or a residual", ErrOptimizer)
		}
		objective = sumOfSquares(p.Residual, p.Size)
	}

	problem := optimize.Problem{Func: objective}
	if p.Status != nil {
		problem.Status = func() (optimize.Status, error) {
			if err := p.Status(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		}
	}
	settings := &optimize.Settings{
		FuncEvaluations: p.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   p.Ftol,
			Iterations: 200,
		},
	}

	res, err := optimize.Minimize(problem, p.Init, settings, &optimize.NelderMead{})
	if p.Status != nil {
		if serr := p.Status(); serr != nil {
			return nil, serr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: nelder-mead: %v", ErrOptimizer, err)
	}
	return res.X, nil
}

func sumOfSquares(residual func(dst, x []float64), size int) func(x []float64) float64 {
	return func(x []float64) float64 {
		r := make([]float64, size)
		residual(r, x)
		s := 0.0
		for _, v := range r {
			s += v * v
		}
		return s
	}
}

// ChiSq is the mean squared deviation between two spectra, divided by
// |observed|² under MODULUS weighting.
func ChiSq(observed, calculated []complex128, weighting Weighting) float64 {
	if len(observed) != len(calculated) {
		panic("solver chiSq: slice length mismatch")
	}
	if len(observed) == 0 {
		return 0
	}
	chiSq := 0.0
	for i, o := range observed {
		d := cmplx.Abs(o - calculated[i])
		d2 := d * d
		weight := cmplx.Abs(o)
		if weighting == MODULUS && weight > 0 {
			d2 /= weight * weight
		}
		chiSq += d2
	}
	return chiSq / float64(len(observed))
}

// GetModulo returns |z| for every point of a spectrum.
func GetModulo(data []complex128) []float64 {
	res := make([]float64, len(data))
	for i, v := range data {
		res[i] = cmplx.Abs(v)
	}
	return res
}

func maxModulus(data []complex128) float64 {
	m := 0.0
	for _, v := range GetModulo(data) {
		m = math.Max(m, v)
	}
	return m
}
