package gonleis

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// boundCap replaces infinite bounds when bounds are normalized.
const boundCap = 1e10

// Bounds holds lower and upper limits for every fitted parameter.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// DefaultBounds returns the bounds used when a fit is given none: [0, +Inf)
// for every parameter, an upper bound of 1 on the exponents of CPE and La,
// and for parameters only the nonlinear circuit uses, (-Inf, +Inf) for
// curvatures (unit 1/V) and [-0.5, 0.5] for symmetry factors.
func DefaultBounds(reg *Registry, merged string, c1, c2 Constants) (Bounds, error) {
	m, err := Parse(reg, merged)
	if err != nil {
		return Bounds{}, err
	}
	return defaultBounds(reg, m, c1, c2), nil
}

func defaultBounds(reg *Registry, merged *Circuit, c1, c2 Constants) Bounds {
	var b Bounds
	for _, s := range slots(reg, merged) {
		if linear, nonlinear := s.split(c1, c2); !linear && !nonlinear {
			continue
		}
		lower, upper := 0.0, math.Inf(1)
		switch {
		case s.nonlinearOnly && s.unit == "1/V":
			lower = math.Inf(-1)
		case s.nonlinearOnly && s.unit == "":
			lower, upper = -0.5, 0.5
		case (s.element == "CPE" || s.element == "La") && s.index == 1:
			upper = 1
		}
		b.Lower = append(b.Lower, lower)
		b.Upper = append(b.Upper, upper)
	}
	return b
}

// validate checks b against a parameter vector of length n.
func (b Bounds) validate(n int) error {
	if len(b.Lower) != n || len(b.Upper) != n {
		return fmt.Errorf("%w: %d lower and %d upper bounds for %d parameters", ErrBounds, len(b.Lower), len(b.Upper), n)
	}
	for i := range b.Lower {
		if math.IsNaN(b.Lower[i]) || math.IsNaN(b.Upper[i]) || b.Lower[i] >= b.Upper[i] {
			return fmt.Errorf("%w: parameter %d has lower bound %v and upper bound %v", ErrBounds, i, b.Lower[i], b.Upper[i])
		}
	}
	return nil
}

// contains reports the first index of x outside b, or -1.
func (b Bounds) contains(x []float64) int {
	for i, v := range x {
		if v < b.Lower[i] || v > b.Upper[i] {
			return i
		}
	}
	return -1
}

// normalize caps infinite bounds at ±boundCap and divides the bounds by
// the upper bound vector, which it returns as the scale.
func (b Bounds) normalize(logger *slog.Logger) (Bounds, []float64, error) {
	lower, upper := slices.Clone(b.Lower), slices.Clone(b.Upper)
	capped := false
	for i := range lower {
		if math.IsInf(lower[i], -1) {
			lower[i], capped = -boundCap, true
		}
		if math.IsInf(upper[i], 1) {
			upper[i], capped = boundCap, true
		}
	}
	if capped {
		logger.Warn("inf is detected in the bounds, to enable parameter normalization the bounds have been capped at 1e10; disable parameter normalization to keep them")
	}

	scale := slices.Clone(upper)
	for i, ub := range scale {
		if ub <= 0 {
			return Bounds{}, nil, fmt.Errorf("%w: upper bound of parameter %d is %v", ErrBoundNormalization, i, ub)
		}
		lower[i] /= ub
		upper[i] /= ub
	}
	return Bounds{Lower: lower, Upper: upper}, scale, nil
}

// boxTransform maps bounded parameters to unbounded optimizer variables:
// a sine for two-sided bounds and a square root for one-sided bounds.
// The round trip is inexact, so the start point x0 is anchored: an
// optimizer variable still equal to its start value maps back to x0
// exactly.
type boxTransform struct {
	lower []float64
	upper []float64
	x0    []float64
	u0    []float64
}

func newBoxTransform(b Bounds, x0 []float64) boxTransform {
	t := boxTransform{lower: b.Lower, upper: b.Upper}
	t.u0 = t.internal(x0)
	t.x0 = slices.Clone(x0)
	return t
}

func (t boxTransform) internal(x []float64) []float64 {
	u := make([]float64, len(x))
	for i, v := range x {
		lb, ub := t.lower[i], t.upper[i]
		lowFinite, upFinite := !math.IsInf(lb, -1), !math.IsInf(ub, 1)
		switch {
		case lowFinite && upFinite:
			s := 2*(v-lb)/(ub-lb) - 1
			u[i] = math.Asin(math.Max(-1, math.Min(1, s)))
		case lowFinite:
			d := v - lb + 1
			u[i] = math.Sqrt(math.Max(0, d*d-1))
		case upFinite:
			d := ub - v + 1
			u[i] = math.Sqrt(math.Max(0, d*d-1))
		default:
			u[i] = v
		}
	}
	return u
}

func (t boxTransform) external(dst, u []float64) {
	for i, v := range u {
		if i < len(t.u0) && v == t.u0[i] {
			dst[i] = t.x0[i]
			continue
		}
		lb, ub := t.lower[i], t.upper[i]
		lowFinite, upFinite := !math.IsInf(lb, -1), !math.IsInf(ub, 1)
		switch {
		case lowFinite && upFinite:
			dst[i] = lb + (ub-lb)*(math.Sin(v)+1)/2
		case lowFinite:
			dst[i] = lb - 1 + math.Sqrt(v*v+1)
		case upFinite:
			dst[i] = ub + 1 - math.Sqrt(v*v+1)
		default:
			dst[i] = v
		}
	}
}
