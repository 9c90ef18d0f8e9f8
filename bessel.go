package gonleis

import (
	"math"
	"math/cmplx"
)

const (
	// besselSeriesRadius separates the power series from the large-argument
	// expansion.
	besselSeriesRadius = 17
	besselSentinel     = 1e20
)

// besselI01 returns the modified Bessel functions of the first kind I0(z)
// and I1(z) for Re z ≥ 0. Arguments with Re z at or above the clamp
// threshold return a sentinel for both.
func besselI01(z complex128) (complex128, complex128) {
	switch {
	case real(z) >= clampThreshold:
		return besselSentinel, besselSentinel
	case cmplx.Abs(z) <= besselSeriesRadius:
		return besselSeries(z)
	default:
		return besselAsymptotic(z)
	}
}

// besselSeries sums I_ν(z) = Σ (z/2)^(2k+ν) / (k! (k+ν)!).
func besselSeries(z complex128) (complex128, complex128) {
	q := z * z / 4
	t0, t1 := complex(1, 0), z/2
	i0, i1 := t0, t1
	aq := cmplx.Abs(q)
	for k := 1; k < 500; k++ {
		kf := float64(k)
		t0 *= q / complex(kf*kf, 0)
		t1 *= q / complex(kf*(kf+1), 0)
		i0 += t0
		i1 += t1
		if kf > aq && cmplx.Abs(t0) <= 1e-17*cmplx.Abs(i0) && cmplx.Abs(t1) <= 1e-17*cmplx.Abs(i1) {
			break
		}
	}
	return i0, i1
}

// besselAsymptotic evaluates the large-argument expansion
//
//	I_ν(z) ≈ e^z / √(2πz) · Σ (-1)^k a_k(ν) / z^k
//
// truncated at its smallest term.
func besselAsymptotic(z complex128) (complex128, complex128) {
	pre := cmplx.Exp(z) / cmplx.Sqrt(complex(2*math.Pi, 0)*z)
	sum := func(nu2 float64) complex128 {
		term, s := complex(1, 0), complex(1, 0)
		prev := math.Inf(1)
		for k := 1; k < 60; k++ {
			kf := float64(k)
			odd := (2*kf - 1) * (2*kf - 1)
			term *= complex((odd-nu2)/(8*kf), 0) / z
			mag := cmplx.Abs(term)
			if mag >= prev {
				break
			}
			s += term
			if mag <= 1e-17*cmplx.Abs(s) {
				break
			}
			prev = mag
		}
		return s
	}
	return pre * sum(0), pre * sum(4)
}
