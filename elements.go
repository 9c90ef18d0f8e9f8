package gonleis

import (
	"math"
	"math/cmplx"
)

func omega(f float64) float64 {
	return 2 * math.Pi * f
}

// pointwise lifts a single-frequency formula to an ImpedanceFunc.
func pointwise(fn func(p []float64, w float64) complex128) ImpedanceFunc {
	return func(p, f []float64) ([]complex128, error) {
		out := make([]complex128, len(f))
		for i, v := range f {
			out[i] = fn(p, omega(v))
		}
		return out, nil
	}
}

// tanh is cmplx.Tanh without the NaN it produces once cosh(2·Re z)
// overflows.
func tanh(z complex128) complex128 {
	if math.Abs(real(z)) > 20 {
		return complex(math.Copysign(1, real(z)), 0)
	}
	return cmplx.Tanh(z)
}

func linearElements() []Element {
	return []Element{
		{
			Name: "R", NumParams: 1, Units: []string{"Ohm"},
			Func: pointwise(func(p []float64, _ float64) complex128 {
				return complex(p[0], 0)
			}),
		},
		{
			Name: "C", NumParams: 1, Units: []string{"F"},
			Func: pointwise(func(p []float64, w float64) complex128 {
				return 1 / complex(0, w*p[0])
			}),
		},
		{
			Name: "L", NumParams: 1, Units: []string{"H"},
			Func: pointwise(func(p []float64, w float64) complex128 {
				return complex(0, w*p[0])
			}),
		},
		{
			// semi-infinite Warburg
			Name: "W", NumParams: 1, Units: []string{"Ohm sec^-1/2"},
			Func: pointwise(func(p []float64, w float64) complex128 {
				return complex(p[0], 0) * (1 - 1i) / complex(math.Sqrt(w), 0)
			}),
		},
		{
			// finite-space (open) Warburg
			Name: "Wo", NumParams: 2, Units: []string{"Ohm", "sec"},
			Func: pointwise(func(p []float64, w float64) complex128 {
				s := cmplx.Sqrt(complex(0, w*p[1]))
				return complex(p[0], 0) / (s * tanh(s))
			}),
		},
		{
			// finite-length (short) Warburg
			Name: "Ws", NumParams: 2, Units: []string{"Ohm", "sec"},
			Func: pointwise(func(p []float64, w float64) complex128 {
				s := cmplx.Sqrt(complex(0, w*p[1]))
				return complex(p[0], 0) * tanh(s) / s
			}),
		},
		{
			Name: "CPE", NumParams: 2, Units: []string{"Ohm^-1 sec^a", ""},
			Func: pointwise(func(p []float64, w float64) complex128 {
				return 1 / (complex(p[0], 0) * cmplx.Pow(complex(0, w), complex(p[1], 0)))
			}),
		},
		{
			// modified inductance
			Name: "La", NumParams: 2, Units: []string{"H sec", ""},
			Func: pointwise(func(p []float64, w float64) complex128 {
				return complex(p[0], 0) * cmplx.Pow(complex(0, w), complex(p[1], 0))
			}),
		},
		{
			// Gerischer
			Name: "G", NumParams: 2, Units: []string{"Ohm", "sec"},
			Func: pointwise(func(p []float64, w float64) complex128 {
				return complex(p[0], 0) / cmplx.Sqrt(complex(1, w*p[1]))
			}),
		},
		{
			// Voigt element expressed by its time constant
			Name: "K", NumParams: 2, Units: []string{"Ohm", "sec"},
			Func: pointwise(func(p []float64, w float64) complex128 {
				return complex(p[0], 0) / complex(1, w*p[1])
			}),
		},
		{
			Name: "Zarc", NumParams: 3, Units: []string{"Ohm", "sec", ""},
			Func: pointwise(func(p []float64, w float64) complex128 {
				return complex(p[0], 0) / (1 + cmplx.Pow(complex(0, w*p[1]), complex(p[2], 0)))
			}),
		},
	}
}
