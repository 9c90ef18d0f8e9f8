package gonleis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats/scalar"
)

func closeTo(a, b complex128, rel float64) bool {
	scale := math.Max(cmplx.Abs(a), cmplx.Abs(b))
	if scale == 0 {
		return true
	}
	return cmplx.Abs(a-b) <= rel*scale
}

func closeToFloat(a, b, rel float64) bool {
	return scalar.EqualWithinRel(a, b, rel)
}

func logspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Pow(10, lo+(hi-lo)*float64(i)/float64(n-1))
	}
	return out
}
