package gonleis

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseSettings describes noise added to a simulated spectrum. Every point
// receives uniform relative noise of Level; Outliers randomly chosen points
// additionally receive OutlierLevel.
type NoiseSettings struct {
	Level        float64
	Outliers     uint
	OutlierLevel float64
	Seed         uint64
}

// AddNoise returns a copy of z with noise applied.
func AddNoise(z []complex128, ns NoiseSettings) []complex128 {
	src := rand.NewPCG(ns.Seed, ns.Seed^0x9e3779b97f4a7c15)
	rnd := rand.New(src)
	out := make([]complex128, len(z))
	copy(out, z)

	if ns.Level > 0 {
		for i := range out {
			out[i] = noise(out[i], ns.Level, src)
		}
	}
	if len(out) == 0 {
		return out
	}
	for i := uint(0); i < ns.Outliers; i++ {
		index := rnd.IntN(len(out))
		out[index] = noise(out[index], ns.OutlierLevel, src)
	}
	return out
}

// noise draws each component uniformly within ±nl of its magnitude.
func noise(v complex128, nl float64, src rand.Source) complex128 {
	re, im := real(v), imag(v)
	return complex(perturb(re, math.Abs(re)*nl, src), perturb(im, math.Abs(im)*nl, src))
}

func perturb(v, width float64, src rand.Source) float64 {
	if width == 0 {
		return v
	}
	return distuv.Uniform{Min: v - width, Max: v + width, Src: src}.Rand()
}

// SimulatedSpectra evaluates the linear and nonlinear circuits of sc at f
// for the combined parameters and applies noise to both spectra.
func SimulatedSpectra(sc *SimulCircuit, f, params []float64, ns NoiseSettings) ([]complex128, []complex128, error) {
	z1, z2, err := sc.WrappedImpedance(f, f, params)
	if err != nil {
		return nil, nil, err
	}
	n2 := ns
	n2.Seed = ns.Seed + 1
	return AddNoise(z1, ns), AddNoise(z2, n2), nil
}
