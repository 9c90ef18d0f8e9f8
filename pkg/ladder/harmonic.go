package ladder

import "fmt"

// SecondHarmonic returns the second-harmonic terminal impedance of an
// n-segment ladder.
//
// i1 is the first-harmonic current distribution from CurrentDistribution,
// z1 the unit impedance at the fundamental, z12t the unit impedance at twice
// the fundamental and z2 the second-harmonic source of a single unit. One and
// two segments use closed forms; longer ladders solve the coupled
// second-harmonic current system per frequency.
func SecondHarmonic(i1 [][]complex128, z1, z12t, z2 []complex128, rp float64, n int) ([]complex128, error) {
	switch {
	case n < 1:
		panic("ladder: segment count must be positive")
	case n == 1:
		out := make([]complex128, len(z2))
		copy(out, z2)
		return out, nil
	case n == 2:
		r := complex(rp, 0)
		out := make([]complex128, len(z2))
		for k := range out {
			a := z1[k] * z1[k] / ((2*z1[k] + r) * (2*z1[k] + r))
			b := (z12t[k]*r + r*r) / ((2*z12t[k] + r) * (2*z1[k] + r))
			out[k] = (a + b) * z2[k]
		}
		return out, nil
	}
	return SecondHarmonicGeneral(i1, z12t, z2, rp, n)
}

// SecondHarmonicGeneral is SecondHarmonic without the two-segment shortcut:
// every n ≥ 2 goes through the dense solve.
func SecondHarmonicGeneral(i1 [][]complex128, z12t, z2 []complex128, rp float64, n int) ([]complex128, error) {
	if n < 2 {
		out := make([]complex128, len(z2))
		copy(out, z2)
		return out, nil
	}
	out := make([]complex128, len(z2))
	err := forEachFrequency(len(z2), n, func(k int) error {
		x, err := secondHarmonicSolve(i1[k], z12t[k], z2[k], rp, n)
		if err != nil {
			return fmt.Errorf("second harmonic at frequency index %d: %w", k, err)
		}
		out[k] = z2[k]*i1[k][0]*i1[k][0] + x[n-1]*z12t[k]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SecondHarmonicCurrents returns the second-harmonic current of every unit,
// indexed [frequency][segment] with segment 0 first. A single segment carries
// no internal second-harmonic current.
func SecondHarmonicCurrents(i1 [][]complex128, z12t, z2 []complex128, rp float64, n int) ([][]complex128, error) {
	out := make([][]complex128, len(z2))
	if n < 2 {
		for k := range out {
			out[k] = make([]complex128, n)
		}
		return out, nil
	}
	err := forEachFrequency(len(z2), n, func(k int) error {
		x, err := secondHarmonicSolve(i1[k], z12t[k], z2[k], rp, n)
		if err != nil {
			return fmt.Errorf("second harmonic currents at frequency index %d: %w", k, err)
		}
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			x[i], x[j] = x[j], x[i]
		}
		out[k] = x
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// secondHarmonicSolve solves the second-harmonic current system at one
// frequency. Unknown c is the current of segment n-1-c. Rows r < n-1 equate
// the loop voltages of segment r and the last segment, the final row states
// that no second-harmonic current leaves the terminal.
func secondHarmonicSolve(i1 []complex128, z12t, z2 complex128, rp float64, n int) ([]complex128, error) {
	a := make([]complex128, n*n)
	b := make([]complex128, n)
	r := complex(rp, 0)
	last := i1[n-1] * i1[n-1]
	for row := 0; row < n-1; row++ {
		for c := 0; c < n-1; c++ {
			if w := n - 1 - c - row; w > 0 {
				a[row*n+c] = r * complex(float64(w), 0)
			}
		}
		a[row*n] += z12t
		a[row*n+n-1-row] -= z12t
		b[row] = -(last - i1[row]*i1[row]) * z2
	}
	for c := 0; c < n; c++ {
		a[(n-1)*n+c] = 1
	}
	return solveComplex(a, b, n)
}
