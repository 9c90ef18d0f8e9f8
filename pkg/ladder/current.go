package ladder

import "fmt"

// CurrentDistribution returns, per frequency, the fraction of the terminal
// current carried by every unit of an n-segment ladder. The fractions solve
//
//	A[i][j] = rp·(min(i,j)+1) + δij·zu,  b[i] = Req + rp
//
// where Req is the reduced impedance of the ladder. Their sum is one.
func CurrentDistribution(zu []complex128, rp float64, n int) ([][]complex128, error) {
	req := Reduce(zu, rp, n)
	out := make([][]complex128, len(zu))
	err := forEachFrequency(len(zu), n, func(k int) error {
		b := make([]complex128, n)
		for i := range b {
			b[i] = req[k] + complex(rp, 0)
		}
		x, err := solveComplex(currentSystem(zu[k], rp, n), b, n)
		if err != nil {
			return fmt.Errorf("current distribution at frequency index %d: %w", k, err)
		}
		out[k] = x
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// currentSystem builds the loop equations of the ladder: row i is the voltage
// drop along the pore up to unit i plus the drop across unit i.
func currentSystem(zu complex128, rp float64, n int) []complex128 {
	a := make([]complex128, n*n)
	r := complex(rp, 0)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := r * complex(float64(i+1), 0)
			if j < i {
				v -= r * complex(float64(i-j), 0)
			}
			if i == j {
				v += zu
			}
			a[i*n+j] = v
		}
	}
	return a
}
