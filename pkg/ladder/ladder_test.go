package ladder

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

// randlesUnit returns an R‖C unit in series with a surface resistance,
// sampled at the given frequencies.
func randlesUnit(freqs []float64, rct, cdl, rs float64) []complex128 {
	out := make([]complex128, len(freqs))
	for i, f := range freqs {
		w := 2 * math.Pi * f
		out[i] = complex(rct, 0)/(1+complex(0, w*rct*cdl)) + complex(rs, 0)
	}
	return out
}

func closeTo(got, want complex128, tol float64) bool {
	return cmplx.Abs(got-want) <= tol*math.Max(1, cmplx.Abs(want))
}

// nodalTerminal solves the explicit ladder by nodal analysis: node 0 is the
// terminal, node k (1..n) joins unit k-1 to ground, neighbouring nodes are
// joined by rp. A unit current is injected at the terminal; the returned
// values are the terminal voltage and the current through every unit.
func nodalTerminal(t *testing.T, zu complex128, rp float64, n int) (complex128, []complex128) {
	t.Helper()

	m := n + 1
	y := make([]complex128, m*m)
	edge := func(a, b int, z complex128) {
		y[a*m+a] += 1 / z
		y[b*m+b] += 1 / z
		y[a*m+b] -= 1 / z
		y[b*m+a] -= 1 / z
	}
	r := complex(rp, 0)
	for k := 0; k < n; k++ {
		edge(k, k+1, r)
	}
	for k := 1; k < m; k++ {
		y[k*m+k] += 1 / zu
	}
	rhs := make([]complex128, m)
	rhs[0] = 1

	v, err := solveComplex(y, rhs, m)
	if err != nil {
		t.Fatalf("nodal solve: %v", err)
	}
	units := make([]complex128, n)
	for k := range units {
		units[k] = v[k+1] / zu
	}
	return v[0], units
}

// nodalSecondHarmonic models every unit as z12t in series with a source
// z2·i1[k]² and leaves the terminal open. It returns the terminal voltage and
// the second-harmonic current of every unit.
func nodalSecondHarmonic(t *testing.T, i1 []complex128, z12t, z2 complex128, rp float64, n int) (complex128, []complex128) {
	t.Helper()

	y := make([]complex128, n*n)
	rhs := make([]complex128, n)
	r := complex(rp, 0)
	for k := 0; k < n; k++ {
		y[k*n+k] += 1 / z12t
		rhs[k] = z2 * i1[k] * i1[k] / z12t
		if k+1 < n {
			y[k*n+k] += 1 / r
			y[(k+1)*n+k+1] += 1 / r
			y[k*n+k+1] -= 1 / r
			y[(k+1)*n+k] -= 1 / r
		}
	}
	v, err := solveComplex(y, rhs, n)
	if err != nil {
		t.Fatalf("nodal solve: %v", err)
	}
	currents := make([]complex128, n)
	for k := range currents {
		currents[k] = (v[k] - z2*i1[k]*i1[k]) / z12t
	}
	return v[0], currents
}

func TestSolveComplex(t *testing.T) {
	t.Parallel()

	// (1+i)x + 2y = 3+i, x - iy = 1-i  =>  x = 1, y = 1
	a := []complex128{1 + 1i, 2, 1, -1i}
	b := []complex128{3 + 1i, 1 - 1i}
	x, err := solveComplex(a, b, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []complex128{1, 1} {
		if !closeTo(x[i], want, 1e-12) {
			t.Errorf("x[%d] = %v, want %v", i, x[i], want)
		}
	}
}

func TestReduceSingleSegmentIsIdentity(t *testing.T) {
	t.Parallel()

	zu := randlesUnit([]float64{0.1, 1, 10, 1e3, 1e5}, 12.5, 3e-4, 0.7)
	got := Reduce(zu, 3.3, 1)
	for i := range zu {
		if got[i] != zu[i] {
			t.Errorf("index %d: got %v, want %v bit for bit", i, got[i], zu[i])
		}
	}
	got[0] = 0
	if zu[0] == 0 {
		t.Error("Reduce must not alias its input")
	}
}

func TestReducePanicsOnNonPositiveSegments(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for n = 0")
		}
	}()
	Reduce([]complex128{1}, 1, 0)
}

func TestReduceMatchesNodalAnalysis(t *testing.T) {
	t.Parallel()

	freqs := []float64{0.5, 3, 40, 900}
	zu := randlesUnit(freqs, 10, 1e-3, 2)
	for _, n := range []int{1, 2, 3, 7, 12} {
		got := Reduce(zu, 1.7, n)
		for k := range zu {
			want, _ := nodalTerminal(t, zu[k], 1.7, n)
			if !closeTo(got[k]+1.7, want, 1e-10) {
				t.Errorf("n=%d freq=%v: got %v, want %v", n, freqs[k], got[k]+1.7, want)
			}
		}
	}
}

func TestCurrentDistribution(t *testing.T) {
	t.Parallel()

	freqs := []float64{0.2, 5, 80, 2e3}
	zu := randlesUnit(freqs, 10, 1e-3, 2)
	rp := 1.7

	tests := []struct {
		name string
		n    int
		zu   []complex128
	}{
		{name: "single segment", n: 1, zu: zu},
		{name: "two segments", n: 2, zu: zu},
		{name: "four segments", n: 4, zu: zu},
		{name: "nine segments", n: 9, zu: zu},
		{name: "parallel fan-out", n: 24, zu: randlesUnit([]float64{0.1, 0.3, 1, 3, 10, 30, 100, 300}, 10, 1e-3, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			i1, err := CurrentDistribution(tt.zu, rp, tt.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			req := Reduce(tt.zu, rp, tt.n)
			for k, row := range i1 {
				if len(row) != tt.n {
					t.Fatalf("row %d has %d segments, want %d", k, len(row), tt.n)
				}
				a := currentSystem(tt.zu[k], rp, tt.n)
				var sum complex128
				for i := 0; i < tt.n; i++ {
					var lhs complex128
					for j := 0; j < tt.n; j++ {
						lhs += a[i*tt.n+j] * row[j]
					}
					if !closeTo(lhs, req[k]+complex(rp, 0), 1e-10) {
						t.Errorf("freq %d row %d: A·I1 = %v, want %v", k, i, lhs, req[k]+complex(rp, 0))
					}
					sum += row[i]
				}
				if !closeTo(sum, 1, 1e-10) {
					t.Errorf("freq %d: fractions sum to %v, want 1", k, sum)
				}
				_, units := nodalTerminal(t, tt.zu[k], rp, tt.n)
				for i := range units {
					if !closeTo(row[i], units[i], 1e-9) {
						t.Errorf("freq %d segment %d: got %v, nodal %v", k, i, row[i], units[i])
					}
				}
			}
		})
	}
}

func TestCurrentDistributionTwoSegmentsClosedForm(t *testing.T) {
	t.Parallel()

	zu := randlesUnit([]float64{1, 10, 100}, 10, 1e-3, 0)
	rp := complex(4.0, 0)
	i1, err := CurrentDistribution(zu, 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k, z := range zu {
		want0 := (z + rp) / (2*z + rp)
		want1 := z / (2*z + rp)
		if !closeTo(i1[k][0], want0, 1e-12) || !closeTo(i1[k][1], want1, 1e-12) {
			t.Errorf("freq %d: got %v, want [%v %v]", k, i1[k], want0, want1)
		}
	}
}

func TestCurrentDistributionSingular(t *testing.T) {
	t.Parallel()

	// rp = 0 and zu = 0 leave A identically zero.
	_, err := CurrentDistribution([]complex128{0, 0}, 0, 3)
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}

func TestCurrentDistributionToleratesSentinels(t *testing.T) {
	t.Parallel()

	zu := []complex128{1e10, complex(1e10, -1e10), 1e-10}
	i1, err := CurrentDistribution(zu, 2.5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k, row := range i1 {
		for i, v := range row {
			if cmplx.IsNaN(v) || cmplx.IsInf(v) {
				t.Errorf("freq %d segment %d: non-finite fraction %v", k, i, v)
			}
		}
	}
}

func TestSecondHarmonicTwoSegmentsClosedFormMatchesGeneral(t *testing.T) {
	t.Parallel()

	freqs := []float64{0.3, 2, 17, 250, 4e3}
	z1 := randlesUnit(freqs, 10, 1e-3, 2)
	doubled := make([]float64, len(freqs))
	for i, f := range freqs {
		doubled[i] = 2 * f
	}
	z12t := randlesUnit(doubled, 10, 1e-3, 2)
	z2 := make([]complex128, len(freqs))
	for i, z := range z1 {
		z2[i] = -0.05 * z * z / (1 + 0.1i*complex(float64(i), 0))
	}

	i1, err := CurrentDistribution(z1, 1.3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	closed, err := SecondHarmonic(i1, z1, z12t, z2, 1.3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	general, err := SecondHarmonicGeneral(i1, z12t, z2, 1.3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k := range closed {
		if !closeTo(closed[k], general[k], 1e-10) {
			t.Errorf("freq %v: closed form %v, general %v", freqs[k], closed[k], general[k])
		}
	}
}

func TestSecondHarmonicSingleSegmentReturnsSource(t *testing.T) {
	t.Parallel()

	z2 := []complex128{1 - 2i, -3 + 0.5i}
	got, err := SecondHarmonic(nil, nil, nil, z2, 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range z2 {
		if got[i] != z2[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], z2[i])
		}
	}
}

func TestSecondHarmonicMatchesNodalAnalysis(t *testing.T) {
	t.Parallel()

	freqs := []float64{0.5, 3, 40, 900}
	doubled := []float64{1, 6, 80, 1800}
	z1 := randlesUnit(freqs, 10, 1e-3, 2)
	z12t := randlesUnit(doubled, 10, 1e-3, 2)
	z2 := make([]complex128, len(freqs))
	for i, f := range freqs {
		z2[i] = complex(-0.3, 0) / (1 + complex(0, 2*math.Pi*f*1e-2))
	}
	rp := 1.7

	for _, n := range []int{2, 3, 5, 8} {
		i1, err := CurrentDistribution(z1, rp, n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		got, err := SecondHarmonic(i1, z1, z12t, z2, rp, n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		currents, err := SecondHarmonicCurrents(i1, z12t, z2, rp, n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		for k := range freqs {
			want, wantCurrents := nodalSecondHarmonic(t, i1[k], z12t[k], z2[k], rp, n)
			if !closeTo(got[k], want, 1e-9) {
				t.Errorf("n=%d freq=%v: got %v, nodal %v", n, freqs[k], got[k], want)
			}
			for i := range wantCurrents {
				if !closeTo(currents[k][i], wantCurrents[i], 1e-9) {
					t.Errorf("n=%d freq=%v segment %d: got %v, nodal %v", n, freqs[k], i, currents[k][i], wantCurrents[i])
				}
			}
		}
	}
}

func TestModel(t *testing.T) {
	t.Parallel()

	m := Model{Segments: 3, Unit: randlesUnit([]float64{1, 10}, 10, 1e-3, 1), Pore: 2}
	z := m.Impedance()
	want := Reduce(m.Unit, m.Pore, m.Segments)
	for i := range z {
		if z[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, z[i], want[i])
		}
	}
	i1, err := m.Currents()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(i1) != 2 || len(i1[0]) != 3 {
		t.Errorf("unexpected shape %dx%d", len(i1), len(i1[0]))
	}
}
