package gonleis

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"testing"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestDefaultBounds(t *testing.T) {
	t.Parallel()
	reg := NewStandardRegistry()
	inf := math.Inf(1)

	tests := []struct {
		name   string
		merged string
		c1, c2 Constants
		lower  []float64
		upper  []float64
	}{
		{
			name:   "porous diffusion",
			merged: "R0-TDSn0",
			lower:  []float64{0, 0, 0, 0, 0, 0, math.Inf(-1), -0.5},
			upper:  []float64{inf, inf, inf, inf, inf, inf, inf, 0.5},
		},
		{
			name:   "constant phase element",
			merged: "R0-p(R1,CPE1)",
			lower:  []float64{0, 0, 0, 0},
			upper:  []float64{inf, inf, inf, 1},
		},
		{
			name:   "constants removed",
			merged: "R0-RCOn0",
			c1:     Constants{"R0": 1},
			c2:     Constants{"RCOn0_2": 0.1},
			lower:  []float64{0, 0},
			upper:  []float64{inf, inf},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := DefaultBounds(reg, tt.merged, tt.c1, tt.c2)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(b.Lower, tt.lower) {
				t.Errorf("expected lower %v, got %v", tt.lower, b.Lower)
			}
			if !slices.Equal(b.Upper, tt.upper) {
				t.Errorf("expected upper %v, got %v", tt.upper, b.Upper)
			}
		})
	}
}

func TestBoundsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		b     Bounds
		n     int
		valid bool
	}{
		{"valid", Bounds{Lower: []float64{0, -1}, Upper: []float64{1, math.Inf(1)}}, 2, true},
		{"length mismatch", Bounds{Lower: []float64{0}, Upper: []float64{1, 2}}, 2, false},
		{"equal bounds", Bounds{Lower: []float64{1}, Upper: []float64{1}}, 1, false},
		{"inverted bounds", Bounds{Lower: []float64{2}, Upper: []float64{1}}, 1, false},
		{"NaN bound", Bounds{Lower: []float64{math.NaN()}, Upper: []float64{1}}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.b.validate(tt.n)
			if tt.valid && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrBounds) {
				t.Errorf("expected %v, got %v", ErrBounds, err)
			}
		})
	}
}

func TestBoundsNormalize(t *testing.T) {
	t.Parallel()

	t.Run("divides by upper bounds", func(t *testing.T) {
		t.Parallel()
		b := Bounds{Lower: []float64{0, -1}, Upper: []float64{10, 2}}
		n, scale, err := b.normalize(discard)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(scale, []float64{10, 2}) {
			t.Errorf("expected scale [10 2], got %v", scale)
		}
		if !slices.Equal(n.Lower, []float64{0, -0.5}) || !slices.Equal(n.Upper, []float64{1, 1}) {
			t.Errorf("unexpected normalized bounds %+v", n)
		}
		if b.Upper[0] != 10 {
			t.Error("expected normalize to leave its receiver unchanged")
		}
	})

	t.Run("caps infinite bounds", func(t *testing.T) {
		t.Parallel()
		b := Bounds{Lower: []float64{math.Inf(-1)}, Upper: []float64{math.Inf(1)}}
		n, scale, err := b.normalize(discard)
		if err != nil {
			t.Fatal(err)
		}
		if scale[0] != boundCap || n.Lower[0] != -1 || n.Upper[0] != 1 {
			t.Errorf("unexpected capped bounds %+v with scale %v", n, scale)
		}
	})

	t.Run("non-positive upper bound", func(t *testing.T) {
		t.Parallel()
		b := Bounds{Lower: []float64{-1}, Upper: []float64{-0.5}}
		if _, _, err := b.normalize(discard); !errors.Is(err, ErrBoundNormalization) {
			t.Errorf("expected %v, got %v", ErrBoundNormalization, err)
		}
	})
}

func TestBoxTransformRoundTrip(t *testing.T) {
	t.Parallel()
	inf := math.Inf(1)
	tr := boxTransform{
		lower: []float64{0, 0, math.Inf(-1), math.Inf(-1), -0.5},
		upper: []float64{1, inf, 3, inf, 0.5},
	}
	x := []float64{0.25, 12, -7, 42, 0.1}
	u := tr.internal(x)
	back := make([]float64, len(x))
	tr.external(back, u)
	for i := range x {
		if !closeToFloat(x[i], back[i], 1e-12) {
			t.Errorf("parameter %d: expected %v, got %v", i, x[i], back[i])
		}
	}

	// any internal value maps inside the bounds
	for _, v := range []float64{-100, -1, 0, 1, 100} {
		out := make([]float64, len(x))
		tr.external(out, []float64{v, v, v, v, v})
		for i, o := range out {
			if o < tr.lower[i] || o > tr.upper[i] {
				t.Errorf("internal %v mapped parameter %d outside bounds: %v", v, i, o)
			}
		}
	}
}

func TestBoxTransformAnchorsStart(t *testing.T) {
	t.Parallel()
	inf := math.Inf(1)

	tests := []struct {
		name  string
		lower float64
		upper float64
		scale float64
	}{
		{"one-sided", 0, inf, 1},
		{"two-sided", 1, 20, 1},
		{"normalized", 0.05, 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := Bounds{Lower: []float64{tt.lower}, Upper: []float64{tt.upper}}
			for n := 1; n <= 20; n++ {
				x0 := []float64{float64(n) / tt.scale}
				tr := newBoxTransform(b, x0)
				back := make([]float64, 1)
				tr.external(back, slices.Clone(tr.u0))
				if back[0] != x0[0] {
					t.Errorf("N = %d: expected %v, got %v", n, x0[0], back[0])
				}
				got, err := segmentCount(back[0] * tt.scale)
				if err != nil {
					t.Fatalf("N = %d: %v", n, err)
				}
				if got != n {
					t.Errorf("expected %d segments, got %d", n, got)
				}
			}
		})
	}

	t.Run("moved variables are not anchored", func(t *testing.T) {
		t.Parallel()
		b := Bounds{Lower: []float64{0}, Upper: []float64{inf}}
		tr := newBoxTransform(b, []float64{6})
		out := make([]float64, 1)
		tr.external(out, []float64{tr.u0[0] + 1})
		if out[0] == 6 {
			t.Error("expected a moved variable to leave the start point")
		}
	})
}

func TestBoundsContains(t *testing.T) {
	t.Parallel()
	b := Bounds{Lower: []float64{0, 0}, Upper: []float64{1, 1}}
	if i := b.contains([]float64{0, 1}); i != -1 {
		t.Errorf("expected bounds to be inclusive, got index %d", i)
	}
	if i := b.contains([]float64{0.5, 1.5}); i != 1 {
		t.Errorf("expected index 1, got %d", i)
	}
}
