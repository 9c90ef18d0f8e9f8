package ladder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// minParallelWork is the approximate flop count (frequencies × n³) above
// which per-frequency solves are spread over goroutines.
const minParallelWork = 1 << 15

// solveComplex solves the dense n×n complex system a·x = b, a stored row
// major. The system is embedded in the equivalent real 2n×2n system
//
//	[Re a  -Im a] [Re x]   [Re b]
//	[Im a   Re a] [Im x] = [Im b]
//
// and solved by LU decomposition.
func solveComplex(a, b []complex128, n int) ([]complex128, error) {
	m := mat.NewDense(2*n, 2*n, nil)
	rhs := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re, im := real(a[i*n+j]), imag(a[i*n+j])
			m.Set(i, j, re)
			m.Set(i, j+n, -im)
			m.Set(i+n, j, im)
			m.Set(i+n, j+n, re)
		}
		rhs.SetVec(i, real(b[i]))
		rhs.SetVec(i+n, imag(b[i]))
	}

	// A finite mat.Condition only reports poor conditioning; x is still
	// the LU solution.
	var x mat.VecDense
	if err := x.SolveVec(m, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
		if math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
	}

	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(x.AtVec(i), x.AtVec(i+n))
	}
	return out, nil
}

// forEachFrequency calls fn for every frequency index. Large problems are
// fanned out over an errgroup bounded by GOMAXPROCS; the first error stops
// the remaining work and is returned.
func forEachFrequency(count, n int, fn func(k int) error) error {
	if count*n*n*n < minParallelWork || count < 2 {
		for k := 0; k < count; k++ {
			if err := fn(k); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := 0; k < count; k++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return fn(k)
		})
	}
	return g.Wait()
}
