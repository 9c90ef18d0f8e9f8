package gonleis

// Processed holds spectra prepared for a simultaneous fit. F, Z1 and Z2
// share one grid; F2 and Z2Truncated are the points below the nonlinear
// frequency limit.
type Processed struct {
	F           []float64
	Z1          []complex128
	Z2          []complex128
	F2          []float64
	Z2Truncated []complex128
}

// DataProcessing drops points where the linear spectrum is inductive
// (Im Z1 >= 0) and truncates the nonlinear spectrum to frequencies below
// maxF.
func DataProcessing(f []float64, z1, z2 []complex128, maxF float64) Processed {
	return preprocess(f, z1, z2, maxF, true)
}

func preprocess(f []float64, z1, z2 []complex128, maxF float64, positive bool) Processed {
	var p Processed
	for i := range f {
		if positive && imag(z1[i]) >= 0 {
			continue
		}
		p.F = append(p.F, f[i])
		p.Z1 = append(p.Z1, z1[i])
		p.Z2 = append(p.Z2, z2[i])
	}
	for i, v := range p.F {
		if v < maxF {
			p.F2 = append(p.F2, v)
			p.Z2Truncated = append(p.Z2Truncated, p.Z2[i])
		}
	}
	return p
}
