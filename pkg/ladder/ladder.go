package ladder

// Model is one ladder network evaluated on a frequency grid. Unit holds the
// impedance of a single repeating unit per frequency and Pore the resistance
// between neighbouring units.
type Model struct {
	Segments int
	Unit     []complex128
	Pore     float64
}

// Impedance returns the equivalent impedance of the network seen from the
// first unit, excluding the leading pore resistance.
func (m Model) Impedance() []complex128 {
	return Reduce(m.Unit, m.Pore, m.Segments)
}

// Currents returns the first-harmonic current fractions, indexed
// [frequency][segment].
func (m Model) Currents() ([][]complex128, error) {
	return CurrentDistribution(m.Unit, m.Pore, m.Segments)
}

// Reduce collapses n units zu joined by pore resistance rp into one equivalent
// impedance per frequency. For n == 1 the result is a copy of zu.
//
// Reduce panics if n < 1.
func Reduce(zu []complex128, rp float64, n int) []complex128 {
	if n < 1 {
		panic("ladder: segment count must be positive")
	}
	req := make([]complex128, len(zu))
	copy(req, zu)
	r := complex(rp, 0)
	for i := 1; i < n; i++ {
		for k, z := range zu {
			req[k] = 1 / (1/(req[k]+r) + 1/z)
		}
	}
	return req
}
