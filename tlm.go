package gonleis

import (
	"fmt"
	"math"

	"github.com/kacperjurak/gonleis/pkg/ladder"
)

// transmissionLine is a decoded discrete transmission-line parameter
// vector with the per-segment scaling applied. The bulk unit is a Randles
// circuit, optionally with diffusion zd, in series with a surface
// Randles circuit.
type transmissionLine struct {
	n     int
	rpore float64
	rct   float64
	cdl   float64
	aw    float64
	tau   float64
	rs    float64
	cs    float64
	kappa float64
	eb    float64
	es    float64
	zd    diffusion
}

// segmentCountTolerance absorbs the round-off of a segment count that went
// through the bound transform and scaling of a fit.
const segmentCountTolerance = 1e-9

func segmentCount(v float64) (int, error) {
	n := math.Floor(v + segmentCountTolerance)
	if !(n >= 1) || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: segment count %v must be at least 1", ErrInvalidValue, v)
	}
	return int(n), nil
}

// decodeTLM reads [Rpore, Rct, Cdl, Rs, Cs, N, εb, εs]; the nonlinear
// entries are optional.
func decodeTLM(p []float64) (transmissionLine, error) {
	n, err := segmentCount(p[5])
	if err != nil {
		return transmissionLine{}, err
	}
	nf := float64(n)
	t := transmissionLine{
		n:     n,
		rpore: p[0] / nf,
		rct:   p[1] * nf,
		cdl:   p[2] / nf,
		rs:    p[3] * nf,
		cs:    p[4] / nf,
	}
	if len(p) > 6 {
		t.eb, t.es = p[6], p[7]
	}
	return t, nil
}

// decodeTLMDiffusion reads [Rpore, Rct, Cdl, Aw, τ, Rs, Cs, N, κ, εb, εs];
// the nonlinear entries are optional.
func decodeTLMDiffusion(p []float64, zd diffusion) (transmissionLine, error) {
	n, err := segmentCount(p[7])
	if err != nil {
		return transmissionLine{}, err
	}
	nf := float64(n)
	t := transmissionLine{
		n:     n,
		rpore: p[0] / nf,
		rct:   p[1] * nf,
		cdl:   p[2] / nf,
		aw:    p[3] * nf,
		tau:   p[4],
		rs:    p[5] * nf,
		cs:    p[6] / nf,
		zd:    zd,
	}
	if len(p) > 8 {
		t.kappa, t.eb, t.es = p[8], p[9], p[10]
	}
	return t, nil
}

// unit is the linear impedance of one segment at angular frequency w.
func (t transmissionLine) unit(w float64) complex128 {
	bulk := rco(t.rct, t.cdl, w)
	if t.zd != nil {
		bulk = rcDiffusion(t.rct, t.cdl, t.aw, t.tau, w, t.zd)
	}
	return bulk + rco(t.rs, t.cs, w)
}

// source is the second-harmonic response of one segment.
func (t transmissionLine) source(w float64) complex128 {
	bulk := rcon(t.rct, t.cdl, t.eb, thermalFactor, w)
	if t.zd != nil {
		bulk = rcDiffusionN(t.rct, t.cdl, t.aw, t.tau, t.kappa, t.eb, w, t.zd)
	}
	return bulk + rcon(t.rs, t.cs, t.es, thermalFactor, w)
}

// spectra samples the unit impedance at f and 2f and the second-harmonic
// source at f.
func (t transmissionLine) spectra(f []float64) (z1, z12t, z2 []complex128) {
	z1 = make([]complex128, len(f))
	z12t = make([]complex128, len(f))
	z2 = make([]complex128, len(f))
	for i, v := range f {
		w := omega(v)
		z1[i] = t.unit(w)
		z12t[i] = t.unit(2 * w)
		z2[i] = t.source(w)
	}
	return z1, z12t, z2
}

func (t transmissionLine) model(f []float64) ladder.Model {
	unit := make([]complex128, len(f))
	for i, v := range f {
		unit[i] = t.unit(omega(v))
	}
	return ladder.Model{Segments: t.n, Unit: unit, Pore: t.rpore}
}

func (t transmissionLine) impedance(f []float64) []complex128 {
	return t.model(f).Impedance()
}

func (t transmissionLine) secondHarmonic(f []float64) ([]complex128, error) {
	z1, z12t, z2 := t.spectra(f)
	var i1 [][]complex128
	if t.n > 2 {
		var err error
		if i1, err = ladder.CurrentDistribution(z1, t.rpore, t.n); err != nil {
			return nil, err
		}
	}
	return ladder.SecondHarmonic(i1, z1, z12t, z2, t.rpore, t.n)
}

func (t transmissionLine) secondHarmonicCurrents(f []float64) ([][]complex128, error) {
	z1, z12t, z2 := t.spectra(f)
	i1, err := ladder.CurrentDistribution(z1, t.rpore, t.n)
	if err != nil {
		return nil, err
	}
	return ladder.SecondHarmonicCurrents(i1, z12t, z2, t.rpore, t.n)
}

type tlmDecoder func(p []float64) (transmissionLine, error)

func diffusionDecoder(zd diffusion) tlmDecoder {
	return func(p []float64) (transmissionLine, error) {
		return decodeTLMDiffusion(p, zd)
	}
}

func linearTLM(decode tlmDecoder) ImpedanceFunc {
	return func(p, f []float64) ([]complex128, error) {
		t, err := decode(p)
		if err != nil {
			return nil, err
		}
		return t.impedance(f), nil
	}
}

func nonlinearTLM(decode tlmDecoder) ImpedanceFunc {
	return func(p, f []float64) ([]complex128, error) {
		t, err := decode(p)
		if err != nil {
			return nil, err
		}
		return t.secondHarmonic(f)
	}
}

func transmissionLineElements() []Element {
	tlm := []string{"Ohm", "Ohm", "F", "Ohm", "F", ""}
	tlmDiff := []string{"Ohm", "Ohm", "F", "Ohm", "s", "Ohm", "F", ""}
	return []Element{
		{Name: "TLM", NumParams: 6, Units: tlm, Func: linearTLM(decodeTLM)},
		{Name: "TLMn", NumParams: 8, Units: append(tlm[:6:6], "", ""), Func: nonlinearTLM(decodeTLM)},
		{Name: "TLMS", NumParams: 8, Units: tlmDiff, Func: linearTLM(diffusionDecoder(sphericalDiffusion))},
		{Name: "TLMSn", NumParams: 11, Units: append(tlmDiff[:8:8], "1/V", "", ""), Func: nonlinearTLM(diffusionDecoder(sphericalDiffusion))},
		{Name: "TLMD", NumParams: 8, Units: tlmDiff, Func: linearTLM(diffusionDecoder(planarDiffusion))},
		{Name: "TLMDn", NumParams: 11, Units: append(tlmDiff[:8:8], "1/V", "", ""), Func: nonlinearTLM(diffusionDecoder(planarDiffusion))},
	}
}

func currents(name string, numParams int, decode tlmDecoder, p, f []float64) ([][]complex128, error) {
	if err := typeCheck(name, numParams, p, f); err != nil {
		return nil, err
	}
	t, err := decode(p)
	if err != nil {
		return nil, err
	}
	return t.model(f).Currents()
}

func secondHarmonicCurrents(name string, numParams int, decode tlmDecoder, p, f []float64) ([][]complex128, error) {
	if err := typeCheck(name, numParams, p, f); err != nil {
		return nil, err
	}
	t, err := decode(p)
	if err != nil {
		return nil, err
	}
	return t.secondHarmonicCurrents(f)
}

// TLMCurrents returns the first-harmonic current fraction of every segment
// of a TLM element, indexed [frequency][segment].
func TLMCurrents(p, f []float64) ([][]complex128, error) {
	return currents("TLM", 6, decodeTLM, p, f)
}

// TLMSCurrents is TLMCurrents for TLMS.
func TLMSCurrents(p, f []float64) ([][]complex128, error) {
	return currents("TLMS", 8, diffusionDecoder(sphericalDiffusion), p, f)
}

// TLMDCurrents is TLMCurrents for TLMD.
func TLMDCurrents(p, f []float64) ([][]complex128, error) {
	return currents("TLMD", 8, diffusionDecoder(planarDiffusion), p, f)
}

// TLMSecondHarmonicCurrents returns the second-harmonic current of every
// segment of a TLMn element, segment 0 first.
func TLMSecondHarmonicCurrents(p, f []float64) ([][]complex128, error) {
	return secondHarmonicCurrents("TLMn", 8, decodeTLM, p, f)
}

// TLMSSecondHarmonicCurrents is TLMSecondHarmonicCurrents for TLMSn.
func TLMSSecondHarmonicCurrents(p, f []float64) ([][]complex128, error) {
	return secondHarmonicCurrents("TLMSn", 11, diffusionDecoder(sphericalDiffusion), p, f)
}

// TLMDSecondHarmonicCurrents is TLMSecondHarmonicCurrents for TLMDn.
func TLMDSecondHarmonicCurrents(p, f []float64) ([][]complex128, error) {
	return secondHarmonicCurrents("TLMDn", 11, diffusionDecoder(planarDiffusion), p, f)
}
