package gonleis

import (
	"math/cmplx"
)

const (
	faraday     = 96485.3321233100184 // C/mol
	gasConstant = 8.31446261815324    // J/(mol·K)
	temperature = 298                 // K

	// thermalFactor is F/(R·T) in 1/V.
	thermalFactor = faraday / (gasConstant * temperature)

	// rcoThermalFactor is F/(R·T) for the standalone RCOn element, which is
	// referenced to 298.15 K.
	rcoThermalFactor = faraday / (gasConstant * 298.15)

	// hyperbolic terms whose argument has a real part at or above
	// clampThreshold are replaced by hyperbolicSentinel.
	clampThreshold     = 100
	hyperbolicSentinel = 1e10
)

// diffusion returns the diffusion impedance with Warburg coefficient aw and
// time constant tau at angular frequency w.
type diffusion func(aw, tau, w float64) complex128

// planarDiffusion is bounded diffusion into a thin film.
func planarDiffusion(aw, tau, w float64) complex128 {
	s := cmplx.Sqrt(complex(0, w*tau))
	return complex(aw, 0) / (s * tanh(s))
}

// sphericalDiffusion is diffusion into a spherical particle.
func sphericalDiffusion(aw, tau, w float64) complex128 {
	s := cmplx.Sqrt(complex(0, w*tau))
	t := tanh(s)
	return complex(aw, 0) * t / (s - t)
}

// cylindricalDiffusion is diffusion into a cylindrical particle.
func cylindricalDiffusion(aw, tau, w float64) complex128 {
	s := cmplx.Sqrt(complex(0, w*tau))
	i0, i1 := besselI01(s)
	return complex(aw, 0) * i0 / (s * i1)
}

func clampedSinh(z complex128) complex128 {
	if real(z) >= clampThreshold {
		return hyperbolicSentinel
	}
	return cmplx.Sinh(z)
}

// clampedDouble returns sinh(2z) and cosh(2z), clamped on z.
func clampedDouble(z complex128) (complex128, complex128) {
	if real(z) >= clampThreshold {
		return hyperbolicSentinel, hyperbolicSentinel
	}
	return cmplx.Sinh(2 * z), cmplx.Cosh(2 * z)
}

// rco is the linear Randles circuit without diffusion.
func rco(rct, cdl, w float64) complex128 {
	return complex(rct, 0) / complex(1, w*rct*cdl)
}

// rcon is the second-harmonic response of rco with symmetry factor eps at
// thermal factor ft.
func rcon(rct, cdl, eps, ft, w float64) complex128 {
	ws := w * rct * cdl
	den := complex(1-5*ws*ws, 4*ws-2*ws*ws*ws)
	return complex(-eps*ft*rct*rct, 0) / den
}

// rcDiffusion is the linear Randles circuit with diffusion zd.
func rcDiffusion(rct, cdl, aw, tau, w float64, zd diffusion) complex128 {
	r := complex(rct, 0)
	d := zd(aw, tau, w)
	return r / (r/(r+d) + complex(0, w*rct*cdl))
}

// rcDiffusionN is the second-harmonic response of rcDiffusion with
// curvature kappa and symmetry factor eps.
func rcDiffusionN(rct, cdl, aw, tau, kappa, eps, w float64, zd diffusion) complex128 {
	r := complex(rct, 0)
	d1 := zd(aw, tau, w)
	d2 := zd(aw, tau, 2*w)
	ws := complex(0, w*rct*cdl)
	y1 := r / (d1 + r)
	y2 := d1 / (d1 + r)
	z1 := r / (y1 + ws)
	c := (r*complex(kappa, 0)*y2*y2 - r*complex(eps*thermalFactor, 0)*y1*y1) / (d2 + r)
	return c * z1 * z1 / (2*ws + r/(d2+r))
}

// porous is the linear response of a porous electrode with a highly
// conductive matrix; zd is nil for charge transfer only.
func porous(rpore, rct, cdl, aw, tau, w float64, zd diffusion) complex128 {
	rp := complex(rpore, 0)
	interfacial := complex(rct, 0)
	if zd != nil {
		interfacial += zd(aw, tau, w)
	}
	beta := cmplx.Sqrt(complex(0, w*rpore*cdl) + rp/interfacial)
	return rp / (beta * tanh(beta))
}

// porousN is the second-harmonic response matching porous.
func porousN(rpore, rct, cdl, aw, tau, kappa, eps, w float64, zd diffusion) complex128 {
	rp := complex(rpore, 0)
	r := complex(rct, 0)
	scale := complex(eps*thermalFactor, 0)
	i1, i2 := r, r
	if zd != nil {
		d1 := zd(aw, tau, w)
		d2 := zd(aw, tau, 2*w)
		y1 := r / (d1 + r)
		y2 := d1 / (d1 + r)
		scale = -(r*complex(kappa, 0)*y2*y2 - r*complex(eps*thermalFactor, 0)*y1*y1) / (d2 + r)
		i1, i2 = d1+r, d2+r
	}
	b1 := cmplx.Sqrt(complex(0, w*rpore*cdl) + rp/i1)
	b2 := cmplx.Sqrt(complex(0, 2*w*rpore*cdl) + rp/i2)

	sinh1 := clampedSinh(b1)
	sinh2, cosh2 := clampedDouble(b1)
	mf := rp * rp * rp / r * scale / ((b1 * sinh1) * (b1 * sinh1))
	d := b2*b2 - 4*b1*b1
	part1 := (b1 / b2) * sinh2 / (d * tanh(b2))
	part2 := -cosh2/(2*d) - 1/(2*b2*b2)
	return mf * (part1 + part2)
}

func nonlinearElements() []Element {
	randles := []string{"Ohm", "F"}
	randlesDiff := []string{"Ohm", "F", "Ohm", "s"}
	porousUnits := []string{"Ohm", "Ohm", "F"}
	porousDiff := []string{"Ohm", "Ohm", "F", "Ohm", "s"}
	nonlinear := []string{"1/V", ""}

	elements := []Element{
		{
			Name: "RCO", NumParams: 2, Units: randles,
			Func: pointwise(func(p []float64, w float64) complex128 {
				return rco(p[0], p[1], w)
			}),
		},
		{
			Name: "RCOn", NumParams: 3, Units: append(randles[:2:2], ""),
			Func: pointwise(func(p []float64, w float64) complex128 {
				return rcon(p[0], p[1], p[2], rcoThermalFactor, w)
			}),
		},
		{
			Name: "TPO", NumParams: 3, Units: porousUnits,
			Func: pointwise(func(p []float64, w float64) complex128 {
				return porous(p[0], p[1], p[2], 0, 0, w, nil)
			}),
		},
		{
			Name: "TPOn", NumParams: 4, Units: append(porousUnits[:3:3], ""),
			Func: pointwise(func(p []float64, w float64) complex128 {
				return porousN(p[0], p[1], p[2], 0, 0, 0, p[3], w, nil)
			}),
		},
	}

	for _, kind := range []struct {
		suffix string
		zd     diffusion
	}{
		{"D", planarDiffusion},
		{"S", sphericalDiffusion},
		{"C", cylindricalDiffusion},
	} {
		zd := kind.zd
		if kind.suffix != "C" {
			elements = append(elements,
				Element{
					Name: "RC" + kind.suffix, NumParams: 4, Units: randlesDiff,
					Func: pointwise(func(p []float64, w float64) complex128 {
						return rcDiffusion(p[0], p[1], p[2], p[3], w, zd)
					}),
				},
				Element{
					Name: "RC" + kind.suffix + "n", NumParams: 6, Units: append(randlesDiff[:4:4], nonlinear...),
					Func: pointwise(func(p []float64, w float64) complex128 {
						return rcDiffusionN(p[0], p[1], p[2], p[3], p[4], p[5], w, zd)
					}),
				},
			)
		}
		elements = append(elements,
			Element{
				Name: "TD" + kind.suffix, NumParams: 5, Units: porousDiff,
				Func: pointwise(func(p []float64, w float64) complex128 {
					return porous(p[0], p[1], p[2], p[3], p[4], w, zd)
				}),
			},
			Element{
				Name: "TD" + kind.suffix + "n", NumParams: 7, Units: append(porousDiff[:5:5], nonlinear...),
				Func: pointwise(func(p []float64, w float64) complex128 {
					return porousN(p[0], p[1], p[2], p[3], p[4], p[5], p[6], w, zd)
				}),
			},
		)
	}
	return elements
}
