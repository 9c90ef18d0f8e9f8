// Package ladder solves the discrete transmission-line network used to model
// porous electrodes: a chain of N identical unit impedances connected by pore
// resistances.
//
// Segment 0 is the segment nearest the current collector side where the
// excitation enters. Reduce collapses the chain to an equivalent impedance,
// CurrentDistribution returns the first-harmonic fraction of the current
// carried by every unit and SecondHarmonic propagates the second-harmonic
// sources of the units to the terminal.
package ladder
