// Package gonleis models and fits the linear (EIS) and second-harmonic
// nonlinear (2nd-NLEIS) impedance of electrochemical electrodes.
//
// Circuits are written in a small description language: "-" joins elements
// in series, p(a,b) puts branches in parallel and d(a,b) subtracts the last
// branch from the first. Elements are looked up in a Registry by their name
// without the trailing index, so "TDSn1" evaluates the nonlinear twin of
// "TDS". SimulFit fits one linear and one nonlinear circuit to both spectra
// at once, sharing the parameters the two circuits have in common.
package gonleis
