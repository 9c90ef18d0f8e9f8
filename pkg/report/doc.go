// Package report renders the outcome of a simultaneous fit.
//
// Three outputs are available:
//
//   - Markdown: a human readable summary of the fitted parameters, the
//     goodness of fit and every start of a multi-start run
//   - XLSX: a workbook with the summary, the parameters, the measured and
//     modelled spectra and the starts on separate sheets
//   - Nyquist plots of the linear and second-harmonic spectra in any
//     format gonum/plot can encode (png, svg, pdf, eps, ...)
package report
