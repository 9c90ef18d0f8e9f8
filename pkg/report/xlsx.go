package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kacperjurak/gonleis"
	"github.com/kacperjurak/gonleis/pkg/models"
)

// Sheet names of the fit workbook.
const (
	SheetSummary    = "Summary"
	SheetParameters = "Parameters"
	SheetSpectra    = "Spectra"
	SheetStarts     = "Starts"
)

// Workbook builds a workbook with the summary, the fitted parameters, the
// measured and modelled spectra and the starts of a run. The caller owns
// the returned file and must close it.
func Workbook(sum models.FitSummary, s models.Spectrum, res *gonleis.FitResult) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, sheet := range []string{SheetParameters, SheetSpectra, SheetStarts} {
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, err
		}
	}

	sw := &sheetWriter{f: f}
	sw.summary(sum)
	sw.parameters(sum)
	sw.spectra(s, res)
	sw.starts(sum)
	if sw.err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", sw.err)
	}
	return f, nil
}

// WriteXLSX writes the fit workbook to w.
func WriteXLSX(w io.Writer, sum models.FitSummary, s models.Spectrum, res *gonleis.FitResult) error {
	f, err := Workbook(sum, s, res)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveXLSX writes the fit workbook to the named file.
func SaveXLSX(filename string, sum models.FitSummary, s models.Spectrum, res *gonleis.FitResult) error {
	f, err := Workbook(sum, s, res)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(filename)
}

// sheetWriter keeps the first cell error so the sheet builders read
// straight through.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) set(sheet string, col, row int, v any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(sheet, cell, v)
}

func (w *sheetWriter) row(sheet string, row int, values ...any) {
	for i, v := range values {
		w.set(sheet, i+1, row, v)
	}
}

func (w *sheetWriter) summary(sum models.FitSummary) {
	rows := [][]any{
		{"Property", "Value"},
		{"Run", sum.RunID},
		{"Spectrum", sum.Spectrum},
		{"Date", sum.Time.Format("2006-01-02 15:04:05 MST")},
		{"Linear circuit", sum.Circuit1},
		{"Nonlinear circuit", sum.Circuit2},
		{"Merged circuit", sum.Merged},
		{"Mode", sum.Mode},
		{"Cost", cellFloat(sum.Cost)},
		{"ChiSq linear", cellFloat(sum.ChiSqLinear)},
		{"ChiSq nonlinear", cellFloat(sum.ChiSqNonlinear)},
		{"Runtime [s]", sum.Runtime.Seconds()},
	}
	for i, r := range rows {
		w.row(SheetSummary, i+1, r...)
	}
}

func (w *sheetWriter) parameters(sum models.FitSummary) {
	w.row(SheetParameters, 1, "Name", "Value", "Error")
	for i, p := range sum.Parameters {
		w.row(SheetParameters, i+2, p.Name, p.Value, cellFloat(p.Error))
	}
}

// spectra writes the measured spectra next to the model on the frequencies
// the fit used. Second-harmonic model columns stay empty above the
// nonlinear frequency limit.
func (w *sheetWriter) spectra(s models.Spectrum, res *gonleis.FitResult) {
	w.row(SheetSpectra, 1,
		"f [Hz]",
		"Re Z1", "Im Z1", "Re Z1 model", "Im Z1 model",
		"Re Z2", "Im Z2", "Re Z2 model", "Im Z2 model",
	)
	if res == nil {
		return
	}

	index := make(map[float64]int, s.Len())
	for i, f := range s.Frequencies {
		index[f] = i
	}
	nl := make(map[float64]int, len(res.NLFrequencies))
	for i, f := range res.NLFrequencies {
		nl[f] = i
	}
	for i, f := range res.Frequencies {
		row := i + 2
		w.set(SheetSpectra, 1, row, f)
		if j, ok := index[f]; ok {
			w.set(SheetSpectra, 2, row, real(s.Z1[j]))
			w.set(SheetSpectra, 3, row, imag(s.Z1[j]))
			w.set(SheetSpectra, 6, row, real(s.Z2[j]))
			w.set(SheetSpectra, 7, row, imag(s.Z2[j]))
		}
		if i < len(res.Linear) {
			w.set(SheetSpectra, 4, row, real(res.Linear[i]))
			w.set(SheetSpectra, 5, row, imag(res.Linear[i]))
		}
		if k, ok := nl[f]; ok && k < len(res.Nonlinear) {
			w.set(SheetSpectra, 8, row, real(res.Nonlinear[k]))
			w.set(SheetSpectra, 9, row, imag(res.Nonlinear[k]))
		}
	}
}

func (w *sheetWriter) starts(sum models.FitSummary) {
	w.row(SheetStarts, 1, "Start", "Success", "Cost", "Time [s]", "Error")
	for i, s := range sum.Starts {
		w.row(SheetStarts, i+2, s.Iteration, s.Success, cellFloat(s.Cost), s.ProcessingTime.Seconds(), s.Error)
	}
}

// cellFloat maps values a spreadsheet cannot hold to text.
func cellFloat(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}
