package report

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/kacperjurak/gonleis"
	"github.com/kacperjurak/gonleis/pkg/models"
)

var (
	measuredColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	modelColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Nyquist plots -Im Z against Re Z for a measured spectrum as points and
// its model as a line. Either series may be empty.
func Nyquist(title string, measured, model []complex128) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Re Z"
	p.Y.Label.Text = "-Im Z"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	if len(measured) > 0 {
		s, err := plotter.NewScatter(nyquistXYs(measured))
		if err != nil {
			return nil, fmt.Errorf("measured series: %w", err)
		}
		s.GlyphStyle.Color = measuredColor
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add("measured", s)
	}
	if len(model) > 0 {
		l, err := plotter.NewLine(nyquistXYs(model))
		if err != nil {
			return nil, fmt.Errorf("model series: %w", err)
		}
		l.LineStyle.Color = modelColor
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add("model", l)
	}
	return p, nil
}

func nyquistXYs(z []complex128) plotter.XYs {
	xys := make(plotter.XYs, len(z))
	for i, v := range z {
		xys[i].X = real(v)
		xys[i].Y = -imag(v)
	}
	return xys
}

// NyquistPlots returns the linear and second-harmonic Nyquist plots of a
// fit, with the measured points taken on the frequencies the fit used.
func NyquistPlots(s models.Spectrum, res *gonleis.FitResult) (linear, nonlinear *plot.Plot, err error) {
	index := make(map[float64]int, s.Len())
	for i, f := range s.Frequencies {
		index[f] = i
	}
	pick := func(freqs []float64, z []complex128) []complex128 {
		out := make([]complex128, 0, len(freqs))
		for _, f := range freqs {
			if i, ok := index[f]; ok && i < len(z) {
				out = append(out, z[i])
			}
		}
		return out
	}

	title := s.Name
	if title == "" {
		title = "spectrum"
	}
	linear, err = Nyquist(title+" EIS", pick(res.Frequencies, s.Z1), res.Linear)
	if err != nil {
		return nil, nil, err
	}
	nonlinear, err = Nyquist(title+" 2nd-NLEIS", pick(res.NLFrequencies, s.Z2), res.Nonlinear)
	if err != nil {
		return nil, nil, err
	}
	return linear, nonlinear, nil
}

// WritePlot encodes p as a size×size image in the given format.
func WritePlot(w io.Writer, p *plot.Plot, size vg.Length, format string) error {
	wt, err := p.WriterTo(size, size, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePlots saves the linear Nyquist plot to path and the second-harmonic
// one next to it with an "_nl" suffix. The extension selects the format.
func SavePlots(path string, size vg.Length, s models.Spectrum, res *gonleis.FitResult) error {
	linear, nonlinear, err := NyquistPlots(s, res)
	if err != nil {
		return err
	}
	if err := linear.Save(size, size, path); err != nil {
		return fmt.Errorf("save linear plot: %w", err)
	}
	if err := nonlinear.Save(size, size, NonlinearPlotPath(path)); err != nil {
		return fmt.Errorf("save nonlinear plot: %w", err)
	}
	return nil
}

// NonlinearPlotPath returns the file the second-harmonic plot of path is
// saved to.
func NonlinearPlotPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_nl" + ext
}
