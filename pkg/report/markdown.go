package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/kacperjurak/gonleis/pkg/models"
)

// MarkdownWriter outputs fit summaries in Markdown format.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs the summary and returns the number of bytes written.
func (w *MarkdownWriter) Write(sum models.FitSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, sum)
	w.writeParameters(md, sum)
	w.writeGoodness(md, sum)
	w.writeStarts(md, sum)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, sum models.FitSummary) {
	md.H1("Simultaneous Fit Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + sum.RunID + "`"},
			{"Spectrum", sum.Spectrum},
			{"Date", sum.Time.Format("2006-01-02 15:04:05 MST")},
			{"Linear circuit", "`" + sum.Circuit1 + "`"},
			{"Nonlinear circuit", "`" + sum.Circuit2 + "`"},
			{"Merged circuit", "`" + sum.Merged + "`"},
			{"Mode", sum.Mode},
			{"Runtime", sum.Runtime.String()},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeParameters(md *markdown.Markdown, sum models.FitSummary) {
	md.H2("Parameters")
	md.PlainText("")

	if len(sum.Parameters) == 0 {
		md.Warning("No parameters were fitted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(sum.Parameters))
	for _, p := range sum.Parameters {
		rows = append(rows, []string{p.Name, formatFloat(p.Value), formatFloat(p.Error)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Name", "Value", "Std. error"},
		Rows:   rows,
	})
	md.PlainText("")

	if sum.Mode == "neg" {
		md.Note("Standard errors are not estimated in neg mode.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeGoodness(md *markdown.Markdown, sum models.FitSummary) {
	md.H2("Goodness of Fit")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Measure", "Value"},
		Rows: [][]string{
			{"Cost", formatFloat(sum.Cost)},
			{"χ² linear", formatFloat(sum.ChiSqLinear)},
			{"χ² nonlinear", formatFloat(sum.ChiSqNonlinear)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStarts(md *markdown.Markdown, sum models.FitSummary) {
	if len(sum.Starts) == 0 {
		return
	}

	md.H2("Starts")
	md.PlainText("")

	failed := 0
	rows := make([][]string, 0, len(sum.Starts))
	for _, s := range sum.Starts {
		status := "ok"
		cost := formatFloat(s.Cost)
		if !s.Success {
			failed++
			status = s.Error
			cost = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Iteration),
			cost,
			s.ProcessingTime.String(),
			status,
		})
	}
	if failed > 0 {
		md.Cautionf("%d of %d starts failed.", failed, len(sum.Starts))
		md.PlainText("")
	}
	md.Table(markdown.TableSet{
		Header: []string{"Start", "Cost", "Time", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
