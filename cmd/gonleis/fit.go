package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot/vg"

	"github.com/kacperjurak/gonleis"
	"github.com/kacperjurak/gonleis/internal/processing"
	"github.com/kacperjurak/gonleis/pkg/config"
	"github.com/kacperjurak/gonleis/pkg/models"
	"github.com/kacperjurak/gonleis/pkg/report"
)

// NewFitCmd creates the fit command.
func NewFitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit [data-file]",
		Short: "Fit EIS and 2nd-NLEIS spectra simultaneously",
		Long: `Fit reads a measurement file with the columns

  f  Re Z1  Im Z1  Re Z2  Im Z2

and fits the linear and nonlinear circuits with shared parameters.

Settings come from the configuration file (.gonleis.yaml in the current
directory or gonleis/config.yaml in the XDG config directory); flags
override the file.

Examples:
  # Randles cell with a constant nonlinear coefficient
  gonleis fit cell.txt --circuit1 RCO0 --circuit2 RCOn0 --merged RCOn0 \
    --guess 10,1e-3,0.1

  # Ten starts around the guess, with reports
  gonleis fit cell.txt -c fit.yaml --starts 10 --markdown fit.md --xlsx fit.xlsx --plot fit.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFitCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .gonleis.yaml in current or XDG config directory)")
	addFitFlags(cmd.Flags())

	return cmd
}

// addFitFlags registers the fit settings with the defaults of
// config.DefaultConfig.
func addFitFlags(fs *pflag.FlagSet) {
	def := config.DefaultConfig()

	fs.String("circuit1", "", "Linear EIS circuit")
	fs.String("circuit2", "", "Second-harmonic NLEIS circuit")
	fs.String("merged", "", "Merged circuit naming every parameter once")
	fs.Var(new(config.ArrayFlags), "guess", "Initial guess of the merged parameters")
	fs.Var(new(config.ArrayFlags), "lower", "Lower bounds, NaN for unbounded")
	fs.Var(new(config.ArrayFlags), "upper", "Upper bounds, NaN for unbounded")
	fs.StringToString("const1", nil, "Constant parameters of the linear circuit, e.g. R0_0=5")
	fs.StringToString("const2", nil, "Constant parameters of the nonlinear circuit")
	fs.Uint("cut-low", 0, "Rows dropped from the start of the data")
	fs.Uint("cut-high", 0, "Rows dropped from the end of the data")

	fs.String("mode", def.Mode, "Objective: max (weighted least squares) or neg (log-likelihood, experimental)")
	fs.Float64("cost", def.Cost, "Weight of the linear spectrum in (0, 1)")
	fs.Float64("max-nl-frequency", def.MaxNLFrequency, "Nonlinear points at or above this frequency are ignored")
	fs.Bool("param-norm", def.ParamNorm, "Divide parameters and bounds by the upper bounds")
	fs.Bool("positive", def.Positive, "Drop points with non-negative Im Z1")
	fs.Int("max-evaluations", def.MaxEvaluations, "Optimizer evaluation budget")
	fs.Float64("ftol", def.Ftol, "Objective tolerance")
	fs.Float64("xtol", def.Xtol, "Parameter tolerance")

	fs.Int("starts", def.Starts, "Number of fit starts")
	fs.Int("workers", def.Workers, "Concurrent fit starts")
	fs.Float64("spread", def.Spread, "Relative spread of perturbed starts")
	fs.Uint64("seed", def.Seed, "Seed of perturbed starts")

	fs.String("markdown", "", "Write a Markdown report, - for stdout")
	fs.String("xlsx", "", "Write an XLSX workbook")
	fs.String("plot", "", "Write Nyquist plots; the extension selects the format")
	fs.Float64("plot-size", def.Report.PlotSize, "Plot size in inches")
}

// applyFitFlags copies the flags set on the command line into cfg.
func applyFitFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}
	str := func(name string, dst *string) {
		set(name, func() (e error) { *dst, e = fs.GetString(name); return })
	}
	float := func(name string, dst *float64) {
		set(name, func() (e error) { *dst, e = fs.GetFloat64(name); return })
	}
	integer := func(name string, dst *int) {
		set(name, func() (e error) { *dst, e = fs.GetInt(name); return })
	}
	uinteger := func(name string, dst *uint) {
		set(name, func() (e error) { *dst, e = fs.GetUint(name); return })
	}
	boolean := func(name string, dst *bool) {
		set(name, func() (e error) { *dst, e = fs.GetBool(name); return })
	}
	floats := func(name string, dst *config.ArrayFlags) {
		set(name, func() error {
			*dst = append(config.ArrayFlags(nil), *fs.Lookup(name).Value.(*config.ArrayFlags)...)
			return nil
		})
	}
	constants := func(name string, dst *map[string]float64) {
		set(name, func() error {
			m, e := fs.GetStringToString(name)
			if e != nil {
				return e
			}
			*dst, e = parseConstants(m)
			return e
		})
	}

	str("circuit1", &cfg.Circuit1)
	str("circuit2", &cfg.Circuit2)
	str("merged", &cfg.Merged)
	floats("guess", &cfg.InitialGuess)
	floats("lower", &cfg.Lower)
	floats("upper", &cfg.Upper)
	constants("const1", &cfg.Constants1)
	constants("const2", &cfg.Constants2)
	uinteger("cut-low", &cfg.CutLow)
	uinteger("cut-high", &cfg.CutHigh)
	str("mode", &cfg.Mode)
	float("cost", &cfg.Cost)
	float("max-nl-frequency", &cfg.MaxNLFrequency)
	boolean("param-norm", &cfg.ParamNorm)
	boolean("positive", &cfg.Positive)
	integer("max-evaluations", &cfg.MaxEvaluations)
	float("ftol", &cfg.Ftol)
	float("xtol", &cfg.Xtol)
	integer("starts", &cfg.Starts)
	integer("workers", &cfg.Workers)
	float("spread", &cfg.Spread)
	set("seed", func() (e error) { cfg.Seed, e = fs.GetUint64("seed"); return })
	str("markdown", &cfg.Report.Markdown)
	str("xlsx", &cfg.Report.XLSX)
	str("plot", &cfg.Report.Plot)
	float("plot-size", &cfg.Report.PlotSize)
	return err
}

func parseConstants(m map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("constant %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

// buildConfig loads the configuration file, if any, and applies the flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	configFlag, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	path, err := config.FindConfigFile(configFlag)
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	if path != "" {
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := applyFitFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.File = args[0]
	}
	if cfg.File == "" {
		return nil, errors.New("no data file given (pass it as argument or set file in the configuration)")
	}
	if getBoolFlag(cmd, "quiet") {
		cfg.Quiet = true
	}
	if getBoolFlag(cmd, "verbose") {
		cfg.Debug = true
	}
	return cfg, nil
}

// runFitCmd executes the fit command.
func runFitCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Debug, cfg.Quiet)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runFit(ctx, cfg, cmd.OutOrStdout(), logger)
}

// runFit fits the configured data file and writes the reports.
func runFit(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	s, err := processing.ReadFile(cfg.File)
	if err != nil {
		return err
	}
	logger.Info("starting fit",
		"file", cfg.File,
		"points", s.Len(),
		"merged", cfg.Merged,
		"mode", cfg.Mode,
		"starts", cfg.Starts,
	)

	proc := processing.NewNLEISProcessor(gonleis.NewStandardRegistry(), logger)
	outcome, err := proc.Process(ctx, s, cfg)
	if err != nil {
		return err
	}

	writeParameters(out, outcome.Summary)
	return writeReports(cfg, out, s, outcome)
}

func writeParameters(w io.Writer, sum models.FitSummary) {
	for _, p := range sum.Parameters {
		fmt.Fprintf(w, "%-12s %14.6g ± %.3g\n", p.Name, p.Value, p.Error)
	}
	fmt.Fprintf(w, "cost %.6g  chi2 linear %.6g  chi2 nonlinear %.6g\n",
		sum.Cost, sum.ChiSqLinear, sum.ChiSqNonlinear)
}

// writeReports writes the configured reports concurrently. Markdown sent
// to stdout is written after the others finish.
func writeReports(cfg *config.Config, out io.Writer, s models.Spectrum, o *processing.Outcome) error {
	var g errgroup.Group

	if path := cfg.Report.Markdown; path != "" && path != "-" {
		g.Go(func() error {
			return withFile(path, func(w io.Writer) error {
				_, err := report.NewMarkdownWriter(w).Write(o.Summary)
				return err
			})
		})
	}
	if path := cfg.Report.XLSX; path != "" {
		g.Go(func() error {
			if err := ensureDir(path); err != nil {
				return err
			}
			return report.SaveXLSX(path, o.Summary, s, o.Best)
		})
	}
	if path := cfg.Report.Plot; path != "" {
		g.Go(func() error {
			if err := ensureDir(path); err != nil {
				return err
			}
			return report.SavePlots(path, vg.Length(cfg.Report.PlotSize)*vg.Inch, s, o.Best)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.Report.Markdown == "-" {
		_, err := report.NewMarkdownWriter(out).Write(o.Summary)
		return err
	}
	return nil
}

func withFile(path string, write func(io.Writer) error) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // user-provided output path is intentional
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}
