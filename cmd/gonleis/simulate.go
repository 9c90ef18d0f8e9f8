package main

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/kacperjurak/gonleis"
	"github.com/kacperjurak/gonleis/internal/processing"
	"github.com/kacperjurak/gonleis/pkg/config"
	"github.com/kacperjurak/gonleis/pkg/models"
)

// simulateOptions holds the flag values of the simulate command.
type simulateOptions struct {
	circuit1, circuit2, merged string
	params                     config.ArrayFlags
	const1, const2             map[string]string
	fmin, fmax                 float64
	points                     int
	noise                      gonleis.NoiseSettings
	output                     string
}

// NewSimulateCmd creates the simulate command.
func NewSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write simulated EIS and 2nd-NLEIS spectra",
		Long: `Simulate evaluates a linear and a nonlinear circuit with shared parameters
on a logarithmic frequency grid, from the highest frequency down, and
writes the spectra in the format fit reads.

Examples:
  gonleis simulate --circuit1 RCO0 --circuit2 RCOn0 --merged RCOn0 \
    --params 10,1e-3,0.1 --noise 0.01 -o cell.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.output == "" || opts.output == "-" {
				return runSimulate(cmd.OutOrStdout(), opts)
			}
			return withFile(opts.output, func(w io.Writer) error {
				return runSimulate(w, opts)
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.circuit1, "circuit1", "", "Linear EIS circuit")
	fs.StringVar(&opts.circuit2, "circuit2", "", "Second-harmonic NLEIS circuit")
	fs.StringVar(&opts.merged, "merged", "", "Merged circuit naming every parameter once")
	fs.Var(&opts.params, "params", "Parameters of the merged circuit")
	fs.StringToStringVar(&opts.const1, "const1", nil, "Constant parameters of the linear circuit")
	fs.StringToStringVar(&opts.const2, "const2", nil, "Constant parameters of the nonlinear circuit")
	fs.Float64Var(&opts.fmin, "fmin", 0.01, "Lowest frequency [Hz]")
	fs.Float64Var(&opts.fmax, "fmax", 1e5, "Highest frequency [Hz]")
	fs.IntVar(&opts.points, "points", 71, "Number of frequencies")
	fs.Float64Var(&opts.noise.Level, "noise", 0, "Relative uniform noise on every point")
	fs.UintVar(&opts.noise.Outliers, "outliers", 0, "Number of outlier points")
	fs.Float64Var(&opts.noise.OutlierLevel, "outlier-level", 0.1, "Relative noise on outlier points")
	fs.Uint64Var(&opts.noise.Seed, "seed", 1, "Noise seed")
	fs.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runSimulate(w io.Writer, opts *simulateOptions) error {
	if opts.circuit1 == "" || opts.circuit2 == "" || opts.merged == "" {
		return config.ErrNoCircuit
	}
	if opts.points < 2 || !(opts.fmin > 0) || opts.fmax <= opts.fmin {
		return errors.New("frequency grid needs at least 2 points and 0 < fmin < fmax")
	}
	c1, err := parseConstants(opts.const1)
	if err != nil {
		return err
	}
	c2, err := parseConstants(opts.const2)
	if err != nil {
		return err
	}

	sc, err := gonleis.NewSimulCircuit(gonleis.NewStandardRegistry(), opts.circuit1, opts.circuit2, opts.merged, c1, c2)
	if err != nil {
		return err
	}
	if len(opts.params) != sc.NumParams() {
		return fmt.Errorf("%w: %s takes %d parameters, got %d",
			gonleis.ErrParameterCount, opts.merged, sc.NumParams(), len(opts.params))
	}

	f := floats.LogSpan(make([]float64, opts.points), opts.fmin, opts.fmax)
	f[0], f[len(f)-1] = opts.fmin, opts.fmax
	slices.Reverse(f)
	z1, z2, err := gonleis.SimulatedSpectra(sc, f, opts.params, opts.noise)
	if err != nil {
		return err
	}
	return processing.Write(w, models.Spectrum{
		Name:        opts.merged,
		Frequencies: f,
		Z1:          z1,
		Z2:          z2,
	})
}
