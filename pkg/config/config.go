package config

import (
	"log/slog"
	"math"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/kacperjurak/gonleis"
)

// AppName names the XDG configuration directory.
const AppName = "gonleis"

// Config holds the settings of a simultaneous fit run.
type Config struct {
	File         string             `yaml:"file"`
	Circuit1     string             `yaml:"circuit1"`
	Circuit2     string             `yaml:"circuit2"`
	Merged       string             `yaml:"merged"`
	InitialGuess ArrayFlags         `yaml:"initial_guess"`
	Constants1   map[string]float64 `yaml:"constants1"`
	Constants2   map[string]float64 `yaml:"constants2"`
	Lower        ArrayFlags         `yaml:"lower"`
	Upper        ArrayFlags         `yaml:"upper"`
	CutLow       uint               `yaml:"cut_low"`
	CutHigh      uint               `yaml:"cut_high"`

	Mode           string  `yaml:"mode"`
	Cost           float64 `yaml:"cost"`
	MaxNLFrequency float64 `yaml:"max_nl_frequency"`
	ParamNorm      bool    `yaml:"param_norm"`
	Positive       bool    `yaml:"positive"`
	MaxEvaluations int     `yaml:"max_evaluations"`
	Ftol           float64 `yaml:"ftol"`
	Xtol           float64 `yaml:"xtol"`

	// Starts is the number of fits started from perturbed initial guesses;
	// the first start always uses InitialGuess.
	Starts  int     `yaml:"starts"`
	Workers int     `yaml:"workers"`
	Spread  float64 `yaml:"spread"`
	Seed    uint64  `yaml:"seed"`

	Report ReportConfig `yaml:"report"`
	Quiet  bool         `yaml:"quiet"`
	Debug  bool         `yaml:"debug"`
}

// ReportConfig selects the report outputs; empty paths are skipped.
type ReportConfig struct {
	Markdown string  `yaml:"markdown"`
	XLSX     string  `yaml:"xlsx"`
	Plot     string  `yaml:"plot"`
	PlotSize float64 `yaml:"plot_size"`
}

// DefaultConfig returns a configuration with the fit defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:           gonleis.FitMax.String(),
		Cost:           0.5,
		MaxNLFrequency: 10,
		ParamNorm:      true,
		Positive:       true,
		MaxEvaluations: 100000,
		Ftol:           1e-13,
		Xtol:           1e-10,
		Starts:         1,
		Workers:        5,
		Spread:         0.2,
		Seed:           1,
		Report: ReportConfig{
			PlotSize: 4,
		},
	}
}

// XDGConfigFile returns the per-user configuration file path.
func XDGConfigFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// FitMode parses Mode.
func (c *Config) FitMode() (gonleis.FitMode, error) {
	return gonleis.ParseFitMode(c.Mode)
}

// Bounds returns the configured bounds, or nil when none are set. A NaN
// entry stands for an unbounded side.
func (c *Config) Bounds() *gonleis.Bounds {
	if len(c.Lower) == 0 && len(c.Upper) == 0 {
		return nil
	}
	b := &gonleis.Bounds{
		Lower: make([]float64, len(c.Lower)),
		Upper: make([]float64, len(c.Upper)),
	}
	for i, v := range c.Lower {
		if math.IsNaN(v) {
			v = math.Inf(-1)
		}
		b.Lower[i] = v
	}
	for i, v := range c.Upper {
		if math.IsNaN(v) {
			v = math.Inf(1)
		}
		b.Upper[i] = v
	}
	return b
}

// FitInput builds the fit input for spectra z1 and z2 measured at f.
func (c *Config) FitInput(f []float64, z1, z2 []complex128) gonleis.FitInput {
	return gonleis.FitInput{
		Frequencies:  f,
		Z1:           z1,
		Z2:           z2,
		Circuit1:     c.Circuit1,
		Circuit2:     c.Circuit2,
		Merged:       c.Merged,
		InitialGuess: []float64(c.InitialGuess),
		Constants1:   c.Constants1,
		Constants2:   c.Constants2,
		Bounds:       c.Bounds(),
	}
}

// FitOptions translates the fit settings into options for SimulFit.
func (c *Config) FitOptions(logger *slog.Logger) ([]gonleis.FitOption, error) {
	mode, err := c.FitMode()
	if err != nil {
		return nil, err
	}
	return []gonleis.FitOption{
		gonleis.WithMode(mode),
		gonleis.WithCost(c.Cost),
		gonleis.WithMaxNLFrequency(c.MaxNLFrequency),
		gonleis.WithParamNorm(c.ParamNorm),
		gonleis.WithPositive(c.Positive),
		gonleis.WithMaxEvaluations(c.MaxEvaluations),
		gonleis.WithTolerances(c.Ftol, c.Xtol),
		gonleis.WithLogger(logger),
	}, nil
}
