package models

import (
	"time"

	"github.com/kacperjurak/gonleis"
)

// Spectrum is a simultaneous EIS and 2nd-NLEIS measurement on one
// frequency grid.
type Spectrum struct {
	Name        string       `json:"name" yaml:"name"`
	Frequencies []float64    `json:"frequencies" yaml:"frequencies"`
	Z1          []complex128 `json:"-" yaml:"-"`
	Z2          []complex128 `json:"-" yaml:"-"`
}

// Len returns the number of frequency points.
func (s Spectrum) Len() int {
	return len(s.Frequencies)
}

// WorkItem is one start of a multi-start fit.
type WorkItem struct {
	ID        string
	RunID     string
	Iteration int
	Input     gonleis.FitInput
	Options   []gonleis.FitOption
	StartTime time.Time
}

// WorkResult is the outcome of a WorkItem.
type WorkResult struct {
	ID             string
	RunID          string
	Iteration      int
	Result         *gonleis.FitResult
	Err            error
	ProcessingTime time.Duration
	InitialGuess   []float64
}

// Success reports whether the start produced a fit.
func (r WorkResult) Success() bool {
	return r.Err == nil && r.Result != nil
}

// ParameterEstimate is one fitted parameter with its standard deviation.
type ParameterEstimate struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
	Error float64 `json:"error" yaml:"error"`
}

// FitSummary is the reportable outcome of a fit run.
type FitSummary struct {
	RunID          string              `json:"run_id" yaml:"run_id"`
	Time           time.Time           `json:"time" yaml:"time"`
	Spectrum       string              `json:"spectrum" yaml:"spectrum"`
	Circuit1       string              `json:"circuit1" yaml:"circuit1"`
	Circuit2       string              `json:"circuit2" yaml:"circuit2"`
	Merged         string              `json:"merged" yaml:"merged"`
	Mode           string              `json:"mode" yaml:"mode"`
	Cost           float64             `json:"cost" yaml:"cost"`
	ChiSqLinear    float64             `json:"chi_sq_linear" yaml:"chi_sq_linear"`
	ChiSqNonlinear float64             `json:"chi_sq_nonlinear" yaml:"chi_sq_nonlinear"`
	Parameters     []ParameterEstimate `json:"parameters" yaml:"parameters"`
	Starts         []SpectrumTiming    `json:"starts" yaml:"starts"`
	Runtime        time.Duration       `json:"runtime" yaml:"runtime"`
}

// SpectrumTiming tracks one start of a multi-start fit.
type SpectrumTiming struct {
	Iteration      int           `json:"iteration" yaml:"iteration"`
	ProcessingTime time.Duration `json:"processing_time" yaml:"processing_time"`
	Cost           float64       `json:"cost" yaml:"cost"`
	Success        bool          `json:"success" yaml:"success"`
	Error          string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewFitSummary builds a summary from the best result of a run.
func NewFitSummary(runID string, s Spectrum, in gonleis.FitInput, best *gonleis.FitResult, starts []WorkResult) FitSummary {
	sum := FitSummary{
		RunID:    runID,
		Time:     time.Now(),
		Spectrum: s.Name,
		Circuit1: in.Circuit1,
		Circuit2: in.Circuit2,
		Merged:   in.Merged,
	}
	if best != nil {
		sum.Mode = best.Mode.String()
		sum.Cost = best.Cost
		sum.ChiSqLinear = best.ChiSqLinear
		sum.ChiSqNonlinear = best.ChiSqNonlinear
		sum.Runtime = best.Runtime
		for i, name := range best.Names {
			p := ParameterEstimate{Name: name, Value: best.Params[i]}
			if best.Errors != nil {
				p.Error = best.Errors[i]
			}
			sum.Parameters = append(sum.Parameters, p)
		}
	}
	for _, r := range starts {
		t := SpectrumTiming{
			Iteration:      r.Iteration,
			ProcessingTime: r.ProcessingTime,
			Success:        r.Success(),
		}
		if r.Result != nil {
			t.Cost = r.Result.Cost
		}
		if r.Err != nil {
			t.Error = r.Err.Error()
		}
		sum.Starts = append(sum.Starts, t)
	}
	return sum
}
