package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kacperjurak/gonleis"
	"github.com/kacperjurak/gonleis/internal/utils"
	"github.com/kacperjurak/gonleis/pkg/config"
	"github.com/kacperjurak/gonleis/pkg/models"
	"github.com/kacperjurak/gonleis/pkg/worker"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrAllStartsFailed is returned when no start of a multi-start fit succeeds.
var ErrAllStartsFailed = errors.New("all fit starts failed")

// NLEISProcessor runs multi-start simultaneous fits.
type NLEISProcessor struct {
	reg    *gonleis.Registry
	logger *slog.Logger
}

// Outcome is the result of one fit run.
type Outcome struct {
	RunID   string
	Input   gonleis.FitInput
	Best    *gonleis.FitResult
	Starts  []models.WorkResult
	Summary models.FitSummary
}

// NewNLEISProcessor creates a processor for circuits built from reg.
func NewNLEISProcessor(reg *gonleis.Registry, logger *slog.Logger) *NLEISProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &NLEISProcessor{reg: reg, logger: logger}
}

// Process fits s as configured by cfg. Every start runs SimulFit from its
// own initial guess; the start with the lowest cost wins.
func (p *NLEISProcessor) Process(ctx context.Context, s models.Spectrum, cfg *config.Config) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(s.Z1) != s.Len() || len(s.Z2) != s.Len() {
		return nil, fmt.Errorf("frequency and impedance data length mismatch: %d, %d and %d", s.Len(), len(s.Z1), len(s.Z2))
	}
	if cfg.CutLow > 0 || cfg.CutHigh > 0 {
		var err error
		if s, err = Cut(s, cfg.CutLow, cfg.CutHigh); err != nil {
			return nil, err
		}
	}

	opts, err := cfg.FitOptions(p.logger)
	if err != nil {
		return nil, err
	}
	in := cfg.FitInput(s.Frequencies, s.Z1, s.Z2)
	guesses, err := p.initialGuesses(in, cfg)
	if err != nil {
		return nil, err
	}

	runID := utils.GenerateID()
	items := make([]models.WorkItem, len(guesses))
	for i, g := range guesses {
		item := in
		item.InitialGuess = g
		items[i] = models.WorkItem{
			ID:        fmt.Sprintf("%s-%d", runID, i),
			RunID:     runID,
			Iteration: i,
			Input:     item,
			Options:   opts,
			StartTime: time.Now(),
		}
	}
	p.logger.Info("fitting spectrum",
		"run", runID,
		"spectrum", s.Name,
		"points", s.Len(),
		"starts", len(items),
		"merged", cfg.Merged,
	)

	pool := worker.New(ctx, worker.Options{
		Workers:   min(cfg.Workers, len(items)),
		Processor: worker.SimulFitProcessor(p.reg),
		Logger:    p.logger,
	})
	defer pool.Shutdown()

	results, err := pool.Run(items)
	if err != nil {
		return nil, err
	}

	best, err := bestResult(results)
	if err != nil {
		return nil, err
	}
	p.logger.Info("best start",
		"run", runID,
		"iteration", best.Iteration,
		"cost", best.Result.Cost,
		"chi_sq_linear", best.Result.ChiSqLinear,
		"chi_sq_nonlinear", best.Result.ChiSqNonlinear,
	)

	in.InitialGuess = best.InitialGuess
	return &Outcome{
		RunID:   runID,
		Input:   in,
		Best:    best.Result,
		Starts:  results,
		Summary: models.NewFitSummary(runID, s, in, best.Result, results),
	}, nil
}

func bestResult(results []models.WorkResult) (models.WorkResult, error) {
	best := -1
	bestCost := math.Inf(1)
	var firstErr error
	for i, r := range results {
		if !r.Success() {
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		if best < 0 || r.Result.Cost < bestCost {
			best, bestCost = i, r.Result.Cost
		}
	}
	if best < 0 {
		return models.WorkResult{}, fmt.Errorf("%w (%d starts): %w", ErrAllStartsFailed, len(results), firstErr)
	}
	return results[best], nil
}

// initialGuesses returns cfg.Starts guesses: the configured one, then
// copies scaled by uniform factors in [1-spread, 1+spread] and clipped to
// the bounds of the fit.
func (p *NLEISProcessor) initialGuesses(in gonleis.FitInput, cfg *config.Config) ([][]float64, error) {
	bounds := in.Bounds
	if bounds == nil {
		b, err := gonleis.DefaultBounds(p.reg, in.Merged, in.Constants1, in.Constants2)
		if err != nil {
			return nil, err
		}
		bounds = &b
	}

	guesses := [][]float64{in.InitialGuess}
	for i := 1; i < cfg.Starts; i++ {
		factor := distuv.Uniform{
			Min: 1 - cfg.Spread,
			Max: 1 + cfg.Spread,
			Src: rand.NewPCG(cfg.Seed, uint64(i)),
		}
		g := make([]float64, len(in.InitialGuess))
		for j, v := range in.InitialGuess {
			g[j] = v * factor.Rand()
			if j < len(bounds.Lower) {
				g[j] = math.Max(g[j], bounds.Lower[j])
			}
			if j < len(bounds.Upper) {
				g[j] = math.Min(g[j], bounds.Upper[j])
			}
		}
		guesses = append(guesses, g)
	}
	return guesses, nil
}
