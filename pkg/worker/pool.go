package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kacperjurak/gonleis"
	"github.com/kacperjurak/gonleis/pkg/models"
)

// Pool runs fit starts on a fixed number of workers.
type Pool struct {
	jobs      chan models.WorkItem
	results   chan models.WorkResult
	workers   int
	shutdown  chan struct{}
	once      sync.Once
	wg        sync.WaitGroup
	processor ProcessorFunc
	logger    *slog.Logger
	ctx       context.Context
}

// ProcessorFunc fits one work item.
type ProcessorFunc func(ctx context.Context, item models.WorkItem) (*gonleis.FitResult, error)

// Options holds configuration for creating a new worker pool
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Logger    *slog.Logger
}

// SimulFitProcessor fits work items with gonleis.SimulFit on reg.
func SimulFitProcessor(reg *gonleis.Registry) ProcessorFunc {
	return func(ctx context.Context, item models.WorkItem) (*gonleis.FitResult, error) {
		return gonleis.SimulFit(ctx, reg, item.Input, item.Options...)
	}
}

// New starts a worker pool. Workers stop when ctx is done or on Shutdown.
func New(ctx context.Context, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// buffered so submitting does not wait for busy workers
	pool := &Pool{
		jobs:      make(chan models.WorkItem, opts.Workers*2),
		results:   make(chan models.WorkResult, opts.Workers*2),
		workers:   opts.Workers,
		shutdown:  make(chan struct{}),
		processor: opts.Processor,
		logger:    opts.Logger,
		ctx:       ctx,
	}

	pool.start()
	return pool
}

func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("worker pool started", "workers", p.workers)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			result := p.processJob(job)
			select {
			case p.results <- result:
			case <-p.shutdown:
				return
			}
		case <-p.shutdown:
			return
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) processJob(job models.WorkItem) models.WorkResult {
	startTime := time.Now()
	res, err := p.processor(p.ctx, job)
	processingTime := time.Since(startTime)

	if err != nil {
		p.logger.Debug("fit start failed", "run", job.RunID, "iteration", job.Iteration, "error", err)
	} else {
		p.logger.Debug("fit start finished", "run", job.RunID, "iteration", job.Iteration, "cost", res.Cost, "time", processingTime)
	}

	return models.WorkResult{
		ID:             job.ID,
		RunID:          job.RunID,
		Iteration:      job.Iteration,
		Result:         res,
		Err:            err,
		ProcessingTime: processingTime,
		InitialGuess:   job.Input.InitialGuess,
	}
}

// SubmitJob queues a job, blocking while the queue is full.
func (p *Pool) SubmitJob(job models.WorkItem) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		p.logger.Debug("worker pool jobs channel full, job may be delayed", "iteration", job.Iteration)
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Results returns the channel results are delivered on.
func (p *Pool) Results() <-chan models.WorkResult {
	return p.results
}

// GetResult retrieves a result without blocking.
func (p *Pool) GetResult() (models.WorkResult, bool) {
	select {
	case result := <-p.results:
		return result, true
	default:
		return models.WorkResult{}, false
	}
}

// Run submits items and waits for all their results, returned in
// submission order.
func (p *Pool) Run(items []models.WorkItem) ([]models.WorkResult, error) {
	errc := make(chan error, 1)
	go func() {
		for _, item := range items {
			if err := p.SubmitJob(item); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()

	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ID] = i
	}
	out := make([]models.WorkResult, len(items))
	for range items {
		select {
		case r := <-p.results:
			out[index[r.ID]] = r
		case <-p.ctx.Done():
			return nil, p.ctx.Err()
		}
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	if err := p.ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Shutdown stops the workers and waits for them to exit.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.shutdown)
		p.wg.Wait()
		p.logger.Debug("worker pool shutdown complete")
	})
}
