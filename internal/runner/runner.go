package runner

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/knock/internal/logger"
	"github.com/rileyhilliard/knock/pkg/probe"
)

// Runner coordinates probing multiple targets in parallel using a shared
// work queue drained by a bounded set of workers.
type Runner struct {
	jobs   []Job
	config Config
	events Events
	log    logger.Logger

	results   []JobResult
	resultsMu sync.Mutex

	cancelOnce sync.Once
	cancelFunc context.CancelFunc
}

// New creates a runner for the given jobs.
func New(jobs []Job, cfg Config, events Events) *Runner {
	return &Runner{
		jobs:    jobs,
		config:  cfg,
		events:  events,
		log:     logger.NewEnvLogger("[runner]"),
		results: make([]JobResult, 0, len(jobs)),
	}
}

// Run probes all targets and returns the aggregate result. A failed probe
// is a verdict, not an error; Run only errors when the context is already
// dead.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if len(r.jobs) == 0 {
		return &Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel
	defer cancel()

	startTime := time.Now()

	// Channel-based work queue: workers pull jobs until it drains.
	jobQueue := make(chan Job, len(r.jobs))
	for _, job := range r.jobs {
		jobQueue <- job
	}
	close(jobQueue)

	numWorkers := r.config.MaxParallel
	if numWorkers <= 0 {
		numWorkers = DefaultMaxParallel
	}
	if numWorkers > len(r.jobs) {
		numWorkers = len(r.jobs)
	}
	r.log.Debug("probing %d target(s) with %d worker(s)", len(r.jobs), numWorkers)

	resultChan := make(chan JobResult, len(r.jobs))

	var failed bool
	var failedMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, jobQueue, resultChan, &failed, &failedMu)
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		r.resultsMu.Lock()
		r.results = append(r.results, result)
		r.resultsMu.Unlock()
	}

	return r.buildResult(time.Since(startTime)), nil
}

// worker drains the job queue, probing one target at a time.
func (r *Runner) worker(
	ctx context.Context,
	jobQueue <-chan Job,
	resultChan chan<- JobResult,
	failed *bool,
	failedMu *sync.Mutex,
) {
	for job := range jobQueue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if r.config.FailFast {
			failedMu.Lock()
			shouldStop := *failed
			failedMu.Unlock()
			if shouldStop {
				return
			}
		}

		result := r.probeJob(ctx, job)
		resultChan <- result

		if !result.Success() && r.config.FailFast {
			failedMu.Lock()
			*failed = true
			failedMu.Unlock()
			r.cancelOnce.Do(func() {
				if r.cancelFunc != nil {
					r.cancelFunc()
				}
			})
		}
	}
}

// probeJob runs a single probe and wraps it in a JobResult.
func (r *Runner) probeJob(ctx context.Context, job Job) JobResult {
	if r.events != nil {
		r.events.JobStarted(job.Name, job.Target)
	}

	r.log.Debug("probing %s (%s@%s)", job.Name, job.Username, job.Target.Addr())
	start := time.Now()
	verdict, err := probe.Probe(ctx, job.Target, job.Username, job.Credentials, job.Options)
	end := time.Now()
	if err != nil {
		r.log.Debug("probe %s errored: %v", job.Name, err)
	}

	result := JobResult{
		Name:      job.Name,
		Target:    job.Target,
		Verdict:   verdict,
		Err:       err,
		Duration:  end.Sub(start),
		StartTime: start,
		EndTime:   end,
	}

	if r.events != nil {
		r.events.JobCompleted(result)
	}

	return result
}

// buildResult constructs the final Result from collected job results.
func (r *Runner) buildResult(duration time.Duration) *Result {
	r.resultsMu.Lock()
	defer r.resultsMu.Unlock()

	result := &Result{
		JobResults: r.results,
		Duration:   duration,
	}

	for i := range r.results {
		if r.results[i].Success() {
			result.Connected++
		} else {
			result.Failed++
		}
	}

	return result
}
