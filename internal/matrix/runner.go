package matrix

import (
	"context"
	"errors"
	"sync"
	"time"

	"icebergtest/internal/resolver"
	"icebergtest/internal/results"
	"icebergtest/internal/stack"
	"icebergtest/internal/suite"
	"icebergtest/pkg/logging"

	"golang.org/x/sync/errgroup"
)

const matrixSubsystem = "Matrix"

// StackRunner assembles one stack inside its own Test Context.
type StackRunner interface {
	Run(ctx context.Context, sel stack.Selection, fn func(ctx context.Context, running *stack.Running) error) error
}

// Recorder persists the outcome of a live run.
type Recorder interface {
	RecordRun(ctx context.Context, keys resolver.Keys, steps []suite.StepResult) (results.Record, error)
}

// Result is the outcome of one job.
type Result struct {
	Job      Job
	Success  bool
	Steps    []suite.StepResult
	Status   results.Status
	Err      error
	Duration time.Duration
}

// Summary collects every job result of a matrix run.
type Summary struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Results   []Result
	Succeeded int
	Partial   int
	Failed    int
	// Errored counts jobs whose stack could not be assembled.
	Errored int
}

// Runner runs jobs, Parallel at a time.
type Runner struct {
	Stacks StackRunner
	// Recorder is optional; nil disables recording.
	Recorder Recorder
	Parallel int
	// FailFast stops starting new jobs after the first unsuccessful one.
	FailFast bool
	// OnResult is called as soon as a job finishes. Calls are serialised.
	OnResult func(Result)

	locks *lockSet
}

// Run executes every job and returns once all started jobs finished. It
// only returns an error when ctx is cancelled; job failures are reported
// in the summary.
func (r *Runner) Run(ctx context.Context, jobs []Job) (*Summary, error) {
	summary := &Summary{StartTime: time.Now(), Results: make([]Result, 0, len(jobs))}
	r.locks = newLockSet()

	parallel := r.Parallel
	if parallel < 1 {
		parallel = 1
	}
	logging.Info(matrixSubsystem, "Running %d stacks, %d at a time", len(jobs), parallel)

	var mu sync.Mutex
	stop := make(chan struct{})
	var stopOnce sync.Once

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, job := range jobs {
		// g.Go blocks while the limit is reached, so this sees a fail-fast
		// stop before every new job.
		if stopped(stop) || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if stopped(stop) {
				return nil
			}
			result, err := r.runJob(gctx, job)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			summary.add(result)
			if r.OnResult != nil {
				r.OnResult(result)
			}
			if r.FailFast && !result.Success {
				logging.Warn(matrixSubsystem, "Stopping after failure of %s", job.Selection)
				stopOnce.Do(func() { close(stop) })
			}
			return nil
		})
	}
	err := g.Wait()

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	if err == nil {
		err = ctx.Err()
	}
	return summary, err
}

// runJob assembles and tests one stack. The returned error is only set
// when the job was abandoned because ctx ended before it could start.
func (r *Runner) runJob(ctx context.Context, job Job) (Result, error) {
	release, err := r.locks.acquire(ctx, job.Locks)
	if err != nil {
		return Result{}, err
	}
	defer release()

	logging.Info(matrixSubsystem, "Testing %s", job.Selection)
	start := time.Now()
	result := Result{Job: job}

	result.Err = r.Stacks.Run(ctx, job.Selection, func(ctx context.Context, running *stack.Running) error {
		s := suite.New(running.Env, running.Storage, running.Catalog, running.QueryEngine)
		result.Success, result.Steps = s.Run(ctx)
		return nil
	})
	result.Duration = time.Since(start)

	switch {
	case result.Err != nil:
		logging.Error(matrixSubsystem, result.Err, "Failed to assemble %s", job.Selection)
		result.Status = results.StatusFailed
		result.Success = false
	default:
		result.Status = results.StatusFromSteps(result.Steps)
	}

	if r.Recorder != nil && result.Err == nil {
		if _, err := r.Recorder.RecordRun(context.WithoutCancel(ctx), job.Keys, result.Steps); err != nil {
			logging.Error(matrixSubsystem, err, "Failed to record result for %s", job.Keys)
			result.Err = errors.Join(result.Err, err)
		}
	}
	return result, nil
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch {
	case r.Err != nil && len(r.Steps) == 0:
		s.Errored++
	case r.Status == results.StatusSuccess:
		s.Succeeded++
	case r.Status == results.StatusPartial:
		s.Partial++
	default:
		s.Failed++
	}
}

// Success reports whether every job passed every step.
func (s *Summary) Success() bool {
	return s.Succeeded == len(s.Results)
}
