// Package session pumps one streamed model response into a Scheduler.
package session

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"blockstream/internal/llm"
	"blockstream/internal/scheduler"
)

// Run streams req from p into s. Each delta is appended as it arrives; the
// stream ends with Complete on success, Fail on a transport error, or
// Cancel once ctx is done. Cancellation is checked between chunks.
func Run(ctx context.Context, p llm.Provider, req llm.Request, s *scheduler.Scheduler) error {
	err := p.Stream(ctx, req, func(delta string) {
		if ctx.Err() != nil {
			return
		}
		s.Append(delta)
	})

	if ctxErr := ctx.Err(); ctxErr != nil {
		s.Cancel()
		return fmt.Errorf("%w: %w", scheduler.ErrCancelled, ctxErr)
	}
	if err != nil {
		err = fmt.Errorf("%s stream: %w", p.Name(), err)
		s.Fail(err)
		return err
	}
	s.Complete()
	return nil
}

// Job is one response to run alongside others.
type Job struct {
	Name      string
	Provider  llm.Provider
	Request   llm.Request
	Scheduler *scheduler.Scheduler
}

// Result is the outcome of one Job.
type Result struct {
	Name string
	Err  error
}

// RunAll runs every job concurrently, each on its own Scheduler. A failing
// job does not stop the others; results are returned in job order and the
// joined error is non-nil if any job failed.
func RunAll(ctx context.Context, jobs []Job, limit int) ([]Result, error) {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			err := Run(ctx, job.Provider, job.Request, job.Scheduler)
			results[i] = Result{Name: job.Name, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return results, errors.Join(errs...)
}
