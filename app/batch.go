package app

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BatchRunner executes independent assignment jobs concurrently. Each job is
// a pure function of its own request and seed, so jobs never interfere; the
// weighted semaphore only bounds how many run at once.
type BatchRunner struct {
	svc *AssignService
	sem *semaphore.Weighted
}

// NewBatchRunner creates a runner allowing up to parallelism concurrent jobs.
func NewBatchRunner(svc *AssignService, parallelism int64) *BatchRunner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &BatchRunner{svc: svc, sem: semaphore.NewWeighted(parallelism)}
}

// Run executes every request and returns results aligned with the input
// order. A failed job leaves a nil slot; all failures are joined into the
// returned error.
func (b *BatchRunner) Run(ctx context.Context, reqs []AssignRequest) ([]*AssignResult, error) {
	results := make([]*AssignResult, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		go func(i int, req AssignRequest) {
			defer wg.Done()
			defer b.sem.Release(1)
			results[i], errs[i] = b.svc.Assign(ctx, req)
		}(i, req)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}
