package utils

import (
	"context"
	"sync"
)

// Worker processes a single item of a WorkerPool.
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool runs a Worker over a slice of items with bounded concurrency.
//
// Goroutine lifecycle:
//   - workers are started by ProcessItems and read from an internal channel
//   - all workers exit once the channel is drained or the context is cancelled
//   - ProcessItems blocks until every worker has returned
//   - panics in workers are recovered and reported as *PanicError
//
// Results and errors are indexed like the input, so callers can fold them in
// input order regardless of completion order.
//
// Example:
//
//	pool := NewWorkerPool(4, func(ctx context.Context, url string) (*imagery.Image, error) {
//	    return fetcher.Fetch(ctx, url)
//	})
//	images, errs := pool.ProcessItems(ctx, urls)
type WorkerPool[T any, R any] struct {
	numWorkers int
	worker     Worker[T, R]
}

type indexed[T any] struct {
	item  T
	index int
}

// NewWorkerPool creates a worker pool. A non-positive numWorkers falls back
// to WorkerLimit().
func NewWorkerPool[T any, R any](numWorkers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = WorkerLimit()
	}
	return &WorkerPool[T, R]{
		numWorkers: numWorkers,
		worker:     worker,
	}
}

// ProcessItems processes items and returns results and errors by input index.
// Items not started before ctx is cancelled report ctx.Err().
func (wp *WorkerPool[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	itemsChan := make(chan indexed[T], len(items))
	for i, item := range items {
		itemsChan <- indexed[T]{item: item, index: i}
	}
	close(itemsChan)

	results := make([]R, len(items))
	errs := make([]error, len(items))
	started := make([]bool, len(items))
	var wg sync.WaitGroup

	workers := min(wp.numWorkers, len(items))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range itemsChan {
				if ctx.Err() != nil {
					return
				}
				started[it.index] = true
				func() {
					defer RecoverWithCallback(func(err error) {
						errs[it.index] = err
					})
					results[it.index], errs[it.index] = wp.worker(ctx, it.item)
				}()
			}
		}()
	}
	wg.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		for i := range items {
			if !started[i] {
				errs[i] = ctxErr
			}
		}
	}
	return results, errs
}
