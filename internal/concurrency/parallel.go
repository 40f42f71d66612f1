package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions controls ProcessParallel.
type ParallelOptions struct {
	// MaxWorkers caps the number of items processed at once.
	MaxWorkers int
}

func DefaultOptions() ParallelOptions {
	return ParallelOptions{
		MaxWorkers: 10,
	}
}

// ProcessParallel calls itemFunc for every item using at most opts.MaxWorkers
// goroutines. Results are returned in input order. Items not started because
// ctx was canceled report ctx.Err() and leave a zero result.
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultOptions().MaxWorkers
	}
	if maxWorkers > len(items) {
		maxWorkers = len(items)
	}

	type result struct {
		index  int
		result R
		err    error
	}

	jobs := make(chan int, len(items))
	results := make(chan result, len(items))

	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jobIndex := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{index: jobIndex, err: err}
					continue
				}
				r, err := itemFunc(ctx, jobIndex, items[jobIndex])
				results <- result{jobIndex, r, err}
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	resultList := make([]R, len(items))
	var errs []error
	for res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
		}
		resultList[res.index] = res.result
	}

	return resultList, errs
}
