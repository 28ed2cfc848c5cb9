package ingest

import (
	"context"
	"sync"
)

// Task is one unit of pipeline work. A non-nil error is fatal to the whole
// run; soft failures are logged inside the task and swallowed.
type Task func(ctx context.Context) error

// RunPool executes the tasks with at most workers goroutines. The first
// fatal error cancels the context shared by the remaining tasks and is
// returned after all workers have drained.
func RunPool(ctx context.Context, workers int, tasks []Task) error {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan Task)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				if ctx.Err() != nil {
					continue
				}
				if err := task(ctx); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
				}
			}
		}()
	}

	for _, task := range tasks {
		queue <- task
	}
	close(queue)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
