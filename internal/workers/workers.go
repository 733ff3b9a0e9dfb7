package workers

import (
	"context"
	"sync"
)

// Workers aggregates background workers and runs them as a group.
type Workers struct {
	workers []Worker
}

// New builds a Workers aggregate over the given workers.
func New(ws ...Worker) *Workers {
	return &Workers{workers: ws}
}

// Add appends a worker to the group. Must not be called after Run.
func (w *Workers) Add(worker Worker) {
	w.workers = append(w.workers, worker)
}

// Run starts every worker in its own goroutine and blocks until all of
// them return. Cancelling ctx is the group's shutdown signal.
func (w *Workers) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, worker := range w.workers {
		wg.Add(1)
		go func(worker Worker) {
			defer wg.Done()
			worker.Run(ctx)
		}(worker)
	}
	wg.Wait()
}
