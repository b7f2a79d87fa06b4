package jobcontroller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// job is one unit of background work the dispatcher's worker pool runs.
type job struct {
	name string
	run  func(ctx context.Context)
}

// dispatcher is a buffered-queue worker pool generalized from the review
// pipeline's single-purpose job dispatcher to run any named background
// task: a repository generation run, a single-file doc generation, or a
// regeneration.
type dispatcher struct {
	jobQueue   chan job
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

func newDispatcher(maxWorkers int, logger *slog.Logger) *dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		maxWorkers: maxWorkers,
		jobQueue:   make(chan job, 100),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := 0; i < d.maxWorkers; i++ {
		d.wg.Add(1)
		go func(workerID int) {
			defer d.wg.Done()
			for j := range d.jobQueue {
				d.logger.Info("worker processing job", "worker_id", workerID, "job", j.name)
				j.run(context.Background())
			}
		}(i)
	}
}

// dispatch queues a job for processing by a worker, returning an error if
// the queue is full rather than blocking the caller.
func (d *dispatcher) dispatch(name string, run func(ctx context.Context)) error {
	select {
	case d.jobQueue <- job{name: name, run: run}:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept job %q", name)
	}
}

// stop gracefully shuts down the dispatcher, waiting for all in-flight jobs
// to finish.
func (d *dispatcher) stop() {
	close(d.jobQueue)
	d.wg.Wait()
}
