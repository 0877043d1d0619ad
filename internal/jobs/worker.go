package jobs

import (
	"context"
	"log"
	"time"
)

// Task is one unit of periodic maintenance work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Worker drives a maintenance task on a fixed interval. Task failures are
// logged and the loop keeps going; a task either succeeds this tick or gets
// another chance on the next one.
type Worker struct {
	task     Task
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(task Task, interval time.Duration) *Worker {
	return &Worker{
		task:     task,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the worker's ticking loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s worker started with interval: %v", w.task.Name(), w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", w.task.Name())
			return
		case <-w.stopChan:
			log.Printf("%s worker stopped: stop signal received", w.task.Name())
			return
		case <-ticker.C:
			if err := w.task.Run(ctx); err != nil {
				log.Printf("%s worker: %v", w.task.Name(), err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Printf("%s worker shutdown complete", w.task.Name())
}
