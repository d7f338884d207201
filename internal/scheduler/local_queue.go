package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"collection_portal_backend/platform/logger"
)

var (
	ErrQueueFull   = errors.New("task queue full")
	ErrQueueClosed = errors.New("task queue closed")
)

const (
	defaultLocalQueueSize    = 256
	defaultLocalQueueWorkers = 4
)

// TaskError reports a failed in-process task.
type TaskError struct {
	Task       string
	PropertyID string
	Err        error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Task, e.PropertyID, e.Err)
}

type localJob struct {
	task        string
	feasibility FeasibilityCheckPayload
	activation  ActivationPayload
}

// LocalQueue runs pipeline tasks on in-process workers. It is used when no
// Redis is configured and in tests. Failures are logged and published on
// Errors without blocking the workers.
type LocalQueue struct {
	jobs    chan localJob
	errs    chan TaskError
	workers int
	log     *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewLocalQueue(size, workers int, log *logger.Logger) *LocalQueue {
	if size <= 0 {
		size = defaultLocalQueueSize
	}
	if workers <= 0 {
		workers = defaultLocalQueueWorkers
	}
	return &LocalQueue{
		jobs:    make(chan localJob, size),
		errs:    make(chan TaskError, size),
		workers: workers,
		log:     log,
	}
}

// Start launches the workers. Tasks run on a context detached from ctx's
// cancellation so that Close can drain them.
func (q *LocalQueue) Start(ctx context.Context, procs Processors) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	runCtx := context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for job := range q.jobs {
				q.run(runCtx, procs, job)
			}
		}()
	}
}

func (q *LocalQueue) EnqueueFeasibilityCheck(_ context.Context, payload FeasibilityCheckPayload) error {
	return q.enqueue(localJob{task: TaskFeasibilityCheck, feasibility: payload})
}

func (q *LocalQueue) EnqueueActivation(_ context.Context, payload ActivationPayload) error {
	return q.enqueue(localJob{task: TaskActivationRun, activation: payload})
}

// Errors exposes task failures. Reading it is optional.
func (q *LocalQueue) Errors() <-chan TaskError {
	return q.errs
}

// Close stops accepting tasks, waits for queued tasks to finish and closes
// the error channel.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	close(q.errs)
	return nil
}

func (q *LocalQueue) enqueue(job localJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *LocalQueue) run(ctx context.Context, procs Processors, job localJob) {
	var (
		propertyID string
		err        error
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()

		switch job.task {
		case TaskFeasibilityCheck:
			propertyID = job.feasibility.PropertyID
			err = runFeasibility(ctx, procs, job.feasibility)
		case TaskActivationRun:
			propertyID = job.activation.PropertyID
			err = runActivation(ctx, procs, job.activation)
		}
	}()

	if err == nil {
		return
	}

	q.log.BackgroundTaskFailed(job.task, err, "propertyId", propertyID)
	select {
	case q.errs <- TaskError{Task: job.task, PropertyID: propertyID, Err: err}:
	default:
	}
}
