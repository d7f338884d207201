package scheduler

import (
	"context"
	"fmt"

	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// FeasibilityProcessor runs the dispatch check for a property and day.
type FeasibilityProcessor interface {
	ProcessFeasibilityCheck(ctx context.Context, propertyID uuid.UUID, day string) error
}

// ActivationProcessor converts a property's pending selections into
// billing subscriptions.
type ActivationProcessor interface {
	ProcessActivation(ctx context.Context, propertyID uuid.UUID) error
}

// Processors are the task handlers shared by the asynq worker and the
// in-process queue.
type Processors struct {
	Feasibility FeasibilityProcessor
	Activation  ActivationProcessor
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	procs  Processors
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, procs Processors, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.BackgroundTaskFailed(task.Type(), err)
		}),
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		procs:  procs,
		log:    log,
	}

	mux.HandleFunc(TaskFeasibilityCheck, w.handleFeasibilityCheck)
	mux.HandleFunc(TaskActivationRun, w.handleActivation)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleFeasibilityCheck(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFeasibilityCheckPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return runFeasibility(ctx, w.procs, payload)
}

func (w *Worker) handleActivation(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseActivationPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return runActivation(ctx, w.procs, payload)
}

func runFeasibility(ctx context.Context, procs Processors, payload FeasibilityCheckPayload) error {
	if procs.Feasibility == nil {
		return nil
	}
	propertyID, err := uuid.Parse(payload.PropertyID)
	if err != nil {
		return fmt.Errorf("invalid property id %q: %w", payload.PropertyID, err)
	}
	return procs.Feasibility.ProcessFeasibilityCheck(ctx, propertyID, payload.Day)
}

func runActivation(ctx context.Context, procs Processors, payload ActivationPayload) error {
	if procs.Activation == nil {
		return nil
	}
	propertyID, err := uuid.Parse(payload.PropertyID)
	if err != nil {
		return fmt.Errorf("invalid property id %q: %w", payload.PropertyID, err)
	}
	return procs.Activation.ProcessActivation(ctx, propertyID)
}
