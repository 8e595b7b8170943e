package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/metrics"
	"recipeforge/internal/services"
)

// worker is one supervised consumer of a lane.
type worker struct {
	pool *Pool
	lane *lane
	name string
}

func (w *worker) String() string { return w.name }

func (w *worker) logger() *slog.Logger {
	return w.pool.logger.With(
		logging.String(logging.FieldLane, string(w.lane.Kind)),
		logging.String("worker", w.name),
	)
}

// Serve implements suture.Service.
func (w *worker) Serve(ctx context.Context) error {
	logger := w.logger()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		found, err := w.step(ctx, logger)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("failed to claim next task",
				logging.Error(err),
				logging.String(logging.FieldEventType, "task_claim_failed"),
				logging.String(logging.FieldErrorHint, "check store database access"),
			)
			w.wait(ctx, w.pool.errorRetry)
			continue
		}
		if !found {
			w.wait(ctx, w.pool.pollInterval)
		}
	}
}

func (w *worker) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.lane.wake:
	case <-timer.C:
	}
}

// step claims and runs one task. Errors are claim failures only; handler
// failures are recorded on the task.
func (w *worker) step(ctx context.Context, logger *slog.Logger) (bool, error) {
	task, err := w.pool.store.ClaimTask(ctx, w.lane.Kind)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	metrics.TasksClaimed.WithLabelValues(string(task.Kind)).Inc()
	w.run(ctx, logger, task)
	return true, nil
}

func (w *worker) run(ctx context.Context, logger *slog.Logger, task *content.Task) {
	taskCtx := services.WithTaskID(services.WithJobID(ctx, task.RefID), task.ID)
	taskCtx = services.WithLane(taskCtx, string(task.Kind))
	logger = logging.WithContext(taskCtx, logger)

	busy := metrics.WorkersBusy.WithLabelValues(string(task.Kind))
	busy.Inc()
	defer busy.Dec()

	hbCtx, stopHeartbeat := context.WithCancel(taskCtx)
	var wg sync.WaitGroup
	wg.Add(1)
	go w.pool.heartbeat(hbCtx, &wg, logger, task.ID)

	logger.Debug("task started", logging.Int("attempt", task.Attempts))
	started := time.Now()
	runErr := w.lane.Handler(taskCtx, task.RefID)
	stopHeartbeat()
	wg.Wait()

	// Outcome writes must land even when shutdown cancelled ctx.
	writeCtx := context.WithoutCancel(ctx)
	outcome, err := w.pool.settle(writeCtx, ctx, task, runErr)
	metrics.TasksFinished.WithLabelValues(string(task.Kind), outcome).Inc()
	if err != nil {
		logging.ErrorWithContext(logger, "task outcome not recorded", "task_settle_failed",
			logging.String("outcome", outcome),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the reclaimer requeues the task after the heartbeat timeout"),
		)
		return
	}
	attrs := []logging.Attr{
		logging.String("outcome", outcome),
		logging.Duration("elapsed", time.Since(started)),
	}
	switch outcome {
	case outcomeDone:
		logger.Debug("task finished", logging.Args(attrs...)...)
	case outcomeRetry:
		attrs = append(attrs, logging.Error(runErr))
		logger.Info("task requeued", logging.Args(attrs...)...)
	default:
		attrs = append(attrs, logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "inspect the job error and retry it from the control surface"))
		logging.WarnWithContext(logger, "task failed", "task_failed", attrs...)
	}
}

const (
	outcomeDone   = "done"
	outcomeRetry  = "retry"
	outcomeFailed = "failed"
)

// settle records the handler result. A RetryLater result requeues the task
// at the requested time; an interrupted run is requeued immediately so it
// resumes on the next start. Other retryable errors back off until the task
// has used its attempts.
func (p *Pool) settle(ctx, runCtx context.Context, task *content.Task, runErr error) (string, error) {
	if runErr == nil {
		return outcomeDone, p.store.CompleteTask(ctx, task.ID)
	}
	message := services.Message(runErr)
	if at, ok := services.DeferredUntil(runErr); ok {
		return outcomeRetry, p.store.RetryTask(ctx, task.ID, message, at)
	}
	if runCtx.Err() != nil && errors.Is(runErr, context.Canceled) {
		return outcomeRetry, p.store.RetryTask(ctx, task.ID, "interrupted by shutdown", p.store.Now())
	}
	if services.IsRetryable(runErr) && task.Attempts < p.maxAttempts {
		return outcomeRetry, p.store.RetryTask(ctx, task.ID, message, p.store.Now().Add(p.backoff(task.Attempts)))
	}
	return outcomeFailed, p.store.FailTask(ctx, task.ID, message)
}
