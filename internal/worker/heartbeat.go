package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"recipeforge/internal/logging"
	"recipeforge/internal/metrics"
)

// heartbeat refreshes a running task until ctx is cancelled.
func (p *Pool) heartbeat(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, taskID int64) {
	defer wg.Done()
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.store.HeartbeatTask(ctx, taskID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}

// ReclaimStale requeues running tasks whose heartbeat is older than the
// configured timeout.
func (p *Pool) ReclaimStale(ctx context.Context) (int64, error) {
	if p.heartbeatTimeout <= 0 {
		return 0, nil
	}
	reclaimed, err := p.store.ReclaimStaleTasks(ctx, p.store.Now().Add(-p.heartbeatTimeout))
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		metrics.TasksReclaimed.Add(float64(reclaimed))
		p.logger.Info("reclaimed stale tasks",
			logging.String(logging.FieldEventType, "tasks_reclaimed"),
			logging.Int64("count", reclaimed),
		)
		for _, kind := range p.order {
			p.Wake(kind)
		}
	}
	return reclaimed, nil
}

// reclaimer runs ReclaimStale on start and then once per heartbeat timeout.
type reclaimer struct {
	pool *Pool
}

func (r *reclaimer) String() string { return "worker-reclaimer" }

// Serve implements suture.Service.
func (r *reclaimer) Serve(ctx context.Context) error {
	interval := r.pool.heartbeatTimeout
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.pool.ReclaimStale(ctx); err != nil && ctx.Err() == nil {
			r.pool.logger.Warn("reclaim stale tasks failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "task_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check store database access"),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
