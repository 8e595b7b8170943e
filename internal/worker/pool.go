package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"

	"recipeforge/internal/config"
	"recipeforge/internal/content"
	"recipeforge/internal/logging"
)

// Store is the task queue surface the pool needs.
type Store interface {
	EnqueueTask(ctx context.Context, kind content.TaskKind, refID string, priority int, refCreatedAt, availableAt time.Time) (bool, error)
	ClaimTask(ctx context.Context, kind content.TaskKind) (*content.Task, error)
	HeartbeatTask(ctx context.Context, id int64) error
	CompleteTask(ctx context.Context, id int64) error
	FailTask(ctx context.Context, id int64, message string) error
	RetryTask(ctx context.Context, id int64, message string, retryAt time.Time) error
	ReclaimStaleTasks(ctx context.Context, cutoff time.Time) (int64, error)
	Now() time.Time
}

// Handler executes the job a task refers to.
type Handler func(ctx context.Context, refID string) error

// Lane binds a task kind to its handler.
type Lane struct {
	Kind    content.TaskKind
	Workers int
	Handler Handler
}

type lane struct {
	Lane
	wake chan struct{}
}

// Pool owns the lanes and hands out suture services for their workers.
type Pool struct {
	store  Store
	logger *slog.Logger
	lanes  map[content.TaskKind]*lane
	order  []content.TaskKind

	pollInterval      time.Duration
	errorRetry        time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	maxAttempts       int
}

// NewPool builds a pool. Lanes with no handler are rejected; a lane with
// fewer than one worker gets one.
func NewPool(cfg *config.Config, st Store, logger *slog.Logger, lanes ...Lane) (*Pool, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pool{
		store:             st,
		logger:            logging.NewComponentLogger(logger, "worker"),
		lanes:             make(map[content.TaskKind]*lane, len(lanes)),
		pollInterval:      5 * time.Second,
		errorRetry:        10 * time.Second,
		heartbeatInterval: 15 * time.Second,
		heartbeatTimeout:  2 * time.Minute,
		maxAttempts:       5,
	}
	if cfg != nil {
		w := cfg.Workers
		setSeconds(&p.pollInterval, w.PollIntervalSeconds)
		setSeconds(&p.errorRetry, w.ErrorRetryInterval)
		setSeconds(&p.heartbeatInterval, w.HeartbeatInterval)
		setSeconds(&p.heartbeatTimeout, w.HeartbeatTimeout)
		if w.MaxTaskAttempts > 0 {
			p.maxAttempts = w.MaxTaskAttempts
		}
	}
	for _, l := range lanes {
		if l.Handler == nil {
			return nil, fmt.Errorf("lane %s has no handler", l.Kind)
		}
		if _, exists := p.lanes[l.Kind]; exists {
			return nil, fmt.Errorf("lane %s registered twice", l.Kind)
		}
		l.Workers = max(l.Workers, 1)
		p.lanes[l.Kind] = &lane{Lane: l, wake: make(chan struct{}, 1)}
		p.order = append(p.order, l.Kind)
	}
	if len(p.lanes) == 0 {
		return nil, fmt.Errorf("worker pool has no lanes")
	}
	return p, nil
}

func setSeconds(target *time.Duration, seconds int) {
	if seconds > 0 {
		*target = time.Duration(seconds) * time.Second
	}
}

// Services returns the reclaimer followed by every worker of every lane,
// ready to be added to a supervisor.
func (p *Pool) Services() []suture.Service {
	services := []suture.Service{&reclaimer{pool: p}}
	for _, kind := range p.order {
		l := p.lanes[kind]
		for i := range l.Workers {
			services = append(services, &worker{pool: p, lane: l, name: fmt.Sprintf("worker-%s-%d", kind, i+1)})
		}
	}
	return services
}

// Dispatch queues a task for refID, due now.
func (p *Pool) Dispatch(ctx context.Context, kind content.TaskKind, refID string, priority int, refCreatedAt time.Time) error {
	return p.DispatchAt(ctx, kind, refID, priority, refCreatedAt, p.store.Now())
}

// DispatchAt queues a task for refID, due at at. A reference with a queued
// task is left alone; one with a running task is run again once that run
// finishes.
func (p *Pool) DispatchAt(ctx context.Context, kind content.TaskKind, refID string, priority int, refCreatedAt, at time.Time) error {
	if _, ok := p.lanes[kind]; !ok {
		return fmt.Errorf("no worker lane for %s tasks", kind)
	}
	queued, err := p.store.EnqueueTask(ctx, kind, refID, priority, refCreatedAt, at)
	if err != nil {
		return err
	}
	if !queued {
		p.logger.Debug("task already active; rerun requested if running",
			logging.String(logging.FieldLane, string(kind)),
			logging.String(logging.FieldJobID, refID),
		)
		return nil
	}
	if !at.After(p.store.Now()) {
		p.Wake(kind)
	}
	return nil
}

// Wake nudges one idle worker of kind to poll immediately.
func (p *Pool) Wake(kind content.TaskKind) {
	l, ok := p.lanes[kind]
	if !ok {
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RunOnce claims and runs a single due task of kind in the caller's
// goroutine. It reports whether a task was found.
func (p *Pool) RunOnce(ctx context.Context, kind content.TaskKind) (bool, error) {
	l, ok := p.lanes[kind]
	if !ok {
		return false, fmt.Errorf("no worker lane for %s tasks", kind)
	}
	w := &worker{pool: p, lane: l, name: "worker-" + string(kind) + "-inline"}
	return w.step(ctx, w.logger())
}

// backoff is the delay before attempt n+1 of a failed task.
func (p *Pool) backoff(attempts int) time.Duration {
	delay := p.errorRetry
	for i := 1; i < attempts && delay < time.Hour; i++ {
		delay *= 2
	}
	return min(delay, time.Hour)
}
