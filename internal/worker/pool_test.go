package worker_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"recipeforge/internal/content"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
	"recipeforge/internal/testsupport"
	"recipeforge/internal/worker"
)

type recorder struct {
	mu   sync.Mutex
	refs []string
	err  func(refID string) error
}

func (r *recorder) handle(_ context.Context, refID string) error {
	r.mu.Lock()
	r.refs = append(r.refs, refID)
	r.mu.Unlock()
	if r.err != nil {
		return r.err(refID)
	}
	return nil
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.refs...)
}

type fixture struct {
	store *store.Store
	clock *testsupport.Clock
	pool  *worker.Pool
	rec   *recorder
}

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	clock := testsupport.NewClock(epoch)
	st.SetClock(clock.Now)
	rec := &recorder{}
	pool, err := worker.NewPool(cfg, st, nil,
		worker.Lane{Kind: content.TaskGenerate, Workers: 1, Handler: rec.handle},
		worker.Lane{Kind: content.TaskTranslate, Workers: 2, Handler: rec.handle},
	)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return &fixture{store: st, clock: clock, pool: pool, rec: rec}
}

func (f *fixture) runOnce(t *testing.T, kind content.TaskKind) bool {
	t.Helper()
	found, err := f.pool.RunOnce(context.Background(), kind)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	return found
}

func (f *fixture) count(t *testing.T, kind content.TaskKind, status content.TaskStatus) int {
	t.Helper()
	counts, err := f.store.CountTasks(context.Background())
	if err != nil {
		t.Fatalf("CountTasks: %v", err)
	}
	return counts[kind][status]
}

func TestDispatchRunsHandlerAndCompletesTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.pool.Dispatch(ctx, content.TaskGenerate, "job-1", 0, epoch); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := f.pool.Dispatch(ctx, content.TaskGenerate, "job-1", 0, epoch); err != nil {
		t.Fatalf("repeated Dispatch should be a no-op, got %v", err)
	}
	if !f.runOnce(t, content.TaskGenerate) {
		t.Fatal("expected a task")
	}
	if f.runOnce(t, content.TaskGenerate) {
		t.Fatal("expected the queue to be empty")
	}
	if got := f.rec.calls(); !slices.Equal(got, []string{"job-1"}) {
		t.Fatalf("unexpected handler calls %v", got)
	}
	if done := f.count(t, content.TaskGenerate, content.TaskDone); done != 1 {
		t.Fatalf("expected one done task, got %d", done)
	}
}

func TestDispatchRejectsUnknownLane(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	pool, err := worker.NewPool(cfg, st, nil, worker.Lane{Kind: content.TaskGenerate, Handler: rec.handle})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if err := pool.Dispatch(context.Background(), content.TaskTranslate, "x", 1, time.Now()); err == nil {
		t.Fatal("expected an error for a kind without a lane")
	}
}

func TestNewPoolValidatesLanes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	handler := func(context.Context, string) error { return nil }
	cases := map[string][]worker.Lane{
		"no lanes":   nil,
		"no handler": {{Kind: content.TaskGenerate}},
		"duplicate":  {{Kind: content.TaskGenerate, Handler: handler}, {Kind: content.TaskGenerate, Handler: handler}},
	}
	for name, lanes := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := worker.NewPool(cfg, st, nil, lanes...); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestTranslateTasksClaimInDequeueOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dispatch := []struct {
		ref      string
		priority int
		created  time.Time
	}{
		{"older", 5, epoch.Add(-2 * time.Hour)},
		{"newer", 5, epoch.Add(-time.Hour)},
		{"urgent", 1, epoch.Add(-3 * time.Hour)},
	}
	for _, d := range dispatch {
		if err := f.pool.Dispatch(ctx, content.TaskTranslate, d.ref, d.priority, d.created); err != nil {
			t.Fatalf("Dispatch %s: %v", d.ref, err)
		}
	}
	for f.runOnce(t, content.TaskTranslate) {
	}
	if got, want := f.rec.calls(), []string{"urgent", "newer", "older"}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDeferredResultRequeuesAtRequestedTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	retryAt := epoch.Add(10 * time.Minute)
	f.rec.err = func(string) error {
		if len(f.rec.refs) == 1 {
			return services.Defer(retryAt, services.Wrap(services.ErrTransient, "translation", "translate", "upstream busy", nil))
		}
		return nil
	}
	if err := f.pool.Dispatch(ctx, content.TaskTranslate, "tj-1", 5, epoch); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !f.runOnce(t, content.TaskTranslate) {
		t.Fatal("expected a task")
	}
	task, err := f.store.ActiveTask(ctx, content.TaskTranslate, "tj-1")
	if err != nil || task == nil {
		t.Fatalf("expected the task to be queued again: %v", err)
	}
	if !task.AvailableAt.Equal(retryAt) || task.Status != content.TaskQueued {
		t.Fatalf("unexpected requeued task %+v", task)
	}
	if f.runOnce(t, content.TaskTranslate) {
		t.Fatal("task ran before its retry time")
	}
	f.clock.Advance(11 * time.Minute)
	if !f.runOnce(t, content.TaskTranslate) {
		t.Fatal("expected the task once due")
	}
	if done := f.count(t, content.TaskTranslate, content.TaskDone); done != 1 {
		t.Fatalf("expected the task done, got %d", done)
	}
}

func TestRetryableFailuresBackOffUntilAttemptsRunOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rec.err = func(string) error {
		return services.Wrap(services.ErrTransient, "generation", "execute", "database busy", nil)
	}
	if err := f.pool.Dispatch(ctx, content.TaskGenerate, "job-1", 0, epoch); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for attempt := 1; attempt <= 5; attempt++ {
		if !f.runOnce(t, content.TaskGenerate) {
			t.Fatalf("attempt %d: expected a due task", attempt)
		}
		if attempt < 5 && f.runOnce(t, content.TaskGenerate) {
			t.Fatalf("attempt %d: task retried without backoff", attempt)
		}
		f.clock.Advance(2 * time.Hour)
	}
	if failed := f.count(t, content.TaskGenerate, content.TaskFailed); failed != 1 {
		t.Fatalf("expected the task failed after five attempts, got %d", failed)
	}
	if got := len(f.rec.calls()); got != 5 {
		t.Fatalf("expected five handler calls, got %d", got)
	}
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.rec.err = func(string) error { return services.Validation("generation", "bad job") }
	if err := f.pool.Dispatch(context.Background(), content.TaskGenerate, "job-1", 0, epoch); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	f.runOnce(t, content.TaskGenerate)
	if failed := f.count(t, content.TaskGenerate, content.TaskFailed); failed != 1 {
		t.Fatalf("expected an immediate failure, got %d", failed)
	}
}

func TestReclaimRequeuesStaleRunningTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.pool.Dispatch(ctx, content.TaskGenerate, "job-1", 0, epoch); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	// A worker from a previous process claimed the task and vanished.
	if task, err := f.store.ClaimTask(ctx, content.TaskGenerate); err != nil || task == nil {
		t.Fatalf("ClaimTask: %v %v", task, err)
	}
	if n, err := f.pool.ReclaimStale(ctx); err != nil || n != 0 {
		t.Fatalf("fresh heartbeat should not be reclaimed: %d %v", n, err)
	}
	f.clock.Advance(10 * time.Minute)
	n, err := f.pool.ReclaimStale(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one reclaimed task, got %d %v", n, err)
	}
	if !f.runOnce(t, content.TaskGenerate) {
		t.Fatal("expected the reclaimed task to run")
	}
	if done := f.count(t, content.TaskGenerate, content.TaskDone); done != 1 {
		t.Fatalf("expected the reclaimed task done, got %d", done)
	}
}

func TestSupervisedWorkersPickUpDispatchedTasks(t *testing.T) {
	f := newFixture(t)
	ran := make(chan string, 4)
	f.rec.err = func(refID string) error {
		ran <- refID
		return nil
	}

	sup := suture.NewSimple("worker-test")
	for _, svc := range f.pool.Services() {
		sup.Add(svc)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := sup.ServeBackground(ctx)
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if err := f.pool.Dispatch(ctx, content.TaskTranslate, "tj-1", 5, epoch); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	select {
	case ref := <-ran:
		if ref != "tj-1" {
			t.Fatalf("unexpected ref %s", ref)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatched task was not picked up")
	}
}

func TestShutdownRequeuesInterruptedTask(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.rec.err = func(string) error {
		cancel()
		return context.Canceled
	}
	if err := f.pool.Dispatch(context.Background(), content.TaskGenerate, "job-1", 0, epoch); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := f.pool.RunOnce(ctx, content.TaskGenerate); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("RunOnce: %v", err)
	}
	task, err := f.store.ActiveTask(context.Background(), content.TaskGenerate, "job-1")
	if err != nil || task == nil || task.Status != content.TaskQueued {
		t.Fatalf("expected the interrupted task queued again, got %+v %v", task, err)
	}
}
