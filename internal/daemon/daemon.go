package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"recipeforge/internal/api"
	"recipeforge/internal/collections"
	"recipeforge/internal/config"
	"recipeforge/internal/content"
	"recipeforge/internal/generation"
	"recipeforge/internal/logging"
	"recipeforge/internal/notifications"
	"recipeforge/internal/store"
	"recipeforge/internal/supervisor"
	"recipeforge/internal/translation"
	"recipeforge/internal/worker"
)

// ErrAlreadyRunning is returned when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another recipeforge daemon instance is already running")

// Daemon owns the executors, the worker pool and the HTTP control surface.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store

	Generation  *generation.Service
	Translation *translation.Service
	Collections *collections.Service
	pool        *worker.Pool
	handler     http.Handler

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
}

// Option customizes daemon construction.
type Option func(*options)

type options struct {
	generator  generation.Generator
	images     generation.ImageGenerator
	translator translation.Translator
	notifier   notifications.Service
}

// WithGenerator replaces the LLM recipe generator.
func WithGenerator(g generation.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithImages replaces the step image generator.
func WithImages(g generation.ImageGenerator) Option {
	return func(o *options) { o.images = g }
}

// WithTranslator replaces the LLM translator.
func WithTranslator(t translation.Translator) Option {
	return func(o *options) { o.translator = t }
}

// WithNotifier replaces the ntfy notifier.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// New constructs a daemon with initialized dependencies. Collaborators not
// supplied through options are built from cfg.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.generator == nil || o.translator == nil {
		built, err := buildCollaborators(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("build collaborators: %w", err)
		}
		if o.generator == nil {
			o.generator = built.generator
			if o.images == nil {
				o.images = built.images
			}
		}
		if o.translator == nil {
			o.translator = built.translator
		}
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(cfg)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}

	// Handlers close over the services, which need the pool as dispatcher.
	pool, err := worker.NewPool(cfg, st, logger,
		worker.Lane{Kind: content.TaskGenerate, Workers: cfg.Workers.GenerationWorkers, Handler: func(ctx context.Context, id string) error {
			return d.Generation.Execute(ctx, id)
		}},
		worker.Lane{Kind: content.TaskTranslate, Workers: cfg.Workers.TranslationWorkers, Handler: func(ctx context.Context, id string) error {
			return d.Translation.Execute(ctx, id)
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	d.pool = pool

	genOpts := []generation.Option{generation.WithDispatcher(pool), generation.WithNotifier(o.notifier)}
	if o.images != nil {
		genOpts = append(genOpts, generation.WithImages(o.images))
	}
	d.Generation = generation.NewService(cfg, st, o.generator, logger, genOpts...)
	d.Translation = translation.NewService(cfg, st, o.translator, logger,
		translation.WithDispatcher(pool), translation.WithNotifier(o.notifier))
	d.Collections = collections.NewService(cfg, st, logger, collections.WithNotifier(o.notifier))

	d.handler = api.NewServer(cfg, api.Deps{
		Store:       st,
		Generation:  d.Generation,
		Translation: d.Translation,
		Collections: d.Collections,
	}, logger).Handler()
	return d, nil
}

// Handler returns the HTTP control surface.
func (d *Daemon) Handler() http.Handler {
	return d.handler
}

// Pool exposes the worker pool, mainly for tests that drive tasks directly.
func (d *Daemon) Pool() *worker.Pool {
	return d.pool
}

// Running reports whether Run is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Run acquires the daemon lock and serves workers and the HTTP API on
// listener until ctx is cancelled. Tasks left running by a previous process
// are requeued before workers start.
func (d *Daemon) Run(ctx context.Context, listener net.Listener) error {
	if listener == nil {
		return errors.New("daemon requires a listener")
	}
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	if _, err := d.pool.ReclaimStale(ctx); err != nil {
		logging.WarnWithContext(d.logger, "startup reclaim failed", "reclaim_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the reclaimer retries on its next pass"),
		)
	}

	tree := supervisor.NewTree(d.logger, supervisor.TreeConfig{})
	for _, svc := range d.pool.Services() {
		tree.AddWorker(svc)
	}
	server := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddAPI(supervisor.NewHTTPService(server, listener, 10*time.Second))

	d.logger.Info("recipeforge daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("listen", listener.Addr().String()),
	)
	err = tree.Serve(ctx)
	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil {
		for _, svc := range report {
			logging.WarnWithContext(d.logger, "service did not stop in time", "service_unstopped",
				logging.String("service", svc.Name),
			)
		}
	}
	d.logger.Info("recipeforge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
