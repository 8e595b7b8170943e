package generation

import (
	"context"
	"log/slog"
	"time"

	"recipeforge/internal/config"
	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/notifications"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
)

// Store is the persistence surface the executor needs.
type Store interface {
	ExistingTitles(ctx context.Context, titles []string) (map[string]struct{}, error)
	GetCollection(ctx context.Context, id string) (*content.Collection, error)
	GetTaxonomy(ctx context.Context, kind content.EntityType, id string) (*content.Taxonomy, error)
	ResolveTagSlugs(ctx context.Context, dim rules.Dimension, slugs []string) ([]string, error)
	InsertGenerateJob(ctx context.Context, job *content.GenerateJob) error
	GetGenerateJob(ctx context.Context, id string) (*content.GenerateJob, error)
	ListGenerateJobs(ctx context.Context, filter store.GenerateJobFilter) ([]*content.GenerateJob, error)
	TransitionGenerateJob(ctx context.Context, id string, from []content.GenerateStatus, to content.GenerateStatus, opts store.GenerateTransition) (bool, error)
	RecordGenerateItem(ctx context.Context, jobID string, result content.ItemResult, recipe *content.Recipe) (*content.GenerateJob, error)
	CancelTasksForRef(ctx context.Context, kind content.TaskKind, refID string) (int64, error)
}

// Dispatcher hands a job to the worker pool.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind content.TaskKind, refID string, priority int, refCreatedAt time.Time) error
}

// Option customizes a Service.
type Option func(*Service)

// WithImages enables step image sub-requests.
func WithImages(images ImageGenerator) Option {
	return func(s *Service) {
		s.images = images
	}
}

// WithDispatcher sets the worker pool used by start and resume.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithNotifier sets the notification sink for finished jobs.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// Service creates, executes and controls generation jobs.
type Service struct {
	store      Store
	generator  Generator
	images     ImageGenerator
	dispatcher Dispatcher
	notifier   notifications.Service
	logger     *slog.Logger

	maxNames    int
	callTimeout time.Duration
	autoStart   bool

	inflight services.Inflight
}

// NewService builds a generation executor.
func NewService(cfg *config.Config, st Store, generator Generator, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		store:       st,
		generator:   generator,
		notifier:    notifications.NewService(nil),
		logger:      logging.NewComponentLogger(logger, "generation"),
		maxNames:    50,
		callTimeout: 3 * time.Minute,
		autoStart:   true,
	}
	if cfg != nil {
		if cfg.Generation.MaxRecipeNames > 0 {
			s.maxNames = cfg.Generation.MaxRecipeNames
		}
		if cfg.Generation.CallTimeoutSeconds > 0 {
			s.callTimeout = time.Duration(cfg.Generation.CallTimeoutSeconds) * time.Second
		}
		s.autoStart = cfg.Generation.AutoStart
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether the job is executing in this process.
func (s *Service) Running(jobID string) bool {
	return s.inflight.Active(jobID)
}
