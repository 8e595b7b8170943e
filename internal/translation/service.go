package translation

import (
	"context"
	"log/slog"
	"time"

	"recipeforge/internal/config"
	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/notifications"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
)

// Store is the persistence surface the executor needs.
type Store interface {
	EntityExists(ctx context.Context, entityType content.EntityType, id string) (bool, error)
	InsertTranslationJob(ctx context.Context, job *content.TranslationJob) (*content.TranslationJob, bool, error)
	GetTranslationJob(ctx context.Context, id string) (*content.TranslationJob, error)
	ListTranslationJobs(ctx context.Context, filter store.TranslationJobFilter) ([]*content.TranslationJob, error)
	TransitionTranslationJob(ctx context.Context, id string, from []content.TranslationStatus, to content.TranslationStatus, opts store.TranslationTransition) (bool, error)
	SetTranslationPriority(ctx context.Context, id string, priority int, allowed []content.TranslationStatus) (bool, error)
	LoadSource(ctx context.Context, entityType content.EntityType, id string) (map[string]any, error)
	CompleteTranslation(ctx context.Context, jobID string, translation content.Translation) (bool, error)
	SetEntityTranslationStatus(ctx context.Context, entityType content.EntityType, id, lang, status string) error
	CancelTasksForRef(ctx context.Context, kind content.TaskKind, refID string) (int64, error)
	SetTaskPriority(ctx context.Context, kind content.TaskKind, refID string, priority int) error
}

// Dispatcher hands a job to the worker pool, now or at a later time.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind content.TaskKind, refID string, priority int, refCreatedAt time.Time) error
	DispatchAt(ctx context.Context, kind content.TaskKind, refID string, priority int, refCreatedAt, at time.Time) error
}

// Option customizes a Service.
type Option func(*Service)

// WithDispatcher sets the worker pool used by async runs and retries.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithNotifier sets the notification sink for failed jobs.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock overrides the time source used for retry scheduling.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service creates, executes and controls translation jobs.
type Service struct {
	store      Store
	translator Translator
	dispatcher Dispatcher
	notifier   notifications.Service
	logger     *slog.Logger
	now        func() time.Time

	sourceLang      string
	defaultPriority int
	maxRetries      int
	callTimeout     time.Duration
	retryBase       time.Duration
	retryMax        time.Duration

	inflight services.Inflight
}

// NewService builds a translation executor.
func NewService(cfg *config.Config, st Store, translator Translator, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		store:           st,
		translator:      translator,
		notifier:        notifications.NewService(nil),
		logger:          logging.NewComponentLogger(logger, "translation"),
		now:             time.Now,
		sourceLang:      "en",
		defaultPriority: content.DefaultPriority,
		maxRetries:      content.DefaultMaxRetries,
		callTimeout:     2 * time.Minute,
		retryBase:       30 * time.Second,
		retryMax:        15 * time.Minute,
	}
	if cfg != nil {
		t := cfg.Translation
		if t.SourceLang != "" {
			s.sourceLang = t.SourceLang
		}
		if t.DefaultPriority > 0 {
			s.defaultPriority = t.DefaultPriority
		}
		if t.MaxRetries >= 0 {
			s.maxRetries = t.MaxRetries
		}
		if t.CallTimeoutSeconds > 0 {
			s.callTimeout = time.Duration(t.CallTimeoutSeconds) * time.Second
		}
		s.retryBase = time.Duration(t.RetryBaseSeconds) * time.Second
		s.retryMax = time.Duration(t.RetryMaxSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// backoff returns the delay before automatic retry number attempt+1.
func (s *Service) backoff(attempt int) time.Duration {
	if s.retryBase <= 0 {
		return 0
	}
	delay := s.retryBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if s.retryMax > 0 && delay >= s.retryMax {
			return s.retryMax
		}
	}
	if s.retryMax > 0 && delay > s.retryMax {
		return s.retryMax
	}
	return delay
}

// Running reports whether the job is executing in this process.
func (s *Service) Running(jobID string) bool {
	return s.inflight.Active(jobID)
}
