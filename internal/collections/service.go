package collections

import (
	"context"
	"log/slog"
	"time"

	"recipeforge/internal/config"
	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/notifications"
	"recipeforge/internal/rules"
	"recipeforge/internal/store"
)

// Store is the persistence surface the gate needs.
type Store interface {
	rules.TagResolver
	CreateCollection(ctx context.Context, collection *content.Collection) error
	GetCollection(ctx context.Context, id string) (*content.Collection, error)
	ListCollections(ctx context.Context, status content.CollectionStatus) ([]*content.Collection, error)
	UpdateCuration(ctx context.Context, id string, fn store.CurationFunc) (*content.Collection, error)
	ReorderPinned(ctx context.Context, id string, expected, next []string) (*content.Collection, error)
	SetCollectionCache(ctx context.Context, id string, published int, at time.Time) error
	PublishCollection(ctx context.Context, id string) (*content.Collection, error)
	UnpublishCollection(ctx context.Context, id string) (*content.Collection, error)
	CountMembers(ctx context.Context, pred rules.Predicate) (content.StatusCounts, error)
	FindMembers(ctx context.Context, pred rules.Predicate, filter store.MemberFilter) ([]*content.Recipe, error)
	GetRecipe(ctx context.Context, id string) (*content.Recipe, error)
	GetTaxonomy(ctx context.Context, kind content.EntityType, id string) (*content.Taxonomy, error)
	DeleteTaxonomy(ctx context.Context, kind content.EntityType, id string) ([]string, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets the notification sink for publishes and orphaned
// collections.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock overrides the time source used for cache stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service curates, qualifies and publishes collections.
type Service struct {
	store    Store
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	enforceMinRequired bool
	defaultMinRequired int
	defaultTargetCount int
	sampleSize         int
}

// NewService builds the publish gate.
func NewService(cfg *config.Config, st Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		store:              st,
		notifier:           notifications.NewService(nil),
		logger:             logging.NewComponentLogger(logger, "collections"),
		now:                time.Now,
		defaultMinRequired: 10,
		defaultTargetCount: 30,
		sampleSize:         10,
	}
	if cfg != nil {
		c := cfg.Collections
		s.enforceMinRequired = c.EnforceMinRequired
		if c.DefaultMinRequired > 0 {
			s.defaultMinRequired = c.DefaultMinRequired
		}
		if c.DefaultTargetCount > 0 {
			s.defaultTargetCount = c.DefaultTargetCount
		}
		if c.SampleSize > 0 {
			s.sampleSize = c.SampleSize
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) predicate(ctx context.Context, collection *content.Collection) (rules.Predicate, error) {
	return rules.Compile(ctx, collection.Rule, collection.RuleContext(), s.store)
}
