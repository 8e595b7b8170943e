package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recipeforge/internal/collections"
	"recipeforge/internal/config"
	"recipeforge/internal/content"
	"recipeforge/internal/generation"
	"recipeforge/internal/logging"
	"recipeforge/internal/store"
	"recipeforge/internal/translation"
)

// Store is the direct persistence surface used by catalog routes.
type Store interface {
	Ping(ctx context.Context) error
	GetRecipe(ctx context.Context, id string) (*content.Recipe, error)
	SetRecipeReview(ctx context.Context, id string, status content.RecipeStatus, review content.ReviewStatus) (*content.Recipe, error)
	CreateTaxonomy(ctx context.Context, entry *content.Taxonomy) error
	ListTaxonomy(ctx context.Context, kind content.EntityType) ([]*content.Taxonomy, error)
	CountTasks(ctx context.Context) (store.TaskCounts, error)
}

// Deps bundles the services behind the routes.
type Deps struct {
	Store       Store
	Generation  *generation.Service
	Translation *translation.Service
	Collections *collections.Service
}

// Server builds the HTTP handler for the control surface.
type Server struct {
	deps      Deps
	logger    *slog.Logger
	token     string
	rateLimit int
	metrics   string
	started   time.Time
}

// NewServer wires the routes for cfg.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		deps:    deps,
		logger:  logging.NewComponentLogger(logger, "api"),
		started: time.Now(),
	}
	if cfg != nil {
		s.token = cfg.API.Token
		s.rateLimit = cfg.API.RateLimitPerMinute
		if cfg.Metrics.Enabled {
			s.metrics = cfg.Metrics.Path
		}
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestContext)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.observe)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, CodeValidation, "method not allowed")
	})

	if s.metrics != "" {
		r.Handle(s.metrics, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(httprate.Limit(s.rateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeFailure(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
				}),
			))
		}
		r.Use(bearerAuth(s.token))

		r.Get("/health", s.handleHealth)

		r.Route("/generate-jobs", func(r chi.Router) {
			r.Post("/", s.handleCreateGenerateJob)
			r.Get("/", s.handleListGenerateJobs)
			r.Get("/{id}", s.handleGetGenerateJob)
			r.Post("/{id}/{action}", s.handleControlGenerateJob)
		})

		r.Route("/translation-jobs", func(r chi.Router) {
			r.Post("/", s.handleCreateTranslationJob)
			r.Post("/batch", s.handleBatchTranslationJobs)
			r.Post("/run-pending", s.handleRunPending)
			r.Get("/", s.handleListTranslationJobs)
			r.Get("/{id}", s.handleGetTranslationJob)
			r.Post("/{id}/run", s.handleRunTranslationJob)
			r.Post("/{id}/{action}", s.handleControlTranslationJob)
		})

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", s.handleCreateCollection)
			r.Get("/", s.handleListCollections)
			r.Get("/{id}", s.handleGetCollection)
			r.Get("/{id}/qualification", s.handleQualify)
			r.Post("/{id}/publish", s.handlePublish)
			r.Post("/{id}/unpublish", s.handleUnpublish)
			r.Post("/{id}/{curation:pin|unpin|exclude|include}", s.handleCurate)
			r.Put("/{id}/order", s.handleReorder)
			r.Get("/{id}/recipes", s.handleMembers)
		})

		r.Post("/rules/test", s.handleTestRule)

		r.Route("/taxonomy/{kind}", func(r chi.Router) {
			r.Get("/", s.handleListTaxonomy)
			r.Post("/", s.handleCreateTaxonomy)
			r.Delete("/{id}", s.handleDeleteTaxonomy)
		})

		r.Get("/recipes/{id}", s.handleGetRecipe)
		r.Post("/recipes/{id}/approve", s.handleApproveRecipe)
	})
	return r
}
