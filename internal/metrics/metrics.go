package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generation
	GenerateJobsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_generate_jobs_created_total",
			Help: "Generation jobs created, by source type",
		},
		[]string{"source_type"},
	)

	GenerateItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_generate_items_total",
			Help: "Generation items processed, by outcome",
		},
		[]string{"outcome"}, // "success", "failed"
	)

	GenerateJobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_generate_jobs_finished_total",
			Help: "Generation jobs reaching a terminal status",
		},
		[]string{"status"},
	)

	ImageFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipeforge_generate_image_failures_total",
			Help: "Step image sub-requests that failed without failing their item",
		},
	)

	// Translation
	TranslationJobsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_translation_jobs_created_total",
			Help: "Translation jobs created, by entity type",
		},
		[]string{"entity_type"},
	)

	TranslationJobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_translation_jobs_finished_total",
			Help: "Translation job executions, by outcome",
		},
		[]string{"entity_type", "outcome"}, // "completed", "failed", "retry_scheduled"
	)

	// Collaborators
	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipeforge_collaborator_call_duration_seconds",
			Help:    "Duration of generation and translation collaborator calls",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"collaborator", "outcome"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_llm_tokens_total",
			Help: "Tokens reported by the chat completion provider",
		},
		[]string{"model", "direction"}, // "prompt", "completion"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recipeforge_circuit_breaker_state",
			Help: "Collaborator circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Collections
	CollectionPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_collection_publishes_total",
			Help: "Collection publish calls, by qualification at publish time",
		},
		[]string{"qualified"},
	)

	// Worker pool
	TasksClaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_tasks_claimed_total",
			Help: "Tasks claimed by the worker pool",
		},
		[]string{"kind"},
	)

	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_tasks_finished_total",
			Help: "Tasks finished by the worker pool, by outcome",
		},
		[]string{"kind", "outcome"}, // "done", "retry", "failed"
	)

	TasksReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipeforge_tasks_reclaimed_total",
			Help: "Running tasks returned to the queue after a missed heartbeat",
		},
	)

	WorkersBusy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recipeforge_workers_busy",
			Help: "Workers currently executing a task",
		},
		[]string{"kind"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeforge_api_requests_total",
			Help: "API requests, by route pattern and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipeforge_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// ObserveCollaborator records the duration of a collaborator call.
func ObserveCollaborator(collaborator string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	CollaboratorDuration.WithLabelValues(collaborator, outcome).Observe(time.Since(started).Seconds())
}
