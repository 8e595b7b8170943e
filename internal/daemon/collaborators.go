package daemon

import (
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"recipeforge/internal/config"
	"recipeforge/internal/generation"
	"recipeforge/internal/logging"
	"recipeforge/internal/metrics"
	"recipeforge/internal/prompts"
	"recipeforge/internal/services/llm"
	"recipeforge/internal/translation"
)

// newLLMClient builds the shared chat completion client. Requests are paced
// by a token bucket and routed through a circuit breaker when enabled.
func newLLMClient(cfg *config.Config, logger *slog.Logger) *llm.Client {
	opts := []llm.Option{llm.WithUsageRecorder(func(model string, usage llm.Usage) {
		metrics.LLMTokens.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokens.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
	})}
	if perMinute := cfg.LLM.RequestsPerMinute; perMinute > 0 {
		burst := cfg.LLM.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, llm.WithRateLimiter(rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)))
	}
	if cfg.Breaker.Enabled {
		opts = append(opts, llm.WithCircuitBreaker(llm.NewCircuitBreaker(llm.BreakerSettings{
			Name:         "llm",
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     time.Duration(cfg.Breaker.IntervalSeconds) * time.Second,
			Timeout:      time.Duration(cfg.Breaker.TimeoutSeconds) * time.Second,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerGauge(to))
				logging.WarnWithContext(logger, "circuit breaker state changed", "breaker_state_changed",
					logging.String("breaker", name),
					logging.String("from", from.String()),
					logging.String("to", to.String()),
					logging.String(logging.FieldErrorHint, "collaborator calls fail fast while the breaker is open"),
				)
			},
		})))
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, opts...)
}

func breakerGauge(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// collaborators holds the external services the executors call.
type collaborators struct {
	generator  generation.Generator
	images     generation.ImageGenerator
	translator translation.Translator
}

func buildCollaborators(cfg *config.Config, logger *slog.Logger) (collaborators, error) {
	genPrompts, err := prompts.Load(cfg.Generation.PromptsPath)
	if err != nil {
		return collaborators{}, err
	}
	trPrompts := genPrompts
	if cfg.Translation.PromptsPath != cfg.Generation.PromptsPath {
		if trPrompts, err = prompts.Load(cfg.Translation.PromptsPath); err != nil {
			return collaborators{}, err
		}
	}

	client := newLLMClient(cfg, logger)
	out := collaborators{
		generator:  generation.NewLLMGenerator(client, genPrompts),
		translator: translation.NewLLMTranslator(client, trPrompts),
	}
	if cfg.Generation.ImagesEnabled && strings.TrimSpace(cfg.Generation.ImageEndpoint) != "" {
		out.images = generation.NewHTTPImageGenerator(cfg.Generation.ImageEndpoint, cfg.LLM.APIKey, genPrompts,
			time.Duration(cfg.Generation.CallTimeoutSeconds)*time.Second)
	}
	return out, nil
}
