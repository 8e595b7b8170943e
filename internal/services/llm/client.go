package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"recipeforge/internal/services"
)

const (
	defaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	defaultTimeout  = 15 * time.Second
)

// Config holds the provider settings shared by generation and translation.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Prompt is one JSON-mode chat exchange.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Usage is the token accounting reported by the provider, when present.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Completion is the decoded reply to a Prompt.
type Completion struct {
	Content      string
	FinishReason string
	Model        string
	Usage        Usage
}

// UsageRecorder receives token usage for every successful completion.
type UsageRecorder func(model string, usage Usage)

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	cfg     Config
	http    *http.Client
	retry   retryPolicy
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[Completion]
	usage   UsageRecorder
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts caps the attempts per completion (default 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = attempts }
}

// WithRetryBackoff sets the first retry delay and the ceiling.
func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(c *Client) {
		c.retry.base = base
		c.retry.ceiling = ceiling
	}
}

// WithSleeper swaps the retry sleep, for tests.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleep = sleep }
}

// WithRateLimiter makes every HTTP attempt, retries included, wait for a token.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// WithCircuitBreaker routes completions through cb. An open breaker fails
// calls fast with a transient error.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker[Completion]) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithUsageRecorder reports token usage after each successful completion.
func WithUsageRecorder(fn UsageRecorder) Option {
	return func(c *Client) { c.usage = fn }
}

// NewClient builds a client for cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		http:  &http.Client{Timeout: timeout},
		retry: defaultRetryPolicy(),
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultEndpoint
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends p in JSON mode and returns the first non-empty reply.
func (c *Client) Complete(ctx context.Context, p Prompt) (Completion, error) {
	p.System = strings.TrimSpace(p.System)
	p.User = strings.TrimSpace(p.User)
	switch {
	case p.System == "":
		return Completion{}, services.Validation("llm", "system prompt required")
	case p.User == "":
		return Completion{}, services.Validation("llm", "user prompt required")
	case c.cfg.APIKey == "":
		return Completion{}, services.Wrap(services.ErrConfiguration, "llm", "complete",
			"api key required (set llm.api_key or OPENROUTER_API_KEY)", nil)
	}
	out, err := c.run(ctx, c.request(p))
	if err != nil {
		return Completion{}, classify("complete", err)
	}
	if c.usage != nil {
		c.usage(out.Model, out.Usage)
	}
	return out, nil
}

// CompleteJSON is Complete at temperature zero, returning only the content.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	out, err := c.Complete(ctx, Prompt{System: systemPrompt, User: userPrompt})
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// HealthCheck asks the model for a fixed JSON reply to prove the key and
// model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "llm", "health", "api key required", nil)
	}
	out, err := c.run(ctx, c.request(Prompt{
		System: "You must respond with JSON only.",
		User:   `Respond with {"ok":true}`,
	}))
	if err != nil {
		return classify("health", err)
	}
	var ping struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(out.Content, &ping); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !ping.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func (c *Client) run(ctx context.Context, req chatRequest) (Completion, error) {
	if c.breaker == nil {
		return c.withRetry(ctx, req)
	}
	return c.breaker.Execute(func() (Completion, error) {
		return c.withRetry(ctx, req)
	})
}

func (c *Client) withRetry(ctx context.Context, req chatRequest) (Completion, error) {
	attempts := c.retry.maxAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := c.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay, ok := c.retry.next(ctx, err, attempt)
		if !ok {
			return Completion{}, err
		}
		if err := c.retry.wait(ctx, delay); err != nil {
			return Completion{}, err
		}
	}
	if attempts == 1 {
		return Completion{}, lastErr
	}
	return Completion{}, fmt.Errorf("llm complete: failed after %d attempts: %w", attempts, lastErr)
}

// attempt performs one HTTP exchange and turns an empty reply into an error
// the retry policy recognizes.
func (c *Client) attempt(ctx context.Context, req chatRequest) (Completion, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Completion{}, fmt.Errorf("llm request: rate limit wait: %w", err)
		}
	}
	resp, body, err := c.post(ctx, req)
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("llm complete: empty choices")
	}
	content, finish := resp.content()
	if content == "" {
		return Completion{}, &emptyReplyError{
			finishReason: finish,
			refusal:      resp.refusal(),
			snippet:      snippet(string(body)),
		}
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return Completion{
		Content:      content,
		FinishReason: finish,
		Model:        model,
		Usage:        Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens},
	}, nil
}

func (c *Client) request(p Prompt) chatRequest {
	return chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature:    p.Temperature,
		MaxTokens:      p.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
}

func (c *Client) timeout() time.Duration {
	if c.http == nil || c.http.Timeout <= 0 {
		return defaultTimeout
	}
	return c.http.Timeout
}
