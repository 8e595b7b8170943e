// Package llm talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter by default) on behalf of the recipe generator and translator.
//
// Complete sends a Prompt and returns the reply text with its token Usage.
// CompleteJSON is Complete at temperature zero with a JSON response format,
// and DecodeLLMJSON turns the reply into a Go value even when the model
// wraps it in code fences or prose.
//
// Status 408, 429 and 5xx replies and network timeouts are retried with
// capped exponential backoff; a Retry-After header overrides the computed
// delay. Optional rate limiting and a circuit breaker keep the worker pool
// from flooding a failing provider. Errors carry the services markers so
// callers can decide whether a task is worth retrying.
package llm
