package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"recipeforge/internal/services"
)

type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusRequestTimeout ||
		e.code == http.StatusTooManyRequests ||
		e.code >= http.StatusInternalServerError
}

// emptyReplyError is a 2xx reply with choices but no usable content. Models
// occasionally do this under load, so it is retried.
type emptyReplyError struct {
	finishReason string
	refusal      string
	snippet      string
}

func (e *emptyReplyError) Error() string {
	return fmt.Sprintf("llm complete: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.finishReason, e.refusal, e.snippet)
}

// classify attaches a services marker so the executors can tell retryable
// provider trouble from bad configuration.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "llm", op, "deadline exceeded", err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return services.Wrap(services.ErrTransient, "llm", op, "circuit open", err)
	}
	var status *statusError
	if errors.As(err, &status) {
		switch {
		case status.code == http.StatusUnauthorized || status.code == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "llm", op, "credentials rejected", err)
		case status.retryable():
			return services.Wrap(services.ErrTransient, "llm", op, "provider unavailable", err)
		}
	}
	return services.Wrap(services.ErrExternal, "llm", op, "request failed", err)
}
