package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state transition")
	ErrConfiguration = errors.New("configuration error")
	ErrExternal      = errors.New("external service error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Validation is shorthand for a validation marker without a cause.
func Validation(component, message string) error {
	return Wrap(ErrValidation, component, "", message, nil)
}

// IsRetryable reports whether an error is worth retrying automatically.
// Deadline expiry counts as retryable; explicit cancellation does not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch {
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, ErrExternal):
		return true
	default:
		return false
	}
}

// Message returns the innermost human readable detail of err with marker
// prefixes removed, suitable for storing on a job row.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	for _, marker := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrInvalidState, ErrConfiguration, ErrExternal, ErrTimeout, ErrTransient} {
		msg = strings.TrimPrefix(msg, marker.Error()+": ")
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// RetryLater reports that work was rescheduled rather than failed. Workers
// requeue the task to run again at At.
type RetryLater struct {
	At  time.Time
	Err error
}

func (e *RetryLater) Error() string {
	if e.Err == nil {
		return "retry at " + e.At.Format(time.RFC3339)
	}
	return e.Err.Error()
}

func (e *RetryLater) Unwrap() error { return e.Err }

// Defer wraps err in a RetryLater for at.
func Defer(at time.Time, err error) error {
	return &RetryLater{At: at, Err: err}
}

// DeferredUntil returns the reschedule time carried by err, if any.
func DeferredUntil(err error) (time.Time, bool) {
	var later *RetryLater
	if errors.As(err, &later) {
		return later.At, true
	}
	return time.Time{}, false
}
