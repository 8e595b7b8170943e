package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings controls when the collaborator circuit opens.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
	// OnStateChange is invoked on every transition, typically to log and
	// update the breaker state gauge.
	OnStateChange func(name string, from, to gobreaker.State)
}

// NewCircuitBreaker builds a breaker that trips once the failure ratio within
// the rolling interval reaches FailureRatio over at least MinRequests calls.
// Caller cancellation never counts as a failure.
func NewCircuitBreaker(settings BreakerSettings) *gobreaker.CircuitBreaker[Completion] {
	minRequests := settings.MinRequests
	if minRequests == 0 {
		minRequests = 1
	}
	ratio := settings.FailureRatio
	if ratio <= 0 {
		ratio = 1
	}
	return gobreaker.NewCircuitBreaker[Completion](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: settings.OnStateChange,
	})
}
