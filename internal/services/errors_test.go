package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"recipeforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternal, "generation", "generate", "collaborator failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"generation", "generate", "collaborator failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", services.Wrap(services.ErrTransient, "store", "read", "locked", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "llm", "call", "slow", nil), true},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"cancelled", fmt.Errorf("call: %w", context.Canceled), false},
		{"validation", services.Validation("translation", "bad lang"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := services.IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMessageStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrConflict, "generation", "create", "job already active", nil)
	if got := services.Message(err); got != "generation: create: job already active" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDeferredUntil(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cause := services.Wrap(services.ErrTransient, "translation", "translate", "busy", nil)
	err := fmt.Errorf("execute: %w", services.Defer(at, cause))

	got, ok := services.DeferredUntil(err)
	if !ok || !got.Equal(at) {
		t.Fatalf("expected deferral to %v, got %v ok=%v", at, got, ok)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected cause to stay reachable")
	}
	if _, ok := services.DeferredUntil(cause); ok {
		t.Fatal("plain error should not carry a deferral")
	}
}
