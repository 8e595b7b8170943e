package services

import (
	"context"
	"errors"
	"testing"
)

func TestInflightInterruptCarriesCause(t *testing.T) {
	var registry Inflight
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	if !registry.Register("job", cancel) {
		t.Fatal("first register should succeed")
	}
	if registry.Register("job", cancel) {
		t.Fatal("second register should be refused")
	}
	if !registry.Active("job") {
		t.Fatal("expected job active")
	}

	cause := errors.New("stop")
	if !registry.Interrupt("job", cause) {
		t.Fatal("expected interrupt to find the job")
	}
	if !errors.Is(context.Cause(ctx), cause) {
		t.Fatalf("unexpected cause %v", context.Cause(ctx))
	}

	registry.Release("job")
	if registry.Active("job") || registry.Interrupt("job", cause) {
		t.Fatal("released job should be gone")
	}
}
