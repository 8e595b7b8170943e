package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCollaboratorLabelsOutcome(t *testing.T) {
	before := testutil.CollectAndCount(CollaboratorDuration)
	ObserveCollaborator("test-collaborator", time.Now(), nil)
	ObserveCollaborator("test-collaborator", time.Now(), errors.New("boom"))
	after := testutil.CollectAndCount(CollaboratorDuration)
	if after-before != 2 {
		t.Fatalf("expected two new series, got %d", after-before)
	}
}

func TestCountersIncrement(t *testing.T) {
	GenerateItems.WithLabelValues("success").Inc()
	if got := testutil.ToFloat64(GenerateItems.WithLabelValues("success")); got < 1 {
		t.Fatalf("expected counter >= 1, got %v", got)
	}
}
