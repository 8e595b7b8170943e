package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"recipeforge/internal/config"
	"recipeforge/internal/notifications"
)

type sent struct {
	Title, Tags, Priority, Body string
}

// ntfyRecorder stands in for an ntfy topic and records every post.
type ntfyRecorder struct {
	mu     sync.Mutex
	posts  []sent
	status int
}

func newNtfy(t *testing.T, status int) (*ntfyRecorder, notifications.Service, *config.Config) {
	t.Helper()
	rec := &ntfyRecorder{status: status}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.posts = append(rec.posts, sent{r.Header.Get("Title"), r.Header.Get("Tags"), r.Header.Get("Priority"), string(body)})
		rec.mu.Unlock()
		w.WriteHeader(rec.status)
		_, _ = w.Write([]byte("topic says no"))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	return rec, notifications.NewService(&cfg), &cfg
}

func (r *ntfyRecorder) only(t *testing.T) sent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.posts) != 1 {
		t.Fatalf("expected exactly one post, got %d", len(r.posts))
	}
	return r.posts[0]
}

func TestNoopWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventError, notifications.Payload{"error": "boom"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestMessagesPerEvent(t *testing.T) {
	cases := map[string]struct {
		event   notifications.Event
		payload notifications.Payload
		want    sent
	}{
		"generation partial": {
			notifications.EventGenerateJobFinished,
			notifications.Payload{"jobId": "job-1", "status": "partial", "success": 4, "failed": 1, "total": 5},
			sent{"Recipeforge - Generation Partial", "recipeforge,generate,partial", "",
				"Job job-1 finished partial: 4 succeeded, 1 failed of 5"},
		},
		"generation failed is urgent": {
			notifications.EventGenerateJobFinished,
			notifications.Payload{"jobId": "job-2", "status": "failed", "success": 0, "failed": 3, "total": 3},
			sent{"Recipeforge - Generation Failed", "recipeforge,generate,failed", "high",
				"Job job-2 finished failed: 0 succeeded, 3 failed of 3"},
		},
		"published below minimum": {
			notifications.EventCollectionPublished,
			notifications.Payload{"title": "Weeknight Noodles", "published": 9, "minRequired": 10, "qualified": false},
			sent{"Recipeforge - Collection Published", "recipeforge,collection,published,warning", "",
				"Published: Weeknight Noodles (9 recipes)\nBelow the minimum of 10"},
		},
		"published qualified": {
			notifications.EventCollectionPublished,
			notifications.Payload{"title": "Brunch", "published": 12, "minRequired": 10, "qualified": true},
			sent{"Recipeforge - Collection Published", "recipeforge,collection,published", "",
				"Published: Brunch (12 recipes)"},
		},
		"orphaned collections": {
			notifications.EventCollectionOrphaned,
			notifications.Payload{"entityType": "cuisine", "name": "Nordic", "count": float64(2)},
			sent{"Recipeforge - Collections Orphaned", "recipeforge,collection,orphaned", "",
				"Deleting cuisine Nordic returned 2 collections to draft"},
		},
		"translation exhausted": {
			notifications.EventTranslationExhausted,
			notifications.Payload{"entityType": "recipe", "entityId": "r1", "targetLang": "fr", "retries": 3, "error": "timeout"},
			sent{"Recipeforge - Translation Failed", "recipeforge,translate,failed", "high",
				"recipe r1 → fr failed after 3 retries: timeout"},
		},
		"error without detail": {
			notifications.EventError,
			notifications.Payload{"context": "worker"},
			sent{"Recipeforge - Error", "recipeforge,error,alert", "high", "Error with worker: unknown"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, svc, _ := newNtfy(t, http.StatusOK)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if got := rec.only(t); got != tc.want {
				t.Fatalf("got %+v\nwant %+v", got, tc.want)
			}
		})
	}
}

func TestDisabledAndUnknownEventsAreSkipped(t *testing.T) {
	rec := &ntfyRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.posts = append(rec.posts, sent{Title: r.Header.Get("Title")})
		rec.mu.Unlock()
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobCompleted = false
	cfg.Notifications.CollectionPublished = false
	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventGenerateJobFinished,
		notifications.EventCollectionPublished,
		notifications.EventCollectionOrphaned,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for skipped event %s, got %v", event, err)
		}
	}
	if len(rec.posts) != 0 {
		t.Fatalf("expected no posts, got %+v", rec.posts)
	}
}

func TestTopicRejectionIsReported(t *testing.T) {
	_, svc, _ := newNtfy(t, http.StatusForbidden)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403: topic says no") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}
