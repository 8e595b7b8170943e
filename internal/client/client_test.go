package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipeforge/internal/client"
	"recipeforge/internal/content"
)

func newServer(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return client.New(srv.URL+"/", "secret")
}

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestDecodesDataAndSendsToken(t *testing.T) {
	var gotAuth, gotPath, gotStatus string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotStatus = r.URL.Query().Get("status")
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "job-1", "status": "running", "totalCount": 3}},
		})
	})

	jobs, err := c.ListGenerateJobs(context.Background(), "running", "paused")
	if err != nil {
		t.Fatalf("ListGenerateJobs: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if gotPath != "/api/v1/generate-jobs" || gotStatus != "running,paused" {
		t.Fatalf("unexpected request %s status=%s", gotPath, gotStatus)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-1" || jobs[0].Status != content.GenerateRunning || jobs[0].TotalCount != 3 {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
}

func TestFailureEnvelopeBecomesAPIError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, map[string]any{
			"success": false,
			"error":   map[string]any{"code": "CONFLICT", "message": "cannot pause a job that is completed"},
		})
	})

	_, err := c.ControlGenerateJob(context.Background(), "job-1", "pause")
	if !client.IsCode(err, "CONFLICT") {
		t.Fatalf("expected CONFLICT error, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected status 409, got %v", err)
	}
}

func TestRunSendsModeAndDecodesJob(t *testing.T) {
	var body map[string]string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/translation-jobs/t-1/run" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeEnvelope(w, http.StatusAccepted, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "t-1", "status": "pending", "targetLang": "fr"},
		})
	})

	job, err := c.RunTranslationJob(context.Background(), "t-1", "async")
	if err != nil {
		t.Fatalf("RunTranslationJob: %v", err)
	}
	if body["mode"] != "async" || job.TargetLang != "fr" {
		t.Fatalf("unexpected exchange body=%v job=%+v", body, job)
	}
}

func TestCollectionRuleDecoded(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"id":    "c-1",
				"title": "Breakfast",
				"rule":  map[string]any{"type": "scene", "value": "breakfast"},
			},
		})
	})

	collection, err := c.GetCollection(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if collection.Rule == nil || collection.Title != "Breakfast" {
		t.Fatalf("expected decoded rule, got %+v", collection)
	}
}

func TestNonEnvelopeResponseIsAnError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	if _, err := c.Health(context.Background()); err == nil {
		t.Fatal("expected decode error for a non-envelope body")
	}
}

func TestCurateAndMembersRequests(t *testing.T) {
	var seen []string
	var curated map[string][]string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&curated)
			writeEnvelope(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]any{"id": "c-1", "pinnedRecipeIds": []string{"r1", "r2"}},
			})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "r1", "title": "Laksa", "status": "published"}},
		})
	})

	col, err := c.Curate(context.Background(), "c-1", "pin", []string{"r1", "r2"})
	if err != nil {
		t.Fatalf("Curate: %v", err)
	}
	if len(col.PinnedRecipeIDs) != 2 || len(curated["recipeIds"]) != 2 {
		t.Fatalf("unexpected curate round trip %+v %+v", col, curated)
	}
	recipes, err := c.Members(context.Background(), "c-1", true, 5)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(recipes) != 1 || recipes[0].Status != content.RecipePublished {
		t.Fatalf("unexpected members %+v", recipes)
	}
	want := []string{"POST /api/v1/collections/c-1/pin?", "GET /api/v1/collections/c-1/recipes?limit=5&published=true"}
	if len(seen) != 2 || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("unexpected requests %v", seen)
	}
}
