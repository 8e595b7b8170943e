package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"recipeforge/internal/services"
)

type recipeNames struct {
	Names []string `json:"names"`
}

// provider serves a fixed choice object for every request.
func provider(t *testing.T, choice map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, choice)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeCompletion(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func content(s string) map[string]any {
	return map[string]any{"message": map[string]any{"content": s}}
}

func quietRetries(attempts int) []Option {
	return []Option{
		WithRetryMaxAttempts(attempts),
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	}
}

func TestClientHealthCheck(t *testing.T) {
	for name, reply := range map[string]string{
		"plain": `{"ok":true}`,
		"fence": "```json\n{\"ok\":true}\n```",
	} {
		t.Run(name, func(t *testing.T) {
			client := NewClient(Config{APIKey: "test", BaseURL: provider(t, content(reply)).URL, Model: "demo"})
			if err := client.HealthCheck(context.Background()); err != nil {
				t.Fatalf("HealthCheck returned error: %v", err)
			}
		})
	}
}

func TestClientHealthCheckRejectedKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	err := NewClient(Config{APIKey: "bad", BaseURL: server.URL}).HealthCheck(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker for 401, got %v", err)
	}
}

func TestClientCompleteSendsPromptAndReportsUsage(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test" || r.Header.Get("X-Title") != "recipeforge" {
			t.Errorf("unexpected headers %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "provider/model-v2",
			"choices": []any{map[string]any{"finish_reason": "stop", "message": map[string]any{"content": `{"names":["Bibimbap"]}`}}},
			"usage":   map[string]any{"prompt_tokens": 42, "completion_tokens": 7},
		})
	}))
	defer server.Close()

	var recorded Usage
	var recordedModel string
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Title: "recipeforge"},
		WithUsageRecorder(func(model string, u Usage) { recordedModel, recorded = model, u }),
	)
	out, err := client.Complete(context.Background(), Prompt{System: " system ", User: "Korean dishes", Temperature: 0.7, MaxTokens: 512})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got.Temperature != 0.7 || got.MaxTokens != 512 || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if out.FinishReason != "stop" || out.Model != "provider/model-v2" {
		t.Fatalf("unexpected completion %+v", out)
	}
	if recordedModel != "provider/model-v2" || recorded.PromptTokens != 42 || recorded.CompletionTokens != 7 {
		t.Fatalf("unexpected usage %s %+v", recordedModel, recorded)
	}
}

func TestClientCompleteJSONKeepsRawFence(t *testing.T) {
	server := provider(t, content("```json\n{\"names\":[\"Pad Thai\",\"Tom Yum\"]}\n```"))
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	raw, err := client.CompleteJSON(context.Background(), "system", "Thai dishes")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if !strings.Contains(raw, "```") {
		t.Fatalf("expected raw payload to retain code fence, got %q", raw)
	}
	var parsed recipeNames
	if err := DecodeLLMJSON(raw, &parsed); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if len(parsed.Names) != 2 || parsed.Names[0] != "Pad Thai" {
		t.Fatalf("unexpected names %v", parsed.Names)
	}
}

func TestClientCompleteJSONAlternateReplyShapes(t *testing.T) {
	cases := map[string]map[string]any{
		"delta":  {"delta": map[string]any{"content": `{"names":["Pho"]}`}},
		"legacy": {"finish_reason": "stop", "text": `{"names":["Pho"]}`},
		"tool_calls": {
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"content": "",
				"tool_calls": []any{map[string]any{
					"type": "function", "id": "call_1",
					"function": map[string]any{"name": "names", "arguments": `{"names":["Pho"]}`},
				}},
			},
		},
		"function_call": {"message": map[string]any{"function_call": map[string]any{"arguments": `{"names":["Pho"]}`}}},
	}
	for name, choice := range cases {
		t.Run(name, func(t *testing.T) {
			client := NewClient(Config{APIKey: "test", BaseURL: provider(t, choice).URL})
			raw, err := client.CompleteJSON(context.Background(), "system", "user")
			if err != nil {
				t.Fatalf("CompleteJSON returned error: %v", err)
			}
			var parsed recipeNames
			if err := DecodeLLMJSON(raw, &parsed); err != nil || len(parsed.Names) != 1 || parsed.Names[0] != "Pho" {
				t.Fatalf("unexpected payload %q (err=%v)", raw, err)
			}
		})
	}
}

func TestClientEmptyReplyReportsSnippet(t *testing.T) {
	server := provider(t, map[string]any{"finish_reason": "length", "message": map[string]any{"content": ""}})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, quietRetries(3)...)
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "empty content") || !strings.Contains(msg, "response_snippet=") || !strings.Contains(msg, `finish_reason="length"`) {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected external marker, got %v", err)
	}
}

func TestClientRequiresPromptsAndKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("missing api key must not be retryable")
	}
	keyed := NewClient(Config{APIKey: "test", BaseURL: "http://127.0.0.1:1"})
	if _, err := keyed.Complete(context.Background(), Prompt{System: "s", User: "   "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank user prompt, got %v", err)
	}
}

func TestClientHonoursRetryAfter(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeCompletion(t, w, content(`{"names":["Laksa"]}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
	)
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesEmptyReplyThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		reply := ""
		if calls >= 3 {
			reply = `{"names":["Khao Soi"]}`
		}
		writeCompletion(t, w, content(reply))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, quietRetries(5)...)
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestClientStatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		marker    error
		retryable bool
		calls     int32
	}{
		{http.StatusBadGateway, services.ErrTransient, true, 2},
		{http.StatusForbidden, services.ErrConfiguration, false, 1},
		{http.StatusBadRequest, services.ErrExternal, true, 1},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, quietRetries(2)...)
			_, err := client.CompleteJSON(context.Background(), "system", "user")
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v marker, got %v", tc.marker, err)
			}
			if services.IsRetryable(err) != tc.retryable {
				t.Fatalf("retryable = %v, want %v", services.IsRetryable(err), tc.retryable)
			}
			if calls.Load() != tc.calls {
				t.Fatalf("expected %d calls, got %d", tc.calls, calls.Load())
			}
		})
	}
}

func TestClientCircuitBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var transitions []gobreaker.State
	breaker := NewCircuitBreaker(BreakerSettings{
		Name:         "test",
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithRetryMaxAttempts(1), WithCircuitBreaker(breaker))
	for i := 0; i < 2; i++ {
		if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
			t.Fatal("expected failure")
		}
	}
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, gobreaker.ErrOpenState) || !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient open breaker error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected breaker to short-circuit third call, server saw %d", calls.Load())
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}

func TestClientRateLimiterHonoursContext(t *testing.T) {
	server := provider(t, content(`{"ok":true}`))
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithRateLimiter(limiter), WithRetryMaxAttempts(1))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("first call should consume the burst token: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.CompleteJSON(ctx, "system", "user"); err == nil {
		t.Fatal("expected second call to be throttled past the deadline")
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := retryPolicy{attempts: 5, base: time.Second, ceiling: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
	if d, ok := p.next(context.Background(), &statusError{code: 503, retryAfter: time.Minute}, 1); !ok || d != 5*time.Second {
		t.Fatalf("expected Retry-After clamped to ceiling, got %s %v", d, ok)
	}
	if _, ok := p.next(context.Background(), &statusError{code: 400}, 1); ok {
		t.Fatal("400 must not be retried")
	}
}

func TestDecodeLLMJSONProse(t *testing.T) {
	var parsed recipeNames
	if err := DecodeLLMJSON("Here you go:\n{\"names\":[\"Jollof\"]}\nEnjoy!", &parsed); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if len(parsed.Names) != 1 || parsed.Names[0] != "Jollof" {
		t.Fatalf("unexpected names %v", parsed.Names)
	}
	var list []string
	if err := DecodeLLMJSON(`names: ["a","b"]`, &list); err != nil || len(list) != 2 {
		t.Fatalf("expected array extraction, got %v (err=%v)", list, err)
	}
	err := DecodeLLMJSON("no json here", &parsed)
	if err == nil || !strings.Contains(err.Error(), "payload snippet: no json here") {
		t.Fatalf("expected snippet in error, got %v", err)
	}
}
