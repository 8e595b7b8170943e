package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipeforge/internal/generation"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
)

type stubCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (s *stubCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	s.system, s.user = system, user
	return s.reply, s.err
}

func TestLLMGeneratorRendersConstraintsAndDecodes(t *testing.T) {
	completer := &stubCompleter{reply: "```json\n" + `{"title":"","summary":"Warm noodles","ingredients":[{"name":"noodles","quantity":"200","unit":"g"}],"steps":[{"text":"Boil"},{"text":"  "},{"text":"Serve"}]}` + "\n```"}
	gen := generation.NewLLMGenerator(completer, nil)

	draft, err := gen.Generate(context.Background(), generation.Request{
		Name: "Khao Soi",
		Constraints: generation.Constraints{
			Cuisine:  "Thai",
			Location: "Chiang Mai",
			Tags:     map[rules.Dimension][]string{rules.DimensionTaste: {"spicy", "rich"}},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{`"Khao Soi"`, "The cuisine is Thai.", "comes from Chiang Mai", "taste: spicy, rich"} {
		if !strings.Contains(completer.user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, completer.user)
		}
	}
	if !strings.Contains(completer.system, "JSON") {
		t.Fatalf("unexpected system prompt %q", completer.system)
	}
	if draft.Title != "Khao Soi" {
		t.Fatalf("expected title to fall back to the name, got %q", draft.Title)
	}
	if len(draft.Steps) != 2 {
		t.Fatalf("expected blank step dropped, got %+v", draft.Steps)
	}
}

func TestLLMGeneratorRejectsUnusableReplies(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"not json", "I cannot help with that"},
		{"no ingredients", `{"title":"x","steps":[{"text":"a"}]}`},
		{"no steps", `{"title":"x","ingredients":[{"name":"a"}],"steps":[{"text":" "}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := generation.NewLLMGenerator(&stubCompleter{reply: tc.reply}, nil)
			_, err := gen.Generate(context.Background(), generation.Request{Name: "x"})
			if !errors.Is(err, services.ErrExternal) {
				t.Fatalf("expected external error, got %v", err)
			}
		})
	}
}

func TestLLMGeneratorPassesThroughClientErrors(t *testing.T) {
	want := services.Wrap(services.ErrTransient, "llm", "request", "rate limited", nil)
	gen := generation.NewLLMGenerator(&stubCompleter{err: want}, nil)
	if _, err := gen.Generate(context.Background(), generation.Request{Name: "x"}); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestHTTPImageGenerator(t *testing.T) {
	var gotPrompt, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotPrompt = body.Prompt
		gotAuth = r.Header.Get("Authorization")
		switch {
		case strings.Contains(body.Prompt, "step 2"):
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		case strings.Contains(body.Prompt, "step 3"):
			_, _ = w.Write([]byte(`{"url":""}`))
		default:
			_, _ = w.Write([]byte(`{"url":"https://img.example/1.jpg"}`))
		}
	}))
	defer server.Close()

	gen := generation.NewHTTPImageGenerator(server.URL, "secret", nil, 5*time.Second)
	ctx := context.Background()

	url, err := gen.GenerateImage(ctx, generation.ImageRequest{RecipeTitle: "Bao", StepNumber: 1, Text: "Steam the buns"})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if url != "https://img.example/1.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if !strings.Contains(gotPrompt, "cooking Bao: Steam the buns") || gotAuth != "Bearer secret" {
		t.Fatalf("unexpected request prompt=%q auth=%q", gotPrompt, gotAuth)
	}

	for _, step := range []int{2, 3} {
		if _, err := gen.GenerateImage(ctx, generation.ImageRequest{RecipeTitle: "Bao", StepNumber: step, Text: "x"}); !errors.Is(err, services.ErrExternal) {
			t.Fatalf("step %d: expected external error, got %v", step, err)
		}
	}
}
