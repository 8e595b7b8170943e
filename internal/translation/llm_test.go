package translation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"recipeforge/internal/content"
	"recipeforge/internal/services"
	"recipeforge/internal/translation"
)

type stubCompleter struct {
	reply  string
	system string
	user   string
}

func (s *stubCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	s.system, s.user = system, user
	return s.reply, nil
}

func TestLLMTranslatorLiftsQualityScore(t *testing.T) {
	completer := &stubCompleter{reply: `{"title":"Soupe","qualityScore":1.4}`}
	translator := translation.NewLLMTranslator(completer, nil)

	result, err := translator.Translate(context.Background(), translation.Request{
		EntityType: content.EntityRecipe,
		SourceLang: "en",
		TargetLang: "fr",
		Source:     map[string]any{"title": "Soup"},
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !strings.Contains(completer.system, "from en into fr") {
		t.Fatalf("unexpected system prompt %q", completer.system)
	}
	if !strings.Contains(completer.user, "Translate this recipe") || !strings.Contains(completer.user, `"title": "Soup"`) {
		t.Fatalf("unexpected user prompt %q", completer.user)
	}
	if result.QualityScore == nil || *result.QualityScore != 1 {
		t.Fatalf("expected clamped quality score 1, got %v", result.QualityScore)
	}
	if _, ok := result.Content["qualityScore"]; ok {
		t.Fatal("quality score should be removed from content")
	}
	if result.Content["title"] != "Soupe" {
		t.Fatalf("unexpected content %v", result.Content)
	}
}

func TestLLMTranslatorPicksTemplateByEntity(t *testing.T) {
	cases := map[content.EntityType]string{
		content.EntityCollection: "recipe collection",
		content.EntityCuisine:    "this cuisine label",
		content.EntityTag:        "this tag label",
	}
	for entityType, want := range cases {
		completer := &stubCompleter{reply: `{"name":"x"}`}
		translator := translation.NewLLMTranslator(completer, nil)
		if _, err := translator.Translate(context.Background(), translation.Request{EntityType: entityType, SourceLang: "en", TargetLang: "de", Source: map[string]any{"name": "y"}}); err != nil {
			t.Fatalf("%s: %v", entityType, err)
		}
		if !strings.Contains(completer.user, want) {
			t.Fatalf("%s: prompt %q missing %q", entityType, completer.user, want)
		}
	}
}

func TestLLMTranslatorRejectsEmptyReplies(t *testing.T) {
	for _, reply := range []string{`{"qualityScore":0.5}`, "not json"} {
		translator := translation.NewLLMTranslator(&stubCompleter{reply: reply}, nil)
		_, err := translator.Translate(context.Background(), translation.Request{EntityType: content.EntityRecipe, Source: map[string]any{"title": "x"}})
		if !errors.Is(err, services.ErrExternal) {
			t.Fatalf("reply %q: expected external error, got %v", reply, err)
		}
	}
}
