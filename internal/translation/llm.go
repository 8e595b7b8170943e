package translation

import (
	"context"
	"encoding/json"
	"fmt"

	"recipeforge/internal/content"
	"recipeforge/internal/prompts"
	"recipeforge/internal/services"
	"recipeforge/internal/services/llm"
)

// Completer is the slice of the LLM client the translator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMTranslator translates through a JSON chat completion.
type LLMTranslator struct {
	client  Completer
	prompts prompts.Translation
}

// NewLLMTranslator builds a translator over client using the given templates.
func NewLLMTranslator(client Completer, set *prompts.Set) *LLMTranslator {
	if set == nil {
		set = prompts.Default()
	}
	return &LLMTranslator{client: client, prompts: set.Translation}
}

// Translate renders the entity-type template and decodes the reply. A
// numeric "qualityScore" in the reply is lifted out of the content.
func (t *LLMTranslator) Translate(ctx context.Context, req Request) (*Result, error) {
	system, err := prompts.Render("translation.system", t.prompts.System, req)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "render prompt", "", err)
	}
	source, err := json.MarshalIndent(req.Source, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode source: %w", err)
	}
	name, text := t.template(req.EntityType)
	user, err := prompts.Render(name, text, struct {
		EntityType content.EntityType
		Source     string
	}{req.EntityType, string(source)})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "render prompt", "", err)
	}

	raw, err := t.client.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := llm.DecodeLLMJSON(raw, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternal, "translation", "decode reply", "", err)
	}
	result := &Result{Content: decoded}
	if score, ok := decoded["qualityScore"].(float64); ok {
		score = min(max(score, 0), 1)
		result.QualityScore = &score
	}
	delete(decoded, "qualityScore")
	if len(decoded) == 0 {
		return nil, services.Wrap(services.ErrExternal, "translation", "decode reply", "reply has no translated fields", nil)
	}
	return result, nil
}

func (t *LLMTranslator) template(entityType content.EntityType) (string, string) {
	switch entityType {
	case content.EntityRecipe:
		return "translation.recipe", t.prompts.Recipe
	case content.EntityCollection:
		return "translation.collection", t.prompts.Collection
	default:
		return "translation.taxonomy", t.prompts.Taxonomy
	}
}
