package generation

import (
	"context"
	"fmt"
	"strings"

	"recipeforge/internal/prompts"
	"recipeforge/internal/services"
	"recipeforge/internal/services/llm"
)

// Completer is the slice of the LLM client the generator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMGenerator generates recipes through a JSON chat completion.
type LLMGenerator struct {
	client  Completer
	prompts prompts.Generation
}

// NewLLMGenerator builds a generator over client using the given templates.
func NewLLMGenerator(client Completer, set *prompts.Set) *LLMGenerator {
	if set == nil {
		set = prompts.Default()
	}
	return &LLMGenerator{client: client, prompts: set.Generation}
}

// Generate renders the prompts for req and decodes the model's reply.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (*Draft, error) {
	system, err := prompts.Render("generation.system", g.prompts.System, req)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generation", "render prompt", "", err)
	}
	user, err := prompts.Render("generation.user", g.prompts.User, struct {
		Name     string
		Cuisine  string
		Location string
		Tags     map[string][]string
	}{req.Name, req.Constraints.Cuisine, req.Constraints.Location, tagNames(req.Constraints)})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generation", "render prompt", "", err)
	}
	raw, err := g.client.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var draft Draft
	if err := llm.DecodeLLMJSON(raw, &draft); err != nil {
		return nil, services.Wrap(services.ErrExternal, "generation", "decode recipe", "", err)
	}
	if err := checkDraft(&draft, req.Name); err != nil {
		return nil, err
	}
	return &draft, nil
}

func tagNames(c Constraints) map[string][]string {
	if len(c.Tags) == 0 {
		return nil
	}
	out := make(map[string][]string, len(c.Tags))
	for dim, values := range c.Tags {
		out[string(dim)] = values
	}
	return out
}

// checkDraft rejects replies that cannot become a usable recipe. A missing
// title falls back to the requested name.
func checkDraft(draft *Draft, name string) error {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		draft.Title = name
	}
	if len(draft.Ingredients) == 0 {
		return services.Wrap(services.ErrExternal, "generation", "decode recipe", fmt.Sprintf("%q has no ingredients", name), nil)
	}
	steps := draft.Steps[:0]
	for _, step := range draft.Steps {
		step.Text = strings.TrimSpace(step.Text)
		if step.Text != "" {
			steps = append(steps, step)
		}
	}
	draft.Steps = steps
	if len(draft.Steps) == 0 {
		return services.Wrap(services.ErrExternal, "generation", "decode recipe", fmt.Sprintf("%q has no steps", name), nil)
	}
	return nil
}
