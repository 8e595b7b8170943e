package generation

import (
	"context"

	"recipeforge/internal/content"
	"recipeforge/internal/rules"
)

// Constraints are the locked values a generated recipe must respect, resolved
// to display names.
type Constraints struct {
	Cuisine  string
	Location string
	Tags     map[rules.Dimension][]string
}

// Request asks the generator for one recipe.
type Request struct {
	Name        string
	Constraints Constraints
}

// Draft is the structured content the generator returns.
type Draft struct {
	Title       string                   `json:"title"`
	Summary     string                   `json:"summary"`
	Ingredients []content.IngredientLine `json:"ingredients"`
	Steps       []content.Step           `json:"steps"`
}

// Generator produces recipe content for a dish name. Implementations must
// honour ctx cancellation and deadlines.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Draft, error)
}

// ImageRequest asks for a photo of one step.
type ImageRequest struct {
	RecipeTitle string
	StepNumber  int
	Text        string
}

// ImageGenerator produces a step image and returns its URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}
