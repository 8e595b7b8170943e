package translation

import (
	"context"

	"recipeforge/internal/content"
)

// Request is one translation call.
type Request struct {
	EntityType content.EntityType
	SourceLang string
	TargetLang string
	Source     map[string]any
}

// Result is the translator's reply. Content may omit fields.
type Result struct {
	Content      map[string]any
	QualityScore *float64
}

// Translator translates structured entity content.
type Translator interface {
	Translate(ctx context.Context, req Request) (*Result, error)
}
