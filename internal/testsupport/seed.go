package testsupport

import (
	"context"
	"fmt"
	"testing"

	"recipeforge/internal/content"
	"recipeforge/internal/rules"
	"recipeforge/internal/store"
)

// SeedTag inserts a tag in the given dimension.
func SeedTag(t testing.TB, st *store.Store, dim rules.Dimension, slug string) *content.Taxonomy {
	t.Helper()
	entry := &content.Taxonomy{Type: content.EntityTag, Dimension: dim, Slug: slug, Name: slug}
	if err := st.CreateTaxonomy(context.Background(), entry); err != nil {
		t.Fatalf("seed tag %s: %v", slug, err)
	}
	return entry
}

// SeedTaxonomy inserts a cuisine, location or ingredient entry.
func SeedTaxonomy(t testing.TB, st *store.Store, kind content.EntityType, slug string) *content.Taxonomy {
	t.Helper()
	entry := &content.Taxonomy{Type: kind, Slug: slug, Name: slug}
	if err := st.CreateTaxonomy(context.Background(), entry); err != nil {
		t.Fatalf("seed %s %s: %v", kind, slug, err)
	}
	return entry
}

// RecipeOption customizes a seeded recipe.
type RecipeOption func(*content.Recipe)

// Published marks the seeded recipe published and approved.
func Published() RecipeOption {
	return func(r *content.Recipe) {
		r.Status = content.RecipePublished
		r.ReviewStatus = content.ReviewApproved
	}
}

// WithTags links tag ids to the seeded recipe.
func WithTags(ids ...string) RecipeOption {
	return func(r *content.Recipe) {
		r.TagIDs = append(r.TagIDs, ids...)
	}
}

// WithCuisine sets the seeded recipe's cuisine.
func WithCuisine(id string) RecipeOption {
	return func(r *content.Recipe) {
		r.CuisineID = id
	}
}

// SeedRecipe inserts a recipe with a single ingredient and step.
func SeedRecipe(t testing.TB, st *store.Store, title string, opts ...RecipeOption) *content.Recipe {
	t.Helper()
	recipe := &content.Recipe{
		Title:       title,
		Summary:     "A dish called " + title,
		Ingredients: []content.IngredientLine{{Name: "salt", Quantity: "1", Unit: "tsp"}},
		Steps:       []content.Step{{Text: "Cook " + title}},
	}
	for _, opt := range opts {
		opt(recipe)
	}
	if err := st.CreateRecipe(context.Background(), recipe); err != nil {
		t.Fatalf("seed recipe %s: %v", title, err)
	}
	return recipe
}

// SeedRecipes inserts count recipes titled prefix-N.
func SeedRecipes(t testing.TB, st *store.Store, prefix string, count int, opts ...RecipeOption) []*content.Recipe {
	t.Helper()
	recipes := make([]*content.Recipe, 0, count)
	for i := 0; i < count; i++ {
		recipes = append(recipes, SeedRecipe(t, st, fmt.Sprintf("%s-%d", prefix, i+1), opts...))
	}
	return recipes
}

// SeedCollection inserts a draft collection with the given rule.
func SeedCollection(t testing.TB, st *store.Store, title string, rule rules.Rule, minRequired int) *content.Collection {
	t.Helper()
	collection := &content.Collection{
		Title:       title,
		Rule:        rule,
		MinRequired: minRequired,
		TargetCount: minRequired * 2,
	}
	if err := st.CreateCollection(context.Background(), collection); err != nil {
		t.Fatalf("seed collection %s: %v", title, err)
	}
	return collection
}
