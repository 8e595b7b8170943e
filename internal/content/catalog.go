package content

import (
	"time"

	"recipeforge/internal/rules"
)

// RecipeStatus is the publication state of a recipe.
type RecipeStatus string

const (
	RecipeDraft     RecipeStatus = "draft"
	RecipePublished RecipeStatus = "published"
)

// ReviewStatus is the editorial review state of a recipe.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// RecipeSource records who authored a recipe.
type RecipeSource string

const (
	SourceAI    RecipeSource = "ai"
	SourceHuman RecipeSource = "manual"
)

// IngredientLine is one line of a recipe's ingredient list.
type IngredientLine struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Step is one instruction of a recipe.
type Step struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Recipe is a catalogue item.
type Recipe struct {
	ID                string            `json:"id"`
	Slug              string            `json:"slug"`
	Title             string            `json:"title"`
	Summary           string            `json:"summary,omitempty"`
	Ingredients       []IngredientLine  `json:"ingredients"`
	Steps             []Step            `json:"steps"`
	CuisineID         string            `json:"cuisineId,omitempty"`
	LocationID        string            `json:"locationId,omitempty"`
	TagIDs            []string          `json:"tagIds"`
	Status            RecipeStatus      `json:"status"`
	ReviewStatus      ReviewStatus      `json:"reviewStatus"`
	Source            RecipeSource      `json:"source"`
	GenerateJobID     string            `json:"generateJobId,omitempty"`
	TranslationStatus map[string]string `json:"translationStatus,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Facts projects the recipe onto the fields a rule predicate inspects.
func (r *Recipe) Facts() rules.RecipeFacts {
	return rules.RecipeFacts{ID: r.ID, CuisineID: r.CuisineID, LocationID: r.LocationID, TagIDs: r.TagIDs}
}

// CollectionStatus is the publication state of a collection.
type CollectionStatus string

const (
	CollectionDraft     CollectionStatus = "draft"
	CollectionPublished CollectionStatus = "published"
)

// Collection is a rule-matched, curated grouping of recipes.
type Collection struct {
	ID                   string            `json:"id"`
	Slug                 string            `json:"slug"`
	Title                string            `json:"title"`
	Description          string            `json:"description,omitempty"`
	Rule                 rules.Rule        `json:"-"`
	CuisineID            string            `json:"cuisineId,omitempty"`
	LocationID           string            `json:"locationId,omitempty"`
	PinnedRecipeIDs      []string          `json:"pinnedRecipeIds"`
	ExcludedRecipeIDs    []string          `json:"excludedRecipeIds"`
	MinRequired          int               `json:"minRequired"`
	TargetCount          int               `json:"targetCount"`
	CachedPublishedCount int               `json:"cachedPublishedCount"`
	CachedAt             *time.Time        `json:"cachedAt,omitempty"`
	Status               CollectionStatus  `json:"status"`
	PublishedAt          *time.Time        `json:"publishedAt,omitempty"`
	TranslationStatus    map[string]string `json:"translationStatus,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// RuleContext builds the compile context for the collection's rule.
func (c *Collection) RuleContext() rules.Context {
	return rules.Context{
		CuisineID:  c.CuisineID,
		LocationID: c.LocationID,
		Pinned:     c.PinnedRecipeIDs,
		Excluded:   c.ExcludedRecipeIDs,
	}
}

// StatusCounts are live member counts by editorial state.
type StatusCounts struct {
	Published int `json:"published"`
	Pending   int `json:"pending"`
	Draft     int `json:"draft"`
}

// Taxonomy is a cuisine, location, tag or ingredient entry. Dimension is
// only set for tags.
type Taxonomy struct {
	ID                string            `json:"id"`
	Type              EntityType        `json:"type"`
	Slug              string            `json:"slug"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	Dimension         rules.Dimension   `json:"dimension,omitempty"`
	TranslationStatus map[string]string `json:"translationStatus,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Translation is a stored target-language variant of an entity.
type Translation struct {
	EntityType   EntityType     `json:"entityType"`
	EntityID     string         `json:"entityId"`
	Lang         string         `json:"lang"`
	Content      map[string]any `json:"content"`
	QualityScore *float64       `json:"qualityScore,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
