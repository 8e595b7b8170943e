package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"recipeforge/internal/content"
	"recipeforge/internal/rules"
	"recipeforge/internal/textutil"
)

const recipeColumns = "id, slug, title, summary, ingredients_json, steps_json, cuisine_id, location_id, status, review_status, source, generate_job_id, translation_status_json, created_at, updated_at"

func scanRecipe(scanner rowScanner) (*content.Recipe, error) {
	var (
		r           content.Recipe
		summary     sql.NullString
		ingredients sql.NullString
		steps       sql.NullString
		cuisineID   sql.NullString
		locationID  sql.NullString
		status      string
		review      string
		source      string
		jobID       sql.NullString
		translation sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&r.ID, &r.Slug, &r.Title, &summary, &ingredients, &steps, &cuisineID, &locationID,
		&status, &review, &source, &jobID, &translation, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	r.Summary = summary.String
	r.CuisineID = cuisineID.String
	r.LocationID = locationID.String
	r.Status = content.RecipeStatus(status)
	r.ReviewStatus = content.ReviewStatus(review)
	r.Source = content.RecipeSource(source)
	r.GenerateJobID = jobID.String
	r.CreatedAt = parseTime(createdRaw)
	r.UpdatedAt = parseTime(updatedRaw)
	if err := unmarshalJSON(ingredients, &r.Ingredients); err != nil {
		return nil, fmt.Errorf("decode ingredients: %w", err)
	}
	if err := unmarshalJSON(steps, &r.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	if err := unmarshalJSON(translation, &r.TranslationStatus); err != nil {
		return nil, fmt.Errorf("decode translation status: %w", err)
	}
	return &r, nil
}

// CreateRecipe inserts a recipe and its tag links. Empty ID, slug and
// timestamps are filled in.
func (s *Store) CreateRecipe(ctx context.Context, recipe *content.Recipe) error {
	return s.withTx(ctx, func(tx conn) error {
		return s.insertRecipe(ctx, tx, recipe)
	})
}

func (s *Store) insertRecipe(ctx context.Context, tx conn, recipe *content.Recipe) error {
	if recipe == nil {
		return errors.New("insert recipe: nil recipe")
	}
	now := s.now()
	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}
	if recipe.Slug == "" {
		recipe.Slug = textutil.Slugify(recipe.Title) + "-" + recipe.ID[:8]
	}
	if recipe.Status == "" {
		recipe.Status = content.RecipeDraft
	}
	if recipe.ReviewStatus == "" {
		recipe.ReviewStatus = content.ReviewPending
	}
	if recipe.Source == "" {
		recipe.Source = content.SourceHuman
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now

	ingredients, err := marshalJSON(recipe.Ingredients, "[]")
	if err != nil {
		return fmt.Errorf("encode ingredients: %w", err)
	}
	steps, err := marshalJSON(recipe.Steps, "[]")
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	translation, err := marshalJSON(recipe.TranslationStatus, "{}")
	if err != nil {
		return fmt.Errorf("encode translation status: %w", err)
	}
	if _, err := tx.exec(ctx,
		`INSERT INTO recipes (`+recipeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recipe.ID, recipe.Slug, recipe.Title, nullableString(recipe.Summary), ingredients, steps,
		nullableString(recipe.CuisineID), nullableString(recipe.LocationID),
		string(recipe.Status), string(recipe.ReviewStatus), string(recipe.Source),
		nullableString(recipe.GenerateJobID), translation,
		formatTime(recipe.CreatedAt), formatTime(recipe.UpdatedAt),
	); err != nil {
		return mapWriteError("insert recipe", err)
	}
	for _, tagID := range recipe.TagIDs {
		if _, err := tx.exec(ctx,
			"INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			recipe.ID, tagID,
		); err != nil {
			return fmt.Errorf("link recipe tag %s: %w", tagID, err)
		}
	}
	return nil
}

// GetRecipe fetches a recipe with its tag ids.
func (s *Store) GetRecipe(ctx context.Context, id string) (*content.Recipe, error) {
	ctx = ensureContext(ctx)
	row := s.conn().queryRow(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE id = ?", id)
	recipe, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("recipe", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if err := s.attachTags(ctx, []*content.Recipe{recipe}); err != nil {
		return nil, err
	}
	return recipe, nil
}

// RecipesByJob lists the recipes produced by a generation job.
func (s *Store) RecipesByJob(ctx context.Context, jobID string) ([]*content.Recipe, error) {
	return s.queryRecipes(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE generate_job_id = ? ORDER BY created_at", jobID)
}

// ExistingTitles returns the subset of titles already used by a recipe. The
// comparison is an exact string match.
func (s *Store) ExistingTitles(ctx context.Context, titles []string) (map[string]struct{}, error) {
	ctx = ensureContext(ctx)
	existing := make(map[string]struct{})
	if len(titles) == 0 {
		return existing, nil
	}
	args := make([]any, 0, len(titles))
	for _, title := range titles {
		args = append(args, title)
	}
	rows, err := s.conn().query(ctx, "SELECT DISTINCT title FROM recipes WHERE title IN ("+makePlaceholders(len(titles))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("existing titles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		existing[title] = struct{}{}
	}
	return existing, rows.Err()
}

// SetRecipeReview updates the editorial state of a recipe.
func (s *Store) SetRecipeReview(ctx context.Context, id string, status content.RecipeStatus, review content.ReviewStatus) (*content.Recipe, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE recipes SET status = ?, review_status = ?, updated_at = ? WHERE id = ?",
		string(status), string(review), formatTime(s.now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set recipe review: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("recipe", id)
	}
	return s.GetRecipe(ctx, id)
}

// CountMembers counts recipes matching pred grouped by editorial state:
// published, pending review drafts, and other drafts.
func (s *Store) CountMembers(ctx context.Context, pred rules.Predicate) (content.StatusCounts, error) {
	ctx = ensureContext(ctx)
	where, args := pred.SQL("r")
	query := `SELECT
        COALESCE(SUM(CASE WHEN r.status = 'published' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN r.status <> 'published' AND r.review_status = 'pending' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN r.status <> 'published' AND r.review_status <> 'pending' THEN 1 ELSE 0 END), 0)
        FROM recipes r WHERE ` + where
	var counts content.StatusCounts
	if err := s.conn().queryRow(ctx, query, args...).Scan(&counts.Published, &counts.Pending, &counts.Draft); err != nil {
		return content.StatusCounts{}, fmt.Errorf("count members: %w", err)
	}
	return counts, nil
}

// MemberFilter narrows FindMembers.
type MemberFilter struct {
	PublishedOnly bool
	Limit         int
}

// FindMembers lists recipes matching pred, newest first.
func (s *Store) FindMembers(ctx context.Context, pred rules.Predicate, filter MemberFilter) ([]*content.Recipe, error) {
	where, args := pred.SQL("r")
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, column := range strings.Split(recipeColumns, ", ") {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("r." + column)
	}
	b.WriteString(" FROM recipes r WHERE " + where)
	if filter.PublishedOnly {
		b.WriteString(" AND r.status = 'published'")
	}
	b.WriteString(" ORDER BY r.created_at DESC, r.id")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}
	return s.queryRecipes(ctx, b.String(), args...)
}

func (s *Store) queryRecipes(ctx context.Context, query string, args ...any) ([]*content.Recipe, error) {
	ctx = ensureContext(ctx)
	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	var recipes []*content.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := s.attachTags(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *Store) attachTags(ctx context.Context, recipes []*content.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	byID := make(map[string]*content.Recipe, len(recipes))
	args := make([]any, 0, len(recipes))
	for _, recipe := range recipes {
		byID[recipe.ID] = recipe
		recipe.TagIDs = []string{}
		args = append(args, recipe.ID)
	}
	rows, err := s.conn().query(ctx,
		"SELECT recipe_id, tag_id FROM recipe_tags WHERE recipe_id IN ("+makePlaceholders(len(args))+") ORDER BY recipe_id, tag_id",
		args...,
	)
	if err != nil {
		return fmt.Errorf("load recipe tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var recipeID, tagID string
		if err := rows.Scan(&recipeID, &tagID); err != nil {
			return err
		}
		if recipe, ok := byID[recipeID]; ok {
			recipe.TagIDs = append(recipe.TagIDs, tagID)
		}
	}
	return rows.Err()
}
