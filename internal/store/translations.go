package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"recipeforge/internal/content"
)

// entityTable returns the table and extra predicate holding an entity type.
func entityTable(entityType content.EntityType) (string, string, []any, error) {
	switch entityType {
	case content.EntityRecipe:
		return "recipes", "", nil, nil
	case content.EntityCollection:
		return "collections", "", nil, nil
	case content.EntityCuisine, content.EntityLocation, content.EntityTag, content.EntityIngredient:
		return "taxonomy", " AND type = ?", []any{string(entityType)}, nil
	default:
		return "", "", nil, fmt.Errorf("unsupported entity type %q", entityType)
	}
}

// EntityExists reports whether an entity of the given type exists.
func (s *Store) EntityExists(ctx context.Context, entityType content.EntityType, id string) (bool, error) {
	ctx = ensureContext(ctx)
	table, extra, extraArgs, err := entityTable(entityType)
	if err != nil {
		return false, err
	}
	args := append([]any{id}, extraArgs...)
	var count int
	if err := s.conn().queryRow(ctx, "SELECT COUNT(1) FROM "+table+" WHERE id = ?"+extra, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("entity exists: %w", err)
	}
	return count > 0, nil
}

// LoadSource returns the translatable fields of an entity as a JSON object.
// Recipes expose title, summary, ingredients and steps; collections title and
// description; taxonomy entries name and description.
func (s *Store) LoadSource(ctx context.Context, entityType content.EntityType, id string) (map[string]any, error) {
	var source any
	switch entityType {
	case content.EntityRecipe:
		recipe, err := s.GetRecipe(ctx, id)
		if err != nil {
			return nil, err
		}
		source = struct {
			Title       string                   `json:"title"`
			Summary     string                   `json:"summary"`
			Ingredients []content.IngredientLine `json:"ingredients"`
			Steps       []content.Step           `json:"steps"`
		}{recipe.Title, recipe.Summary, recipe.Ingredients, recipe.Steps}
	case content.EntityCollection:
		collection, err := s.GetCollection(ctx, id)
		if err != nil {
			return nil, err
		}
		source = struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}{collection.Title, collection.Description}
	default:
		if !entityType.IsTaxonomy() {
			return nil, fmt.Errorf("load source: unsupported entity type %q", entityType)
		}
		entry, err := s.GetTaxonomy(ctx, entityType, id)
		if err != nil {
			return nil, err
		}
		source = struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}{entry.Name, entry.Description}
	}
	data, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("encode source: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	return fields, nil
}

// SetEntityTranslationStatus records the status of one language in the
// entity's translation-status map.
func (s *Store) SetEntityTranslationStatus(ctx context.Context, entityType content.EntityType, id, lang, status string) error {
	ctx = ensureContext(ctx)
	return s.withTx(ctx, func(tx conn) error {
		return setEntityTranslationStatus(ctx, s, tx, entityType, id, lang, status)
	})
}

func setEntityTranslationStatus(ctx context.Context, s *Store, tx conn, entityType content.EntityType, id, lang, status string) error {
	table, extra, extraArgs, err := entityTable(entityType)
	if err != nil {
		return err
	}
	args := append([]any{id}, extraArgs...)
	var raw sql.NullString
	err = tx.queryRow(ctx, "SELECT translation_status_json FROM "+table+" WHERE id = ?"+extra, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(string(entityType), id)
	}
	if err != nil {
		return fmt.Errorf("read translation status: %w", err)
	}
	statuses := map[string]string{}
	if err := unmarshalJSON(raw, &statuses); err != nil {
		return fmt.Errorf("decode translation status: %w", err)
	}
	if statuses == nil {
		statuses = map[string]string{}
	}
	statuses[lang] = status
	encoded, err := json.Marshal(statuses)
	if err != nil {
		return err
	}
	updateArgs := append([]any{string(encoded), formatTime(s.now()), id}, extraArgs...)
	if _, err := tx.exec(ctx, "UPDATE "+table+" SET translation_status_json = ?, updated_at = ? WHERE id = ?"+extra, updateArgs...); err != nil {
		return fmt.Errorf("write translation status: %w", err)
	}
	return nil
}

// CompleteTranslation stores the translated variant, marks the entity's
// language completed and moves the job from processing to completed, all in
// one transaction. It reports false without writing anything when the job
// is no longer processing (for example after an operator cancel).
func (s *Store) CompleteTranslation(ctx context.Context, jobID string, translation content.Translation) (bool, error) {
	ctx = ensureContext(ctx)
	encoded, err := json.Marshal(translation.Content)
	if err != nil {
		return false, fmt.Errorf("encode translation: %w", err)
	}
	var completed bool
	err = s.withTx(ctx, func(tx conn) error {
		completed = false
		empty := ""
		ok, err := transitionTranslationJob(ctx, s, tx, jobID,
			[]content.TranslationStatus{content.TranslationProcessing}, content.TranslationCompleted,
			TranslationTransition{
				ErrorMessage:   &empty,
				SetNextAttempt: true,
				QualityScore:   translation.QualityScore,
				MarkCompleted:  true,
			})
		if err != nil || !ok {
			return err
		}
		now := formatTime(s.now())
		if _, err := tx.exec(ctx,
			`INSERT INTO translations (entity_type, entity_id, lang, content_json, quality_score, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (entity_type, entity_id, lang) DO UPDATE SET
                content_json = excluded.content_json,
                quality_score = excluded.quality_score,
                updated_at = excluded.updated_at`,
			string(translation.EntityType), translation.EntityID, translation.Lang, string(encoded),
			nullableFloat(translation.QualityScore), now, now,
		); err != nil {
			return fmt.Errorf("upsert translation: %w", err)
		}
		if err := setEntityTranslationStatus(ctx, s, tx, translation.EntityType, translation.EntityID, translation.Lang, string(content.TranslationCompleted)); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}

// GetTranslation fetches a stored translated variant.
func (s *Store) GetTranslation(ctx context.Context, entityType content.EntityType, entityID, lang string) (*content.Translation, error) {
	ctx = ensureContext(ctx)
	var (
		raw        sql.NullString
		quality    sql.NullFloat64
		updatedRaw string
	)
	err := s.conn().queryRow(ctx,
		"SELECT content_json, quality_score, updated_at FROM translations WHERE entity_type = ? AND entity_id = ? AND lang = ?",
		string(entityType), entityID, lang,
	).Scan(&raw, &quality, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("translation", fmt.Sprintf("%s/%s/%s", entityType, entityID, lang))
	}
	if err != nil {
		return nil, fmt.Errorf("get translation: %w", err)
	}
	translation := &content.Translation{
		EntityType:   entityType,
		EntityID:     entityID,
		Lang:         lang,
		QualityScore: parseNullFloat(quality),
		UpdatedAt:    parseTime(updatedRaw),
	}
	if err := unmarshalJSON(raw, &translation.Content); err != nil {
		return nil, fmt.Errorf("decode translation: %w", err)
	}
	return translation, nil
}
