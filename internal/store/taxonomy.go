package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"recipeforge/internal/content"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/textutil"
)

const taxonomyColumns = "id, type, dimension, slug, name, description, translation_status_json, created_at, updated_at"

func scanTaxonomy(scanner rowScanner) (*content.Taxonomy, error) {
	var (
		t           content.Taxonomy
		kind        string
		dimension   string
		description sql.NullString
		translation sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(&t.ID, &kind, &dimension, &t.Slug, &t.Name, &description, &translation, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	t.Type = content.EntityType(kind)
	t.Dimension = rules.Dimension(dimension)
	t.Description = description.String
	t.CreatedAt = parseTime(createdRaw)
	t.UpdatedAt = parseTime(updatedRaw)
	if err := unmarshalJSON(translation, &t.TranslationStatus); err != nil {
		return nil, fmt.Errorf("decode translation status: %w", err)
	}
	return &t, nil
}

// CreateTaxonomy inserts a cuisine, location, tag or ingredient entry.
func (s *Store) CreateTaxonomy(ctx context.Context, entry *content.Taxonomy) error {
	if entry == nil {
		return errors.New("create taxonomy: nil entry")
	}
	if !entry.Type.IsTaxonomy() {
		return services.Validation("store", fmt.Sprintf("%q is not a taxonomy type", entry.Type))
	}
	if entry.Type == content.EntityTag {
		if _, ok := rules.ParseDimension(string(entry.Dimension)); !ok {
			return services.Validation("store", fmt.Sprintf("tag dimension %q is not recognized", entry.Dimension))
		}
	} else {
		entry.Dimension = ""
	}
	now := s.now()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Slug == "" {
		entry.Slug = textutil.Slugify(entry.Name)
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	translation, err := marshalJSON(entry.TranslationStatus, "{}")
	if err != nil {
		return err
	}
	_, err = s.execWithRetry(ctx,
		"INSERT INTO taxonomy ("+taxonomyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, string(entry.Type), string(entry.Dimension), entry.Slug, entry.Name,
		nullableString(entry.Description), translation, formatTime(now), formatTime(now),
	)
	return mapWriteError("create taxonomy", err)
}

// GetTaxonomy fetches a taxonomy entry of the given type.
func (s *Store) GetTaxonomy(ctx context.Context, kind content.EntityType, id string) (*content.Taxonomy, error) {
	ctx = ensureContext(ctx)
	row := s.conn().queryRow(ctx, "SELECT "+taxonomyColumns+" FROM taxonomy WHERE id = ? AND type = ?", id, string(kind))
	entry, err := scanTaxonomy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(string(kind), id)
	}
	if err != nil {
		return nil, fmt.Errorf("get taxonomy: %w", err)
	}
	return entry, nil
}

// ListTaxonomy lists entries of a type ordered by slug.
func (s *Store) ListTaxonomy(ctx context.Context, kind content.EntityType) ([]*content.Taxonomy, error) {
	ctx = ensureContext(ctx)
	rows, err := s.conn().query(ctx, "SELECT "+taxonomyColumns+" FROM taxonomy WHERE type = ? ORDER BY dimension, slug", string(kind))
	if err != nil {
		return nil, fmt.Errorf("list taxonomy: %w", err)
	}
	defer rows.Close()
	var entries []*content.Taxonomy
	for rows.Next() {
		entry, err := scanTaxonomy(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ResolveTagSlugs maps slugs within a dimension to tag ids. Unknown slugs are skipped.
func (s *Store) ResolveTagSlugs(ctx context.Context, dim rules.Dimension, slugs []string) ([]string, error) {
	ctx = ensureContext(ctx)
	if len(slugs) == 0 {
		return nil, nil
	}
	args := []any{string(content.EntityTag), string(dim)}
	args = append(args, stringArgs(slugs)...)
	rows, err := s.conn().query(ctx,
		"SELECT id FROM taxonomy WHERE type = ? AND dimension = ? AND slug IN ("+makePlaceholders(len(slugs))+") ORDER BY slug",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve tag slugs: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteTaxonomy removes an entry and, in the same transaction, orphans every
// collection that depended on it: rule and keys cleared, status forced to
// draft. Recipes lose the reference. The orphaned collection ids are returned.
func (s *Store) DeleteTaxonomy(ctx context.Context, kind content.EntityType, id string) ([]string, error) {
	entry, err := s.GetTaxonomy(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	var orphaned []string
	err = s.withTx(ctx, func(tx conn) error {
		orphaned = nil
		candidates, err := dependentCollections(ctx, tx, entry)
		if err != nil {
			return err
		}
		now := formatTime(s.now())
		for _, collectionID := range candidates {
			if _, err := tx.exec(ctx,
				`UPDATE collections SET rule_json = NULL, cuisine_id = NULL, location_id = NULL,
                    status = 'draft', updated_at = ? WHERE id = ?`,
				now, collectionID,
			); err != nil {
				return fmt.Errorf("orphan collection %s: %w", collectionID, err)
			}
			orphaned = append(orphaned, collectionID)
		}
		switch kind {
		case content.EntityCuisine:
			if _, err := tx.exec(ctx, "UPDATE recipes SET cuisine_id = NULL, updated_at = ? WHERE cuisine_id = ?", now, id); err != nil {
				return fmt.Errorf("clear recipe cuisine: %w", err)
			}
		case content.EntityLocation:
			if _, err := tx.exec(ctx, "UPDATE recipes SET location_id = NULL, updated_at = ? WHERE location_id = ?", now, id); err != nil {
				return fmt.Errorf("clear recipe location: %w", err)
			}
		case content.EntityTag:
			if _, err := tx.exec(ctx, "DELETE FROM recipe_tags WHERE tag_id = ?", id); err != nil {
				return fmt.Errorf("unlink tag: %w", err)
			}
		}
		if _, err := tx.exec(ctx, "DELETE FROM translations WHERE entity_type = ? AND entity_id = ?", string(kind), id); err != nil {
			return fmt.Errorf("delete translations: %w", err)
		}
		if _, err := tx.exec(ctx, "DELETE FROM taxonomy WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete taxonomy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphaned, nil
}

func dependentCollections(ctx context.Context, tx conn, entry *content.Taxonomy) ([]string, error) {
	rows, err := tx.query(ctx,
		"SELECT id, rule_json, cuisine_id, location_id FROM collections WHERE rule_json IS NOT NULL OR cuisine_id = ? OR location_id = ?",
		entry.ID, entry.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("load dependent collections: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var (
			id         string
			ruleRaw    sql.NullString
			cuisineID  sql.NullString
			locationID sql.NullString
		)
		if err := rows.Scan(&id, &ruleRaw, &cuisineID, &locationID); err != nil {
			return nil, err
		}
		var rule rules.Rule
		if ruleRaw.Valid && ruleRaw.String != "" {
			decoded, err := rules.Decode([]byte(ruleRaw.String))
			if err == nil {
				rule = decoded
			}
		}
		if dependsOn(entry, rule, cuisineID.String, locationID.String) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

func dependsOn(entry *content.Taxonomy, rule rules.Rule, cuisineID, locationID string) bool {
	switch entry.Type {
	case content.EntityCuisine:
		if cuisineID == entry.ID {
			return true
		}
		for _, part := range rules.Flatten(rule) {
			if r, ok := part.(rules.CuisineRule); ok && (r.CuisineID == entry.ID || (cuisineID == "" && r.CuisineID == "" && r.Value == entry.Slug)) {
				return true
			}
		}
	case content.EntityLocation:
		if locationID == entry.ID {
			return true
		}
		for _, part := range rules.Flatten(rule) {
			if r, ok := part.(rules.RegionRule); ok && (r.LocationID == entry.ID || (locationID == "" && r.LocationID == "" && r.Value == entry.Slug)) {
				return true
			}
		}
	case content.EntityTag:
		return rules.ReferencesTag(rule, entry.Dimension, entry.Slug)
	}
	return false
}
