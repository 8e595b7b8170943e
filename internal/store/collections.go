package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recipeforge/internal/content"
	"recipeforge/internal/rules"
	"recipeforge/internal/textutil"
)

const collectionColumns = "id, slug, title, description, rule_json, cuisine_id, location_id, pinned_json, excluded_json, min_required, target_count, cached_published_count, cached_at, status, published_at, translation_status_json, created_at, updated_at"

func scanCollection(scanner rowScanner) (*content.Collection, error) {
	var (
		c           content.Collection
		description sql.NullString
		ruleRaw     sql.NullString
		cuisineID   sql.NullString
		locationID  sql.NullString
		pinned      sql.NullString
		excluded    sql.NullString
		cachedAt    sql.NullString
		status      string
		publishedAt sql.NullString
		translation sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&c.ID, &c.Slug, &c.Title, &description, &ruleRaw, &cuisineID, &locationID, &pinned, &excluded,
		&c.MinRequired, &c.TargetCount, &c.CachedPublishedCount, &cachedAt, &status, &publishedAt,
		&translation, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	c.Description = description.String
	c.CuisineID = cuisineID.String
	c.LocationID = locationID.String
	c.Status = content.CollectionStatus(status)
	c.CachedAt = parseNullTime(cachedAt)
	c.PublishedAt = parseNullTime(publishedAt)
	c.CreatedAt = parseTime(createdRaw)
	c.UpdatedAt = parseTime(updatedRaw)
	if ruleRaw.Valid && ruleRaw.String != "" {
		rule, err := rules.Decode([]byte(ruleRaw.String))
		if err != nil {
			return nil, fmt.Errorf("decode collection rule: %w", err)
		}
		c.Rule = rule
	}
	if err := unmarshalJSON(pinned, &c.PinnedRecipeIDs); err != nil {
		return nil, fmt.Errorf("decode pinned ids: %w", err)
	}
	if err := unmarshalJSON(excluded, &c.ExcludedRecipeIDs); err != nil {
		return nil, fmt.Errorf("decode excluded ids: %w", err)
	}
	if err := unmarshalJSON(translation, &c.TranslationStatus); err != nil {
		return nil, fmt.Errorf("decode translation status: %w", err)
	}
	if c.PinnedRecipeIDs == nil {
		c.PinnedRecipeIDs = []string{}
	}
	if c.ExcludedRecipeIDs == nil {
		c.ExcludedRecipeIDs = []string{}
	}
	return &c, nil
}

// CreateCollection inserts a collection. Empty ID, slug and status are filled in.
func (s *Store) CreateCollection(ctx context.Context, collection *content.Collection) error {
	if collection == nil {
		return errors.New("create collection: nil collection")
	}
	now := s.now()
	if collection.ID == "" {
		collection.ID = uuid.NewString()
	}
	if collection.Slug == "" {
		collection.Slug = textutil.Slugify(collection.Title)
	}
	if collection.Status == "" {
		collection.Status = content.CollectionDraft
	}
	collection.CreatedAt = now
	collection.UpdatedAt = now
	ruleJSON, err := rules.Encode(collection.Rule)
	if err != nil {
		return fmt.Errorf("encode rule: %w", err)
	}
	translation, err := marshalJSON(collection.TranslationStatus, "{}")
	if err != nil {
		return err
	}
	var ruleArg any
	if ruleJSON != nil {
		ruleArg = string(ruleJSON)
	}
	_, err = s.execWithRetry(ctx,
		"INSERT INTO collections ("+collectionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		collection.ID, collection.Slug, collection.Title, nullableString(collection.Description), ruleArg,
		nullableString(collection.CuisineID), nullableString(collection.LocationID),
		stringList(collection.PinnedRecipeIDs), stringList(collection.ExcludedRecipeIDs),
		collection.MinRequired, collection.TargetCount, collection.CachedPublishedCount,
		nullableTime(collection.CachedAt), string(collection.Status), nullableTime(collection.PublishedAt),
		translation, formatTime(now), formatTime(now),
	)
	return mapWriteError("create collection", err)
}

// GetCollection fetches a collection by id.
func (s *Store) GetCollection(ctx context.Context, id string) (*content.Collection, error) {
	return getCollection(ensureContext(ctx), s.conn(), id)
}

func getCollection(ctx context.Context, c conn, id string) (*content.Collection, error) {
	row := c.queryRow(ctx, "SELECT "+collectionColumns+" FROM collections WHERE id = ?", id)
	collection, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("collection", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return collection, nil
}

// ListCollections lists collections, optionally filtered by status.
func (s *Store) ListCollections(ctx context.Context, status content.CollectionStatus) ([]*content.Collection, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + collectionColumns + " FROM collections"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY slug"
	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()
	var out []*content.Collection
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, collection)
	}
	return out, rows.Err()
}

// CurationFunc receives the current pinned and excluded lists and returns the
// replacements.
type CurationFunc func(pinned, excluded []string) ([]string, []string, error)

// UpdateCuration applies fn to the collection's curation lists inside a
// transaction and returns the updated collection.
func (s *Store) UpdateCuration(ctx context.Context, id string, fn CurationFunc) (*content.Collection, error) {
	ctx = ensureContext(ctx)
	var updated *content.Collection
	err := s.withTx(ctx, func(tx conn) error {
		current, err := getCollection(ctx, tx, id)
		if err != nil {
			return err
		}
		pinned, excluded, err := fn(current.PinnedRecipeIDs, current.ExcludedRecipeIDs)
		if err != nil {
			return err
		}
		if _, err := tx.exec(ctx,
			"UPDATE collections SET pinned_json = ?, excluded_json = ?, updated_at = ? WHERE id = ?",
			stringList(pinned), stringList(excluded), formatTime(s.now()), id,
		); err != nil {
			return fmt.Errorf("update curation: %w", err)
		}
		updated, err = getCollection(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReorderPinned replaces the pinned order only if the stored order still
// equals expected. A mismatch is reported as a conflict.
func (s *Store) ReorderPinned(ctx context.Context, id string, expected, next []string) (*content.Collection, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE collections SET pinned_json = ?, updated_at = ? WHERE id = ? AND pinned_json = ?",
		stringList(next), formatTime(s.now()), id, stringList(expected),
	)
	if err != nil {
		return nil, fmt.Errorf("reorder pinned: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.GetCollection(ctx, id); err != nil {
			return nil, err
		}
		return nil, conflict("reorder pinned", "pinned order changed since it was read", nil)
	}
	return s.GetCollection(ctx, id)
}

// SetCollectionCache records a freshly computed published count.
func (s *Store) SetCollectionCache(ctx context.Context, id string, published int, at time.Time) error {
	_, err := s.execWithRetry(ctx,
		"UPDATE collections SET cached_published_count = ?, cached_at = ? WHERE id = ?",
		published, formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("set collection cache: %w", err)
	}
	return nil
}

// PublishCollection marks a collection published. PublishedAt is only set
// on the first publish.
func (s *Store) PublishCollection(ctx context.Context, id string) (*content.Collection, error) {
	now := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		"UPDATE collections SET status = 'published', published_at = COALESCE(published_at, ?), updated_at = ? WHERE id = ?",
		now, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("publish collection: %w", err)
	}
	if ok, err := affected(res); err != nil {
		return nil, err
	} else if !ok {
		return nil, notFound("collection", id)
	}
	return s.GetCollection(ctx, id)
}

// UnpublishCollection returns a collection to draft. Caches, curation lists
// and PublishedAt are kept.
func (s *Store) UnpublishCollection(ctx context.Context, id string) (*content.Collection, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE collections SET status = 'draft', updated_at = ? WHERE id = ?",
		formatTime(s.now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("unpublish collection: %w", err)
	}
	if ok, err := affected(res); err != nil {
		return nil, err
	} else if !ok {
		return nil, notFound("collection", id)
	}
	return s.GetCollection(ctx, id)
}
