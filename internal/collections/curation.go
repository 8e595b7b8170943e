package collections

import (
	"context"
	"slices"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
)

// Pin appends recipes to the pinned list and removes them from the
// excluded list. Already pinned recipes keep their position.
func (s *Service) Pin(ctx context.Context, id string, recipeIDs []string) (*content.Collection, error) {
	if err := s.checkRecipes(ctx, recipeIDs); err != nil {
		return nil, err
	}
	return s.curate(ctx, id, "pin", func(pinned, excluded []string) ([]string, []string, error) {
		for _, recipeID := range recipeIDs {
			if !slices.Contains(pinned, recipeID) {
				pinned = append(pinned, recipeID)
			}
		}
		return pinned, without(excluded, recipeIDs), nil
	})
}

// Unpin removes recipes from the pinned list.
func (s *Service) Unpin(ctx context.Context, id string, recipeIDs []string) (*content.Collection, error) {
	return s.curate(ctx, id, "unpin", func(pinned, excluded []string) ([]string, []string, error) {
		return without(pinned, recipeIDs), excluded, nil
	})
}

// Exclude adds recipes to the excluded list and removes them from the
// pinned list.
func (s *Service) Exclude(ctx context.Context, id string, recipeIDs []string) (*content.Collection, error) {
	if err := s.checkRecipes(ctx, recipeIDs); err != nil {
		return nil, err
	}
	return s.curate(ctx, id, "exclude", func(pinned, excluded []string) ([]string, []string, error) {
		for _, recipeID := range recipeIDs {
			if !slices.Contains(excluded, recipeID) {
				excluded = append(excluded, recipeID)
			}
		}
		return without(pinned, recipeIDs), excluded, nil
	})
}

// Include removes recipes from the excluded list.
func (s *Service) Include(ctx context.Context, id string, recipeIDs []string) (*content.Collection, error) {
	return s.curate(ctx, id, "include", func(pinned, excluded []string) ([]string, []string, error) {
		return pinned, without(excluded, recipeIDs), nil
	})
}

// Reorder replaces the pinned order. expected must equal the stored order
// and next must hold the same ids; a stale expected order is a conflict.
func (s *Service) Reorder(ctx context.Context, id string, expected, next []string) (*content.Collection, error) {
	if !samePins(expected, next) {
		return nil, services.Validation("collections", "order must contain exactly the pinned recipe ids")
	}
	collection, err := s.store.ReorderPinned(ctx, id, expected, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info("collection pins reordered",
		logging.String(logging.FieldEventType, "collection_reordered"),
		logging.String(logging.FieldCollectionID, id),
	)
	return collection, nil
}

// MembersOptions narrows Members.
type MembersOptions struct {
	PublishedOnly bool
	Limit         int
}

// Members lists the collection's recipes: pinned recipes first in pinned
// order, then rule matches newest first.
func (s *Service) Members(ctx context.Context, id string, opts MembersOptions) ([]*content.Recipe, error) {
	collection, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	pred, err := s.predicate(ctx, collection)
	if err != nil {
		return nil, err
	}
	recipes, err := s.store.FindMembers(ctx, pred, store.MemberFilter{PublishedOnly: opts.PublishedOnly})
	if err != nil {
		return nil, err
	}
	return pinnedFirst(recipes, pred, opts.Limit), nil
}

func pinnedFirst(recipes []*content.Recipe, pred rules.Predicate, limit int) []*content.Recipe {
	rank := make(map[string]int)
	for i, id := range pred.Pinned() {
		rank[id] = i
	}
	slices.SortStableFunc(recipes, func(a, b *content.Recipe) int {
		ra, aPinned := rank[a.ID]
		rb, bPinned := rank[b.ID]
		switch {
		case aPinned && bPinned:
			return ra - rb
		case aPinned:
			return -1
		case bPinned:
			return 1
		}
		return 0
	})
	if limit > 0 && len(recipes) > limit {
		recipes = recipes[:limit]
	}
	return recipes
}

func (s *Service) curate(ctx context.Context, id, op string, fn store.CurationFunc) (*content.Collection, error) {
	collection, err := s.store.UpdateCuration(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	s.logger.Info("collection curated",
		logging.String(logging.FieldEventType, "collection_"+op),
		logging.String(logging.FieldCollectionID, id),
		logging.Int("pinned", len(collection.PinnedRecipeIDs)),
		logging.Int("excluded", len(collection.ExcludedRecipeIDs)),
	)
	return collection, nil
}

func (s *Service) checkRecipes(ctx context.Context, recipeIDs []string) error {
	if len(recipeIDs) == 0 {
		return services.Validation("collections", "recipeIds must not be empty")
	}
	for _, recipeID := range recipeIDs {
		if recipeID == "" {
			return services.Validation("collections", "recipeIds must not contain blanks")
		}
		if _, err := s.store.GetRecipe(ctx, recipeID); err != nil {
			return err
		}
	}
	return nil
}

func without(values, drop []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if !slices.Contains(drop, value) {
			out = append(out, value)
		}
	}
	return out
}

// samePins reports whether next is a permutation of expected without
// repeats.
func samePins(expected, next []string) bool {
	if len(expected) != len(next) {
		return false
	}
	a := slices.Sorted(slices.Values(expected))
	b := slices.Sorted(slices.Values(next))
	if len(slices.Compact(slices.Clone(a))) != len(a) {
		return false
	}
	return slices.Equal(a, b)
}
