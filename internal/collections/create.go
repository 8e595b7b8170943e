package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/validation"
)

// CreateRequest is the input of Create. Zero thresholds use the configured
// defaults.
type CreateRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Rule        rules.Rule `json:"-"`
	CuisineID   string     `json:"cuisineId"`
	LocationID  string     `json:"locationId"`
	MinRequired int        `json:"minRequired" validate:"gte=0"`
	TargetCount int        `json:"targetCount" validate:"gte=0"`
}

// Create stores a draft collection after checking its rule and keys.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*content.Collection, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	if req.Rule != nil {
		if result := rules.Validate(req.Rule); !result.Valid {
			return nil, services.Validation("collections", strings.Join(result.Errors, "; "))
		}
	}
	for kind, id := range map[content.EntityType]string{
		content.EntityCuisine:  req.CuisineID,
		content.EntityLocation: req.LocationID,
	} {
		if id == "" {
			continue
		}
		if _, err := s.store.GetTaxonomy(ctx, kind, id); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return nil, services.Validation("collections", fmt.Sprintf("%s %s does not exist", kind, id))
			}
			return nil, err
		}
	}
	if req.MinRequired <= 0 {
		req.MinRequired = s.defaultMinRequired
	}
	if req.TargetCount <= 0 {
		req.TargetCount = max(s.defaultTargetCount, req.MinRequired)
	}
	if req.TargetCount < req.MinRequired {
		return nil, services.Validation("collections", "targetCount must be at least minRequired")
	}

	collection := &content.Collection{
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Rule:        req.Rule,
		CuisineID:   req.CuisineID,
		LocationID:  req.LocationID,
		MinRequired: req.MinRequired,
		TargetCount: req.TargetCount,
	}
	if err := s.store.CreateCollection(ctx, collection); err != nil {
		return nil, err
	}
	s.logger.Info("collection created",
		logging.String(logging.FieldEventType, "collection_created"),
		logging.String(logging.FieldCollectionID, collection.ID),
		logging.String("rule", rules.Describe(collection.Rule)),
	)
	return collection, nil
}

// Get returns a collection by id.
func (s *Service) Get(ctx context.Context, id string) (*content.Collection, error) {
	return s.store.GetCollection(ctx, id)
}

// List returns collections, optionally filtered by status.
func (s *Service) List(ctx context.Context, status content.CollectionStatus) ([]*content.Collection, error) {
	return s.store.ListCollections(ctx, status)
}
