package generation

import (
	"context"
	"errors"
	"fmt"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/metrics"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
	"recipeforge/internal/textutil"
	"recipeforge/internal/validation"
)

// CreateRequest is the input of Create.
type CreateRequest struct {
	SourceType   content.SourceType `json:"sourceType" validate:"required,oneof=collection manual"`
	CollectionID string             `json:"collectionId" validate:"required_if=SourceType collection"`
	RecipeNames  []string           `json:"recipeNames" validate:"required,min=1,dive,notblank"`
	LockedTags   content.LockedTags `json:"lockedTags"`
}

// CreateResult reports the created job and what de-duplication removed.
type CreateResult struct {
	Job          *content.GenerateJob `json:"job"`
	DroppedCount int                  `json:"droppedCount"`
	DroppedNames []string             `json:"droppedNames,omitempty"`
}

// Create validates and de-duplicates the requested names and stores a new
// pending job. Names that already exist as recipe titles, and repeats within
// the request, are dropped. When every name is dropped the request fails
// validation. A second active job for the same collection is a conflict.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	if len(req.RecipeNames) > s.maxNames {
		return nil, services.Validation("generation", fmt.Sprintf("recipeNames must contain at most %d items", s.maxNames))
	}
	if req.SourceType == content.SourceManual {
		req.CollectionID = ""
	}
	locked, err := s.checkLockedTags(ctx, req)
	if err != nil {
		return nil, err
	}

	names, repeats := textutil.NormalizeNames(req.RecipeNames)
	existing, err := s.store.ExistingTitles(ctx, names)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "generation", "dedup", "lookup existing titles", err)
	}
	kept := make([]string, 0, len(names))
	var dropped []string
	for _, name := range names {
		if _, ok := existing[name]; ok {
			dropped = append(dropped, name)
			continue
		}
		kept = append(kept, name)
	}
	if len(kept) == 0 {
		return nil, services.Validation("generation", "every recipe name already exists")
	}

	job := &content.GenerateJob{
		SourceType:   req.SourceType,
		CollectionID: req.CollectionID,
		RecipeNames:  kept,
		LockedTags:   locked,
	}
	if err := s.store.InsertGenerateJob(ctx, job); err != nil {
		return nil, err
	}
	metrics.GenerateJobsCreated.WithLabelValues(string(job.SourceType)).Inc()
	result := &CreateResult{Job: job, DroppedCount: repeats + len(dropped), DroppedNames: dropped}

	logger := logging.WithContext(services.WithJobID(ctx, job.ID), s.logger)
	logger.Info("generation job created",
		logging.String(logging.FieldEventType, "job_created"),
		logging.String(logging.FieldCollectionID, job.CollectionID),
		logging.Int("total", job.TotalCount),
		logging.Int("dropped", result.DroppedCount),
	)

	if s.autoStart {
		started, err := s.Control(ctx, job.ID, ActionStart)
		if err != nil {
			logging.WarnWithContext(logger, "auto start failed", "job_autostart_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "start the job manually once the worker pool is reachable"),
			)
		} else {
			result.Job = started
		}
	}
	return result, nil
}

// checkLockedTags validates the locked constraints and, for collection jobs,
// inherits the collection's cuisine and location when none are given.
func (s *Service) checkLockedTags(ctx context.Context, req CreateRequest) (content.LockedTags, error) {
	locked := req.LockedTags
	switch locked.ReviewMode {
	case "", content.ReviewManual, content.ReviewAuto:
	default:
		return locked, services.Validation("generation", fmt.Sprintf("lockedTags.reviewMode %q must be manual or auto", locked.ReviewMode))
	}
	for dim, slugs := range locked.Tags {
		if _, ok := rules.ParseDimension(string(dim)); !ok {
			return locked, services.Validation("generation", fmt.Sprintf("lockedTags.tags has unknown dimension %q", dim))
		}
		if len(slugs) == 0 {
			delete(locked.Tags, dim)
		}
	}
	if req.SourceType == content.SourceCollection {
		collection, err := s.store.GetCollection(ctx, req.CollectionID)
		if err != nil {
			return locked, err
		}
		if locked.CuisineID == "" {
			locked.CuisineID = collection.CuisineID
		}
		if locked.LocationID == "" {
			locked.LocationID = collection.LocationID
		}
	}
	for kind, id := range map[content.EntityType]string{
		content.EntityCuisine:  locked.CuisineID,
		content.EntityLocation: locked.LocationID,
	} {
		if id == "" {
			continue
		}
		if _, err := s.store.GetTaxonomy(ctx, kind, id); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return locked, services.Validation("generation", fmt.Sprintf("locked %s %s does not exist", kind, id))
			}
			return locked, err
		}
	}
	return locked, nil
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, id string) (*content.GenerateJob, error) {
	return s.store.GetGenerateJob(ctx, id)
}

// List returns jobs matching filter, newest first.
func (s *Service) List(ctx context.Context, filter store.GenerateJobFilter) ([]*content.GenerateJob, error) {
	return s.store.ListGenerateJobs(ctx, filter)
}
