package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/metrics"
	"recipeforge/internal/notifications"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
)

// Execute processes a running job's remaining names one at a time, starting
// at its cursor. Each item's failure is recorded and the batch continues.
// A pause or cancel observed between items stops the loop; a cancel also
// interrupts the in-flight call, and that item is not recorded so a later
// resume would retry it. Errors returned are system-level: the job keeps its
// last stored status.
func (s *Service) Execute(ctx context.Context, jobID string) error {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, s.logger)

	job, err := s.store.GetGenerateJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != content.GenerateRunning {
		logger.Debug("generation job not running; nothing to execute", logging.String("status", string(job.Status)))
		return nil
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if !s.inflight.Register(jobID, cancel) {
		logger.Warn("generation job already executing", logging.String(logging.FieldEventType, "job_duplicate_execute"))
		return nil
	}
	defer s.inflight.Release(jobID)

	constraints, tagIDs, err := s.resolveConstraints(jobCtx, job.LockedTags)
	if err != nil {
		return err
	}

	for job.Cursor() < job.TotalCount {
		current, err := s.store.GetGenerateJob(jobCtx, jobID)
		if err != nil {
			return s.interrupted(ctx, jobCtx, err)
		}
		if current.Status != content.GenerateRunning {
			logger.Info("generation job stopped between items",
				logging.String(logging.FieldEventType, "job_stopped"),
				logging.String("status", string(current.Status)),
				logging.Int("cursor", current.Cursor()),
			)
			return nil
		}
		job = current

		index := job.Cursor()
		name := job.RecipeNames[index]
		result, recipe, err := s.generateItem(jobCtx, logger, job, index, name, constraints, tagIDs)
		if err != nil {
			return s.interrupted(ctx, jobCtx, err)
		}
		updated, err := s.store.RecordGenerateItem(ctx, jobID, result, recipe)
		if err != nil {
			return err
		}
		job = updated
	}

	return s.finish(ctx, logger, job)
}

// interrupted turns an aborted loop into the right outcome: nil when the
// job was cancelled by an operator, otherwise the error.
func (s *Service) interrupted(ctx, jobCtx context.Context, err error) error {
	if errors.Is(context.Cause(jobCtx), errOperatorCancel) {
		logging.WithContext(ctx, s.logger).Info("generation job interrupted by cancel",
			logging.String(logging.FieldEventType, "job_interrupted"),
		)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// generateItem runs one collaborator call under the per-call deadline. A
// returned error means the item must not be recorded because the job itself
// was interrupted.
func (s *Service) generateItem(
	jobCtx context.Context,
	logger *slog.Logger,
	job *content.GenerateJob,
	index int,
	name string,
	constraints Constraints,
	tagIDs []string,
) (content.ItemResult, *content.Recipe, error) {
	result := content.ItemResult{Index: index, Name: name}

	callCtx, cancel := context.WithTimeout(jobCtx, s.callTimeout)
	started := time.Now()
	draft, err := s.generator.Generate(callCtx, Request{Name: name, Constraints: constraints})
	cancel()
	metrics.ObserveCollaborator("generator", started, err)
	if jobCtx.Err() != nil {
		return result, nil, context.Cause(jobCtx)
	}
	result.FinishedAt = time.Now().UTC()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = services.Wrap(services.ErrTimeout, "generation", "generate", fmt.Sprintf("no reply within %s", s.callTimeout), err)
		}
		result.Error = services.Message(err)
		metrics.GenerateItems.WithLabelValues("failed").Inc()
		logging.WarnWithContext(logger, "generation item failed", "item_failed",
			logging.Int("index", index),
			logging.String("name", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the batch continues; check the collaborator and retry the name in a new job"),
		)
		return result, nil, nil
	}

	recipe := s.buildRecipe(job, draft, tagIDs)
	result.ImageFails = s.attachImages(jobCtx, logger, recipe)
	if jobCtx.Err() != nil {
		return result, nil, context.Cause(jobCtx)
	}
	result.Success = true
	metrics.GenerateItems.WithLabelValues("success").Inc()
	logger.Info("generation item succeeded",
		logging.String(logging.FieldEventType, "item_succeeded"),
		logging.Int("index", index),
		logging.String("name", name),
		logging.Int("image_failures", result.ImageFails),
	)
	return result, recipe, nil
}

func (s *Service) buildRecipe(job *content.GenerateJob, draft *Draft, tagIDs []string) *content.Recipe {
	recipe := &content.Recipe{
		Title:        draft.Title,
		Summary:      draft.Summary,
		Ingredients:  draft.Ingredients,
		Steps:        draft.Steps,
		CuisineID:    job.LockedTags.CuisineID,
		LocationID:   job.LockedTags.LocationID,
		TagIDs:       append([]string(nil), tagIDs...),
		Status:       content.RecipeDraft,
		ReviewStatus: content.ReviewPending,
		Source:       content.SourceAI,
	}
	if job.LockedTags.EffectiveReviewMode() == content.ReviewAuto {
		recipe.Status = content.RecipePublished
		recipe.ReviewStatus = content.ReviewApproved
	}
	return recipe
}

// attachImages requests one image per step. Failures are counted and never
// fail the item.
func (s *Service) attachImages(ctx context.Context, logger *slog.Logger, recipe *content.Recipe) int {
	if s.images == nil {
		return 0
	}
	failures := 0
	for i := range recipe.Steps {
		if ctx.Err() != nil {
			return failures
		}
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		url, err := s.images.GenerateImage(callCtx, ImageRequest{
			RecipeTitle: recipe.Title,
			StepNumber:  i + 1,
			Text:        recipe.Steps[i].Text,
		})
		cancel()
		if err != nil {
			failures++
			metrics.ImageFailures.Inc()
			logger.Debug("step image failed", logging.Int("step", i+1), logging.Error(err))
			continue
		}
		recipe.Steps[i].ImageURL = url
	}
	return failures
}

// resolveConstraints turns locked ids and slugs into names for the prompt
// and tag ids for the produced recipes.
func (s *Service) resolveConstraints(ctx context.Context, locked content.LockedTags) (Constraints, []string, error) {
	constraints := Constraints{Tags: locked.Tags}
	if locked.CuisineID != "" {
		entry, err := s.store.GetTaxonomy(ctx, content.EntityCuisine, locked.CuisineID)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			return constraints, nil, err
		}
		if entry != nil {
			constraints.Cuisine = entry.Name
		}
	}
	if locked.LocationID != "" {
		entry, err := s.store.GetTaxonomy(ctx, content.EntityLocation, locked.LocationID)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			return constraints, nil, err
		}
		if entry != nil {
			constraints.Location = entry.Name
		}
	}
	var tagIDs []string
	for _, dim := range rules.Dimensions() {
		slugs := locked.Tags[dim]
		if len(slugs) == 0 {
			continue
		}
		ids, err := s.store.ResolveTagSlugs(ctx, dim, slugs)
		if err != nil {
			return constraints, nil, err
		}
		tagIDs = append(tagIDs, ids...)
	}
	return constraints, tagIDs, nil
}

// finish moves the job from running to its final status. The compare-and-set
// leaves an operator cancel that raced the last item untouched.
func (s *Service) finish(ctx context.Context, logger *slog.Logger, job *content.GenerateJob) error {
	final := job.FinalStatus()
	opts := store.GenerateTransition{MarkCompleted: true}
	if final == content.GenerateFailed {
		message := fmt.Sprintf("all %d items failed", job.TotalCount)
		opts.ErrorMessage = &message
	}
	moved, err := s.store.TransitionGenerateJob(ctx, job.ID, []content.GenerateStatus{content.GenerateRunning}, final, opts)
	if err != nil {
		return err
	}
	if !moved {
		logger.Info("generation job changed status before completion; leaving it", logging.String(logging.FieldEventType, "job_finish_skipped"))
		return nil
	}
	metrics.GenerateJobsFinished.WithLabelValues(string(final)).Inc()
	logger.Info("generation job finished",
		logging.String(logging.FieldEventType, "job_finished"),
		logging.String("status", string(final)),
		logging.Int("success", job.SuccessCount),
		logging.Int("failed", job.FailedCount),
	)
	if err := s.notifier.Publish(ctx, notifications.EventGenerateJobFinished, notifications.Payload{
		"jobId":   job.ID,
		"status":  string(final),
		"success": job.SuccessCount,
		"failed":  job.FailedCount,
		"total":   job.TotalCount,
	}); err != nil {
		logger.Debug("generation notification failed", logging.Error(err))
	}
	return nil
}
