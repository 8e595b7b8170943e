package translation

import (
	"context"
	"fmt"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/metrics"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
	"recipeforge/internal/validation"
)

// CreateRequest is the input of Create. A zero priority uses the default.
type CreateRequest struct {
	EntityType content.EntityType `json:"entityType" validate:"required"`
	EntityID   string             `json:"entityId" validate:"required"`
	TargetLang string             `json:"targetLang" validate:"required,bcp47"`
	Priority   int                `json:"priority" validate:"omitempty,gte=1,lte=10"`
}

// CreateResult reports the job and whether it was newly created.
type CreateResult struct {
	Job     *content.TranslationJob `json:"job"`
	Created bool                    `json:"created"`
}

// BatchRequest is the input of CreateBatch.
type BatchRequest struct {
	EntityType content.EntityType `json:"entityType" validate:"required"`
	EntityIDs  []string           `json:"entityIds" validate:"required,min=1,max=500,dive,required"`
	TargetLang string             `json:"targetLang" validate:"required,bcp47"`
	Priority   int                `json:"priority" validate:"omitempty,gte=1,lte=10"`
}

// Skip explains why a batch entry did not create a job.
type Skip struct {
	EntityID string `json:"entityId"`
	Reason   string `json:"reason"`
	JobID    string `json:"jobId,omitempty"`
}

// BatchResult lists the jobs created and the entries skipped.
type BatchResult struct {
	Created []*content.TranslationJob `json:"created"`
	Skipped []Skip                    `json:"skipped"`
}

const (
	skipActive   = "already pending or processing"
	skipNotFound = "entity not found"
	skipRepeated = "repeated in request"
)

// Create returns the pending or processing job for the tuple, creating one
// if none exists.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	lang, err := s.checkTarget(req.EntityType, req.TargetLang)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.EntityExists(ctx, req.EntityType, req.EntityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, services.Wrap(services.ErrNotFound, "translation", "create",
			fmt.Sprintf("%s %s not found", req.EntityType, req.EntityID), nil)
	}
	job, created, err := s.insert(ctx, req.EntityType, req.EntityID, lang, req.Priority)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Job: job, Created: created}, nil
}

// CreateBatch creates one job per entity id. Entities that already have an
// active job for the language, that do not exist, or that repeat an earlier
// id are reported as skipped.
func (s *Service) CreateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	lang, err := s.checkTarget(req.EntityType, req.TargetLang)
	if err != nil {
		return nil, err
	}
	result := &BatchResult{Created: []*content.TranslationJob{}, Skipped: []Skip{}}
	seen := make(map[string]struct{}, len(req.EntityIDs))
	for _, id := range req.EntityIDs {
		if _, ok := seen[id]; ok {
			result.Skipped = append(result.Skipped, Skip{EntityID: id, Reason: skipRepeated})
			continue
		}
		seen[id] = struct{}{}

		exists, err := s.store.EntityExists(ctx, req.EntityType, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			result.Skipped = append(result.Skipped, Skip{EntityID: id, Reason: skipNotFound})
			continue
		}
		job, created, err := s.insert(ctx, req.EntityType, id, lang, req.Priority)
		if err != nil {
			return nil, err
		}
		if !created {
			result.Skipped = append(result.Skipped, Skip{EntityID: id, Reason: skipActive, JobID: job.ID})
			continue
		}
		result.Created = append(result.Created, job)
	}
	s.logger.Info("translation batch created",
		logging.String(logging.FieldEventType, "batch_created"),
		logging.String(logging.FieldEntityType, string(req.EntityType)),
		logging.String("target_lang", lang),
		logging.Int("created", len(result.Created)),
		logging.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (s *Service) checkTarget(entityType content.EntityType, targetLang string) (string, error) {
	if _, ok := content.ParseEntityType(string(entityType)); !ok {
		return "", services.Validation("translation", fmt.Sprintf("entityType %q is not a translatable entity", entityType))
	}
	lang, err := validation.LanguageTag(targetLang)
	if err != nil {
		return "", err
	}
	if lang == s.sourceLang {
		return "", services.Validation("translation", fmt.Sprintf("targetLang %s is the source language", lang))
	}
	return lang, nil
}

func (s *Service) insert(ctx context.Context, entityType content.EntityType, entityID, lang string, priority int) (*content.TranslationJob, bool, error) {
	if priority == 0 {
		priority = s.defaultPriority
	}
	job, created, err := s.store.InsertTranslationJob(ctx, &content.TranslationJob{
		EntityType: entityType,
		EntityID:   entityID,
		TargetLang: lang,
		Priority:   priority,
		MaxRetries: s.maxRetries,
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		return job, false, nil
	}
	metrics.TranslationJobsCreated.WithLabelValues(string(entityType)).Inc()
	logger := logging.WithContext(services.WithJobID(ctx, job.ID), s.logger)
	logger.Info("translation job created",
		logging.String(logging.FieldEventType, "job_created"),
		logging.String(logging.FieldEntityType, string(entityType)),
		logging.String(logging.FieldEntityID, entityID),
		logging.String("target_lang", lang),
		logging.Int("priority", priority),
	)
	if err := s.store.SetEntityTranslationStatus(ctx, entityType, entityID, lang, string(content.TranslationPending)); err != nil {
		logging.WarnWithContext(logger, "entity translation status not updated", "translation_status_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the status map is refreshed when the job finishes"),
		)
	}
	return job, true, nil
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, id string) (*content.TranslationJob, error) {
	return s.store.GetTranslationJob(ctx, id)
}

// List returns jobs matching filter in dequeue order.
func (s *Service) List(ctx context.Context, filter store.TranslationJobFilter) ([]*content.TranslationJob, error) {
	return s.store.ListTranslationJobs(ctx, filter)
}
