package translation

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
	"recipeforge/internal/services"
	"recipeforge/internal/store"
)

var errOperatorCancel = errors.New("cancelled by operator")

var claimable = []content.TranslationStatus{content.TranslationPending, content.TranslationProcessing}

// Execute claims a pending job and translates it. A job left processing by
// an earlier crashed run is claimed again. Translator failures are recorded
// on the job; a retryable failure with retries left returns the job to
// pending and yields a RetryLater error carrying the next attempt time.
// Other returned errors are system-level and leave the job as stored.
func (s *Service) Execute(ctx context.Context, jobID string) error {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, s.logger)

	job, err := s.store.GetTranslationJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != content.TranslationPending && job.Status != content.TranslationProcessing {
		logger.Debug("translation job not runnable; skipping", logging.String("status", string(job.Status)))
		return nil
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if !s.inflight.Register(jobID, cancel) {
		logger.Warn("translation job already executing", logging.String(logging.FieldEventType, "job_duplicate_execute"))
		return nil
	}
	defer s.inflight.Release(jobID)

	claimed, err := s.store.TransitionTranslationJob(ctx, jobID, claimable, content.TranslationProcessing,
		store.TranslationTransition{MarkStarted: true})
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	s.entityStatus(ctx, logger, job, content.TranslationProcessing)

	source, err := s.store.LoadSource(jobCtx, job.EntityType, job.EntityID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return s.fail(ctx, logger, job, err, false)
		}
		return s.interrupted(ctx, jobCtx, err)
	}

	callCtx, cancelCall := context.WithTimeout(jobCtx, s.callTimeout)
	started := time.Now()
	result, err := s.translator.Translate(callCtx, Request{
		EntityType: job.EntityType,
		SourceLang: s.sourceLang,
		TargetLang: job.TargetLang,
		Source:     source,
	})
	cancelCall()
	metrics.ObserveCollaborator("translator", started, err)
	if jobCtx.Err() != nil {
		return s.interrupted(ctx, jobCtx, context.Cause(jobCtx))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = services.Wrap(services.ErrTimeout, "translation", "translate", fmt.Sprintf("no reply within %s", s.callTimeout), err)
		}
		return s.fail(ctx, logger, job, err, services.IsRetryable(err))
	}

	translation := content.Translation{
		EntityType:   job.EntityType,
		EntityID:     job.EntityID,
		Lang:         job.TargetLang,
		Content:      MergePatch(source, result.Content),
		QualityScore: result.QualityScore,
	}
	completed, err := s.store.CompleteTranslation(ctx, jobID, translation)
	if err != nil {
		return err
	}
	if !completed {
		logger.Info("translation job changed status before completion; leaving it", logging.String(logging.FieldEventType, "job_finish_skipped"))
		return nil
	}
	metrics.TranslationJobsFinished.WithLabelValues(string(job.EntityType), "completed").Inc()
	attrs := []any{
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String(logging.FieldEntityType, string(job.EntityType)),
		logging.String(logging.FieldEntityID, job.EntityID),
		logging.String("target_lang", job.TargetLang),
	}
	if result.QualityScore != nil {
		attrs = append(attrs, logging.Float64("quality_score", *result.QualityScore))
	}
	logger.Info("translation job completed", attrs...)
	return nil
}

// fail records a translator failure. With retry set and budget left the job
// goes back to pending for an automatic attempt after a backoff.
func (s *Service) fail(ctx context.Context, logger *slog.Logger, job *content.TranslationJob, cause error, retry bool) error {
	message := services.Message(cause)
	if retry && job.RetryCount < job.MaxRetries {
		next := s.now().Add(s.backoff(job.RetryCount)).UTC()
		moved, err := s.store.TransitionTranslationJob(ctx, job.ID,
			[]content.TranslationStatus{content.TranslationProcessing}, content.TranslationPending,
			store.TranslationTransition{ErrorMessage: &message, IncrementRetry: true, SetNextAttempt: true, NextAttemptAt: &next})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		s.entityStatus(ctx, logger, job, content.TranslationPending)
		metrics.TranslationJobsFinished.WithLabelValues(string(job.EntityType), "retry").Inc()
		logging.WarnWithContext(logger, "translation attempt failed; retry scheduled", "job_retry_scheduled",
			logging.Error(cause),
			logging.Int("retry", job.RetryCount+1),
			logging.Int("max_retries", job.MaxRetries),
			logging.String("next_attempt_at", next.Format(time.RFC3339)),
			logging.String(logging.FieldErrorHint, "the job retries automatically; cancel it to stop"),
		)
		return services.Defer(next, cause)
	}

	moved, err := s.store.TransitionTranslationJob(ctx, job.ID,
		[]content.TranslationStatus{content.TranslationProcessing}, content.TranslationFailed,
		store.TranslationTransition{ErrorMessage: &message, SetNextAttempt: true, MarkCompleted: true})
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}
	s.entityStatus(ctx, logger, job, content.TranslationFailed)
	metrics.TranslationJobsFinished.WithLabelValues(string(job.EntityType), "failed").Inc()
	logging.ErrorWithContext(logger, "translation job failed", "job_failed",
		logging.Error(cause),
		logging.Int("retries", job.RetryCount),
		logging.String(logging.FieldErrorHint, "fix the cause and retry the job"),
	)
	if err := s.notifier.Publish(ctx, notifications.EventTranslationExhausted, notifications.Payload{
		"jobId":      job.ID,
		"entityType": string(job.EntityType),
		"entityId":   job.EntityID,
		"targetLang": job.TargetLang,
		"retries":    job.RetryCount,
		"error":      message,
	}); err != nil {
		logger.Debug("translation notification failed", logging.Error(err))
	}
	return nil
}

func (s *Service) interrupted(ctx, jobCtx context.Context, err error) error {
	if errors.Is(context.Cause(jobCtx), errOperatorCancel) {
		logging.WithContext(ctx, s.logger).Info("translation job interrupted by cancel",
			logging.String(logging.FieldEventType, "job_interrupted"),
		)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Service) entityStatus(ctx context.Context, logger *slog.Logger, job *content.TranslationJob, status content.TranslationStatus) {
	if err := s.store.SetEntityTranslationStatus(ctx, job.EntityType, job.EntityID, job.TargetLang, string(status)); err != nil {
		logger.Debug("entity translation status not updated", logging.Error(err))
	}
}
