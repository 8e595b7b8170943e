package translation

import (
	"context"
	"fmt"
	"time"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
)

// Mode selects how Run executes a job.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// ParseMode validates a run mode. An empty value means async.
func ParseMode(value string) (Mode, bool) {
	switch mode := Mode(value); mode {
	case "":
		return ModeAsync, true
	case ModeSync, ModeAsync:
		return mode, true
	}
	return "", false
}

// Action is an operator control verb.
type Action string

const (
	ActionRetry      Action = "retry"
	ActionCancel     Action = "cancel"
	ActionPrioritize Action = "prioritize"
)

// ParseAction validates an action name.
func ParseAction(value string) (Action, bool) {
	switch action := Action(value); action {
	case ActionRetry, ActionCancel, ActionPrioritize:
		return action, true
	}
	return "", false
}

// UrgentPriority is applied by prioritize when no priority is given.
const UrgentPriority = 1

// Run executes a pending job. Sync runs inline and returns the job as left
// by the attempt, queueing any scheduled automatic retry; async hands it to
// the worker pool and returns at once.
func (s *Service) Run(ctx context.Context, jobID string, mode Mode) (*content.TranslationJob, error) {
	job, err := s.store.GetTranslationJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != content.TranslationPending {
		return nil, services.Wrap(services.ErrInvalidState, "translation", "run",
			fmt.Sprintf("cannot run a job that is %s", job.Status), nil)
	}
	switch mode {
	case ModeSync:
		if err := s.Execute(ctx, jobID); err != nil {
			at, deferred := services.DeferredUntil(err)
			if !deferred {
				return nil, err
			}
			if s.dispatcher != nil {
				if err := s.dispatchAt(ctx, job, at); err != nil {
					return nil, err
				}
			}
		}
		return s.store.GetTranslationJob(ctx, jobID)
	case ModeAsync, "":
		if err := s.dispatchAt(ctx, job, time.Time{}); err != nil {
			return nil, err
		}
		return job, nil
	}
	return nil, services.Validation("translation", fmt.Sprintf("unknown run mode %q", mode))
}

// RunPending hands up to limit due pending jobs to the worker pool in
// dequeue order and reports how many were dispatched.
func (s *Service) RunPending(ctx context.Context, limit int) (int, error) {
	if s.dispatcher == nil {
		return 0, services.Wrap(services.ErrConfiguration, "translation", "run pending", "no worker pool configured", nil)
	}
	now := s.now()
	jobs, err := s.store.ListTranslationJobs(ctx, store.TranslationJobFilter{
		Statuses:  []content.TranslationStatus{content.TranslationPending},
		DueBefore: &now,
		Limit:     limit,
	})
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		if err := s.dispatchAt(ctx, job, time.Time{}); err != nil {
			return 0, err
		}
	}
	s.logger.Info("pending translation jobs dispatched",
		logging.String(logging.FieldEventType, "run_pending"),
		logging.Int("count", len(jobs)),
	)
	return len(jobs), nil
}

// Control applies an operator action. retry is valid only from failed and
// leaves RetryCount untouched; cancel is valid from any status except
// completed; prioritize changes the priority of a pending, processing or
// failed job. priority is used by prioritize only and defaults to
// UrgentPriority.
func (s *Service) Control(ctx context.Context, jobID string, action Action, priority int) (*content.TranslationJob, error) {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, s.logger)
	job, err := s.store.GetTranslationJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionRetry:
		empty := ""
		moved, err := s.store.TransitionTranslationJob(ctx, jobID,
			[]content.TranslationStatus{content.TranslationFailed}, content.TranslationPending,
			store.TranslationTransition{ErrorMessage: &empty, SetNextAttempt: true})
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, invalidAction(action, job)
		}
		s.entityStatus(ctx, logger, job, content.TranslationPending)

	case ActionCancel:
		if job.Status == content.TranslationCancelled {
			return job, nil
		}
		moved, err := s.store.TransitionTranslationJob(ctx, jobID,
			[]content.TranslationStatus{content.TranslationPending, content.TranslationProcessing, content.TranslationFailed},
			content.TranslationCancelled, store.TranslationTransition{MarkCompleted: true})
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, invalidAction(action, job)
		}
		s.inflight.Interrupt(jobID, errOperatorCancel)
		if _, err := s.store.CancelTasksForRef(ctx, content.TaskTranslate, jobID); err != nil {
			logger.Debug("drop queued task failed", logging.Error(err))
		}
		s.entityStatus(ctx, logger, job, content.TranslationCancelled)

	case ActionPrioritize:
		if priority == 0 {
			priority = UrgentPriority
		}
		if priority < 1 || priority > 10 {
			return nil, services.Validation("translation", "priority must be between 1 and 10")
		}
		moved, err := s.store.SetTranslationPriority(ctx, jobID, priority,
			[]content.TranslationStatus{content.TranslationPending, content.TranslationProcessing, content.TranslationFailed})
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, invalidAction(action, job)
		}
		if err := s.store.SetTaskPriority(ctx, content.TaskTranslate, jobID, priority); err != nil {
			logger.Debug("queued task priority not updated", logging.Error(err))
		}

	default:
		return nil, services.Validation("translation", fmt.Sprintf("unknown action %q", action))
	}

	logger.Info("translation job control",
		logging.String(logging.FieldEventType, "job_"+string(action)),
		logging.String("previous_status", string(job.Status)),
	)
	return s.store.GetTranslationJob(ctx, jobID)
}

func invalidAction(action Action, job *content.TranslationJob) error {
	return services.Wrap(services.ErrInvalidState, "translation", string(action),
		fmt.Sprintf("cannot %s a job that is %s", action, job.Status), nil)
}

func (s *Service) dispatchAt(ctx context.Context, job *content.TranslationJob, at time.Time) error {
	if s.dispatcher == nil {
		return services.Wrap(services.ErrConfiguration, "translation", "dispatch", "no worker pool configured", nil)
	}
	var err error
	if at.IsZero() {
		err = s.dispatcher.Dispatch(ctx, content.TaskTranslate, job.ID, job.Priority, job.CreatedAt)
	} else {
		err = s.dispatcher.DispatchAt(ctx, content.TaskTranslate, job.ID, job.Priority, job.CreatedAt, at)
	}
	if err != nil {
		return services.Wrap(services.ErrTransient, "translation", "dispatch", "queue execution task", err)
	}
	return nil
}
