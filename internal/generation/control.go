package generation

import (
	"context"
	"errors"
	"fmt"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
)

// Action is an operator control verb.
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
)

// CancelledMessage is stored on jobs cancelled by an operator.
const CancelledMessage = "cancelled by operator"

// errOperatorCancel is the cause attached to an interrupted job context.
var errOperatorCancel = errors.New(CancelledMessage)

// ParseAction validates an action name.
func ParseAction(value string) (Action, bool) {
	switch action := Action(value); action {
	case ActionStart, ActionPause, ActionResume, ActionCancel:
		return action, true
	}
	return "", false
}

type transition struct {
	from []content.GenerateStatus
	to   content.GenerateStatus
	opts store.GenerateTransition
}

func transitionFor(action Action) (transition, bool) {
	cancelled := CancelledMessage
	switch action {
	case ActionStart:
		return transition{
			from: []content.GenerateStatus{content.GeneratePending},
			to:   content.GenerateRunning,
			opts: store.GenerateTransition{MarkStarted: true},
		}, true
	case ActionPause:
		return transition{
			from: []content.GenerateStatus{content.GenerateRunning},
			to:   content.GeneratePaused,
		}, true
	case ActionResume:
		return transition{
			from: []content.GenerateStatus{content.GeneratePaused},
			to:   content.GenerateRunning,
		}, true
	case ActionCancel:
		return transition{
			from: []content.GenerateStatus{content.GeneratePending, content.GenerateRunning, content.GeneratePaused},
			to:   content.GenerateFailed,
			opts: store.GenerateTransition{ErrorMessage: &cancelled, MarkCompleted: true},
		}, true
	}
	return transition{}, false
}

// Control applies an operator action. start is valid only from pending,
// pause only from running, resume only from paused and cancel from any
// non-terminal status. start and resume hand the job to the worker pool;
// cancel also interrupts an outstanding collaborator call.
func (s *Service) Control(ctx context.Context, jobID string, action Action) (*content.GenerateJob, error) {
	tr, ok := transitionFor(action)
	if !ok {
		return nil, services.Validation("generation", fmt.Sprintf("unknown action %q", action))
	}
	moved, err := s.store.TransitionGenerateJob(ctx, jobID, tr.from, tr.to, tr.opts)
	if err != nil {
		return nil, err
	}
	job, err := s.store.GetGenerateJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, services.Wrap(services.ErrInvalidState, "generation", string(action),
			fmt.Sprintf("cannot %s a job that is %s", action, job.Status), nil)
	}

	logger := logging.WithContext(services.WithJobID(ctx, jobID), s.logger)
	logger.Info("generation job control",
		logging.String(logging.FieldEventType, "job_"+string(action)),
		logging.String("status", string(job.Status)),
	)

	switch action {
	case ActionStart, ActionResume:
		if err := s.dispatch(ctx, job); err != nil {
			return nil, err
		}
	case ActionCancel:
		s.inflight.Interrupt(jobID, errOperatorCancel)
		if _, err := s.store.CancelTasksForRef(ctx, content.TaskGenerate, jobID); err != nil {
			logging.WarnWithContext(logger, "drop queued task failed", "task_cancel_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the worker will skip the task because the job is no longer running"),
			)
		}
	}
	return job, nil
}

func (s *Service) dispatch(ctx context.Context, job *content.GenerateJob) error {
	if s.dispatcher == nil {
		return nil
	}
	if err := s.dispatcher.Dispatch(ctx, content.TaskGenerate, job.ID, 0, job.CreatedAt); err != nil {
		return services.Wrap(services.ErrTransient, "generation", "dispatch", "queue execution task", err)
	}
	return nil
}
