package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/appflow/pkg/models"
)

var (
	ErrNoSteps            = errors.New("no workflow steps configured")
	ErrAlreadyStarted     = errors.New("workflow already started")
	ErrNotInProgress      = errors.New("workflow is not in progress")
	ErrNoCurrentStep      = errors.New("no step in progress")
	ErrSendBackNotAllowed = errors.New("current step cannot be sent back")
	ErrRejectNotAllowed   = errors.New("current step cannot be rejected")
)

// Outcome is the result of a server-side transition: the new steps (copies,
// the input is never modified) and the resulting workflow position.
type Outcome struct {
	Steps       []*models.WorkflowStep
	Status      models.ApplicationWorkflowStatus
	CurrentStep int
}

// TotalSteps is the number of steps of the workflow.
func (o Outcome) TotalSteps() int {
	return len(o.Steps)
}

// StartResponse is the start endpoint payload for o.
func (o Outcome) StartResponse() models.StartWorkflowResponse {
	return models.StartWorkflowResponse{CurrentStep: o.CurrentStep, TotalSteps: o.TotalSteps()}
}

// AdvanceResponse is the advance endpoint payload for o.
func (o Outcome) AdvanceResponse() models.WorkflowAdvanceResponse {
	return models.WorkflowAdvanceResponse{
		WorkflowStatus: o.Status,
		CurrentStep:    o.CurrentStep,
		TotalSteps:     o.TotalSteps(),
		Completed:      o.Status == models.WorkflowStatusCompleted,
	}
}

func cloneSorted(steps []*models.WorkflowStep) []*models.WorkflowStep {
	sorted := Sorted(steps)
	for i, step := range sorted {
		sorted[i] = step.Clone()
	}

	return sorted
}

// StartSteps puts step 1 in progress.
func StartSteps(
	steps []*models.WorkflowStep,
	status models.ApplicationWorkflowStatus,
	now time.Time,
) (Outcome, error) {
	if status != models.WorkflowStatusNotStarted {
		return Outcome{}, fmt.Errorf("%w: status %s", ErrAlreadyStarted, status)
	}

	if len(steps) == 0 {
		return Outcome{}, ErrNoSteps
	}

	next := cloneSorted(steps)
	for _, step := range next {
		resetStep(step)
	}

	startStep(next[0], "", now)
	planDeadlines(next, 0, now)

	return Outcome{Steps: next, Status: models.WorkflowStatusInProgress, CurrentStep: next[0].StepNumber}, nil
}

// Transition applies action to the step in progress. actor is recorded as
// the user completing the step.
func Transition(
	steps []*models.WorkflowStep,
	status models.ApplicationWorkflowStatus,
	action Action,
	actor string,
	now time.Time,
) (Outcome, error) {
	switch a := action.(type) {
	case Advance:
		return AdvanceSteps(steps, status, a.Remarks, actor, now)
	case SendBack:
		return SendBackSteps(steps, status, a.Target, a.Remarks, now)
	case Reject:
		return RejectSteps(steps, status, a.Reason, actor, now)
	default:
		return Outcome{}, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

func currentIndex(steps []*models.WorkflowStep, status models.ApplicationWorkflowStatus) (int, error) {
	if status != models.WorkflowStatusInProgress {
		return -1, fmt.Errorf("%w: status %s", ErrNotInProgress, status)
	}

	for i, step := range steps {
		if step.Status == models.StepStatusInProgress {
			return i, nil
		}
	}

	return -1, ErrNoCurrentStep
}

// AdvanceSteps completes the current step and starts the next one, or
// completes the workflow when the current step is the last.
func AdvanceSteps(
	steps []*models.WorkflowStep,
	status models.ApplicationWorkflowStatus,
	remarks, actor string,
	now time.Time,
) (Outcome, error) {
	next := cloneSorted(steps)

	idx, err := currentIndex(next, status)
	if err != nil {
		return Outcome{}, err
	}

	finishStep(next[idx], models.StepStatusCompleted, remarks, actor, now)

	if idx == len(next)-1 {
		return Outcome{Steps: next, Status: models.WorkflowStatusCompleted}, nil
	}

	startStep(next[idx+1], "", now)
	planDeadlines(next, idx+1, now)

	return Outcome{Steps: next, Status: models.WorkflowStatusInProgress, CurrentStep: next[idx+1].StepNumber}, nil
}

// SendBackSteps rewinds the workflow to target, which must be lower than the
// current step. The target is restarted and every step after it up to the
// current one returns to pending.
func SendBackSteps(
	steps []*models.WorkflowStep,
	status models.ApplicationWorkflowStatus,
	target int,
	remarks string,
	now time.Time,
) (Outcome, error) {
	next := cloneSorted(steps)

	idx, err := currentIndex(next, status)
	if err != nil {
		return Outcome{}, err
	}

	if !next[idx].CanSendBack {
		return Outcome{}, fmt.Errorf("%w: step %d", ErrSendBackNotAllowed, next[idx].StepNumber)
	}

	if !IsSendBackTarget(next, target) {
		return Outcome{}, fmt.Errorf("%w: %d from step %d", ErrInvalidSendBackTarget, target, next[idx].StepNumber)
	}

	targetIdx := 0

	for i, step := range next {
		switch {
		case step.StepNumber == target:
			targetIdx = i
			startStep(step, remarks, now)
		case step.StepNumber > target && i <= idx:
			resetStep(step)
		}
	}

	planDeadlines(next, targetIdx, now)

	return Outcome{Steps: next, Status: models.WorkflowStatusInProgress, CurrentStep: target}, nil
}

// RejectSteps ends the workflow. The current step is closed as skipped with
// the reason as its remarks.
func RejectSteps(
	steps []*models.WorkflowStep,
	status models.ApplicationWorkflowStatus,
	reason, actor string,
	now time.Time,
) (Outcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Outcome{}, ErrReasonRequired
	}

	next := cloneSorted(steps)

	idx, err := currentIndex(next, status)
	if err != nil {
		return Outcome{}, err
	}

	if !next[idx].CanReject {
		return Outcome{}, fmt.Errorf("%w: step %d", ErrRejectNotAllowed, next[idx].StepNumber)
	}

	finishStep(next[idx], models.StepStatusSkipped, reason, actor, now)

	return Outcome{Steps: next, Status: models.WorkflowStatusRejected}, nil
}

func startStep(step *models.WorkflowStep, remarks string, now time.Time) {
	started := now

	step.Status = models.StepStatusInProgress
	step.StartedAt = &started
	step.CompletedAt = nil
	step.CompletedByName = ""
	step.SLABreached = false
	step.Remarks = remarks
}

func finishStep(step *models.WorkflowStep, status models.StepStatus, remarks, actor string, now time.Time) {
	completed := now

	step.Status = status
	step.CompletedAt = &completed
	step.CompletedByName = actor

	if remarks = strings.TrimSpace(remarks); remarks != "" {
		step.Remarks = remarks
	}
}

func resetStep(step *models.WorkflowStep) {
	step.Status = models.StepStatusPending
	step.StartedAt = nil
	step.CompletedAt = nil
	step.CompletedByName = ""
	step.SLADeadline = nil
	step.SLABreached = false
	step.Remarks = ""
}

// planDeadlines assigns SLA deadlines to the step at from and every step
// after it, chaining each step's sla_hours from now.
func planDeadlines(steps []*models.WorkflowStep, from int, now time.Time) {
	cursor := now

	for _, step := range steps[from:] {
		if step.SLAHours <= 0 {
			step.SLADeadline = nil

			continue
		}

		cursor = cursor.Add(time.Duration(step.SLAHours) * time.Hour)
		deadline := cursor
		step.SLADeadline = &deadline
	}
}

// MarkBreached flags every step in progress whose deadline has passed and
// returns the newly breached steps.
func MarkBreached(steps []*models.WorkflowStep, now time.Time) []*models.WorkflowStep {
	var breached []*models.WorkflowStep

	for _, step := range steps {
		if !step.SLABreached && IsOverdue(step, now) {
			step.SLABreached = true
			breached = append(breached, step)
		}
	}

	return breached
}
