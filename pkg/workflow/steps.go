// Package workflow drives the ordered processing steps of one application:
// the step timeline, progress, the advance / send-back / reject actions and
// the transitions the server applies for them.
package workflow

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/appflow/pkg/models"
)

var (
	ErrStepNumbering        = errors.New("step numbers must be contiguous from 1")
	ErrMultipleInProgress   = errors.New("more than one step in progress")
	ErrStepBeforeUnfinished = errors.New("step before the current step is not completed or skipped")
	ErrStepAfterStarted     = errors.New("step after the current step is not pending")
)

// Sorted returns the steps ordered by step number.
func Sorted(steps []*models.WorkflowStep) []*models.WorkflowStep {
	sorted := slices.Clone(steps)
	slices.SortFunc(sorted, func(a, b *models.WorkflowStep) int {
		return a.StepNumber - b.StepNumber
	})

	return sorted
}

// CurrentStep returns the step in progress, or nil.
func CurrentStep(steps []*models.WorkflowStep) *models.WorkflowStep {
	for _, step := range steps {
		if step.Status == models.StepStatusInProgress {
			return step
		}
	}

	return nil
}

// SendBackTargets lists the steps the current step may be sent back to:
// every step with a strictly lower step number.
func SendBackTargets(steps []*models.WorkflowStep) []*models.WorkflowStep {
	current := CurrentStep(steps)
	if current == nil {
		return nil
	}

	targets := make([]*models.WorkflowStep, 0, current.StepNumber)

	for _, step := range Sorted(steps) {
		if step.StepNumber < current.StepNumber {
			targets = append(targets, step)
		}
	}

	return targets
}

// IsSendBackTarget reports whether target is a legal send-back destination.
func IsSendBackTarget(steps []*models.WorkflowStep, target int) bool {
	return slices.ContainsFunc(SendBackTargets(steps), func(step *models.WorkflowStep) bool {
		return step.StepNumber == target
	})
}

// Progress is the share of completed steps. Skipped steps are not counted.
type Progress struct {
	Completed  int
	Total      int
	Percentage int
}

// ComputeProgress returns round(100 * completed / total); zero for no steps.
func ComputeProgress(steps []*models.WorkflowStep) Progress {
	p := Progress{Total: len(steps)}

	for _, step := range steps {
		if step.Status == models.StepStatusCompleted {
			p.Completed++
		}
	}

	if p.Total > 0 {
		p.Percentage = (200*p.Completed + p.Total) / (2 * p.Total)
	}

	return p
}

// StepLabel renders "Step X of Y" for the current step, where Y counts every
// step including skipped ones. It is empty when no step is in progress.
func StepLabel(steps []*models.WorkflowStep) string {
	current := CurrentStep(steps)
	if current == nil {
		return ""
	}

	return fmt.Sprintf("Step %d of %d", current.StepNumber, len(steps))
}

// SLAKind says what SLA information a step shows.
type SLAKind int

const (
	SLANone SLAKind = iota
	SLADeadline
	SLABreached
)

// SLANotice is the informational SLA line of a step.
type SLANotice struct {
	Kind     SLAKind
	Deadline time.Time
}

// NoticeFor returns the SLA notice of step: the deadline for a pending step
// that has one, a breach warning for a breached step in progress.
func NoticeFor(step *models.WorkflowStep) SLANotice {
	switch {
	case step.Status == models.StepStatusInProgress && step.SLABreached:
		notice := SLANotice{Kind: SLABreached}
		if step.SLADeadline != nil {
			notice.Deadline = *step.SLADeadline
		}

		return notice
	case step.Status == models.StepStatusPending && step.SLADeadline != nil:
		return SLANotice{Kind: SLADeadline, Deadline: *step.SLADeadline}
	default:
		return SLANotice{Kind: SLANone}
	}
}

// IsOverdue reports whether a step in progress has passed its SLA deadline.
func IsOverdue(step *models.WorkflowStep, now time.Time) bool {
	return step.Status == models.StepStatusInProgress &&
		step.SLADeadline != nil &&
		now.After(*step.SLADeadline)
}

// CheckInvariants verifies the ordering rules of a workflow: contiguous
// numbering from 1, at most one step in progress, everything before it
// completed or skipped, and everything after it pending unless the workflow
// is terminal.
func CheckInvariants(steps []*models.WorkflowStep, status models.ApplicationWorkflowStatus) error {
	sorted := Sorted(steps)

	current := 0

	for i, step := range sorted {
		if step.StepNumber != i+1 {
			return fmt.Errorf("%w: got %d at position %d", ErrStepNumbering, step.StepNumber, i+1)
		}

		if step.Status == models.StepStatusInProgress {
			if current != 0 {
				return fmt.Errorf("%w: steps %d and %d", ErrMultipleInProgress, current, step.StepNumber)
			}

			current = step.StepNumber
		}
	}

	if current == 0 {
		return nil
	}

	for _, step := range sorted {
		switch {
		case step.StepNumber < current && !step.Status.IsDone():
			return fmt.Errorf("%w: step %d is %s", ErrStepBeforeUnfinished, step.StepNumber, step.Status)
		case step.StepNumber > current && step.Status != models.StepStatusPending && !status.IsTerminal():
			return fmt.Errorf("%w: step %d is %s", ErrStepAfterStarted, step.StepNumber, step.Status)
		}
	}

	return nil
}
