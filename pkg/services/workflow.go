package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/appflow/pkg/events"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/otelhelper"
	"github.com/dukex/appflow/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
)

// ListWorkflowSteps returns the steps of an application ordered by step number.
// A workflow that has not been started has no steps yet.
func (a *Applications) ListWorkflowSteps(ctx context.Context, applicationID string) ([]*models.WorkflowStep, error) {
	record, err := a.repo().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	return workflow.Sorted(visibleSteps(record)), nil
}

// visibleSteps hides the planned steps until the workflow is started.
func visibleSteps(record *models.ApplicationRecord) []*models.WorkflowStep {
	if record.Application.WorkflowStatus == models.WorkflowStatusNotStarted {
		return []*models.WorkflowStep{}
	}

	return record.Steps
}

// CurrentStep returns the workflow status and the step in progress, if any.
func (a *Applications) CurrentStep(ctx context.Context, applicationID string) (*models.CurrentStepSummary, error) {
	record, err := a.repo().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	steps := visibleSteps(record)
	summary := &models.CurrentStepSummary{
		WorkflowStatus: record.Application.WorkflowStatus,
		CurrentStep:    workflow.CurrentStep(steps),
		TotalSteps:     len(steps),
		CompletedSteps: workflow.ComputeProgress(steps).Completed,
	}

	return summary, nil
}

// StartWorkflow puts the first step of a not-started workflow in progress.
func (a *Applications) StartWorkflow(ctx context.Context, applicationID string) (_ *models.StartWorkflowResponse, err error) {
	ctx, span := a.startSpan(ctx, "StartWorkflow", applicationID)
	defer func() { endSpan(span, err) }()

	var outcome workflow.Outcome

	_, err = a.mutate(ctx, applicationID, func(record *models.ApplicationRecord) error {
		next, err := workflow.StartSteps(record.Steps, record.Application.WorkflowStatus, a.now())
		if err != nil {
			return newRuleError("StartWorkflow", err)
		}

		outcome = next
		a.applyOutcome(record, outcome)

		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Workflow started",
		"application_id", applicationID,
		"total_steps", outcome.TotalSteps())
	a.publish(ctx, applicationID, events.NewWorkflowChanged(
		events.WorkflowStartedEvent, applicationID, ActorFrom(ctx),
		outcome.Status, outcome.CurrentStep, outcome.TotalSteps(), ""))

	resp := outcome.StartResponse()

	return &resp, nil
}

// AdvanceWorkflow advances, sends back or rejects the step in progress
// depending on the payload. The actor in ctx is recorded on completed steps.
func (a *Applications) AdvanceWorkflow(
	ctx context.Context,
	applicationID string,
	req models.AdvanceRequest,
) (_ *models.WorkflowAdvanceResponse, err error) {
	action := workflow.ActionFromRequest(req)

	ctx, span := a.startSpan(ctx, "AdvanceWorkflow", applicationID,
		attribute.String(otelhelper.ActionKey, string(action.Kind())))
	defer func() { endSpan(span, err) }()

	var (
		outcome  workflow.Outcome
		previous int
	)

	_, err = a.mutate(ctx, applicationID, func(record *models.ApplicationRecord) error {
		if step := workflow.CurrentStep(record.Steps); step != nil {
			previous = step.StepNumber
		}

		next, err := workflow.Transition(record.Steps, record.Application.WorkflowStatus, action, ActorFrom(ctx), a.now())
		if err != nil {
			return newRuleError("AdvanceWorkflow", err)
		}

		outcome = next
		a.applyOutcome(record, outcome)

		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Workflow step transitioned",
		"application_id", applicationID,
		"action", action.Kind(),
		"from_step", previous,
		"to_step", outcome.CurrentStep,
		"workflow_status", outcome.Status)
	a.publish(ctx, applicationID, events.NewWorkflowChanged(
		workflowEventType(action, outcome), applicationID, ActorFrom(ctx),
		outcome.Status, outcome.CurrentStep, outcome.TotalSteps(), remarksOf(action)))

	resp := outcome.AdvanceResponse()

	return &resp, nil
}

func (a *Applications) applyOutcome(record *models.ApplicationRecord, outcome workflow.Outcome) {
	record.Steps = outcome.Steps
	record.Application.WorkflowStatus = outcome.Status
	record.Application.UpdatedAt = a.now()
}

func workflowEventType(action workflow.Action, outcome workflow.Outcome) events.EventType {
	switch action.Kind() {
	case workflow.ActionSendBack:
		return events.WorkflowSentBackEvent
	case workflow.ActionReject:
		return events.WorkflowRejectedEvent
	}

	if outcome.Status == models.WorkflowStatusCompleted {
		return events.WorkflowCompletedEvent
	}

	return events.WorkflowAdvancedEvent
}

func remarksOf(action workflow.Action) string {
	switch a := action.(type) {
	case workflow.Advance:
		return a.Remarks
	case workflow.SendBack:
		return a.Remarks
	case workflow.Reject:
		return a.Reason
	default:
		return ""
	}
}

var errNothingBreached = errors.New("no breached steps")

// MarkBreachedSteps flags every overdue step in progress across all running
// workflows and returns how many were flagged.
func (a *Applications) MarkBreachedSteps(ctx context.Context) (int, error) {
	running, err := a.repo().ListByWorkflowStatus(ctx, models.WorkflowStatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("failed to list running workflows: %w", err)
	}

	total := 0

	for _, candidate := range running {
		applicationID := candidate.Application.ID

		var breached []*models.WorkflowStep

		_, err := a.mutate(ctx, applicationID, func(record *models.ApplicationRecord) error {
			breached = workflow.MarkBreached(record.Steps, a.now())
			if len(breached) == 0 {
				return errNothingBreached
			}

			return nil
		})

		switch {
		case errors.Is(err, errNothingBreached):
			continue
		case err != nil:
			a.logger.ErrorContext(ctx, "Failed to mark breached steps",
				"application_id", applicationID,
				"error", err)

			continue
		}

		for _, step := range breached {
			a.logger.WarnContext(ctx, "Step SLA breached",
				"application_id", applicationID,
				"step_number", step.StepNumber,
				"sla_deadline", step.SLADeadline)
			a.publish(ctx, applicationID, events.NewStepSLABreached(applicationID, step))
		}

		total += len(breached)
	}

	return total, nil
}
