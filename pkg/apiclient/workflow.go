package apiclient

import (
	"context"
	"net/http"

	"github.com/dukex/appflow/pkg/models"
)

// ListWorkflowSteps fetches the workflow steps of an application.
func (c *Client) ListWorkflowSteps(ctx context.Context, applicationID string) ([]*models.WorkflowStep, error) {
	var steps []*models.WorkflowStep

	if err := c.do(ctx, "ListWorkflowSteps", http.MethodGet, applicationPath(applicationID, "workflow"), nil, &steps); err != nil {
		return nil, err
	}

	return steps, nil
}

// CurrentStep fetches the workflow status and the step in progress.
func (c *Client) CurrentStep(ctx context.Context, applicationID string) (*models.CurrentStepSummary, error) {
	var summary models.CurrentStepSummary

	if err := c.do(ctx, "CurrentStep", http.MethodGet, applicationPath(applicationID, "workflow", "current"), nil, &summary); err != nil {
		return nil, err
	}

	return &summary, nil
}

// StartWorkflow moves the first step of a not-started workflow in progress.
func (c *Client) StartWorkflow(ctx context.Context, applicationID string) (*models.StartWorkflowResponse, error) {
	var result models.StartWorkflowResponse

	if err := c.do(ctx, "StartWorkflow", http.MethodPost, applicationPath(applicationID, "workflow", "start"), nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// AdvanceWorkflow advances, sends back or rejects the current step depending on req.
func (c *Client) AdvanceWorkflow(
	ctx context.Context,
	applicationID string,
	req models.AdvanceRequest,
) (*models.WorkflowAdvanceResponse, error) {
	var result models.WorkflowAdvanceResponse

	if err := c.do(ctx, "AdvanceWorkflow", http.MethodPost, applicationPath(applicationID, "workflow", "advance"), req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
