package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/appflow/pkg/apiclient"
	"github.com/dukex/appflow/pkg/eventbus"
	"github.com/dukex/appflow/pkg/events"
	"github.com/dukex/appflow/pkg/models"
)

// User-visible messages for request failures.
const (
	MsgLoadFailed     = "Failed to load workflow"
	MsgStartFailed    = "Failed to start workflow"
	MsgAdvanceFailed  = "Failed to advance workflow"
	MsgSendBackFailed = "Failed to send back workflow"
	MsgRejectFailed   = "Failed to reject application"
)

var (
	ErrCannotStart      = errors.New("workflow cannot be started")
	ErrActionNotOffered = errors.New("action not offered on the current step")
	ErrInFlight         = errors.New("workflow request already in flight")
	ErrModalClosed      = errors.New("no workflow action in progress")
)

// API is the part of the application API the runner needs.
type API interface {
	ListWorkflowSteps(ctx context.Context, applicationID string) ([]*models.WorkflowStep, error)
	CurrentStep(ctx context.Context, applicationID string) (*models.CurrentStepSummary, error)
	StartWorkflow(ctx context.Context, applicationID string) (*models.StartWorkflowResponse, error)
	AdvanceWorkflow(ctx context.Context, applicationID string, req models.AdvanceRequest) (*models.WorkflowAdvanceResponse, error)
}

// Runner drives the workflow of one application. One start or action request
// may be in flight at a time.
type Runner struct {
	applicationID string
	api           API
	publisher     eventbus.EventPublisher
	logger        *slog.Logger

	mu    sync.Mutex
	state State
}

// NewRunner creates a runner. publisher may be nil.
func NewRunner(
	applicationID string,
	perms models.Permissions,
	api API,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		applicationID: applicationID,
		api:           api,
		publisher:     publisher,
		logger:        logger.With("application_id", applicationID),
		state:         NewState(perms),
	}
}

// State returns a snapshot of the runner state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

func (r *Runner) dispatch(event Event) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = Reduce(r.state, event)

	return r.state
}

// Refresh reloads the steps and the aggregate status. On failure the
// previously loaded steps are kept.
func (r *Runner) Refresh(ctx context.Context) error {
	steps, err := r.api.ListWorkflowSteps(ctx, r.applicationID)
	if err != nil {
		return r.loadFailed(ctx, err)
	}

	summary, err := r.api.CurrentStep(ctx, r.applicationID)
	if err != nil {
		return r.loadFailed(ctx, err)
	}

	r.dispatch(Loaded{Steps: steps, Status: summary.WorkflowStatus})

	return nil
}

func (r *Runner) loadFailed(ctx context.Context, err error) error {
	r.logger.ErrorContext(ctx, "Failed to load workflow", "error", err)
	r.dispatch(LoadFailed{Message: apiclient.MessageFor(err, MsgLoadFailed)})

	return err
}

// DismissError clears the error banner.
func (r *Runner) DismissError() {
	r.dispatch(ErrorDismissed{})
}

// Start starts the workflow. Failures are reported in the start error slot,
// not the main error banner.
func (r *Runner) Start(ctx context.Context) (*models.StartWorkflowResponse, error) {
	if err := r.beginStart(); err != nil {
		return nil, err
	}

	resp, err := r.api.StartWorkflow(ctx, r.applicationID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to start workflow", "error", err)
		r.dispatch(StartFailed{Message: apiclient.MessageFor(err, MsgStartFailed)})

		return nil, err
	}

	r.logger.InfoContext(ctx, "Workflow started", "current_step", resp.CurrentStep, "total_steps", resp.TotalSteps)
	r.dispatch(StartSucceeded{})
	r.publish(ctx, events.NewWorkflowChanged(
		events.WorkflowStartedEvent, r.applicationID, "",
		models.WorkflowStatusInProgress, resp.CurrentStep, resp.TotalSteps, "",
	))

	return resp, r.Refresh(ctx)
}

func (r *Runner) beginStart() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Starting || r.state.Submitting {
		return ErrInFlight
	}

	if !r.state.CanStart() {
		return fmt.Errorf("%w: status %s", ErrCannotStart, r.state.Status)
	}

	r.state = Reduce(r.state, StartRequested{})

	return nil
}

// OpenAction opens the confirmation dialog for kind on the current step.
func (r *Runner) OpenAction(kind ActionKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Submitting || r.state.Starting {
		return ErrInFlight
	}

	if !r.state.Allows(kind) {
		return fmt.Errorf("%w: %s", ErrActionNotOffered, kind)
	}

	target := 0

	if kind == ActionSendBack {
		if targets := SendBackTargets(r.state.Steps); len(targets) > 0 {
			target = targets[len(targets)-1].StepNumber
		}
	}

	r.state = Reduce(r.state, ModalOpened{Kind: kind, Target: target})

	return nil
}

// SetRemarks updates the remarks, or the rejection reason, typed into the dialog.
func (r *Runner) SetRemarks(remarks string) {
	r.dispatch(RemarksChanged{Remarks: remarks})
}

// SetTarget picks the send-back destination. Only steps before the current
// one are accepted.
func (r *Runner) SetTarget(target int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !IsSendBackTarget(r.state.Steps, target) {
		return fmt.Errorf("%w: %d", ErrInvalidSendBackTarget, target)
	}

	r.state = Reduce(r.state, TargetChanged{Target: target})

	return nil
}

// CloseAction dismisses the dialog without sending anything.
func (r *Runner) CloseAction() {
	r.dispatch(ModalClosed{})
}

// Confirm sends the action described by the open dialog.
func (r *Runner) Confirm(ctx context.Context) (*models.WorkflowAdvanceResponse, error) {
	r.mu.Lock()
	modal := r.state.Modal
	r.mu.Unlock()

	if !modal.Open {
		return nil, ErrModalClosed
	}

	return r.submit(ctx, modal.Action())
}

// Submit opens the dialog for action, fills it in and confirms it. On failure
// the dialog stays open with the error shown so the action can be retried.
func (r *Runner) Submit(ctx context.Context, action Action) (*models.WorkflowAdvanceResponse, error) {
	if err := r.OpenAction(action.Kind()); err != nil {
		return nil, err
	}

	switch a := action.(type) {
	case Advance:
		r.SetRemarks(a.Remarks)
	case SendBack:
		if err := r.SetTarget(a.Target); err != nil {
			return nil, err
		}

		r.SetRemarks(a.Remarks)
	case Reject:
		r.SetRemarks(a.Reason)
	}

	return r.Confirm(ctx)
}

func (r *Runner) submit(ctx context.Context, action Action) (*models.WorkflowAdvanceResponse, error) {
	req, err := r.beginSubmit(action)
	if err != nil {
		return nil, err
	}

	resp, err := r.api.AdvanceWorkflow(ctx, r.applicationID, req)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to submit workflow action", "action", action.Kind(), "error", err)
		r.dispatch(SubmitFailed{Message: apiclient.MessageFor(err, failureMessage(action.Kind()))})

		return nil, err
	}

	r.logger.InfoContext(ctx, "Workflow action applied",
		"action", action.Kind(),
		"workflow_status", resp.WorkflowStatus,
		"current_step", resp.CurrentStep)
	r.dispatch(SubmitSucceeded{})
	r.publish(ctx, events.NewWorkflowChanged(
		eventTypeFor(action, resp), r.applicationID, "",
		resp.WorkflowStatus, resp.CurrentStep, resp.TotalSteps, req.Remarks,
	))

	return resp, r.Refresh(ctx)
}

func (r *Runner) beginSubmit(action Action) (models.AdvanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Submitting || r.state.Starting {
		return models.AdvanceRequest{}, ErrInFlight
	}

	if !r.state.Allows(action.Kind()) {
		return models.AdvanceRequest{}, fmt.Errorf("%w: %s", ErrActionNotOffered, action.Kind())
	}

	if sb, ok := action.(SendBack); ok && !IsSendBackTarget(r.state.Steps, sb.Target) {
		return models.AdvanceRequest{}, fmt.Errorf("%w: %d", ErrInvalidSendBackTarget, sb.Target)
	}

	req, err := Apply(action)
	if err != nil {
		return req, err
	}

	r.state = Reduce(r.state, SubmitStarted{})

	return req, nil
}

func failureMessage(kind ActionKind) string {
	switch kind {
	case ActionSendBack:
		return MsgSendBackFailed
	case ActionReject:
		return MsgRejectFailed
	default:
		return MsgAdvanceFailed
	}
}

func eventTypeFor(action Action, resp *models.WorkflowAdvanceResponse) events.EventType {
	switch action.Kind() {
	case ActionSendBack:
		return events.WorkflowSentBackEvent
	case ActionReject:
		return events.WorkflowRejectedEvent
	}

	if resp.Completed {
		return events.WorkflowCompletedEvent
	}

	return events.WorkflowAdvancedEvent
}

func (r *Runner) publish(ctx context.Context, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, r.applicationID, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish workflow event", "error", err)
	}
}
