package workflow

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/appflow/pkg/apiclient"
	"github.com/dukex/appflow/pkg/events"
	"github.com/dukex/appflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, api API, perms models.Permissions) (*Runner, *recordingPublisher) {
	t.Helper()

	publisher := &recordingPublisher{}
	runner := NewRunner("app-1", perms, api, publisher, slog.New(slog.DiscardHandler))

	require.NoError(t, runner.Refresh(context.Background()))

	return runner, publisher
}

func TestRunner_StartFromEmptyState(t *testing.T) {
	api := &fakeAPI{status: models.WorkflowStatusNotStarted, template: buildSteps(5)}
	runner, publisher := newTestRunner(t, api, models.FullAccess())

	state := runner.State()
	assert.Equal(t, EmptyNotStarted, state.EmptyState())
	assert.True(t, state.CanStart())

	resp, err := runner.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CurrentStep)
	assert.Equal(t, 5, resp.TotalSteps)

	state = runner.State()
	assert.Equal(t, NotEmpty, state.EmptyState())
	assert.Equal(t, models.WorkflowStatusInProgress, state.Status)
	assert.Equal(t, 1, state.CurrentStep().StepNumber)
	assert.Equal(t, "Step 1 of 5", StepLabel(state.Steps))
	assert.False(t, state.CanStart())

	require.Len(t, publisher.Events(), 1)
	assert.Equal(t, events.WorkflowStartedEvent, publisher.Events()[0].GetType())
}

func TestRunner_StartRequiresManage(t *testing.T) {
	api := &fakeAPI{status: models.WorkflowStatusNotStarted, template: buildSteps(2)}
	runner, _ := newTestRunner(t, api, models.Permissions{CanUpload: true, CanVerify: true})

	assert.False(t, runner.State().CanStart())

	_, err := runner.Start(context.Background())
	require.ErrorIs(t, err, ErrCannotStart)
	assert.Zero(t, api.startCalls)
}

func TestRunner_EmptyStateNotConfigured(t *testing.T) {
	api := &fakeAPI{status: models.WorkflowStatusCompleted}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	assert.Equal(t, EmptyNotConfigured, runner.State().EmptyState())
	assert.False(t, runner.State().CanStart())
}

func TestRunner_StartFailureUsesStartErrorSlot(t *testing.T) {
	api := &fakeAPI{
		status:    models.WorkflowStatusNotStarted,
		failStart: &apiclient.BusinessError{Op: "StartWorkflow", Message: "No workflow template configured"},
	}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	_, err := runner.Start(context.Background())
	require.Error(t, err)

	state := runner.State()
	assert.Equal(t, "No workflow template configured", state.StartError)
	assert.Empty(t, state.Error)
	assert.False(t, state.Starting)

	api.failStart = errNetwork
	_, err = runner.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgStartFailed, runner.State().StartError)
}

func TestRunner_AdvanceIncrementsCompleted(t *testing.T) {
	api := &fakeAPI{steps: stepsAt(4, 2), status: models.WorkflowStatusInProgress}
	runner, publisher := newTestRunner(t, api, models.FullAccess())

	before := ComputeProgress(runner.State().Steps).Completed

	resp, err := runner.Submit(context.Background(), Advance{Remarks: "verified on site"})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.CurrentStep)

	state := runner.State()
	assert.Equal(t, before+1, ComputeProgress(state.Steps).Completed)
	assert.False(t, state.Modal.Open)
	assert.False(t, state.Submitting)
	assert.Equal(t, models.AdvanceRequest{Remarks: "verified on site"}, api.lastRequest)

	require.Len(t, publisher.Events(), 1)
	assert.Equal(t, events.WorkflowAdvancedEvent, publisher.Events()[0].GetType())
}

func TestRunner_SendBackScenario(t *testing.T) {
	api := &fakeAPI{steps: stepsAt(5, 3), status: models.WorkflowStatusInProgress}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	state := runner.State()
	assert.Equal(t, []ActionKind{ActionAdvance, ActionSendBack, ActionReject}, state.AvailableActions())
	assert.Equal(t, []int{1, 2}, stepNumbers(SendBackTargets(state.Steps)))

	require.NoError(t, runner.OpenAction(ActionSendBack))
	assert.Equal(t, 2, runner.State().Modal.Target)

	require.ErrorIs(t, runner.SetTarget(3), ErrInvalidSendBackTarget)
	require.NoError(t, runner.SetTarget(1))
	runner.SetRemarks("wrong district")

	_, err := runner.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceRequest{SendBack: true, SendBackTo: 1, Remarks: "wrong district"}, api.lastRequest)

	steps := runner.State().Steps
	assert.Equal(t, models.StepStatusInProgress, steps[0].Status)
	assert.Equal(t, models.StepStatusPending, steps[1].Status)
	assert.Equal(t, models.StepStatusPending, steps[2].Status)
	assert.Equal(t, 0, ComputeProgress(steps).Percentage)
	assert.NotContains(t, runner.State().AvailableActions(), ActionSendBack)
}

func TestRunner_ActionsFollowStepFlags(t *testing.T) {
	steps := stepsAt(3, 2)
	steps[1].CanSendBack = false
	steps[1].CanReject = false

	api := &fakeAPI{steps: steps, status: models.WorkflowStatusInProgress}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	assert.Equal(t, []ActionKind{ActionAdvance}, runner.State().AvailableActions())

	_, err := runner.Submit(context.Background(), SendBack{Target: 1})
	require.ErrorIs(t, err, ErrActionNotOffered)

	_, err = runner.Submit(context.Background(), Reject{Reason: "x"})
	require.ErrorIs(t, err, ErrActionNotOffered)
	assert.Zero(t, api.advanceCalls)

	viewer, _ := newTestRunner(t, api, models.Permissions{CanVerify: true})
	assert.Empty(t, viewer.State().AvailableActions())
}

func TestRunner_RejectRequiresReason(t *testing.T) {
	api := &fakeAPI{steps: stepsAt(3, 2), status: models.WorkflowStatusInProgress}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	require.NoError(t, runner.OpenAction(ActionReject))
	assert.False(t, runner.State().Modal.CanConfirm())

	runner.SetRemarks("   ")
	assert.False(t, runner.State().Modal.CanConfirm())

	_, err := runner.Confirm(context.Background())
	require.ErrorIs(t, err, ErrReasonRequired)
	assert.Zero(t, api.advanceCalls)
	assert.True(t, runner.State().Modal.Open)

	runner.SetRemarks("applicant is not eligible")
	assert.True(t, runner.State().Modal.CanConfirm())

	resp, err := runner.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusRejected, resp.WorkflowStatus)
	assert.Equal(t, models.WorkflowStatusRejected, runner.State().Status)
	assert.Nil(t, runner.State().CurrentStep())
}

func TestRunner_FailedActionKeepsModalOpen(t *testing.T) {
	api := &fakeAPI{
		steps:       stepsAt(3, 2),
		status:      models.WorkflowStatusInProgress,
		failAdvance: errNetwork,
	}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	_, err := runner.Submit(context.Background(), Advance{Remarks: "ok"})
	require.ErrorIs(t, err, errNetwork)

	state := runner.State()
	assert.True(t, state.Modal.Open)
	assert.Equal(t, "ok", state.Modal.Remarks)
	assert.Equal(t, MsgAdvanceFailed, state.Error)
	assert.False(t, state.Submitting)
	assert.Equal(t, 2, state.CurrentStep().StepNumber)

	api.failAdvance = &apiclient.BusinessError{Message: "Step is locked"}
	_, err = runner.Confirm(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Step is locked", runner.State().Error)

	api.failAdvance = nil
	_, err = runner.Confirm(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runner.State().Error)
	assert.Equal(t, 3, runner.State().CurrentStep().StepNumber)
}

func TestRunner_RefreshFailureKeepsSteps(t *testing.T) {
	api := &fakeAPI{steps: stepsAt(3, 2), status: models.WorkflowStatusInProgress}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	api.failList = errNetwork
	require.Error(t, runner.Refresh(context.Background()))

	state := runner.State()
	assert.Len(t, state.Steps, 3)
	assert.Equal(t, MsgLoadFailed, state.Error)

	runner.DismissError()
	assert.Empty(t, runner.State().Error)
}

func TestRunner_GuardsDoubleSubmission(t *testing.T) {
	api := &fakeAPI{steps: stepsAt(3, 2), status: models.WorkflowStatusInProgress}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	runner.dispatch(SubmitStarted{})

	_, err := runner.Submit(context.Background(), Advance{})
	require.ErrorIs(t, err, ErrInFlight)
	assert.Zero(t, api.advanceCalls)
}

func TestRunner_NoNewActionWhileSubmitting(t *testing.T) {
	api := &fakeAPI{steps: stepsAt(3, 2), status: models.WorkflowStatusInProgress}
	runner, _ := newTestRunner(t, api, models.FullAccess())

	require.NoError(t, runner.OpenAction(ActionReject))
	runner.SetRemarks("forged")
	runner.dispatch(SubmitStarted{})

	require.ErrorIs(t, runner.OpenAction(ActionAdvance), ErrInFlight)
	runner.CloseAction()

	state := runner.State()
	assert.True(t, state.Modal.Open)
	assert.Equal(t, ActionReject, state.Modal.Kind)
	assert.Equal(t, "forged", state.Modal.Remarks)

	runner.dispatch(SubmitFailed{Message: MsgRejectFailed})
	require.NoError(t, runner.OpenAction(ActionAdvance))
	assert.Equal(t, ActionAdvance, runner.State().Modal.Kind)
}

func TestReduce_ModalOpenedIgnoredWhileStarting(t *testing.T) {
	state := Reduce(State{Status: models.WorkflowStatusNotStarted}, StartRequested{})
	state = Reduce(state, ModalOpened{Kind: ActionAdvance})

	assert.False(t, state.Modal.Open)
}
