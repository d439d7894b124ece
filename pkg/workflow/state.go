package workflow

import (
	"slices"
	"strings"

	"github.com/dukex/appflow/pkg/models"
)

// ActionModal is the confirmation dialog of a workflow action.
type ActionModal struct {
	Open    bool
	Kind    ActionKind
	Remarks string
	Target  int
}

// Action builds the action the modal currently describes.
func (m ActionModal) Action() Action {
	switch m.Kind {
	case ActionSendBack:
		return SendBack{Target: m.Target, Remarks: m.Remarks}
	case ActionReject:
		return Reject{Reason: m.Remarks}
	default:
		return Advance{Remarks: m.Remarks}
	}
}

// CanConfirm reports whether the confirm button is enabled. Rejecting needs a
// non-blank reason and sending back needs a target.
func (m ActionModal) CanConfirm() bool {
	if !m.Open {
		return false
	}

	switch m.Kind {
	case ActionReject:
		return strings.TrimSpace(m.Remarks) != ""
	case ActionSendBack:
		return m.Target > 0
	default:
		return true
	}
}

// State is everything the runner renders.
type State struct {
	Steps       []*models.WorkflowStep
	Status      models.ApplicationWorkflowStatus
	Permissions models.Permissions
	Modal       ActionModal
	Submitting  bool
	Starting    bool
	Error       string
	StartError  string
}

// NewState creates an empty state for a user with perms.
func NewState(perms models.Permissions) State {
	return State{Permissions: perms, Status: models.WorkflowStatusNotStarted}
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// Loaded replaces steps and status with a fresh server snapshot.
type Loaded struct {
	Steps  []*models.WorkflowStep
	Status models.ApplicationWorkflowStatus
}

type LoadFailed struct{ Message string }

type StartRequested struct{}

type StartFailed struct{ Message string }

type StartSucceeded struct{}

// ModalOpened opens the dialog for kind. Send-back preselects the nearest
// earlier step.
type ModalOpened struct {
	Kind   ActionKind
	Target int
}

type RemarksChanged struct{ Remarks string }

type TargetChanged struct{ Target int }

type ModalClosed struct{}

type SubmitStarted struct{}

type SubmitFailed struct{ Message string }

type SubmitSucceeded struct{}

type ErrorDismissed struct{}

func (Loaded) isEvent()          {}
func (LoadFailed) isEvent()      {}
func (StartRequested) isEvent()  {}
func (StartFailed) isEvent()     {}
func (StartSucceeded) isEvent()  {}
func (ModalOpened) isEvent()     {}
func (RemarksChanged) isEvent()  {}
func (TargetChanged) isEvent()   {}
func (ModalClosed) isEvent()     {}
func (SubmitStarted) isEvent()   {}
func (SubmitFailed) isEvent()    {}
func (SubmitSucceeded) isEvent() {}
func (ErrorDismissed) isEvent()  {}

// Reduce applies event to state and returns the new state.
func Reduce(state State, event Event) State {
	next := state

	switch e := event.(type) {
	case Loaded:
		next.Steps = Sorted(e.Steps)
		next.Status = e.Status
	case LoadFailed:
		next.Error = e.Message
	case StartRequested:
		next.Starting = true
		next.StartError = ""
	case StartFailed:
		next.Starting = false
		next.StartError = e.Message
	case StartSucceeded:
		next.Starting = false
		next.StartError = ""
	case ModalOpened:
		if !state.Submitting && !state.Starting {
			next.Modal = ActionModal{Open: true, Kind: e.Kind, Target: e.Target}
		}
	case RemarksChanged:
		next.Modal.Remarks = e.Remarks
	case TargetChanged:
		next.Modal.Target = e.Target
	case ModalClosed:
		if !state.Submitting {
			next.Modal = ActionModal{}
		}
	case SubmitStarted:
		next.Submitting = true
	case SubmitFailed:
		next.Submitting = false
		next.Error = e.Message
	case SubmitSucceeded:
		next.Submitting = false
		next.Modal = ActionModal{}
		next.Error = ""
	case ErrorDismissed:
		next.Error = ""
	}

	return next
}

// CurrentStep returns the step in progress, or nil.
func (s State) CurrentStep() *models.WorkflowStep {
	return CurrentStep(s.Steps)
}

// CanStart reports whether the start affordance is offered.
func (s State) CanStart() bool {
	return s.Status == models.WorkflowStatusNotStarted && s.Permissions.CanManage && !s.Starting
}

// EmptyKind distinguishes the panels shown when there are no steps.
type EmptyKind int

const (
	NotEmpty EmptyKind = iota
	EmptyNotStarted
	EmptyNotConfigured
)

// EmptyState says which empty panel to show. It depends on the workflow
// status, not on the step count alone.
func (s State) EmptyState() EmptyKind {
	if len(s.Steps) > 0 {
		return NotEmpty
	}

	if s.Status == models.WorkflowStatusNotStarted {
		return EmptyNotStarted
	}

	return EmptyNotConfigured
}

// AvailableActions lists the actions offered on the current step. Advance is
// always offered; send-back and reject follow the step's flags.
func (s State) AvailableActions() []ActionKind {
	current := s.CurrentStep()
	if current == nil || !s.Permissions.CanManage {
		return nil
	}

	actions := []ActionKind{ActionAdvance}

	if current.CanSendBack && len(SendBackTargets(s.Steps)) > 0 {
		actions = append(actions, ActionSendBack)
	}

	if current.CanReject {
		actions = append(actions, ActionReject)
	}

	return actions
}

// Allows reports whether kind is among the available actions.
func (s State) Allows(kind ActionKind) bool {
	return slices.Contains(s.AvailableActions(), kind)
}
