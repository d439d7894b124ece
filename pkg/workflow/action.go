package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/appflow/pkg/models"
)

// ActionKind names one of the three transitions of the current step.
type ActionKind string

const (
	ActionAdvance  ActionKind = "advance"
	ActionSendBack ActionKind = "send_back"
	ActionReject   ActionKind = "reject"
)

var (
	ErrReasonRequired        = errors.New("rejection reason is required")
	ErrInvalidSendBackTarget = errors.New("invalid send-back target step")
	ErrUnknownAction         = errors.New("unknown workflow action")
)

// Action is a transition requested on the step in progress. It is one of
// Advance, SendBack or Reject.
type Action interface {
	Kind() ActionKind
	isAction()
}

// Advance completes the current step and starts the next one.
type Advance struct {
	Remarks string
}

// SendBack rewinds the workflow to an earlier step.
type SendBack struct {
	Target  int
	Remarks string
}

// Reject ends the workflow with a mandatory reason.
type Reject struct {
	Reason string
}

func (Advance) Kind() ActionKind  { return ActionAdvance }
func (SendBack) Kind() ActionKind { return ActionSendBack }
func (Reject) Kind() ActionKind   { return ActionReject }

func (Advance) isAction()  {}
func (SendBack) isAction() {}
func (Reject) isAction()   {}

// Apply maps an action onto the payload of the advance endpoint.
func Apply(action Action) (models.AdvanceRequest, error) {
	switch a := action.(type) {
	case Advance:
		return models.AdvanceRequest{Remarks: strings.TrimSpace(a.Remarks)}, nil
	case SendBack:
		if a.Target < 1 {
			return models.AdvanceRequest{}, fmt.Errorf("%w: %d", ErrInvalidSendBackTarget, a.Target)
		}

		return models.AdvanceRequest{
			SendBack:   true,
			SendBackTo: a.Target,
			Remarks:    strings.TrimSpace(a.Remarks),
		}, nil
	case Reject:
		reason := strings.TrimSpace(a.Reason)
		if reason == "" {
			return models.AdvanceRequest{}, ErrReasonRequired
		}

		return models.AdvanceRequest{RejectReason: reason}, nil
	default:
		return models.AdvanceRequest{}, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

// ActionFromRequest is the inverse of Apply, used by the server to decode a payload.
func ActionFromRequest(req models.AdvanceRequest) Action {
	switch {
	case req.IsReject():
		return Reject{Reason: req.RejectReason}
	case req.SendBack:
		return SendBack{Target: req.SendBackTo, Remarks: req.Remarks}
	default:
		return Advance{Remarks: req.Remarks}
	}
}
