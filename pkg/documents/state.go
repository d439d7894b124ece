// Package documents tracks the required documents of one application: which
// actions are legal for each document, the verification modal, and the
// upload / verify requests sent to the API.
package documents

import (
	"maps"
	"strings"

	"github.com/dukex/appflow/pkg/models"
)

// Modal is the verify/reject confirmation dialog.
type Modal struct {
	Open       bool
	DocumentID string
	Accept     bool
	Reason     string
	Submitting bool
}

// State is everything the tracker renders. Values are replaced, never mutated,
// by Reduce.
type State struct {
	Documents   []*models.RequiredDocument
	Summary     models.DocumentStatusSummary
	Permissions models.Permissions
	Uploading   map[string]bool
	Modal       Modal
	Error       string
}

// NewState creates an empty state for a user with perms.
func NewState(perms models.Permissions) State {
	return State{Permissions: perms, Uploading: map[string]bool{}}
}

// Document returns the document with the given id, or nil.
func (s State) Document(id string) *models.RequiredDocument {
	for _, doc := range s.Documents {
		if doc.ID == id {
			return doc
		}
	}

	return nil
}

// IsUploading reports whether an upload for the document is in flight.
func (s State) IsUploading(id string) bool {
	return s.Uploading[id]
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// Loaded replaces the documents and summary with a fresh server snapshot.
type Loaded struct {
	Documents []*models.RequiredDocument
	Summary   models.DocumentStatusSummary
}

type UploadStarted struct{ DocumentID string }

type UploadFailed struct {
	DocumentID string
	Message    string
}

type UploadSucceeded struct{ DocumentID string }

// ModalOpened opens the verification dialog for a document.
type ModalOpened struct {
	DocumentID string
	Accept     bool
}

type ReasonChanged struct{ Reason string }

type VerifyStarted struct{}

type VerifyFailed struct{ Message string }

type VerifySucceeded struct{}

type ModalClosed struct{}

// LoadFailed records a failed refresh without touching the loaded documents.
type LoadFailed struct{ Message string }

type ErrorDismissed struct{}

func (Loaded) isEvent()          {}
func (UploadStarted) isEvent()   {}
func (UploadFailed) isEvent()    {}
func (UploadSucceeded) isEvent() {}
func (ModalOpened) isEvent()     {}
func (ReasonChanged) isEvent()   {}
func (VerifyStarted) isEvent()   {}
func (VerifyFailed) isEvent()    {}
func (VerifySucceeded) isEvent() {}
func (ModalClosed) isEvent()     {}
func (LoadFailed) isEvent()      {}
func (ErrorDismissed) isEvent()  {}

// Reduce applies event to state and returns the new state.
func Reduce(state State, event Event) State {
	next := state

	switch e := event.(type) {
	case Loaded:
		next.Documents = e.Documents
		next.Summary = e.Summary
	case UploadStarted:
		next.Uploading = withFlag(state.Uploading, e.DocumentID, true)
	case UploadFailed:
		next.Uploading = withFlag(state.Uploading, e.DocumentID, false)
		next.Error = e.Message
	case UploadSucceeded:
		next.Uploading = withFlag(state.Uploading, e.DocumentID, false)
		next.Error = ""
	case ModalOpened:
		if !state.Modal.Submitting {
			next.Modal = Modal{Open: true, DocumentID: e.DocumentID, Accept: e.Accept}
		}
	case ReasonChanged:
		next.Modal.Reason = e.Reason
	case VerifyStarted:
		next.Modal.Submitting = true
	case VerifyFailed:
		next.Modal.Submitting = false
		next.Error = e.Message
	case VerifySucceeded:
		next.Modal = Modal{}
		next.Error = ""
	case ModalClosed:
		if !state.Modal.Submitting {
			next.Modal = Modal{}
		}
	case LoadFailed:
		next.Error = e.Message
	case ErrorDismissed:
		next.Error = ""
	}

	return next
}

func withFlag(flags map[string]bool, id string, on bool) map[string]bool {
	next := maps.Clone(flags)
	if next == nil {
		next = map[string]bool{}
	}

	if on {
		next[id] = true
	} else {
		delete(next, id)
	}

	return next
}

// CanUpload reports whether the upload control is offered for doc.
func (s State) CanUpload(doc *models.RequiredDocument) bool {
	if !s.Permissions.CanUpload || s.IsUploading(doc.ID) {
		return false
	}

	return doc.Status == models.DocumentStatusPending || doc.Status == models.DocumentStatusRejected
}

// CanVerify reports whether the verify and reject controls are offered for doc.
func (s State) CanVerify(doc *models.RequiredDocument) bool {
	return s.Permissions.CanVerify && doc.Status == models.DocumentStatusUploaded
}

// CanConfirm reports whether the modal's confirm action is enabled: accepting
// needs nothing, rejecting needs a non-blank reason.
func (m Modal) CanConfirm() bool {
	if !m.Open || m.Submitting {
		return false
	}

	return m.Accept || strings.TrimSpace(m.Reason) != ""
}

// CompletionPercentage returns round(100 * verified_mandatory / total_mandatory),
// clamped to [0, 100]. Verified optional documents do not count. ok is false
// when there are no mandatory documents.
func CompletionPercentage(summary models.DocumentStatusSummary) (percentage int, ok bool) {
	total := summary.Mandatory()
	if total <= 0 {
		return 0, false
	}

	percentage = (200*summary.VerifiedMandatory + total) / (2 * total)

	return min(max(percentage, 0), 100), true
}
