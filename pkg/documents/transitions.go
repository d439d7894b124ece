package documents

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/appflow/pkg/models"
)

var (
	// ErrInvalidTransition is returned when an action is not legal in the document's status.
	ErrInvalidTransition = errors.New("document action not allowed in current status")

	// ErrReasonRequired is returned when a rejection has a blank reason.
	ErrReasonRequired = errors.New("rejection reason is required")
)

// ApplyUpload moves a pending or rejected document to uploaded.
func ApplyUpload(doc *models.RequiredDocument, uploaded models.UploadedDocument, now time.Time) error {
	if doc.Status != models.DocumentStatusPending && doc.Status != models.DocumentStatusRejected {
		return fmt.Errorf("%w: cannot upload %s document", ErrInvalidTransition, doc.Status)
	}

	doc.Status = models.DocumentStatusUploaded
	doc.UploadedDocument = &uploaded
	doc.RejectionReason = ""
	doc.UpdatedAt = now

	return nil
}

// ApplyVerification moves an uploaded document to verified or, with a reason, to rejected.
func ApplyVerification(doc *models.RequiredDocument, accepted bool, reason string, now time.Time) error {
	if doc.Status != models.DocumentStatusUploaded {
		return fmt.Errorf("%w: cannot verify %s document", ErrInvalidTransition, doc.Status)
	}

	if accepted {
		doc.Status = models.DocumentStatusVerified
		doc.RejectionReason = ""
		doc.UpdatedAt = now

		return nil
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}

	doc.Status = models.DocumentStatusRejected
	doc.RejectionReason = reason
	doc.UpdatedAt = now

	return nil
}
