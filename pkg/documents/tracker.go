package documents

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
	"github.com/dukex/appflow/pkg/upload"
)

// User-visible messages for request failures.
const (
	MsgLoadFailed   = "Failed to load documents"
	MsgUploadFailed = "Failed to upload document"
	MsgVerifyFailed = "Failed to verify document"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNotAllowed       = errors.New("action not allowed for document")
	ErrUploadInFlight   = errors.New("upload already in progress for document")
	ErrModalClosed      = errors.New("no verification in progress")
	ErrSubmitting       = errors.New("verification already being submitted")
)

// API is the part of the application API the tracker needs.
type API interface {
	ListRequiredDocuments(ctx context.Context, applicationID string) ([]*models.RequiredDocument, error)
	DocumentStatus(ctx context.Context, applicationID string) (*models.DocumentStatusSummary, error)
	UploadDocument(ctx context.Context, applicationID, documentID string, req models.UploadDocumentRequest) (*models.RequiredDocument, error)
	VerifyDocument(ctx context.Context, applicationID, documentID string, req models.VerifyDocumentRequest) (*models.RequiredDocument, error)
}

// Tracker drives the documents of one application. It is safe for concurrent
// use; uploads of different documents may run at the same time.
type Tracker struct {
	applicationID string
	api           API
	store         upload.FileStore
	publisher     eventbus.EventPublisher
	logger        *slog.Logger

	mu    sync.Mutex
	state State
}

// NewTracker creates a tracker. publisher may be nil.
func NewTracker(
	applicationID string,
	perms models.Permissions,
	api API,
	store upload.FileStore,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Tracker {
	return &Tracker{
		applicationID: applicationID,
		api:           api,
		store:         store,
		publisher:     publisher,
		logger:        logger.With("application_id", applicationID),
		state:         NewState(perms),
	}
}

// State returns a snapshot of the tracker state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

func (t *Tracker) dispatch(event Event) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = Reduce(t.state, event)

	return t.state
}

// Refresh reloads documents and summary from the server. On failure the
// previously loaded documents are kept.
func (t *Tracker) Refresh(ctx context.Context) error {
	docs, err := t.api.ListRequiredDocuments(ctx, t.applicationID)
	if err != nil {
		return t.loadFailed(ctx, err)
	}

	summary, err := t.api.DocumentStatus(ctx, t.applicationID)
	if err != nil {
		return t.loadFailed(ctx, err)
	}

	t.dispatch(Loaded{Documents: docs, Summary: *summary})

	return nil
}

func (t *Tracker) loadFailed(ctx context.Context, err error) error {
	t.logger.ErrorContext(ctx, "Failed to load documents", "error", err)
	t.dispatch(LoadFailed{Message: apiclient.MessageFor(err, MsgLoadFailed)})

	return err
}

// DismissError clears the error banner.
func (t *Tracker) DismissError() {
	t.dispatch(ErrorDismissed{})
}

// Upload validates file against the document, stores it, records it through
// the API and refreshes. Only the uploaded document is blocked while in flight.
func (t *Tracker) Upload(ctx context.Context, documentID string, file upload.File) error {
	doc, err := t.beginUpload(documentID)
	if err != nil {
		return err
	}

	if err := upload.Validate(doc, file); err != nil {
		t.logger.WarnContext(ctx, "Rejected file before upload", "document_id", documentID, "error", err)
		t.dispatch(UploadFailed{DocumentID: documentID, Message: err.Error()})

		return err
	}

	fileURL, err := t.store.Put(ctx, t.applicationID, documentID, file)
	if err != nil {
		return t.uploadFailed(ctx, documentID, err)
	}

	updated, err := t.api.UploadDocument(ctx, t.applicationID, documentID, upload.Request(file, fileURL))
	if err != nil {
		return t.uploadFailed(ctx, documentID, err)
	}

	t.dispatch(UploadSucceeded{DocumentID: documentID})
	t.publish(ctx, updated)

	return t.Refresh(ctx)
}

func (t *Tracker) beginUpload(documentID string) (*models.RequiredDocument, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc := t.state.Document(documentID)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}

	if t.state.IsUploading(documentID) {
		return nil, ErrUploadInFlight
	}

	if !t.state.CanUpload(doc) {
		return nil, fmt.Errorf("%w: upload %s (%s)", ErrNotAllowed, documentID, doc.Status)
	}

	t.state = Reduce(t.state, UploadStarted{DocumentID: documentID})

	return doc, nil
}

func (t *Tracker) uploadFailed(ctx context.Context, documentID string, err error) error {
	t.logger.ErrorContext(ctx, "Failed to upload document", "document_id", documentID, "error", err)
	t.dispatch(UploadFailed{DocumentID: documentID, Message: apiclient.MessageFor(err, MsgUploadFailed)})

	return err
}

// OpenVerification opens the confirmation dialog to accept or reject a document.
func (t *Tracker) OpenVerification(documentID string, accept bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Modal.Submitting {
		return ErrSubmitting
	}

	doc := t.state.Document(documentID)
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}

	if !t.state.CanVerify(doc) {
		return fmt.Errorf("%w: verify %s (%s)", ErrNotAllowed, documentID, doc.Status)
	}

	t.state = Reduce(t.state, ModalOpened{DocumentID: documentID, Accept: accept})

	return nil
}

// SetReason updates the rejection reason typed into the dialog.
func (t *Tracker) SetReason(reason string) {
	t.dispatch(ReasonChanged{Reason: reason})
}

// CloseVerification dismisses the dialog without sending anything.
func (t *Tracker) CloseVerification() {
	t.dispatch(ModalClosed{})
}

// ConfirmVerification sends the dialog's decision. A rejection without a
// reason is refused locally and nothing is sent. On failure the dialog stays
// open so the user can retry.
func (t *Tracker) ConfirmVerification(ctx context.Context) error {
	modal, err := t.beginVerify()
	if err != nil {
		return err
	}

	accepted := modal.Accept
	req := models.VerifyDocumentRequest{Verified: &accepted}

	if !accepted {
		req.RejectionReason = modal.Reason
	}

	updated, err := t.api.VerifyDocument(ctx, t.applicationID, modal.DocumentID, req)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to verify document", "document_id", modal.DocumentID, "error", err)
		t.dispatch(VerifyFailed{Message: apiclient.MessageFor(err, MsgVerifyFailed)})

		return err
	}

	t.dispatch(VerifySucceeded{})
	t.publish(ctx, updated)

	return t.Refresh(ctx)
}

func (t *Tracker) beginVerify() (Modal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	modal := t.state.Modal

	switch {
	case !modal.Open:
		return modal, ErrModalClosed
	case modal.Submitting:
		return modal, ErrSubmitting
	case !modal.CanConfirm():
		return modal, ErrReasonRequired
	}

	t.state = Reduce(t.state, VerifyStarted{})

	return modal, nil
}

// Verify accepts or rejects an uploaded document in one call.
func (t *Tracker) Verify(ctx context.Context, documentID string, accepted bool, reason string) error {
	if err := t.OpenVerification(documentID, accepted); err != nil {
		return err
	}

	t.SetReason(reason)

	return t.ConfirmVerification(ctx)
}

func (t *Tracker) publish(ctx context.Context, doc *models.RequiredDocument) {
	if t.publisher == nil || doc == nil {
		return
	}

	if err := t.publisher.Publish(ctx, t.applicationID, events.NewDocumentChanged(t.applicationID, "", doc)); err != nil {
		t.logger.WarnContext(ctx, "Failed to publish document event", "document_id", doc.ID, "error", err)
	}
}
