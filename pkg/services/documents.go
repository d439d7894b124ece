package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/appflow/pkg/documents"
	"github.com/dukex/appflow/pkg/events"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// ListRequiredDocuments returns the documents of an application in template order.
func (a *Applications) ListRequiredDocuments(ctx context.Context, applicationID string) ([]*models.RequiredDocument, error) {
	record, err := a.repo().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	return record.Documents, nil
}

// DocumentStatus summarizes the documents of an application.
func (a *Applications) DocumentStatus(ctx context.Context, applicationID string) (*models.DocumentStatusSummary, error) {
	record, err := a.repo().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	summary := models.Summarize(record.Documents)

	return &summary, nil
}

// UploadDocument records a stored file against a pending or rejected document.
func (a *Applications) UploadDocument(
	ctx context.Context,
	applicationID, documentID string,
	req models.UploadDocumentRequest,
) (_ *models.RequiredDocument, err error) {
	ctx, span := a.startSpan(ctx, "UploadDocument", applicationID, attribute.String(otelhelper.DocumentIDKey, documentID))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(req.FileURL) == "" || strings.TrimSpace(req.OriginalFilename) == "" {
		return nil, NewValidationError("UploadDocument", "FILE_REQUIRED", "file_url and original_filename are required", ErrInvalidRequest)
	}

	var updated *models.RequiredDocument

	_, err = a.mutate(ctx, applicationID, func(record *models.ApplicationRecord) error {
		doc := record.Document(documentID)
		if doc == nil {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
		}

		if !doc.AcceptsFormat(req.OriginalFilename) {
			return NewValidationError("UploadDocument", "UNSUPPORTED_FORMAT",
				fmt.Sprintf("file format not accepted, expected one of %s", strings.Join(doc.AcceptedFormats, ", ")),
				ErrInvalidRequest)
		}

		if limit := doc.MaxSizeBytes(); limit > 0 && req.FileSizeBytes > limit {
			return NewValidationError("UploadDocument", "FILE_TOO_LARGE",
				fmt.Sprintf("file exceeds the maximum size of %.1f MB", doc.MaxSizeMB), ErrInvalidRequest)
		}

		uploaded := models.UploadedDocument{
			FileURL:          req.FileURL,
			OriginalFilename: req.OriginalFilename,
			FileType:         req.FileType,
			FileSizeBytes:    req.FileSizeBytes,
		}

		if err := documents.ApplyUpload(doc, uploaded, a.now()); err != nil {
			return newRuleError("UploadDocument", err)
		}

		updated = doc

		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Document uploaded",
		"application_id", applicationID,
		"document_id", documentID,
		"file", req.OriginalFilename)
	a.publish(ctx, applicationID, events.NewDocumentChanged(applicationID, ActorFrom(ctx), updated))

	return updated, nil
}

// VerifyDocument accepts an uploaded document or rejects it with a reason.
func (a *Applications) VerifyDocument(
	ctx context.Context,
	applicationID, documentID string,
	req models.VerifyDocumentRequest,
) (_ *models.RequiredDocument, err error) {
	ctx, span := a.startSpan(ctx, "VerifyDocument", applicationID, attribute.String(otelhelper.DocumentIDKey, documentID))
	defer func() { endSpan(span, err) }()

	if req.Verified == nil {
		return nil, NewValidationError("VerifyDocument", "VERIFIED_REQUIRED", "verified is required", ErrInvalidRequest)
	}

	var updated *models.RequiredDocument

	_, err = a.mutate(ctx, applicationID, func(record *models.ApplicationRecord) error {
		doc := record.Document(documentID)
		if doc == nil {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
		}

		if err := documents.ApplyVerification(doc, *req.Verified, req.RejectionReason, a.now()); err != nil {
			return newRuleError("VerifyDocument", err)
		}

		updated = doc

		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Document verified",
		"application_id", applicationID,
		"document_id", documentID,
		"status", updated.Status)
	a.publish(ctx, applicationID, events.NewDocumentChanged(applicationID, ActorFrom(ctx), updated))

	return updated, nil
}
