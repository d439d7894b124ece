package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dukex/appflow/pkg/models"
)

// ListRequiredDocuments fetches the required documents of an application.
func (c *Client) ListRequiredDocuments(ctx context.Context, applicationID string) ([]*models.RequiredDocument, error) {
	var documents []*models.RequiredDocument

	err := c.do(ctx, "ListRequiredDocuments", http.MethodGet, applicationPath(applicationID, "required-documents"), nil, &documents)
	if err != nil {
		return nil, err
	}

	return documents, nil
}

// DocumentStatus fetches the document status summary of an application.
func (c *Client) DocumentStatus(ctx context.Context, applicationID string) (*models.DocumentStatusSummary, error) {
	var summary models.DocumentStatusSummary

	err := c.do(ctx, "DocumentStatus", http.MethodGet, applicationPath(applicationID, "required-documents", "status"), nil, &summary)
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

// UploadDocument records an uploaded file against a required document.
func (c *Client) UploadDocument(
	ctx context.Context,
	applicationID, documentID string,
	req models.UploadDocumentRequest,
) (*models.RequiredDocument, error) {
	var document models.RequiredDocument

	path := applicationPath(applicationID, "required-documents", url.PathEscape(documentID), "upload")
	if err := c.do(ctx, "UploadDocument", http.MethodPost, path, req, &document); err != nil {
		return nil, err
	}

	return &document, nil
}

// VerifyDocument accepts or rejects an uploaded document.
func (c *Client) VerifyDocument(
	ctx context.Context,
	applicationID, documentID string,
	req models.VerifyDocumentRequest,
) (*models.RequiredDocument, error) {
	var document models.RequiredDocument

	path := applicationPath(applicationID, "required-documents", url.PathEscape(documentID), "verify")
	if err := c.do(ctx, "VerifyDocument", http.MethodPost, path, req, &document); err != nil {
		return nil, err
	}

	return &document, nil
}
