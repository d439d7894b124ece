package apiclient

import (
	"context"
	"net/http"

	"github.com/dukex/appflow/pkg/models"
)

// CreateApplication instantiates an application from a service template.
func (c *Client) CreateApplication(ctx context.Context, req models.CreateApplicationRequest) (*models.Application, error) {
	var application models.Application

	if err := c.do(ctx, "CreateApplication", http.MethodPost, "/applications", req, &application); err != nil {
		return nil, err
	}

	return &application, nil
}

// GetApplication fetches an application.
func (c *Client) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	var application models.Application

	if err := c.do(ctx, "GetApplication", http.MethodGet, applicationPath(applicationID), nil, &application); err != nil {
		return nil, err
	}

	return &application, nil
}

// ListApplications fetches every application, newest first.
func (c *Client) ListApplications(ctx context.Context) ([]*models.Application, error) {
	var applications []*models.Application

	if err := c.do(ctx, "ListApplications", http.MethodGet, "/applications", nil, &applications); err != nil {
		return nil, err
	}

	return applications, nil
}
