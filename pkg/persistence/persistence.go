// Package persistence provides the storage abstraction for applications,
// their required documents and their workflow steps.
package persistence

import (
	"context"

	"github.com/dukex/appflow/pkg/models"
)

type Persistence interface {
	ApplicationRepository() ApplicationRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// ApplicationRepository stores application records as a whole: the
// application, its documents and its steps are saved and loaded together.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id string) (*models.ApplicationRecord, error)
	Save(ctx context.Context, record *models.ApplicationRecord) error
	List(ctx context.Context) ([]*models.Application, error)
	ListByWorkflowStatus(ctx context.Context, status models.ApplicationWorkflowStatus) ([]*models.ApplicationRecord, error)
}
