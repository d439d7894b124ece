package mocks

import (
	"context"

	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockApplicationRepository is a mock implementation of persistence.ApplicationRepository interface.
type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ApplicationRecord), args.Error(1)
}

func (m *MockApplicationRepository) Save(ctx context.Context, record *models.ApplicationRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockApplicationRepository) List(ctx context.Context) ([]*models.Application, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Application), args.Error(1)
}

func (m *MockApplicationRepository) ListByWorkflowStatus(
	ctx context.Context,
	status models.ApplicationWorkflowStatus,
) ([]*models.ApplicationRecord, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ApplicationRecord), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Applications *MockApplicationRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{Applications: &MockApplicationRepository{}}
}

func (m *MockPersistence) ApplicationRepository() persistence.ApplicationRepository {
	return m.Applications
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
