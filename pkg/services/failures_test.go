package services_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/appflow/pkg/events"
	"github.com/dukex/appflow/pkg/mocks"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/services"
	"github.com/dukex/appflow/pkg/templates"
	"github.com/dukex/appflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

func newMockedService(t *testing.T, bus *mocks.MockEventBus) (*services.Applications, *mocks.MockPersistence) {
	t.Helper()

	catalog, err := templates.Builtin()
	require.NoError(t, err)

	persistence := mocks.NewMockPersistence()

	opts := []services.Option{}
	if bus != nil {
		opts = append(opts, services.WithPublisher(bus))
	}

	return services.NewApplications(persistence, catalog, slog.New(slog.DiscardHandler), opts...), persistence
}

func pendingRecord() *models.ApplicationRecord {
	return &models.ApplicationRecord{
		Application: &models.Application{ID: "app-1", WorkflowStatus: models.WorkflowStatusNotStarted},
		Documents: []*models.RequiredDocument{{
			ID:              "doc-1",
			ApplicationID:   "app-1",
			DocumentName:    "Identity Proof",
			IsMandatory:     true,
			AcceptedFormats: []string{"pdf"},
			MaxSizeMB:       2,
			Status:          models.DocumentStatusPending,
		}},
	}
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	service, persistence := newMockedService(t, nil)
	persistence.On("HealthCheck", mock.Anything).Return(errDiskFull)

	message, healthy := service.HealthCheck(context.Background())

	assert.False(t, healthy)
	assert.Equal(t, "Persistence layer is unhealthy: disk full", message)
	persistence.AssertExpectations(t)
}

func TestUploadDocument_SaveFailure(t *testing.T) {
	service, persistence := newMockedService(t, nil)
	persistence.Applications.On("GetByID", mock.Anything, "app-1").Return(pendingRecord(), nil)
	persistence.Applications.On("Save", mock.Anything, mock.Anything).Return(errDiskFull)

	_, err := service.UploadDocument(context.Background(), "app-1", "doc-1", models.UploadDocumentRequest{
		FileURL:          "https://files.example.org/id.pdf",
		OriginalFilename: "id.pdf",
		FileType:         "pdf",
		FileSizeBytes:    1024,
	})

	require.ErrorIs(t, err, errDiskFull)
	assert.False(t, services.IsRuleError(err))
	persistence.Applications.AssertExpectations(t)
}

func TestCreateApplication_PublishFailureIsIgnored(t *testing.T) {
	bus := &mocks.MockEventBus{}
	service, persistence := newMockedService(t, bus)

	persistence.Applications.On("Save", mock.Anything, mock.AnythingOfType("*models.ApplicationRecord")).Return(nil)
	bus.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(event *events.ApplicationCreated) bool {
		return event.ServiceCode == "trade-license"
	})).Return(errors.New("broker unavailable"))

	application, err := service.CreateApplication(context.Background(), models.CreateApplicationRequest{
		ServiceCode:   "trade-license",
		ApplicantName: "Farah Khan",
	})

	require.NoError(t, err)
	assert.Equal(t, "Trade License", application.ServiceName)
	bus.AssertCalled(t, "Publish", mock.Anything, application.ID, mock.Anything)
}

func TestMarkBreachedSteps_ListFailure(t *testing.T) {
	service, persistence := newMockedService(t, nil)
	persistence.Applications.On("ListByWorkflowStatus", mock.Anything, models.WorkflowStatusInProgress).Return(nil, errDiskFull)

	count, err := service.MarkBreachedSteps(context.Background())

	require.ErrorIs(t, err, errDiskFull)
	assert.Zero(t, count)
}

func TestMutate_RefusesInconsistentDocuments(t *testing.T) {
	service, persistence := newMockedService(t, nil)

	record := pendingRecord()
	record.Documents = append(record.Documents, &models.RequiredDocument{
		ID:            "doc-2",
		ApplicationID: "app-1",
		DocumentName:  "Address Proof",
		Status:        models.DocumentStatusRejected,
		UploadedDocument: &models.UploadedDocument{
			FileURL:          "https://files.example.org/bill.pdf",
			OriginalFilename: "bill.pdf",
		},
	})
	persistence.Applications.On("GetByID", mock.Anything, "app-1").Return(record, nil)

	_, err := service.UploadDocument(context.Background(), "app-1", "doc-1", models.UploadDocumentRequest{
		FileURL:          "https://files.example.org/id.pdf",
		OriginalFilename: "id.pdf",
		FileType:         "pdf",
		FileSizeBytes:    1024,
	})

	require.ErrorIs(t, err, services.ErrInvalidRecord)
	require.ErrorIs(t, err, models.ErrRejectedWithoutReason)
	persistence.Applications.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestMutate_RefusesBrokenStepNumbering(t *testing.T) {
	service, persistence := newMockedService(t, nil)

	record := pendingRecord()
	record.Steps = []*models.WorkflowStep{
		{ID: "step-1", StepNumber: 1, StepName: "Scrutiny", Status: models.StepStatusPending, SLAHours: 24},
		{ID: "step-3", StepNumber: 3, StepName: "Approval", Status: models.StepStatusPending, SLAHours: 24},
	}
	persistence.Applications.On("GetByID", mock.Anything, "app-1").Return(record, nil)

	_, err := service.StartWorkflow(context.Background(), "app-1")

	require.ErrorIs(t, err, services.ErrInvalidRecord)
	require.ErrorIs(t, err, workflow.ErrStepNumbering)
	assert.False(t, services.IsRuleError(err))
	persistence.Applications.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
