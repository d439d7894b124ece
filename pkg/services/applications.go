package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/appflow/pkg/eventbus"
	"github.com/dukex/appflow/pkg/events"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/otelhelper"
	"github.com/dukex/appflow/pkg/persistence"
	"github.com/dukex/appflow/pkg/workflow"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TemplateCatalog resolves service templates by code.
type TemplateCatalog interface {
	Lookup(code string) (*models.ServiceTemplate, error)
}

// Applications is the application service. Mutations of one application are
// serialized; different applications proceed in parallel.
type Applications struct {
	persistence persistence.Persistence
	templates   TemplateCatalog
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	locks       keyedMutex
}

// Option configures Applications.
type Option func(*Applications)

// WithPublisher publishes an audit event for every change.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(a *Applications) { a.publisher = publisher }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Applications) { a.now = now }
}

// NewApplications creates the application service.
func NewApplications(
	persistence persistence.Persistence,
	templates TemplateCatalog,
	logger *slog.Logger,
	opts ...Option,
) *Applications {
	a := &Applications{
		persistence: persistence,
		templates:   templates,
		logger:      logger,
		tracer:      otel.Tracer("appflow/services"),
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// HealthCheck checks the health of the persistence layer.
func (a *Applications) HealthCheck(ctx context.Context) (string, bool) {
	if a.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := a.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (a *Applications) repo() persistence.ApplicationRepository {
	return a.persistence.ApplicationRepository()
}

// nolint:spancheck
func (a *Applications) startSpan(ctx context.Context, op, applicationID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String(otelhelper.ApplicationIDKey, applicationID))

	return otelhelper.StartSpan(ctx, a.tracer, "services."+op, attrs...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		otelhelper.SetError(span, err)
	}

	span.End()
}

// CreateApplication instantiates an application from its service template:
// every document starts pending and every step starts pending.
func (a *Applications) CreateApplication(ctx context.Context, req models.CreateApplicationRequest) (_ *models.Application, err error) {
	ctx, span := a.startSpan(ctx, "CreateApplication", "", attribute.String(otelhelper.ServiceCodeKey, req.ServiceCode))
	defer func() { endSpan(span, err) }()

	applicantName := strings.TrimSpace(req.ApplicantName)
	if applicantName == "" {
		return nil, NewValidationError("CreateApplication", "APPLICANT_REQUIRED", "applicant name is required", ErrInvalidRequest)
	}

	template, err := a.templates.Lookup(req.ServiceCode)
	if err != nil {
		return nil, err
	}

	record := instantiate(template, applicantName, a.now())

	err = validateRecord(record)
	if err != nil {
		return nil, err
	}

	err = a.repo().Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	a.logger.InfoContext(ctx, "Application created",
		"application_id", record.Application.ID,
		"service_code", template.Code,
		"documents", len(record.Documents),
		"steps", len(record.Steps))
	a.publish(ctx, record.Application.ID, events.NewApplicationCreated(record.Application))

	return record.Application, nil
}

func instantiate(template *models.ServiceTemplate, applicantName string, now time.Time) *models.ApplicationRecord {
	applicationID := uuid.NewString()

	record := &models.ApplicationRecord{
		Application: &models.Application{
			ID:             applicationID,
			ServiceCode:    template.Code,
			ServiceName:    template.Name,
			ApplicantName:  applicantName,
			WorkflowStatus: models.WorkflowStatusNotStarted,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		Documents: make([]*models.RequiredDocument, 0, len(template.Documents)),
		Steps:     make([]*models.WorkflowStep, 0, len(template.Steps)),
	}

	for _, doc := range template.Documents {
		record.Documents = append(record.Documents, &models.RequiredDocument{
			ID:                uuid.NewString(),
			ApplicationID:     applicationID,
			DocumentName:      doc.DocumentName,
			DocumentNameLocal: doc.DocumentNameLocal,
			DocumentType:      doc.DocumentType,
			IsMandatory:       doc.IsMandatory,
			AcceptedFormats:   doc.AcceptedFormats,
			MaxSizeMB:         doc.MaxSizeMB,
			Description:       doc.Description,
			SampleURL:         doc.SampleURL,
			Status:            models.DocumentStatusPending,
			UpdatedAt:         now,
		})
	}

	for i, step := range template.Steps {
		record.Steps = append(record.Steps, &models.WorkflowStep{
			ID:              uuid.NewString(),
			ApplicationID:   applicationID,
			StepNumber:      i + 1,
			StepName:        step.StepName,
			StepNameLocal:   step.StepNameLocal,
			StepType:        step.StepType,
			StepDescription: step.StepDescription,
			AssignedRole:    step.AssignedRole,
			Status:          models.StepStatusPending,
			CanSendBack:     step.CanSendBack,
			CanReject:       step.CanReject,
			SLAHours:        step.SLAHours,
		})
	}

	return record
}

// GetApplication returns the application without its documents and steps.
func (a *Applications) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	record, err := a.repo().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	return record.Application, nil
}

// ListApplications returns every application, newest first.
func (a *Applications) ListApplications(ctx context.Context) ([]*models.Application, error) {
	applications, err := a.repo().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return applications, nil
}

// mutate loads a record under the application's lock, applies fn and saves
// the result when fn succeeds.
func (a *Applications) mutate(ctx context.Context, applicationID string, fn func(*models.ApplicationRecord) error) (*models.ApplicationRecord, error) {
	unlock := a.locks.Lock(applicationID)
	defer unlock()

	record, err := a.repo().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	err = fn(record)
	if err != nil {
		return nil, err
	}

	err = validateRecord(record)
	if err != nil {
		a.logger.ErrorContext(ctx, "Refusing to save inconsistent application",
			"application_id", applicationID,
			"error", err)

		return nil, err
	}

	err = a.repo().Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to save application %s: %w", applicationID, err)
	}

	return record, nil
}

// validateRecord checks the document and workflow invariants of a record
// before it is persisted.
func validateRecord(record *models.ApplicationRecord) error {
	for _, doc := range record.Documents {
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("%w: document %s: %w", ErrInvalidRecord, doc.ID, err)
		}
	}

	if err := models.Summarize(record.Documents).Validate(len(record.Documents)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if err := workflow.CheckInvariants(record.Steps, record.Application.WorkflowStatus); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	return nil
}

func (a *Applications) publish(ctx context.Context, applicationID string, event eventbus.Event) {
	if a.publisher == nil {
		return
	}

	err := a.publisher.Publish(ctx, applicationID, event)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to publish event",
			"application_id", applicationID,
			"event_type", event.GetType(),
			"error", err)
	}
}
