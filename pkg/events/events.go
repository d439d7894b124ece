// Package events defines the change notifications published when an
// application's documents or workflow change.
package events

import (
	"time"

	"github.com/dukex/appflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every application event.
const Topic = "appflow.applications"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ApplicationCreatedEvent EventType = "application.created"

	// Document lifecycle events.
	DocumentUploadedEvent EventType = "document.uploaded"
	DocumentVerifiedEvent EventType = "document.verified"
	DocumentRejectedEvent EventType = "document.rejected"

	// Workflow lifecycle events.
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowAdvancedEvent  EventType = "workflow.advanced"
	WorkflowSentBackEvent  EventType = "workflow.sent_back"
	WorkflowRejectedEvent  EventType = "workflow.rejected"
	WorkflowCompletedEvent EventType = "workflow.completed"
	StepSLABreachedEvent   EventType = "workflow.step.sla_breached"
)

type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ApplicationID string    `json:"application_id"`
	Actor         string    `json:"actor,omitempty"`
}

func newBase(eventType EventType, applicationID, actor string) BaseEvent {
	return BaseEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		ApplicationID: applicationID,
		Actor:         actor,
	}
}

type ApplicationCreated struct {
	BaseEvent

	ServiceCode string `json:"service_code"`
}

func (e ApplicationCreated) GetType() EventType {
	return ApplicationCreatedEvent
}

// NewApplicationCreated builds the event emitted when an application is instantiated.
func NewApplicationCreated(application *models.Application) *ApplicationCreated {
	return &ApplicationCreated{
		BaseEvent:   newBase(ApplicationCreatedEvent, application.ID, ""),
		ServiceCode: application.ServiceCode,
	}
}

// DocumentChanged is emitted for uploads, verifications and rejections.
type DocumentChanged struct {
	BaseEvent

	DocumentID string                `json:"document_id"`
	Status     models.DocumentStatus `json:"status"`
	Reason     string                `json:"reason,omitempty"`
}

func (e DocumentChanged) GetType() EventType {
	return e.Type
}

// NewDocumentChanged builds the event matching the document's new status.
func NewDocumentChanged(applicationID, actor string, doc *models.RequiredDocument) *DocumentChanged {
	eventType := DocumentUploadedEvent

	switch doc.Status {
	case models.DocumentStatusVerified:
		eventType = DocumentVerifiedEvent
	case models.DocumentStatusRejected:
		eventType = DocumentRejectedEvent
	}

	return &DocumentChanged{
		BaseEvent:  newBase(eventType, applicationID, actor),
		DocumentID: doc.ID,
		Status:     doc.Status,
		Reason:     doc.RejectionReason,
	}
}

// WorkflowChanged is emitted for every workflow transition.
type WorkflowChanged struct {
	BaseEvent

	WorkflowStatus models.ApplicationWorkflowStatus `json:"workflow_status"`
	CurrentStep    int                              `json:"current_step"`
	TotalSteps     int                              `json:"total_steps"`
	Remarks        string                           `json:"remarks,omitempty"`
}

func (e WorkflowChanged) GetType() EventType {
	return e.Type
}

// NewWorkflowChanged builds a workflow event of the given type.
func NewWorkflowChanged(
	eventType EventType,
	applicationID, actor string,
	status models.ApplicationWorkflowStatus,
	currentStep, totalSteps int,
	remarks string,
) *WorkflowChanged {
	return &WorkflowChanged{
		BaseEvent:      newBase(eventType, applicationID, actor),
		WorkflowStatus: status,
		CurrentStep:    currentStep,
		TotalSteps:     totalSteps,
		Remarks:        remarks,
	}
}

// StepSLABreached is emitted when a step in progress passes its SLA deadline.
type StepSLABreached struct {
	BaseEvent

	StepNumber  int       `json:"step_number"`
	StepName    string    `json:"step_name"`
	SLADeadline time.Time `json:"sla_deadline"`
}

func (e StepSLABreached) GetType() EventType {
	return StepSLABreachedEvent
}

// NewStepSLABreached builds the breach event for step.
func NewStepSLABreached(applicationID string, step *models.WorkflowStep) *StepSLABreached {
	event := &StepSLABreached{
		BaseEvent:  newBase(StepSLABreachedEvent, applicationID, ""),
		StepNumber: step.StepNumber,
		StepName:   step.StepName,
	}

	if step.SLADeadline != nil {
		event.SLADeadline = *step.SLADeadline
	}

	return event
}

// IsDocumentEvent reports whether t describes a document change.
func IsDocumentEvent(t EventType) bool {
	switch t {
	case DocumentUploadedEvent, DocumentVerifiedEvent, DocumentRejectedEvent:
		return true
	default:
		return false
	}
}

// IsWorkflowEvent reports whether t describes a workflow change.
func IsWorkflowEvent(t EventType) bool {
	switch t {
	case WorkflowStartedEvent, WorkflowAdvancedEvent, WorkflowSentBackEvent,
		WorkflowRejectedEvent, WorkflowCompletedEvent, StepSLABreachedEvent:
		return true
	default:
		return false
	}
}
