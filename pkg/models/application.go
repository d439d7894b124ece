package models

import "time"

// Application is a citizen application instantiated from a service template.
type Application struct {
	ID             string                    `json:"id"`
	ServiceCode    string                    `json:"service_code"`
	ServiceName    string                    `json:"service_name"`
	ApplicantName  string                    `json:"applicant_name"`
	WorkflowStatus ApplicationWorkflowStatus `json:"workflow_status"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// ApplicationRecord is the aggregate persisted for one application.
type ApplicationRecord struct {
	Application *Application        `json:"application"`
	Documents   []*RequiredDocument `json:"documents"`
	Steps       []*WorkflowStep     `json:"steps"`
}

// Document returns the document with the given id, or nil.
func (r *ApplicationRecord) Document(id string) *RequiredDocument {
	for _, doc := range r.Documents {
		if doc.ID == id {
			return doc
		}
	}

	return nil
}

// ServiceTemplate describes the documents and workflow an application of a
// service starts with.
type ServiceTemplate struct {
	Code      string             `json:"code"      validate:"required"`
	Name      string             `json:"name"      validate:"required"`
	Documents []DocumentTemplate `json:"documents" validate:"dive"`
	Steps     []StepTemplate     `json:"steps"     validate:"dive"`
}

// DocumentTemplate is the blueprint of a RequiredDocument.
type DocumentTemplate struct {
	DocumentName      string   `json:"document_name"       validate:"required"`
	DocumentNameLocal string   `json:"document_name_local,omitempty"`
	DocumentType      string   `json:"document_type"       validate:"required"`
	IsMandatory       bool     `json:"is_mandatory"`
	AcceptedFormats   []string `json:"accepted_formats"`
	MaxSizeMB         float64  `json:"max_size_mb"         validate:"gt=0"`
	Description       string   `json:"description,omitempty"`
	SampleURL         string   `json:"sample_url,omitempty" validate:"omitempty,url"`
}

// StepTemplate is the blueprint of a WorkflowStep. Steps are numbered in
// template order.
type StepTemplate struct {
	StepName        string   `json:"step_name"        validate:"required"`
	StepNameLocal   string   `json:"step_name_local,omitempty"`
	StepType        StepType `json:"step_type"        validate:"required,oneof=manual automatic verification approval"`
	StepDescription string   `json:"step_description,omitempty"`
	AssignedRole    string   `json:"assigned_role"    validate:"required"`
	CanSendBack     bool     `json:"can_send_back"`
	CanReject       bool     `json:"can_reject"`
	SLAHours        int      `json:"sla_hours"        validate:"gte=0"`
}
