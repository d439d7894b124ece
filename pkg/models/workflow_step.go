package models

import "time"

// StepType classifies how a workflow step is carried out.
type StepType string

const (
	StepTypeManual       StepType = "manual"
	StepTypeAutomatic    StepType = "automatic"
	StepTypeVerification StepType = "verification"
	StepTypeApproval     StepType = "approval"
)

// StepStatus represents the state of a single workflow step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusSkipped    StepStatus = "skipped"
)

// IsDone reports whether the step no longer blocks the steps after it.
func (s StepStatus) IsDone() bool {
	return s == StepStatusCompleted || s == StepStatusSkipped
}

// WorkflowStep is one stage in an application's processing pipeline.
type WorkflowStep struct {
	ID              string     `json:"id"`
	ApplicationID   string     `json:"application_id,omitempty"`
	StepNumber      int        `json:"step_number"`
	StepName        string     `json:"step_name"`
	StepNameLocal   string     `json:"step_name_local,omitempty"`
	StepType        StepType   `json:"step_type"`
	StepDescription string     `json:"step_description,omitempty"`
	AssignedRole    string     `json:"assigned_role"`
	Status          StepStatus `json:"status"`
	CanSendBack     bool       `json:"can_send_back"`
	CanReject       bool       `json:"can_reject"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletedByName string     `json:"completed_by_name,omitempty"`
	SLAHours        int        `json:"sla_hours,omitempty"`
	SLADeadline     *time.Time `json:"sla_deadline,omitempty"`
	SLABreached     bool       `json:"sla_breached"`
	Remarks         string     `json:"remarks,omitempty"`
}

// DisplayName prefers the localized name when present.
func (s *WorkflowStep) DisplayName() string {
	if s.StepNameLocal != "" {
		return s.StepNameLocal
	}

	return s.StepName
}

// Clone returns a deep copy of the step.
func (s *WorkflowStep) Clone() *WorkflowStep {
	c := *s
	c.StartedAt = cloneTime(s.StartedAt)
	c.CompletedAt = cloneTime(s.CompletedAt)
	c.SLADeadline = cloneTime(s.SLADeadline)

	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}

// CurrentStepSummary is the response of the current-step endpoint.
type CurrentStepSummary struct {
	WorkflowStatus ApplicationWorkflowStatus `json:"workflow_status"`
	CurrentStep    *WorkflowStep             `json:"current_step,omitempty"`
	TotalSteps     int                       `json:"total_steps"`
	CompletedSteps int                       `json:"completed_steps"`
}

// StartWorkflowResponse is returned when a workflow is started.
type StartWorkflowResponse struct {
	CurrentStep int `json:"current_step"`
	TotalSteps  int `json:"total_steps"`
}

// WorkflowAdvanceResponse is returned by the advance endpoint for all three actions.
type WorkflowAdvanceResponse struct {
	WorkflowStatus ApplicationWorkflowStatus `json:"workflow_status"`
	CurrentStep    int                       `json:"current_step"`
	TotalSteps     int                       `json:"total_steps"`
	Completed      bool                      `json:"completed"`
}
