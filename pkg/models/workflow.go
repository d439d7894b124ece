// Package models defines the domain model of citizen applications: their
// required documents and their processing workflow.
package models

// ApplicationWorkflowStatus is the aggregate status of an application's workflow.
type ApplicationWorkflowStatus string

const (
	WorkflowStatusNotStarted ApplicationWorkflowStatus = "not_started"
	WorkflowStatusInProgress ApplicationWorkflowStatus = "in_progress"
	WorkflowStatusCompleted  ApplicationWorkflowStatus = "completed"
	WorkflowStatusOnHold     ApplicationWorkflowStatus = "on_hold"
	WorkflowStatusCancelled  ApplicationWorkflowStatus = "cancelled"
	WorkflowStatusRejected   ApplicationWorkflowStatus = "rejected" // reached through the reject action
)

// IsTerminal reports whether no further workflow transitions are possible.
func (s ApplicationWorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusCancelled, WorkflowStatusRejected:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a known workflow status.
func (s ApplicationWorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowStatusNotStarted, WorkflowStatusInProgress, WorkflowStatusCompleted,
		WorkflowStatusOnHold, WorkflowStatusCancelled, WorkflowStatusRejected:
		return true
	default:
		return false
	}
}
