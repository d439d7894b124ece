package console_test

import (
	"testing"
	"time"

	"github.com/dukex/appflow/pkg/console"
	"github.com/dukex/appflow/pkg/documents"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
)

func plain() *console.Renderer {
	return console.NewRenderer(console.PlainStyles())
}

func TestDocuments(t *testing.T) {
	state := documents.NewState(models.Permissions{CanUpload: true, CanVerify: true})
	state.Documents = []*models.RequiredDocument{
		{ID: "d1", DocumentName: "Aadhaar Card", IsMandatory: true, Status: models.DocumentStatusVerified,
			AcceptedFormats: []string{"pdf"}, MaxSizeMB: 2,
			UploadedDocument: &models.UploadedDocument{OriginalFilename: "aadhaar.pdf"}},
		{ID: "d2", DocumentName: "Address Proof", IsMandatory: true, Status: models.DocumentStatusRejected,
			RejectionReason: "Expired", UploadedDocument: &models.UploadedDocument{OriginalFilename: "bill.pdf"}},
		{ID: "d3", DocumentName: "Photo", Status: models.DocumentStatusUploaded,
			UploadedDocument: &models.UploadedDocument{OriginalFilename: "me.jpg"}},
	}
	state.Summary = models.Summarize(state.Documents)

	out := plain().Documents(state)

	assert.Contains(t, out, "50% (1 of 2 mandatory verified)")
	assert.Contains(t, out, "Aadhaar Card *")
	assert.Contains(t, out, "PDF | max 2.0 MB | file: aadhaar.pdf")
	assert.Contains(t, out, "Rejected: Expired")
	assert.Contains(t, out, "Actions: upload")
	assert.Contains(t, out, "Actions: verify, reject")
	assert.Contains(t, out, "Missing: Address Proof")
}

func TestDocuments_NoMandatory(t *testing.T) {
	state := documents.NewState(models.Permissions{})
	state.Summary = models.Summarize(nil)

	out := plain().Documents(state)

	assert.Contains(t, out, "No mandatory documents")
	assert.NotContains(t, out, "NaN")
}

func TestWorkflow_EmptyStates(t *testing.T) {
	manager := workflow.NewState(models.Permissions{CanManage: true})
	manager.StartError = "Failed to start workflow"

	out := plain().Workflow(manager)
	assert.Contains(t, out, "Workflow has not been started")
	assert.Contains(t, out, "Actions: start")
	assert.Contains(t, out, "Failed to start workflow")

	viewer := workflow.NewState(models.Permissions{})

	assert.NotContains(t, plain().Workflow(viewer), "Actions: start")

	pending := workflow.NewState(models.Permissions{CanManage: true})
	pending.Steps = []*models.WorkflowStep{{StepNumber: 1, StepName: "Scrutiny", Status: models.StepStatusPending}}

	out = plain().Workflow(pending)
	assert.Contains(t, out, "[ ] 1. Scrutiny")
	assert.Contains(t, out, "Actions: start")

	unconfigured := workflow.NewState(models.Permissions{CanManage: true})
	unconfigured.Status = models.WorkflowStatusInProgress

	assert.Contains(t, plain().Workflow(unconfigured), "No workflow configured")
}

func TestWorkflow_InProgress(t *testing.T) {
	completedAt := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	due := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	state := workflow.NewState(models.Permissions{CanManage: true})
	state.Status = models.WorkflowStatusInProgress
	state.Steps = []*models.WorkflowStep{
		{StepNumber: 1, StepName: "Scrutiny", AssignedRole: "clerk", Status: models.StepStatusCompleted,
			CompletedByName: "Clerk Rao", CompletedAt: &completedAt, Remarks: "All good"},
		{StepNumber: 2, StepName: "Inspection", AssignedRole: "inspector", Status: models.StepStatusInProgress,
			CanSendBack: true, CanReject: true, SLABreached: true, SLADeadline: &due},
		{StepNumber: 3, StepName: "Approval", AssignedRole: "registrar", Status: models.StepStatusPending, SLADeadline: &due},
	}

	out := plain().Workflow(state)

	assert.Contains(t, out, "in progress")
	assert.Contains(t, out, "33%  Step 2 of 3")
	assert.Contains(t, out, "[x] 1. Scrutiny (clerk)")
	assert.Contains(t, out, "by Clerk Rao on 02 Mar 2026 10:30")
	assert.Contains(t, out, "[>] 2. Inspection")
	assert.Contains(t, out, "SLA breached (due 04 Mar 2026 09:00)")
	assert.Contains(t, out, "Due by 04 Mar 2026 09:00")
	assert.Contains(t, out, "Actions: advance, send_back, reject")
}

func TestApplications(t *testing.T) {
	assert.Equal(t, "No applications", plain().Applications(nil))

	out := plain().Applications([]*models.Application{{
		ID: "a1", ServiceName: "Trade License", ApplicantName: "Meera Pillai", WorkflowStatus: models.WorkflowStatusNotStarted,
	}})

	assert.Contains(t, out, "Trade License")
	assert.Contains(t, out, "not started")
}
