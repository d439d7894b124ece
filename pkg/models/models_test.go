package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	requiredTag = "required"
	gtTag       = "gt"
)

func validationTags(t *testing.T, err error) map[string]string {
	t.Helper()

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors), "expected validation errors, got %v", err)

	tags := map[string]string{}
	for _, fieldErr := range validationErrors {
		tags[fieldErr.Field()] = fieldErr.Tag()
	}

	return tags
}

// RequiredDocument

func TestRequiredDocument_Validate(t *testing.T) {
	uploaded := &UploadedDocument{FileURL: "file:///a.pdf", OriginalFilename: "a.pdf"}

	tests := []struct {
		name    string
		doc     RequiredDocument
		wantErr error
	}{
		{name: "pending", doc: RequiredDocument{Status: DocumentStatusPending}},
		{name: "uploaded", doc: RequiredDocument{Status: DocumentStatusUploaded, UploadedDocument: uploaded}},
		{name: "verified", doc: RequiredDocument{Status: DocumentStatusVerified, UploadedDocument: uploaded}},
		{
			name: "rejected",
			doc:  RequiredDocument{Status: DocumentStatusRejected, UploadedDocument: uploaded, RejectionReason: "blurry"},
		},
		{
			name:    "pending with upload",
			doc:     RequiredDocument{Status: DocumentStatusPending, UploadedDocument: uploaded},
			wantErr: ErrPendingDocumentHasUpload,
		},
		{
			name:    "uploaded without file",
			doc:     RequiredDocument{Status: DocumentStatusUploaded},
			wantErr: ErrMissingUploadedDocument,
		},
		{
			name:    "rejected without reason",
			doc:     RequiredDocument{Status: DocumentStatusRejected, UploadedDocument: uploaded, RejectionReason: "  "},
			wantErr: ErrRejectedWithoutReason,
		},
		{
			name:    "unknown status",
			doc:     RequiredDocument{Status: "archived"},
			wantErr: ErrInvalidDocumentStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequiredDocument_AcceptsFormat(t *testing.T) {
	doc := RequiredDocument{AcceptedFormats: []string{".PDF", "jpg"}}

	assert.True(t, doc.AcceptsFormat("scan.pdf"))
	assert.True(t, doc.AcceptsFormat("PHOTO.JPG"))
	assert.False(t, doc.AcceptsFormat("photo.png"))
	assert.False(t, doc.AcceptsFormat("no-extension"))

	assert.True(t, (&RequiredDocument{}).AcceptsFormat("anything.bin"))
}

func TestRequiredDocument_MaxSizeBytes(t *testing.T) {
	assert.Equal(t, int64(2*1024*1024), (&RequiredDocument{MaxSizeMB: 2}).MaxSizeBytes())
	assert.Equal(t, int64(512*1024), (&RequiredDocument{MaxSizeMB: 0.5}).MaxSizeBytes())
	assert.Zero(t, (&RequiredDocument{}).MaxSizeBytes())
}

func TestRequiredDocument_DisplayName(t *testing.T) {
	doc := RequiredDocument{DocumentName: "Birth certificate"}
	assert.Equal(t, "Birth certificate", doc.DisplayName())

	doc.DocumentNameLocal = "জন্ম সনদ"
	assert.Equal(t, "জন্ম সনদ", doc.DisplayName())
}

// DocumentStatusSummary

func TestDocumentStatusSummary_LegacyAlias(t *testing.T) {
	var summary DocumentStatusSummary

	require.NoError(t, json.Unmarshal([]byte(`{"verified": 1, "mandatory_total": 4}`), &summary))
	assert.Equal(t, 4, summary.Mandatory())

	require.NoError(t, json.Unmarshal([]byte(`{"verified": 1, "total_mandatory": 2, "mandatory_total": 4}`), &summary))
	assert.Equal(t, 2, summary.Mandatory())
}

func TestSummarize(t *testing.T) {
	uploaded := &UploadedDocument{FileURL: "file:///x"}
	docs := []*RequiredDocument{
		{DocumentName: "Passport", IsMandatory: true, Status: DocumentStatusPending},
		{DocumentName: "Photo", IsMandatory: true, Status: DocumentStatusVerified, UploadedDocument: uploaded},
		{DocumentName: "Utility bill", IsMandatory: true, Status: DocumentStatusRejected, UploadedDocument: uploaded},
		{DocumentName: "Reference letter", Status: DocumentStatusUploaded, UploadedDocument: uploaded},
		{DocumentName: "Tax card", IsMandatory: true, Status: DocumentStatusUploaded, UploadedDocument: uploaded},
		{DocumentName: "Affidavit", Status: DocumentStatusVerified, UploadedDocument: uploaded},
	}

	summary := Summarize(docs)

	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 2, summary.Uploaded)
	assert.Equal(t, 2, summary.Verified)
	assert.Equal(t, 1, summary.VerifiedMandatory)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 4, summary.TotalMandatory)
	assert.Equal(t, []string{"Passport", "Utility bill"}, summary.MissingMandatory)
	require.NoError(t, summary.Validate(len(docs)))

	assert.ErrorIs(t, summary.Validate(4), ErrSummaryCountMismatch)
	assert.ErrorIs(t, DocumentStatusSummary{Verified: 3, VerifiedMandatory: 3, TotalMandatory: 2}.Validate(3), ErrSummaryVerifiedExceedsMax)
	assert.ErrorIs(t, DocumentStatusSummary{Pending: 2, VerifiedMandatory: 1, TotalMandatory: 2}.Validate(2), ErrSummaryVerifiedExceedsMax)
	require.NoError(t, DocumentStatusSummary{Verified: 3, VerifiedMandatory: 1, TotalMandatory: 1}.Validate(3))

	empty := Summarize(nil)
	assert.NotNil(t, empty.MissingMandatory)
	assert.Zero(t, empty.Mandatory())
}

// WorkflowStep

func TestWorkflowStep_Clone(t *testing.T) {
	started := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	step := &WorkflowStep{StepNumber: 1, Status: StepStatusInProgress, StartedAt: &started}

	clone := step.Clone()
	clone.Status = StepStatusCompleted
	*clone.StartedAt = started.Add(time.Hour)

	assert.Equal(t, StepStatusInProgress, step.Status)
	assert.Equal(t, started, *step.StartedAt)
	assert.Nil(t, clone.CompletedAt)
}

func TestStatuses(t *testing.T) {
	assert.True(t, StepStatusCompleted.IsDone())
	assert.True(t, StepStatusSkipped.IsDone())
	assert.False(t, StepStatusInProgress.IsDone())
	assert.False(t, StepStatusPending.IsDone())

	for _, s := range []ApplicationWorkflowStatus{WorkflowStatusCompleted, WorkflowStatusCancelled, WorkflowStatusRejected} {
		assert.True(t, s.IsTerminal(), s)
	}

	for _, s := range []ApplicationWorkflowStatus{WorkflowStatusNotStarted, WorkflowStatusInProgress, WorkflowStatusOnHold} {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, s.IsValid(), s)
	}

	assert.False(t, ApplicationWorkflowStatus("paused").IsValid())
}

// Templates and requests

func TestServiceTemplate_Validation(t *testing.T) {
	validate := validator.New()

	valid := ServiceTemplate{
		Code: "birth-cert",
		Name: "Birth certificate",
		Documents: []DocumentTemplate{
			{DocumentName: "Hospital record", DocumentType: "medical", IsMandatory: true, MaxSizeMB: 5},
		},
		Steps: []StepTemplate{
			{StepName: "Review", StepType: StepTypeVerification, AssignedRole: "clerk", SLAHours: 24},
		},
	}
	require.NoError(t, validate.Struct(valid))

	invalid := valid
	invalid.Code = ""
	invalid.Documents = []DocumentTemplate{{DocumentName: "Record", DocumentType: "medical"}}
	invalid.Steps = []StepTemplate{{StepName: "Review", StepType: "paperwork", AssignedRole: "clerk"}}

	tags := validationTags(t, validate.Struct(invalid))
	assert.Equal(t, requiredTag, tags["Code"])
	assert.Equal(t, gtTag, tags["MaxSizeMB"])
	assert.Equal(t, "oneof", tags["StepType"])
}

func TestRequests_Validation(t *testing.T) {
	validate := validator.New()

	tags := validationTags(t, validate.Struct(VerifyDocumentRequest{}))
	assert.Equal(t, requiredTag, tags["Verified"])

	tags = validationTags(t, validate.Struct(UploadDocumentRequest{}))
	assert.Equal(t, requiredTag, tags["FileURL"])
	assert.Equal(t, requiredTag, tags["OriginalFilename"])

	tags = validationTags(t, validate.Struct(AdvanceRequest{SendBack: true}))
	assert.Equal(t, "required_if", tags["SendBackTo"])

	require.NoError(t, validate.Struct(AdvanceRequest{Remarks: "ok"}))
	assert.True(t, AdvanceRequest{RejectReason: "no"}.IsReject())
}

func TestEnvelope_JSON(t *testing.T) {
	raw, err := json.Marshal(OK([]string{"a"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": true, "data": ["a"]}`, string(raw))

	raw, err = json.Marshal(Failure("Document already verified"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": false, "message": "Document already verified"}`, string(raw))
}
