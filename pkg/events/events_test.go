package events_test

import (
	"testing"
	"time"

	"github.com/dukex/appflow/pkg/events"
	"github.com/dukex/appflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestNewDocumentChanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status models.DocumentStatus
		want   events.EventType
	}{
		{models.DocumentStatusUploaded, events.DocumentUploadedEvent},
		{models.DocumentStatusVerified, events.DocumentVerifiedEvent},
		{models.DocumentStatusRejected, events.DocumentRejectedEvent},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()

			event := events.NewDocumentChanged("app-1", "officer", &models.RequiredDocument{
				ID:              "d1",
				Status:          tt.status,
				RejectionReason: "blurred",
			})

			assert.Equal(t, tt.want, event.GetType())
			assert.Equal(t, "app-1", event.ApplicationID)
			assert.Equal(t, "officer", event.Actor)
			assert.Equal(t, "d1", event.DocumentID)
			assert.NotEmpty(t, event.ID)
			assert.True(t, events.IsDocumentEvent(event.GetType()))
		})
	}
}

func TestNewWorkflowChanged(t *testing.T) {
	t.Parallel()

	event := events.NewWorkflowChanged(events.WorkflowSentBackEvent, "app-1", "", models.WorkflowStatusInProgress, 1, 5, "fix address")

	assert.Equal(t, events.WorkflowSentBackEvent, event.GetType())
	assert.Equal(t, 1, event.CurrentStep)
	assert.Equal(t, 5, event.TotalSteps)
	assert.False(t, events.IsDocumentEvent(event.GetType()))
	assert.True(t, events.IsWorkflowEvent(event.GetType()))
	assert.False(t, events.IsWorkflowEvent(events.DocumentUploadedEvent))
}

func TestNewStepSLABreached(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := events.NewStepSLABreached("app-1", &models.WorkflowStep{StepNumber: 2, StepName: "Review", SLADeadline: &deadline})

	assert.Equal(t, events.StepSLABreachedEvent, event.GetType())
	assert.Equal(t, deadline, event.SLADeadline)
	assert.Equal(t, 2, event.StepNumber)
}
