package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukex/appflow/pkg/documents"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/workflow"
)

const timeLayout = "02 Jan 2006 15:04"

// Renderer turns tracker and runner state into text.
type Renderer struct {
	styles Styles
}

func NewRenderer(styles Styles) *Renderer {
	return &Renderer{styles: styles}
}

func (r *Renderer) panel(lines []string) string {
	return r.styles.Panel.Render(strings.Join(lines, "\n"))
}

// Applications renders a list of applications.
func (r *Renderer) Applications(applications []*models.Application) string {
	if len(applications) == 0 {
		return r.styles.Muted.Render("No applications")
	}

	lines := []string{r.styles.Title.Render("Applications")}

	for _, application := range applications {
		lines = append(lines, fmt.Sprintf("%s  %-20s %-24s %s",
			application.ID,
			application.ServiceName,
			application.ApplicantName,
			r.workflowStatus(application.WorkflowStatus)))
	}

	return r.panel(lines)
}

// Documents renders the document checklist of a tracker.
func (r *Renderer) Documents(state documents.State) string {
	lines := []string{r.styles.Title.Render("Required documents"), r.completion(state.Summary)}

	if state.Error != "" {
		lines = append(lines, r.styles.Error.Render("! "+state.Error))
	}

	for i, doc := range state.Documents {
		name := doc.DisplayName()
		if doc.IsMandatory {
			name += " *"
		}

		lines = append(lines, fmt.Sprintf("%2d. %-36s %s", i+1, name, r.documentStatus(doc.Status)))

		details := []string{}
		if len(doc.AcceptedFormats) > 0 {
			details = append(details, strings.ToUpper(strings.Join(doc.AcceptedFormats, ", ")))
		}

		if doc.MaxSizeMB > 0 {
			details = append(details, fmt.Sprintf("max %.1f MB", doc.MaxSizeMB))
		}

		if doc.UploadedDocument != nil {
			details = append(details, "file: "+doc.UploadedDocument.OriginalFilename)
		}

		if len(details) > 0 {
			lines = append(lines, r.styles.Muted.Render("    "+strings.Join(details, " | ")))
		}

		if doc.Status == models.DocumentStatusRejected && doc.RejectionReason != "" {
			lines = append(lines, r.styles.Error.Render("    Rejected: "+doc.RejectionReason))
		}

		if actions := documentActions(state, doc); actions != "" {
			lines = append(lines, r.styles.Muted.Render("    Actions: "+actions))
		}
	}

	if len(state.Summary.MissingMandatory) > 0 {
		lines = append(lines, r.styles.Warning.Render("Missing: "+strings.Join(state.Summary.MissingMandatory, ", ")))
	}

	return r.panel(lines)
}

func documentActions(state documents.State, doc *models.RequiredDocument) string {
	var actions []string

	switch {
	case state.IsUploading(doc.ID):
		actions = append(actions, "uploading...")
	case state.CanUpload(doc):
		actions = append(actions, "upload")
	}

	if state.CanVerify(doc) {
		actions = append(actions, "verify", "reject")
	}

	return strings.Join(actions, ", ")
}

func (r *Renderer) completion(summary models.DocumentStatusSummary) string {
	percentage, ok := documents.CompletionPercentage(summary)
	if !ok {
		return r.styles.Muted.Render("No mandatory documents")
	}

	return fmt.Sprintf("%s %d%% (%d of %d mandatory verified)",
		bar(percentage), percentage, summary.VerifiedMandatory, summary.Mandatory())
}

func (r *Renderer) documentStatus(status models.DocumentStatus) string {
	label := strings.ToUpper(string(status))

	switch status {
	case models.DocumentStatusVerified:
		return r.styles.Success.Render(label)
	case models.DocumentStatusRejected:
		return r.styles.Error.Render(label)
	case models.DocumentStatusUploaded:
		return r.styles.Warning.Render(label)
	default:
		return r.styles.Muted.Render(label)
	}
}

// Error renders a message that is not part of either panel.
func (r *Renderer) Error(message string) string {
	return r.styles.Error.Render("! " + message)
}

// Workflow renders the workflow panel of a runner.
func (r *Renderer) Workflow(state workflow.State) string {
	lines := []string{r.styles.Title.Render("Workflow") + "  " + r.workflowStatus(state.Status)}

	switch state.EmptyState() {
	case workflow.EmptyNotStarted:
		lines = append(lines, r.styles.Muted.Render("Workflow has not been started"))

		return r.panel(append(lines, r.start(state)...))
	case workflow.EmptyNotConfigured:
		lines = append(lines, r.styles.Muted.Render("No workflow configured for this service"))

		return r.panel(lines)
	}

	progress := workflow.ComputeProgress(state.Steps)
	header := fmt.Sprintf("%s %d%%", bar(progress.Percentage), progress.Percentage)

	if label := workflow.StepLabel(state.Steps); label != "" {
		header += "  " + label
	}

	lines = append(lines, header)

	if state.Error != "" {
		lines = append(lines, r.styles.Error.Render("! "+state.Error))
	}

	for _, step := range workflow.Sorted(state.Steps) {
		lines = append(lines, r.step(step)...)
	}

	if actions := state.AvailableActions(); len(actions) > 0 {
		names := make([]string, 0, len(actions))
		for _, action := range actions {
			names = append(names, string(action))
		}

		lines = append(lines, "Actions: "+strings.Join(names, ", "))
	}

	return r.panel(append(lines, r.start(state)...))
}

func (r *Renderer) start(state workflow.State) []string {
	var lines []string

	if state.CanStart() {
		lines = append(lines, "Actions: start")
	}

	if state.StartError != "" {
		lines = append(lines, r.styles.Error.Render("! "+state.StartError))
	}

	return lines
}

func (r *Renderer) step(step *models.WorkflowStep) []string {
	marker := "[ ]"

	switch step.Status {
	case models.StepStatusCompleted:
		marker = r.styles.Success.Render("[x]")
	case models.StepStatusInProgress:
		marker = r.styles.Active.Render("[>]")
	case models.StepStatusSkipped:
		marker = r.styles.Muted.Render("[-]")
	}

	name := fmt.Sprintf("%d. %s", step.StepNumber, step.DisplayName())
	if step.Status == models.StepStatusInProgress {
		name = r.styles.Active.Render(name)
	}

	lines := []string{fmt.Sprintf("%s %s %s", marker, name, r.styles.Muted.Render("("+step.AssignedRole+")"))}

	if step.CompletedByName != "" && step.CompletedAt != nil {
		lines = append(lines, r.styles.Muted.Render(fmt.Sprintf("      by %s on %s", step.CompletedByName, step.CompletedAt.Format(timeLayout))))
	}

	if step.Remarks != "" {
		lines = append(lines, r.styles.Muted.Render("      "+step.Remarks))
	}

	switch notice := workflow.NoticeFor(step); notice.Kind {
	case workflow.SLABreached:
		lines = append(lines, r.styles.Error.Render("      SLA breached"+deadline(notice.Deadline)))
	case workflow.SLADeadline:
		lines = append(lines, r.styles.Warning.Render("      Due by "+notice.Deadline.Format(timeLayout)))
	}

	return lines
}

func deadline(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return " (due " + t.Format(timeLayout) + ")"
}

func (r *Renderer) workflowStatus(status models.ApplicationWorkflowStatus) string {
	label := strings.ReplaceAll(string(status), "_", " ")

	switch status {
	case models.WorkflowStatusCompleted:
		return r.styles.Success.Render(label)
	case models.WorkflowStatusRejected, models.WorkflowStatusCancelled:
		return r.styles.Error.Render(label)
	case models.WorkflowStatusInProgress:
		return r.styles.Subtitle.Render(label)
	default:
		return r.styles.Muted.Render(label)
	}
}

func bar(percentage int) string {
	const width = 20

	filled := max(0, min(width, percentage*width/100))

	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
