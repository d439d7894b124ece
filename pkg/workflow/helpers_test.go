package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dukex/appflow/pkg/eventbus"
	"github.com/dukex/appflow/pkg/models"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// buildSteps returns n pending steps that all allow send-back and reject.
func buildSteps(n int) []*models.WorkflowStep {
	steps := make([]*models.WorkflowStep, n)
	for i := range steps {
		steps[i] = &models.WorkflowStep{
			ID:           "step-" + string(rune('a'+i)),
			StepNumber:   i + 1,
			StepName:     "Step",
			StepType:     models.StepTypeManual,
			AssignedRole: "officer",
			Status:       models.StepStatusPending,
			CanSendBack:  true,
			CanReject:    true,
			SLAHours:     24,
		}
	}

	return steps
}

// stepsAt returns n steps with the first current-1 completed and step current in progress.
func stepsAt(n, current int) []*models.WorkflowStep {
	steps := buildSteps(n)
	for _, step := range steps {
		switch {
		case step.StepNumber < current:
			step.Status = models.StepStatusCompleted
		case step.StepNumber == current:
			step.Status = models.StepStatusInProgress
		}
	}

	return steps
}

func countStatus(steps []*models.WorkflowStep, status models.StepStatus) int {
	n := 0

	for _, step := range steps {
		if step.Status == status {
			n++
		}
	}

	return n
}

// fakeAPI is an in-memory server applying the real transitions.
type fakeAPI struct {
	mu       sync.Mutex
	steps    []*models.WorkflowStep
	status   models.ApplicationWorkflowStatus
	template []*models.WorkflowStep

	advanceCalls int
	startCalls   int
	lastRequest  models.AdvanceRequest

	failAdvance error
	failStart   error
	failList    error
}

func (f *fakeAPI) ListWorkflowSteps(_ context.Context, _ string) ([]*models.WorkflowStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failList != nil {
		return nil, f.failList
	}

	return cloneSorted(f.steps), nil
}

func (f *fakeAPI) CurrentStep(_ context.Context, _ string) (*models.CurrentStepSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := ComputeProgress(f.steps)

	return &models.CurrentStepSummary{
		WorkflowStatus: f.status,
		CurrentStep:    CurrentStep(f.steps),
		TotalSteps:     p.Total,
		CompletedSteps: p.Completed,
	}, nil
}

func (f *fakeAPI) StartWorkflow(_ context.Context, _ string) (*models.StartWorkflowResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.startCalls++

	if f.failStart != nil {
		return nil, f.failStart
	}

	steps := f.steps
	if len(steps) == 0 {
		steps = f.template
	}

	outcome, err := StartSteps(steps, f.status, testNow)
	if err != nil {
		return nil, err
	}

	f.steps, f.status = outcome.Steps, outcome.Status
	resp := outcome.StartResponse()

	return &resp, nil
}

func (f *fakeAPI) AdvanceWorkflow(_ context.Context, _ string, req models.AdvanceRequest) (*models.WorkflowAdvanceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.advanceCalls++
	f.lastRequest = req

	if f.failAdvance != nil {
		return nil, f.failAdvance
	}

	outcome, err := Transition(f.steps, f.status, ActionFromRequest(req), "tester", testNow)
	if err != nil {
		return nil, err
	}

	f.steps, f.status = outcome.Steps, outcome.Status
	resp := outcome.AdvanceResponse()

	return &resp, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) Events() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}

var errNetwork = errors.New("connection refused")
