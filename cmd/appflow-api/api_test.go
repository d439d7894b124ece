package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukex/appflow/pkg/apiclient"
	"github.com/dukex/appflow/pkg/documents"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/persistence/file"
	"github.com/dukex/appflow/pkg/templates"
	"github.com/dukex/appflow/pkg/upload"
	"github.com/dukex/appflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, token string) *API {
	t.Helper()

	catalog, err := templates.Builtin()
	require.NoError(t, err)

	return NewAPI(slog.New(slog.DiscardHandler), file.NewPersistence(t.TempDir()), catalog, nil, token)
}

// serve runs the API on a random port and returns its base URL.
func serve(t *testing.T, api *API) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- api.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	baseURL := "http://" + ln.Addr().String()

	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/livez")
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	return baseURL
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := newTestAPI(t, "").App()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Appflow API", string(body))
}

func TestAPI_LivenessWithoutToken(t *testing.T) {
	app := newTestAPI(t, "secret").App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type memoryStore struct{}

func (memoryStore) Put(_ context.Context, applicationID, documentID string, file upload.File) (string, error) {
	return "https://files.example.org/" + applicationID + "/" + documentID + "/" + file.Name, nil
}

func TestAPI_EndToEnd(t *testing.T) {
	baseURL := serve(t, newTestAPI(t, "secret"))
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	client := apiclient.New(baseURL,
		apiclient.WithToken("secret"),
		apiclient.WithActor("Officer Das"),
		apiclient.WithLogger(logger))

	application, err := client.CreateApplication(ctx, models.CreateApplicationRequest{
		ServiceCode:   "trade-license",
		ApplicantName: "Ravi Kumar",
	})
	require.NoError(t, err)

	tracker := documents.NewTracker(application.ID,
		models.Permissions{CanUpload: true, CanVerify: true}, client, memoryStore{}, nil, logger)
	require.NoError(t, tracker.Refresh(ctx))
	require.Len(t, tracker.State().Documents, 2)

	photo := tracker.State().Documents[0]
	receipt := tracker.State().Documents[1]

	err = tracker.Upload(ctx, photo.ID, upload.File{Name: "shop.gif", Size: 10, Body: strings.NewReader("GIF89a")})
	require.Error(t, err, "gif is not an accepted format")

	require.NoError(t, tracker.Upload(ctx, photo.ID, upload.File{Name: "shop.jpg", ContentType: "image/jpeg", Size: 10, Body: strings.NewReader("jpeg")}))
	require.NoError(t, tracker.Upload(ctx, receipt.ID, upload.File{Name: "tax.pdf", ContentType: "application/pdf", Size: 10, Body: strings.NewReader("%PDF")}))

	require.ErrorIs(t, tracker.Verify(ctx, photo.ID, false, "  "), documents.ErrReasonRequired)
	require.NoError(t, tracker.Verify(ctx, photo.ID, false, "Photo is blurred"))
	require.NoError(t, tracker.Verify(ctx, receipt.ID, true, ""))

	state := tracker.State()
	assert.Equal(t, models.DocumentStatusRejected, state.Document(photo.ID).Status)
	assert.Equal(t, "Photo is blurred", state.Document(photo.ID).RejectionReason)
	assert.Equal(t, []string{"Shop Establishment Photo"}, state.Summary.MissingMandatory)

	percentage, ok := documents.CompletionPercentage(state.Summary)
	require.True(t, ok)
	assert.Equal(t, 50, percentage)

	runner := workflow.NewRunner(application.ID, models.Permissions{CanManage: true}, client, nil, logger)
	require.NoError(t, runner.Refresh(ctx))
	require.True(t, runner.State().CanStart())

	started, err := runner.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, started.TotalSteps)

	_, err = runner.Submit(ctx, workflow.Advance{Remarks: "reviewed"})
	require.NoError(t, err)

	assert.NotContains(t, runner.State().AvailableActions(), workflow.ActionReject, "license issue cannot be rejected")

	resp, err := runner.Submit(ctx, workflow.Advance{})
	require.NoError(t, err)
	assert.True(t, resp.Completed)

	steps := runner.State().Steps
	require.Len(t, steps, 2)
	assert.Equal(t, "Officer Das", steps[0].CompletedByName)
	assert.Equal(t, models.WorkflowStatusCompleted, runner.State().Status)
}

func TestAPI_EndToEnd_RuleViolationIsShownVerbatim(t *testing.T) {
	baseURL := serve(t, newTestAPI(t, ""))
	ctx := context.Background()
	client := apiclient.New(baseURL)

	application, err := client.CreateApplication(ctx, models.CreateApplicationRequest{
		ServiceCode:   "birth-certificate",
		ApplicantName: "Anita Sen",
	})
	require.NoError(t, err)

	_, err = client.StartWorkflow(ctx, application.ID)
	require.NoError(t, err)

	_, err = client.StartWorkflow(ctx, application.ID)

	var business *apiclient.BusinessError
	require.ErrorAs(t, err, &business)
	assert.Equal(t, "Workflow has already been started", business.Message)

	_, err = client.ListRequiredDocuments(ctx, "missing")
	require.ErrorAs(t, err, &business)
}

func TestAPI_EndToEnd_Unauthorized(t *testing.T) {
	baseURL := serve(t, newTestAPI(t, "secret"))

	_, err := apiclient.New(baseURL).ListApplications(context.Background())

	require.Error(t, err)
}
