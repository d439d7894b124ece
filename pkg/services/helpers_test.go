package services_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/dukex/appflow/pkg/eventbus"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/persistence/file"
	"github.com/dukex/appflow/pkg/services"
	"github.com/dukex/appflow/pkg/templates"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
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

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, string(event.GetType()))
	}

	return types
}

type fixture struct {
	service   *services.Applications
	clock     *clock
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog, err := templates.Builtin()
	require.NoError(t, err)

	f := &fixture{
		clock:     &clock{now: testStart},
		publisher: &recordingPublisher{},
	}

	f.service = services.NewApplications(
		file.NewPersistence(t.TempDir()),
		catalog,
		slog.New(slog.DiscardHandler),
		services.WithPublisher(f.publisher),
		services.WithClock(f.clock.Now),
	)

	return f
}

// create instantiates a birth-certificate application: three documents (two
// mandatory) and three steps, the first of which cannot be sent back.
func (f *fixture) create(t *testing.T) *models.Application {
	t.Helper()

	application, err := f.service.CreateApplication(context.Background(), models.CreateApplicationRequest{
		ServiceCode:   "birth-certificate",
		ApplicantName: gofakeit.Name(),
	})
	require.NoError(t, err)

	return application
}

func (f *fixture) documents(t *testing.T, applicationID string) []*models.RequiredDocument {
	t.Helper()

	docs, err := f.service.ListRequiredDocuments(context.Background(), applicationID)
	require.NoError(t, err)

	return docs
}

func uploadRequest(name string) models.UploadDocumentRequest {
	return models.UploadDocumentRequest{
		FileURL:          "file:///uploads/" + name,
		OriginalFilename: name,
		FileType:         "application/pdf",
		FileSizeBytes:    1024,
	}
}

func verified(ok bool) *bool {
	return &ok
}
