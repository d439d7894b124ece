package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dukex/appflow/pkg/eventbus"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/upload"
)

var (
	testNow    = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	errNetwork = errors.New("connection refused")
)

func pdfDocument(id string, status models.DocumentStatus) *models.RequiredDocument {
	doc := &models.RequiredDocument{
		ID:              id,
		DocumentName:    "Document " + id,
		DocumentType:    "identity",
		IsMandatory:     true,
		AcceptedFormats: []string{"pdf", "jpg"},
		MaxSizeMB:       1,
		Status:          status,
	}

	if status != models.DocumentStatusPending {
		doc.UploadedDocument = &models.UploadedDocument{FileURL: "file:///tmp/" + id, OriginalFilename: id + ".pdf"}
	}

	if status == models.DocumentStatusRejected {
		doc.RejectionReason = "blurry scan"
	}

	return doc
}

func pdfFile(name string) upload.File {
	return upload.File{Name: name, ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")}
}

// fakeAPI is an in-memory server applying the real document transitions.
type fakeAPI struct {
	mu   sync.Mutex
	docs []*models.RequiredDocument

	uploadCalls int
	verifyCalls int
	lastVerify  models.VerifyDocumentRequest

	failUpload error
	failVerify error
	failList   error

	// release, when set, blocks UploadDocument until closed.
	release chan struct{}
	// releaseVerify does the same for VerifyDocument.
	releaseVerify chan struct{}
}

func (f *fakeAPI) find(id string) (*models.RequiredDocument, error) {
	for _, doc := range f.docs {
		if doc.ID == id {
			return doc, nil
		}
	}

	return nil, fmt.Errorf("document %s not found", id)
}

func (f *fakeAPI) ListRequiredDocuments(_ context.Context, _ string) ([]*models.RequiredDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failList != nil {
		return nil, f.failList
	}

	docs := make([]*models.RequiredDocument, len(f.docs))
	for i, doc := range f.docs {
		c := *doc
		docs[i] = &c
	}

	return docs, nil
}

func (f *fakeAPI) DocumentStatus(_ context.Context, _ string) (*models.DocumentStatusSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	summary := models.Summarize(f.docs)

	return &summary, nil
}

func (f *fakeAPI) UploadDocument(
	_ context.Context,
	_, documentID string,
	req models.UploadDocumentRequest,
) (*models.RequiredDocument, error) {
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploadCalls++

	if f.failUpload != nil {
		return nil, f.failUpload
	}

	doc, err := f.find(documentID)
	if err != nil {
		return nil, err
	}

	uploaded := models.UploadedDocument{
		FileURL:          req.FileURL,
		OriginalFilename: req.OriginalFilename,
		FileType:         req.FileType,
		FileSizeBytes:    req.FileSizeBytes,
	}

	if err := ApplyUpload(doc, uploaded, testNow); err != nil {
		return nil, err
	}

	c := *doc

	return &c, nil
}

func (f *fakeAPI) VerifyDocument(
	_ context.Context,
	_, documentID string,
	req models.VerifyDocumentRequest,
) (*models.RequiredDocument, error) {
	if f.releaseVerify != nil {
		<-f.releaseVerify
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.verifyCalls++
	f.lastVerify = req

	if f.failVerify != nil {
		return nil, f.failVerify
	}

	doc, err := f.find(documentID)
	if err != nil {
		return nil, err
	}

	if err := ApplyVerification(doc, *req.Verified, req.RejectionReason, testNow); err != nil {
		return nil, err
	}

	c := *doc

	return &c, nil
}

type memoryStore struct {
	mu    sync.Mutex
	files map[string]string
	fail  error
}

func (s *memoryStore) Put(_ context.Context, applicationID, documentID string, file upload.File) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}

	body, err := io.ReadAll(file.Body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.files == nil {
		s.files = map[string]string{}
	}

	url := "mem://" + applicationID + "/" + documentID + "/" + file.Name
	s.files[url] = string(body)

	return url, nil
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
