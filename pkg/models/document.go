package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentStatus represents the verification state of a required document.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"  // Nothing uploaded yet
	DocumentStatusUploaded DocumentStatus = "uploaded" // Awaiting verification
	DocumentStatusVerified DocumentStatus = "verified" // Terminal
	DocumentStatusRejected DocumentStatus = "rejected" // Re-upload allowed
)

// IsValid reports whether s is one of the four known document statuses.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusUploaded, DocumentStatusVerified, DocumentStatusRejected:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidDocumentStatus     = errors.New("invalid document status")
	ErrPendingDocumentHasUpload  = errors.New("pending document must not carry an uploaded document")
	ErrMissingUploadedDocument   = errors.New("document status requires an uploaded document")
	ErrRejectedWithoutReason     = errors.New("rejected document must carry a rejection reason")
	ErrSummaryCountMismatch      = errors.New("summary counts do not match document count")
	ErrSummaryVerifiedExceedsMax = errors.New("verified mandatory count exceeds total mandatory")
)

// UploadedDocument describes the file stored for a required document.
type UploadedDocument struct {
	FileURL          string `json:"file_url"`
	OriginalFilename string `json:"original_filename"`
	FileType         string `json:"file_type"`
	FileSizeBytes    int64  `json:"file_size_bytes"`
}

// RequiredDocument is a document template instance attached to one application.
type RequiredDocument struct {
	ID                string            `json:"id"`
	ApplicationID     string            `json:"application_id,omitempty"`
	DocumentName      string            `json:"document_name"`
	DocumentNameLocal string            `json:"document_name_local,omitempty"`
	DocumentType      string            `json:"document_type"`
	IsMandatory       bool              `json:"is_mandatory"`
	AcceptedFormats   []string          `json:"accepted_formats"`
	MaxSizeMB         float64           `json:"max_size_mb"`
	Description       string            `json:"description,omitempty"`
	SampleURL         string            `json:"sample_url,omitempty"`
	Status            DocumentStatus    `json:"status"`
	UploadedDocument  *UploadedDocument `json:"uploaded_document,omitempty"`
	RejectionReason   string            `json:"rejection_reason,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Validate checks the status-dependent invariants of the document.
func (d *RequiredDocument) Validate() error {
	if !d.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentStatus, d.Status)
	}

	switch d.Status {
	case DocumentStatusPending:
		if d.UploadedDocument != nil {
			return ErrPendingDocumentHasUpload
		}
	case DocumentStatusRejected:
		if strings.TrimSpace(d.RejectionReason) == "" {
			return ErrRejectedWithoutReason
		}

		if d.UploadedDocument == nil {
			return ErrMissingUploadedDocument
		}
	default:
		if d.UploadedDocument == nil {
			return ErrMissingUploadedDocument
		}
	}

	return nil
}

// AcceptsFormat reports whether a file name's extension is in the accepted formats.
// An empty format list accepts everything.
func (d *RequiredDocument) AcceptsFormat(filename string) bool {
	if len(d.AcceptedFormats) == 0 {
		return true
	}

	ext := NormalizeFormat(filepath.Ext(filename))
	for _, format := range d.AcceptedFormats {
		if NormalizeFormat(format) == ext {
			return true
		}
	}

	return false
}

// MaxSizeBytes converts MaxSizeMB into bytes. Zero means no limit.
func (d *RequiredDocument) MaxSizeBytes() int64 {
	if d.MaxSizeMB <= 0 {
		return 0
	}

	return int64(d.MaxSizeMB * 1024 * 1024)
}

// DisplayName prefers the localized name when present.
func (d *RequiredDocument) DisplayName() string {
	if d.DocumentNameLocal != "" {
		return d.DocumentNameLocal
	}

	return d.DocumentName
}

// NormalizeFormat lower-cases a file extension and strips its leading dot.
func NormalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// DocumentStatusSummary is the aggregate status of an application's documents.
// The status counts cover every document; VerifiedMandatory counts only the
// verified mandatory ones and drives the completion percentage.
type DocumentStatusSummary struct {
	Pending           int      `json:"pending"`
	Uploaded          int      `json:"uploaded"`
	Verified          int      `json:"verified"`
	Rejected          int      `json:"rejected"`
	VerifiedMandatory int      `json:"verified_mandatory"`
	TotalMandatory    int      `json:"total_mandatory"`
	MandatoryTotal    int      `json:"mandatory_total,omitempty"` // legacy alias of total_mandatory
	MissingMandatory  []string `json:"missing_mandatory"`
}

// Mandatory returns the number of mandatory documents, honouring the legacy alias.
func (s DocumentStatusSummary) Mandatory() int {
	if s.TotalMandatory != 0 {
		return s.TotalMandatory
	}

	return s.MandatoryTotal
}

// Total returns the number of documents counted by the summary.
func (s DocumentStatusSummary) Total() int {
	return s.Pending + s.Uploaded + s.Verified + s.Rejected
}

// Validate checks the summary against the number of documents it describes.
func (s DocumentStatusSummary) Validate(documentCount int) error {
	if s.Total() != documentCount {
		return fmt.Errorf("%w: %d counted, %d documents", ErrSummaryCountMismatch, s.Total(), documentCount)
	}

	if s.VerifiedMandatory > s.Mandatory() || s.VerifiedMandatory > s.Verified {
		return fmt.Errorf("%w: %d > %d", ErrSummaryVerifiedExceedsMax, s.VerifiedMandatory, s.Mandatory())
	}

	return nil
}

// Summarize computes the status summary of a document set. Mandatory documents
// that are pending or rejected are reported as missing, in document order.
func Summarize(documents []*RequiredDocument) DocumentStatusSummary {
	summary := DocumentStatusSummary{MissingMandatory: []string{}}

	for _, doc := range documents {
		switch doc.Status {
		case DocumentStatusPending:
			summary.Pending++
		case DocumentStatusUploaded:
			summary.Uploaded++
		case DocumentStatusVerified:
			summary.Verified++
		case DocumentStatusRejected:
			summary.Rejected++
		}

		if !doc.IsMandatory {
			continue
		}

		summary.TotalMandatory++

		if doc.Status == DocumentStatusVerified {
			summary.VerifiedMandatory++
		}

		if doc.Status == DocumentStatusPending || doc.Status == DocumentStatusRejected {
			summary.MissingMandatory = append(summary.MissingMandatory, doc.DocumentName)
		}
	}

	return summary
}
