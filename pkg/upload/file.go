// Package upload stores document files in object storage and checks them
// against the constraints of the document they are uploaded for.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/dukex/appflow/pkg/models"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrUnsupportedFormat = errors.New("file format not accepted")
	ErrFileTooLarge      = errors.New("file exceeds maximum size")
)

// File is a file picked for upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Open opens a local file for upload. The caller closes the returned closer.
func Open(path string) (File, io.Closer, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return File{}, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	name := filepath.Base(path)

	return File{
		Name:        name,
		ContentType: ContentType(name),
		Size:        info.Size(),
		Body:        f,
	}, f, nil
}

// ContentType guesses the MIME type of a file from its extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}

	return "application/octet-stream"
}

// Validate checks a file against the accepted formats and maximum size of doc.
func Validate(doc *models.RequiredDocument, file File) error {
	if file.Size <= 0 {
		return ErrEmptyFile
	}

	if !doc.AcceptsFormat(file.Name) {
		return fmt.Errorf("%w: %s (accepted: %v)", ErrUnsupportedFormat, file.Name, doc.AcceptedFormats)
	}

	if limit := doc.MaxSizeBytes(); limit > 0 && file.Size > limit {
		return fmt.Errorf("%w: %d bytes > %.1f MB", ErrFileTooLarge, file.Size, doc.MaxSizeMB)
	}

	return nil
}

// Request builds the upload payload for a stored file.
func Request(file File, fileURL string) models.UploadDocumentRequest {
	fileType := models.NormalizeFormat(filepath.Ext(file.Name))
	if fileType == "" {
		fileType = file.ContentType
	}

	return models.UploadDocumentRequest{
		FileURL:          fileURL,
		OriginalFilename: file.Name,
		FileType:         fileType,
		FileSizeBytes:    file.Size,
	}
}
