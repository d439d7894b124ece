package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore puts file contents into object storage and returns their URL.
type FileStore interface {
	Put(ctx context.Context, applicationID, documentID string, file File) (string, error)
}

// LocalStore keeps files on the local file system.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a store rooted at root. Returned URLs are baseURL
// joined with the stored object path, or file:// URLs when baseURL is empty.
func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{
		root:    strings.Replace(root, "file://", "", 1),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put copies the file body under <root>/<application>/<document>/<uuid>-<name>.
func (s *LocalStore) Put(ctx context.Context, applicationID, documentID string, file File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	object := path.Join(applicationID, documentID, uuid.NewString()+"-"+filepath.Base(file.Name))
	target := filepath.Join(s.root, filepath.FromSlash(object))

	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(out, file.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(target)

		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(target)

		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}

	if s.baseURL == "" {
		abs, err := filepath.Abs(target)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", target, err)
		}

		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	}

	return s.baseURL + "/" + object, nil
}
