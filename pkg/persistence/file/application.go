package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/persistence"
)

// ApplicationRepository keeps one JSON file per application under <root>/applications.
type ApplicationRepository struct {
	root string
	mu   sync.RWMutex
}

// NewApplicationRepository creates a new application repository.
func NewApplicationRepository(root string) *ApplicationRepository {
	return &ApplicationRepository{root: root}
}

func (r *ApplicationRepository) dir() string {
	return filepath.Join(r.root, "applications")
}

func (r *ApplicationRepository) path(id string) string {
	return filepath.Join(r.dir(), filepath.Base(id)+".json")
}

// GetByID loads an application record.
func (r *ApplicationRepository) GetByID(_ context.Context, id string) (*models.ApplicationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(id)
}

func (r *ApplicationRepository) read(id string) (*models.ApplicationRecord, error) {
	body, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewApplicationError("GetByID", id, persistence.ErrApplicationNotFound)
		}

		return nil, fmt.Errorf("failed to read application %s: %w", id, err)
	}

	var record models.ApplicationRecord

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to decode application %s: %w", id, err)
	}

	return &record, nil
}

// Save writes the record, replacing any previous version. The file is
// written next to its destination and renamed so readers never see a partial record.
func (r *ApplicationRepository) Save(_ context.Context, record *models.ApplicationRecord) error {
	if err := persistence.ValidateRecord(record); err != nil {
		return err
	}

	now := time.Now().UTC()
	if record.Application.CreatedAt.IsZero() {
		record.Application.CreatedAt = now
	}

	record.Application.UpdatedAt = now

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode application %s: %w", record.Application.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = os.MkdirAll(r.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create applications directory: %w", err)
	}

	target := r.path(record.Application.ID)
	tmp := target + ".tmp"

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write application %s: %w", record.Application.ID, err)
	}

	return os.Rename(tmp, target)
}

// List returns every application, newest first.
func (r *ApplicationRepository) List(_ context.Context) ([]*models.Application, error) {
	records, err := r.all()
	if err != nil {
		return nil, err
	}

	applications := make([]*models.Application, 0, len(records))
	for _, record := range records {
		applications = append(applications, record.Application)
	}

	return applications, nil
}

// ListByWorkflowStatus returns the records whose workflow is in status.
func (r *ApplicationRepository) ListByWorkflowStatus(
	_ context.Context,
	status models.ApplicationWorkflowStatus,
) ([]*models.ApplicationRecord, error) {
	records, err := r.all()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.ApplicationRecord, 0, len(records))

	for _, record := range records {
		if record.Application.WorkflowStatus == status {
			filtered = append(filtered, record)
		}
	}

	return filtered, nil
}

func (r *ApplicationRepository) all() ([]*models.ApplicationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jsonFiles, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list application files: %w", err)
	}

	records := make([]*models.ApplicationRecord, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		record, err := r.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Application.CreatedAt.After(records[j].Application.CreatedAt)
	})

	return records, nil
}
