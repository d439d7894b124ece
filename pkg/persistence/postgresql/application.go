package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/persistence"
	"github.com/lib/pq"
)

// ApplicationRepository handles application-related database operations.
type ApplicationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewApplicationRepository creates a new application repository.
func NewApplicationRepository(db *sql.DB, logger *slog.Logger) *ApplicationRepository {
	return &ApplicationRepository{db: db, logger: logger}
}

const applicationColumns = `
	id
  , service_code
  , service_name
  , applicant_name
  , workflow_status
  , created_at
  , updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var application models.Application

	err := row.Scan(
		&application.ID,
		&application.ServiceCode,
		&application.ServiceName,
		&application.ApplicantName,
		&application.WorkflowStatus,
		&application.CreatedAt,
		&application.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &application, nil
}

// GetByID loads an application with its documents and steps.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)

	application, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewApplicationError("GetByID", id, persistence.ErrApplicationNotFound)
		}

		return nil, fmt.Errorf("failed to get application %s: %w", id, err)
	}

	documents, err := r.documents(ctx, id)
	if err != nil {
		return nil, err
	}

	steps, err := r.steps(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.ApplicationRecord{Application: application, Documents: documents, Steps: steps}, nil
}

func (r *ApplicationRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func (r *ApplicationRepository) documents(ctx context.Context, applicationID string) ([]*models.RequiredDocument, error) {
	query := `
		SELECT
			id
		  , application_id
		  , document_name
		  , document_name_local
		  , document_type
		  , is_mandatory
		  , accepted_formats
		  , max_size_mb
		  , description
		  , sample_url
		  , status
		  , file_url
		  , original_filename
		  , file_type
		  , file_size_bytes
		  , rejection_reason
		  , updated_at
		FROM required_documents
		WHERE application_id = $1
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	defer r.closeRows(ctx, rows)

	documents := make([]*models.RequiredDocument, 0)

	for rows.Next() {
		var (
			doc              models.RequiredDocument
			fileURL          sql.NullString
			originalFilename sql.NullString
			fileType         sql.NullString
			fileSize         sql.NullInt64
		)

		err := rows.Scan(
			&doc.ID,
			&doc.ApplicationID,
			&doc.DocumentName,
			&doc.DocumentNameLocal,
			&doc.DocumentType,
			&doc.IsMandatory,
			pq.Array(&doc.AcceptedFormats),
			&doc.MaxSizeMB,
			&doc.Description,
			&doc.SampleURL,
			&doc.Status,
			&fileURL,
			&originalFilename,
			&fileType,
			&fileSize,
			&doc.RejectionReason,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		if fileURL.Valid {
			doc.UploadedDocument = &models.UploadedDocument{
				FileURL:          fileURL.String,
				OriginalFilename: originalFilename.String,
				FileType:         fileType.String,
				FileSizeBytes:    fileSize.Int64,
			}
		}

		documents = append(documents, &doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

func (r *ApplicationRepository) steps(ctx context.Context, applicationID string) ([]*models.WorkflowStep, error) {
	query := `
		SELECT
			id
		  , application_id
		  , step_number
		  , step_name
		  , step_name_local
		  , step_type
		  , step_description
		  , assigned_role
		  , status
		  , can_send_back
		  , can_reject
		  , started_at
		  , completed_at
		  , completed_by_name
		  , sla_hours
		  , sla_deadline
		  , sla_breached
		  , remarks
		FROM workflow_steps
		WHERE application_id = $1
		ORDER BY step_number
	`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}

	defer r.closeRows(ctx, rows)

	steps := make([]*models.WorkflowStep, 0)

	for rows.Next() {
		var (
			step                             models.WorkflowStep
			startedAt, completedAt, deadline sql.NullTime
		)

		err := rows.Scan(
			&step.ID,
			&step.ApplicationID,
			&step.StepNumber,
			&step.StepName,
			&step.StepNameLocal,
			&step.StepType,
			&step.StepDescription,
			&step.AssignedRole,
			&step.Status,
			&step.CanSendBack,
			&step.CanReject,
			&startedAt,
			&completedAt,
			&step.CompletedByName,
			&step.SLAHours,
			&deadline,
			&step.SLABreached,
			&step.Remarks,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}

		step.StartedAt = timePtr(startedAt)
		step.CompletedAt = timePtr(completedAt)
		step.SLADeadline = timePtr(deadline)

		steps = append(steps, &step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow steps: %w", err)
	}

	return steps, nil
}

// Save upserts the application, its documents and its steps in one transaction.
func (r *ApplicationRepository) Save(ctx context.Context, record *models.ApplicationRecord) (err error) {
	err = persistence.ValidateRecord(record)
	if err != nil {
		return err
	}

	application := record.Application
	now := time.Now().UTC()

	if application.CreatedAt.IsZero() {
		application.CreatedAt = now
	}

	application.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (id, service_code, service_name, applicant_name, workflow_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			applicant_name = EXCLUDED.applicant_name,
			workflow_status = EXCLUDED.workflow_status,
			updated_at = EXCLUDED.updated_at
	`,
		application.ID,
		application.ServiceCode,
		application.ServiceName,
		application.ApplicantName,
		application.WorkflowStatus,
		application.CreatedAt,
		application.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save application: %w", err)
	}

	for position, doc := range record.Documents {
		err = saveDocument(ctx, tx, application.ID, position, doc)
		if err != nil {
			return err
		}
	}

	for _, step := range record.Steps {
		err = saveStep(ctx, tx, application.ID, step)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func saveDocument(ctx context.Context, tx *sql.Tx, applicationID string, position int, doc *models.RequiredDocument) error {
	var fileURL, originalFilename, fileType, fileSize any

	if doc.UploadedDocument != nil {
		fileURL = doc.UploadedDocument.FileURL
		originalFilename = doc.UploadedDocument.OriginalFilename
		fileType = doc.UploadedDocument.FileType
		fileSize = doc.UploadedDocument.FileSizeBytes
	}

	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}

	formats := doc.AcceptedFormats
	if formats == nil {
		formats = []string{}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO required_documents (
			id, application_id, position, document_name, document_name_local, document_type,
			is_mandatory, accepted_formats, max_size_mb, description, sample_url, status,
			file_url, original_filename, file_type, file_size_bytes, rejection_reason, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			file_url = EXCLUDED.file_url,
			original_filename = EXCLUDED.original_filename,
			file_type = EXCLUDED.file_type,
			file_size_bytes = EXCLUDED.file_size_bytes,
			rejection_reason = EXCLUDED.rejection_reason,
			updated_at = EXCLUDED.updated_at
	`,
		doc.ID,
		applicationID,
		position,
		doc.DocumentName,
		doc.DocumentNameLocal,
		doc.DocumentType,
		doc.IsMandatory,
		pq.Array(formats),
		doc.MaxSizeMB,
		doc.Description,
		doc.SampleURL,
		doc.Status,
		fileURL,
		originalFilename,
		fileType,
		fileSize,
		doc.RejectionReason,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	return nil
}

func saveStep(ctx context.Context, tx *sql.Tx, applicationID string, step *models.WorkflowStep) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO workflow_steps (
			id, application_id, step_number, step_name, step_name_local, step_type, step_description,
			assigned_role, status, can_send_back, can_reject, started_at, completed_at, completed_by_name,
			sla_hours, sla_deadline, sla_breached, remarks
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			completed_by_name = EXCLUDED.completed_by_name,
			sla_deadline = EXCLUDED.sla_deadline,
			sla_breached = EXCLUDED.sla_breached,
			remarks = EXCLUDED.remarks
	`,
		step.ID,
		applicationID,
		step.StepNumber,
		step.StepName,
		step.StepNameLocal,
		step.StepType,
		step.StepDescription,
		step.AssignedRole,
		step.Status,
		step.CanSendBack,
		step.CanReject,
		nullTime(step.StartedAt),
		nullTime(step.CompletedAt),
		step.CompletedByName,
		step.SLAHours,
		nullTime(step.SLADeadline),
		step.SLABreached,
		step.Remarks,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow step %d: %w", step.StepNumber, err)
	}

	return nil
}

// List returns every application, newest first.
func (r *ApplicationRepository) List(ctx context.Context) ([]*models.Application, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}

	defer r.closeRows(ctx, rows)

	applications := make([]*models.Application, 0)

	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}

		applications = append(applications, application)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return applications, nil
}

// ListByWorkflowStatus returns the full records of applications whose workflow is in status.
func (r *ApplicationRepository) ListByWorkflowStatus(
	ctx context.Context,
	status models.ApplicationWorkflowStatus,
) ([]*models.ApplicationRecord, error) {
	ids, err := r.idsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	records := make([]*models.ApplicationRecord, 0, len(ids))

	for _, id := range ids {
		record, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

func (r *ApplicationRepository) idsByStatus(ctx context.Context, status models.ApplicationWorkflowStatus) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM applications WHERE workflow_status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications by status: %w", err)
	}

	defer r.closeRows(ctx, rows)

	ids := make([]string, 0)

	for rows.Next() {
		var id string

		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application id: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating application ids: %w", err)
	}

	return ids, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time

	return &v
}
