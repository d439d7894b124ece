package persistence

import (
	"errors"
	"fmt"

	"github.com/dukex/appflow/pkg/models"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrApplicationNotFound indicates an application was not found by the given identifier.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrInvalidRecord indicates a record is missing its application or identifier.
	ErrInvalidRecord = errors.New("invalid application record")
)

// ApplicationError wraps application-related errors with additional context.
type ApplicationError struct {
	Op            string // Operation being performed (e.g., "GetByID", "Save")
	ApplicationID string
	Err           error
	Message       string
}

func (e *ApplicationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for application %s: %s (%v)", e.Op, e.ApplicationID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for application %s: %v", e.Op, e.ApplicationID, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for application errors.
func (e *ApplicationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewApplicationError creates a new application error with context.
func NewApplicationError(op, applicationID string, err error) *ApplicationError {
	return &ApplicationError{
		Op:            op,
		ApplicationID: applicationID,
		Err:           err,
	}
}

// IsApplicationNotFound checks if an error indicates an application was not found.
func IsApplicationNotFound(err error) bool {
	return errors.Is(err, ErrApplicationNotFound)
}

// ValidateRecord checks the fields every repository relies on.
func ValidateRecord(record *models.ApplicationRecord) error {
	if record == nil || record.Application == nil {
		return ErrInvalidRecord
	}

	if record.Application.ID == "" {
		return fmt.Errorf("%w: missing application id", ErrInvalidRecord)
	}

	return nil
}
