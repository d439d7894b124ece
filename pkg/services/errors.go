// Package services holds the authoritative application service: it owns the
// document and workflow state machines and is the source of truth the API serves.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/appflow/pkg/documents"
	"github.com/dukex/appflow/pkg/persistence"
	"github.com/dukex/appflow/pkg/templates"
	"github.com/dukex/appflow/pkg/workflow"
)

var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// Not Found Errors (404 Not Found).
	ErrApplicationNotFound = persistence.ErrApplicationNotFound
	ErrDocumentNotFound    = errors.New("required document not found")
	ErrTemplateNotFound    = templates.ErrTemplateNotFound

	// Internal Errors (500 Internal Server Error).
	ErrInvalidRecord = errors.New("application record is inconsistent")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// newRuleError reports a refused transition. Its message is shown to the user verbatim.
func newRuleError(op string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "RULE_VIOLATION",
		Message: ruleMessage(err),
		Err:     err,
	}
}

func ruleMessage(err error) string {
	switch {
	case errors.Is(err, documents.ErrReasonRequired), errors.Is(err, workflow.ErrReasonRequired):
		return "Rejection reason is required"
	case errors.Is(err, documents.ErrInvalidTransition):
		return "Document cannot be changed in its current status"
	case errors.Is(err, workflow.ErrAlreadyStarted):
		return "Workflow has already been started"
	case errors.Is(err, workflow.ErrNoSteps):
		return "No workflow is configured for this application"
	case errors.Is(err, workflow.ErrNotInProgress), errors.Is(err, workflow.ErrNoCurrentStep):
		return "Workflow is not in progress"
	case errors.Is(err, workflow.ErrSendBackNotAllowed):
		return "The current step cannot be sent back"
	case errors.Is(err, workflow.ErrRejectNotAllowed):
		return "The current step cannot be rejected"
	case errors.Is(err, workflow.ErrInvalidSendBackTarget):
		return "Send-back target must be an earlier step"
	default:
		return err.Error()
	}
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrApplicationNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}

// IsRuleError checks if an error is a refused state transition. These are
// reported in the response envelope rather than as HTTP errors.
func IsRuleError(err error) bool {
	var se *ServiceError

	return errors.As(err, &se) && se.Code == "RULE_VIOLATION"
}
