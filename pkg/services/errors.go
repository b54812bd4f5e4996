// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/apertura/sessionflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidTemplate = errors.New("invalid template")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrEmptyActor      = errors.New("actor cannot be empty")

	// ErrNoTemplate indicates no template is mapped to the session type. The
	// engine never fabricates a default; the caller decides fallback policy.
	ErrNoTemplate = errors.New("no template for session type")

	// Business Logic Conflicts (409 Conflict).
	ErrTaskAlreadyCompleted    = errors.New("task already completed")
	ErrApprovalNotRequired     = errors.New("task does not require approval")
	ErrApprovalAlreadyResolved = errors.New("approval request already resolved")
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

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidTemplate) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyActor)
}

// IsNoTemplate checks if an error indicates an unmapped session type.
func IsNoTemplate(err error) bool {
	return errors.Is(err, ErrNoTemplate)
}

// IsConflictError checks if an error is a business logic conflict that should
// return HTTP 409. Stale-version writes are included: they are conflicts the
// caller resolves by retrying with fresh state.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrTaskAlreadyCompleted) ||
		errors.Is(err, ErrApprovalNotRequired) ||
		errors.Is(err, ErrApprovalAlreadyResolved) ||
		persistence.IsConcurrentModification(err)
}
