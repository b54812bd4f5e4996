// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTemplateNotFound indicates no template exists for the session type.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTimelineNotFound indicates no timeline exists for the session.
	ErrTimelineNotFound = errors.New("timeline not found")

	// ErrTimelineExists indicates a timeline was already generated for the
	// session. Duplicate generation must never occur; callers treat this as
	// the idempotent-success signal and return the existing timeline.
	ErrTimelineExists = errors.New("timeline already exists")

	// ErrTaskNotFound indicates a task instance was not found by the given identifier.
	ErrTaskNotFound = errors.New("task not found")

	// ErrApprovalNotFound indicates an approval request was not found.
	ErrApprovalNotFound = errors.New("approval request not found")

	// ErrConcurrentModification indicates a write targeted a stale task
	// version. Safe to retry with fresh state.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// TimelineError wraps timeline-related errors with additional context.
type TimelineError struct {
	Op        string // Operation being performed (e.g. "CreateTimeline", "SaveTask")
	SessionID string
	TaskID    string
	Err       error
}

func (e *TimelineError) Error() string {
	target := "session " + e.SessionID
	if e.TaskID != "" {
		target = fmt.Sprintf("task %s (session %s)", e.TaskID, e.SessionID)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, target, e.Err)
}

func (e *TimelineError) Unwrap() error {
	return e.Err
}

func (e *TimelineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTimelineError creates a new timeline error with context.
func NewTimelineError(op, sessionID string, err error) *TimelineError {
	return &TimelineError{
		Op:        op,
		SessionID: sessionID,
		Err:       err,
	}
}

// NewTaskError creates a new timeline error scoped to one task.
func NewTaskError(op, sessionID, taskID string, err error) *TimelineError {
	return &TimelineError{
		Op:        op,
		SessionID: sessionID,
		TaskID:    taskID,
		Err:       err,
	}
}

// TemplateError wraps template-related errors with additional context.
type TemplateError struct {
	Op          string
	SessionType string
	Err         error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s operation failed for template %s: %v", e.Op, e.SessionType, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

func (e *TemplateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsTemplateNotFound checks if an error indicates a missing template.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsTimelineNotFound checks if an error indicates a missing timeline.
func IsTimelineNotFound(err error) bool {
	return errors.Is(err, ErrTimelineNotFound)
}

// IsTimelineExists checks if an error indicates a duplicate timeline create.
func IsTimelineExists(err error) bool {
	return errors.Is(err, ErrTimelineExists)
}

// IsTaskNotFound checks if an error indicates a missing task instance.
func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

// IsApprovalNotFound checks if an error indicates a missing approval request.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}

// IsConcurrentModification checks if an error indicates a stale-version write.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
