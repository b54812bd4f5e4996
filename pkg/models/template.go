// Package models defines the core domain models for session timeline automation.
package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyTemplate indicates a template was submitted without any task definitions.
	ErrEmptyTemplate = errors.New("template must contain at least one task")

	// ErrDuplicateOrder indicates two task definitions share the same order value.
	ErrDuplicateOrder = errors.New("task order values must be unique within a template")

	// ErrNegativeEstimate indicates a task definition carries a negative hour estimate.
	ErrNegativeEstimate = errors.New("estimated hours cannot be negative")
)

// TaskDef is one reusable task definition inside a timeline template.
// OffsetDays is relative to the session date: negative offsets are preparation
// tasks, positive offsets are delivery tasks.
type TaskDef struct {
	Name             string  `json:"name"              validate:"required,min=1"`
	OffsetDays       int     `json:"offset_days"`
	Order            int     `json:"order"             validate:"required,min=1"`
	CanAutomate      bool    `json:"can_automate"`
	ApprovalRequired bool    `json:"approval_required"`
	EstimatedHours   float64 `json:"estimated_hours"`
	RequiresHuman    bool    `json:"requires_human"`
	CanBatch         bool    `json:"can_batch"`
}

// TimelineTemplate holds the canonical ordered task list for one session type.
// There is exactly one template per session type; writes replace the whole
// template atomically.
type TimelineTemplate struct {
	SessionType string    `json:"session_type" validate:"required,min=1"`
	Tasks       []TaskDef `json:"tasks"        validate:"required,min=1,dive"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate enforces the template invariants that struct tags cannot express:
// order uniqueness and non-negative estimates.
func (t *TimelineTemplate) Validate() error {
	if len(t.Tasks) == 0 {
		return ErrEmptyTemplate
	}

	seen := make(map[int]string, len(t.Tasks))

	for _, task := range t.Tasks {
		if prior, ok := seen[task.Order]; ok {
			return fmt.Errorf("order %d used by both %q and %q: %w", task.Order, prior, task.Name, ErrDuplicateOrder)
		}

		seen[task.Order] = task.Name

		if task.EstimatedHours < 0 {
			return fmt.Errorf("task %q: %w", task.Name, ErrNegativeEstimate)
		}
	}

	return nil
}
