// Package persistence provides the data storage abstraction for templates,
// timelines and approval requests.
package persistence

import (
	"context"

	"github.com/apertura/sessionflow/pkg/models"
)

// Persistence is the root storage interface. Implementations bundle the
// per-aggregate repositories behind one connection lifecycle.
type Persistence interface {
	TemplateRepository() TemplateRepository
	TaskRepository() TaskRepository
	ApprovalRepository() ApprovalRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// TemplateRepository stores one canonical template per session type.
type TemplateRepository interface {
	// BySessionType returns the template for a session type, or
	// ErrTemplateNotFound.
	BySessionType(ctx context.Context, sessionType string) (*models.TimelineTemplate, error)

	// Save replaces any existing template for the same session type
	// atomically; readers never observe a partially-replaced template.
	Save(ctx context.Context, template *models.TimelineTemplate) error

	List(ctx context.Context) ([]*models.TimelineTemplate, error)
	Delete(ctx context.Context, sessionType string) error
}

// TaskRepository stores per-session timelines and their task instances.
type TaskRepository interface {
	// CreateTimeline persists a freshly generated timeline. The existence
	// check and the insert are a single atomic unit: a second create for the
	// same session fails with ErrTimelineExists regardless of interleaving.
	CreateTimeline(ctx context.Context, timeline *models.Timeline) error

	// TimelineBySession returns the session's timeline with tasks in
	// execution order, or ErrTimelineNotFound.
	TimelineBySession(ctx context.Context, sessionID string) (*models.Timeline, error)

	// TaskByID resolves a single task instance, or ErrTaskNotFound.
	TaskByID(ctx context.Context, taskID string) (*models.TaskInstance, error)

	// SaveTask writes one task instance. The write only succeeds when the
	// stored version matches task.Version; on success the version is
	// incremented. A stale version fails with ErrConcurrentModification.
	SaveTask(ctx context.Context, task *models.TaskInstance) error

	// RescheduleTimeline moves the session to a new date and writes the
	// recomputed task batch under the same version discipline, as one atomic
	// unit. A stale version anywhere fails the whole batch.
	RescheduleTimeline(ctx context.Context, sessionID string, newDate models.Date, tasks []*models.TaskInstance) error

	// ListAutomatable returns the automation pull queue: incomplete tasks
	// with CanAutomate set and status pending or pending_approval, ascending
	// by adjusted date then order. An empty sessionID spans all sessions.
	ListAutomatable(ctx context.Context, sessionID string) ([]*models.TaskInstance, error)
}

// ApprovalRepository stores approval requests.
type ApprovalRepository interface {
	Save(ctx context.Context, approval *models.ApprovalRequest) error

	// ByID returns an approval request, or ErrApprovalNotFound.
	ByID(ctx context.Context, approvalID string) (*models.ApprovalRequest, error)

	// OpenByTask returns the task's open (pending_review) request, or
	// ErrApprovalNotFound when none is open.
	OpenByTask(ctx context.Context, taskID string) (*models.ApprovalRequest, error)

	ListPending(ctx context.Context) ([]*models.ApprovalRequest, error)
}
