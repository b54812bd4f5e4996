package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apertura/sessionflow/pkg/events"
	"github.com/apertura/sessionflow/pkg/eventbus"
	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
	"github.com/google/uuid"
)

// Approvals gates automation-generated content behind human review. A task
// with ApprovalRequired never completes through automation without a reviewer
// approving the submitted content first.
type Approvals struct {
	persistence persistence.Persistence
	tracker     *Tracker
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewApprovals creates a new approval gate.
func NewApprovals(p persistence.Persistence, tracker *Tracker, publisher eventbus.EventPublisher, logger *slog.Logger) *Approvals {
	return &Approvals{
		persistence: p,
		tracker:     tracker,
		publisher:   publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores generated content for review and moves the task to
// pending_approval. A new submission for a task with an open request
// supersedes it: the prior request is marked rejected and the fresh one
// becomes the single open request.
func (s *Approvals) Submit(ctx context.Context, taskID, content, contentType string, metadata map[string]any) (*models.ApprovalRequest, error) {
	task, err := s.persistence.TaskRepository().TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.IsCompleted {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskAlreadyCompleted)
	}

	if !task.ApprovalRequired {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrApprovalNotRequired)
	}

	now := s.now()

	prior, err := s.persistence.ApprovalRepository().OpenByTask(ctx, taskID)
	if err != nil && !persistence.IsApprovalNotFound(err) {
		return nil, fmt.Errorf("failed to check for open approval: %w", err)
	}

	if prior != nil {
		prior.ApprovalStatus = models.ApprovalStatusRejected
		prior.ResolvedAt = &now

		if err := s.persistence.ApprovalRepository().Save(ctx, prior); err != nil {
			return nil, fmt.Errorf("failed to supersede approval %s: %w", prior.ID, err)
		}
	}

	approval := &models.ApprovalRequest{
		ID:               uuid.New().String(),
		TaskInstanceID:   task.ID,
		SessionID:        task.SessionID,
		GeneratedContent: content,
		ContentType:      contentType,
		Metadata:         metadata,
		ApprovalStatus:   models.ApprovalStatusPendingReview,
		SubmittedAt:      now,
	}

	if err := s.persistence.ApprovalRepository().Save(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to save approval: %w", err)
	}

	if task.AutomationStatus != models.AutomationStatusPendingApproval {
		task.AutomationStatus = models.AutomationStatusPendingApproval

		if err := s.persistence.TaskRepository().SaveTask(ctx, task); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Approval submitted",
		"approval_id", approval.ID,
		"task_id", task.ID,
		"content_type", contentType,
		"superseded", prior != nil)

	s.publish(ctx, events.ApprovalSubmitted{
		BaseEvent:   s.baseEvent(events.ApprovalSubmittedEvent, task.SessionID),
		ApprovalID:  approval.ID,
		TaskID:      task.ID,
		ContentType: contentType,
	}, task.SessionID)

	return approval, nil
}

// Resolve records the reviewer's decision. Approval completes the task through
// the tracker under the ai_agent_approved actor; rejection returns the task to
// the pending queue so automation can try again.
func (s *Approvals) Resolve(ctx context.Context, approvalID string, approved bool) (*models.TaskInstance, error) {
	approval, err := s.persistence.ApprovalRepository().ByID(ctx, approvalID)
	if err != nil {
		return nil, err
	}

	if !approval.Open() {
		return nil, fmt.Errorf("approval %s: %w", approvalID, ErrApprovalAlreadyResolved)
	}

	now := s.now()
	approval.ResolvedAt = &now

	if approved {
		approval.ApprovalStatus = models.ApprovalStatusApproved
	} else {
		approval.ApprovalStatus = models.ApprovalStatusRejected
	}

	if err := s.persistence.ApprovalRepository().Save(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to save approval resolution: %w", err)
	}

	var task *models.TaskInstance

	if approved {
		task, err = s.tracker.SetCompletion(ctx, approval.TaskInstanceID, true, models.ActorAIAgentApproved)
		if err != nil {
			return nil, err
		}

		s.publish(ctx, events.ApprovalApproved{
			BaseEvent:  s.baseEvent(events.ApprovalApprovedEvent, approval.SessionID),
			ApprovalID: approval.ID,
			TaskID:     approval.TaskInstanceID,
		}, approval.SessionID)
	} else {
		task, err = s.persistence.TaskRepository().TaskByID(ctx, approval.TaskInstanceID)
		if err != nil {
			return nil, err
		}

		if task.AutomationStatus != models.AutomationStatusPending {
			task.AutomationStatus = models.AutomationStatusPending

			if err := s.persistence.TaskRepository().SaveTask(ctx, task); err != nil {
				return nil, err
			}
		}

		s.publish(ctx, events.ApprovalRejected{
			BaseEvent:  s.baseEvent(events.ApprovalRejectedEvent, approval.SessionID),
			ApprovalID: approval.ID,
			TaskID:     approval.TaskInstanceID,
		}, approval.SessionID)
	}

	s.logger.InfoContext(ctx, "Approval resolved",
		"approval_id", approval.ID,
		"task_id", approval.TaskInstanceID,
		"approved", approved)

	return task, nil
}

// ListPending returns every open approval request, oldest first.
func (s *Approvals) ListPending(ctx context.Context) ([]*models.ApprovalRequest, error) {
	approvals, err := s.persistence.ApprovalRepository().ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}

	return approvals, nil
}

func (s *Approvals) baseEvent(eventType events.EventType, sessionID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: s.now(),
		SessionID: sessionID,
	}
}

func (s *Approvals) publish(ctx context.Context, event eventbus.Event, key string) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish approval event", "error", err)
	}
}
