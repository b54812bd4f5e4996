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

// Tracker records completion and automation status per task instance and
// serves the automation pull queue.
type Tracker struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewTracker creates a new task tracker.
func NewTracker(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Tracker {
	return &Tracker{
		persistence: p,
		publisher:   publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListAutomatable returns the automation pull queue: incomplete tasks with
// CanAutomate set, ascending by adjusted date then order. An empty sessionID
// spans all sessions.
func (s *Tracker) ListAutomatable(ctx context.Context, sessionID string) ([]*models.TaskInstance, error) {
	tasks, err := s.persistence.TaskRepository().ListAutomatable(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list automatable tasks: %w", err)
	}

	return tasks, nil
}

// SetCompletion marks a task done or reopens it. Completing an
// already-completed task is an idempotent no-op returning current state, so
// at-least-once callers cannot corrupt history. Reopening clears completion
// state and returns the task to the pending queue; any resolved approval
// record stays behind as history.
func (s *Tracker) SetCompletion(ctx context.Context, taskID string, completed bool, actor string) (*models.TaskInstance, error) {
	if actor == "" {
		return nil, NewValidationError("SetCompletion", "EMPTY_ACTOR", "actor is required", ErrEmptyActor)
	}

	task, err := s.persistence.TaskRepository().TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.IsCompleted == completed {
		return task, nil
	}

	if completed {
		task.Complete(actor, s.now())
	} else {
		task.Reopen()
	}

	if err := s.persistence.TaskRepository().SaveTask(ctx, task); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Task completion changed",
		"task_id", task.ID,
		"session_id", task.SessionID,
		"completed", completed,
		"actor", actor)

	s.publishCompletion(ctx, task, completed, actor)

	return task, nil
}

func (s *Tracker) publishCompletion(ctx context.Context, task *models.TaskInstance, completed bool, actor string) {
	if s.publisher == nil {
		return
	}

	base := events.BaseEvent{
		ID:        uuid.New().String(),
		Timestamp: s.now(),
		SessionID: task.SessionID,
	}

	var (
		event eventbus.Event
	)

	if completed {
		base.Type = events.TaskCompletedEvent
		event = events.TaskCompleted{BaseEvent: base, TaskID: task.ID, TaskName: task.TaskName, Actor: actor}
	} else {
		base.Type = events.TaskReopenedEvent
		event = events.TaskReopened{BaseEvent: base, TaskID: task.ID, TaskName: task.TaskName, Actor: actor}
	}

	if err := s.publisher.Publish(ctx, task.SessionID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish task completion event",
			"task_id", task.ID, "error", err)
	}
}
