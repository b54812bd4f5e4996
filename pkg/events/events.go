// Package events defines event types for timeline lifecycle notifications.
package events

import (
	"time"

	"github.com/apertura/sessionflow/pkg/models"
)

type EventType string

// Topic is the stream all timeline lifecycle events are published on.
const Topic = "sessionflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Timeline lifecycle events.
	TimelineGeneratedEvent  EventType = "timeline.generated"
	SessionRescheduledEvent EventType = "session.rescheduled"

	// Task lifecycle events.
	TaskCompletedEvent  EventType = "task.completed"
	TaskReopenedEvent   EventType = "task.reopened"
	TaskDispatchedEvent EventType = "task.dispatched"

	// Approval lifecycle events.
	ApprovalSubmittedEvent EventType = "approval.submitted"
	ApprovalApprovedEvent  EventType = "approval.approved"
	ApprovalRejectedEvent  EventType = "approval.rejected"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type TimelineGenerated struct {
	BaseEvent

	SessionType string      `json:"session_type"`
	SessionDate models.Date `json:"session_date"`
	TaskCount   int         `json:"task_count"`
}

func (e TimelineGenerated) GetType() EventType {
	return TimelineGeneratedEvent
}

type SessionRescheduled struct {
	BaseEvent

	PreviousDate  models.Date `json:"previous_date"`
	NewDate       models.Date `json:"new_date"`
	AdjustedTasks int         `json:"adjusted_tasks"`
}

func (e SessionRescheduled) GetType() EventType {
	return SessionRescheduledEvent
}

type TaskCompleted struct {
	BaseEvent

	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
	Actor    string `json:"actor"`
}

func (e TaskCompleted) GetType() EventType {
	return TaskCompletedEvent
}

type TaskReopened struct {
	BaseEvent

	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
	Actor    string `json:"actor"`
}

func (e TaskReopened) GetType() EventType {
	return TaskReopenedEvent
}

// TaskDispatched is emitted by the automation worker when it hands a due task
// to the content-generation pipeline.
type TaskDispatched struct {
	BaseEvent

	TaskID           string      `json:"task_id"`
	TaskName         string      `json:"task_name"`
	DueDate          models.Date `json:"due_date"`
	ApprovalRequired bool        `json:"approval_required"`
	Batched          bool        `json:"batched"`
}

func (e TaskDispatched) GetType() EventType {
	return TaskDispatchedEvent
}

type ApprovalSubmitted struct {
	BaseEvent

	ApprovalID  string `json:"approval_id"`
	TaskID      string `json:"task_id"`
	ContentType string `json:"content_type"`
}

func (e ApprovalSubmitted) GetType() EventType {
	return ApprovalSubmittedEvent
}

type ApprovalApproved struct {
	BaseEvent

	ApprovalID string `json:"approval_id"`
	TaskID     string `json:"task_id"`
}

func (e ApprovalApproved) GetType() EventType {
	return ApprovalApprovedEvent
}

type ApprovalRejected struct {
	BaseEvent

	ApprovalID string `json:"approval_id"`
	TaskID     string `json:"task_id"`
}

func (e ApprovalRejected) GetType() EventType {
	return ApprovalRejectedEvent
}
