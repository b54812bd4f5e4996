package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/apertura/sessionflow/pkg/events"
	"github.com/apertura/sessionflow/pkg/eventbus"
	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
	"github.com/google/uuid"
)

// Reschedule recomputes due dates for not-yet-completed tasks when the owning
// session's date changes. Completed tasks are never touched: history is
// immutable once executed.
type Reschedule struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewReschedule creates a new reschedule adjuster.
func NewReschedule(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Reschedule {
	return &Reschedule{
		persistence: p,
		publisher:   publisher,
		logger:      logger,
	}
}

// Apply moves the session to newDate and recomputes every incomplete task's
// due date from its offset. Manual per-task date overrides are discarded: they
// were shifts relative to the old session date, so the reschedule supersedes
// them.
func (s *Reschedule) Apply(ctx context.Context, sessionID string, newDate models.Date) (*models.Timeline, error) {
	if newDate.IsZero() {
		return nil, NewValidationError("Reschedule", "INVALID_REQUEST", "new session date is required", ErrInvalidRequest)
	}

	timeline, err := s.persistence.TaskRepository().TimelineBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	previousDate := timeline.SessionDate
	adjusted := make([]*models.TaskInstance, 0, len(timeline.Tasks))

	for _, task := range timeline.Tasks {
		if task.IsCompleted {
			continue
		}

		recomputed := newDate.AddDays(task.OffsetDays)
		task.CalculatedDate = recomputed
		task.AdjustedDate = recomputed
		adjusted = append(adjusted, task)
	}

	if err := s.persistence.TaskRepository().RescheduleTimeline(ctx, sessionID, newDate, adjusted); err != nil {
		return nil, err
	}

	timeline.SessionDate = newDate

	s.logger.InfoContext(ctx, "Session rescheduled",
		"session_id", sessionID,
		"previous_date", previousDate.String(),
		"new_date", newDate.String(),
		"adjusted_tasks", len(adjusted))

	s.publish(ctx, sessionID, previousDate, newDate, len(adjusted))

	return timeline, nil
}

func (s *Reschedule) publish(ctx context.Context, sessionID string, previous, next models.Date, adjusted int) {
	if s.publisher == nil {
		return
	}

	event := events.SessionRescheduled{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.SessionRescheduledEvent,
			Timestamp: time.Now().UTC(),
			SessionID: sessionID,
		},
		PreviousDate:  previous,
		NewDate:       next,
		AdjustedTasks: adjusted,
	}

	if err := s.publisher.Publish(ctx, sessionID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish reschedule event",
			"session_id", sessionID, "error", err)
	}
}
