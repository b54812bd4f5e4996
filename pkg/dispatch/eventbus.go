package dispatch

import (
	"context"
	"time"

	"github.com/apertura/sessionflow/pkg/events"
	"github.com/apertura/sessionflow/pkg/eventbus"
	"github.com/apertura/sessionflow/pkg/models"
	"github.com/google/uuid"
)

// EventBusDispatcher publishes task.dispatched events on the event bus. The
// content-generation services subscribe to the events topic.
type EventBusDispatcher struct {
	bus eventbus.EventBus
}

// NewEventBusDispatcher creates a dispatcher over an event bus.
func NewEventBusDispatcher(bus eventbus.EventBus) *EventBusDispatcher {
	return &EventBusDispatcher{bus: bus}
}

func (d *EventBusDispatcher) Dispatch(ctx context.Context, task *models.TaskInstance, batched bool) error {
	event := events.TaskDispatched{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.TaskDispatchedEvent,
			Timestamp: time.Now().UTC(),
			SessionID: task.SessionID,
		},
		TaskID:           task.ID,
		TaskName:         task.TaskName,
		DueDate:          task.AdjustedDate,
		ApprovalRequired: task.ApprovalRequired,
		Batched:          batched,
	}

	return d.bus.Publish(ctx, task.SessionID, event)
}

func (d *EventBusDispatcher) Close() error {
	return d.bus.Close()
}
