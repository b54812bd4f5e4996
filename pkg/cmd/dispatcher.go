package cmd

import (
	"fmt"

	"github.com/apertura/sessionflow/pkg/dispatch"
	"github.com/apertura/sessionflow/pkg/eventbus"
)

// NewDispatcher creates the hand-off channel the worker pushes due tasks
// through. The redis provider feeds queue-based consumers; the default
// publishes task.dispatched events on the event bus.
func NewDispatcher(provider, redisURL string, bus eventbus.EventBus) dispatch.Dispatcher {
	switch provider {
	case "redis":
		d, err := dispatch.NewRedisDispatcher(redisURL, "")
		if err != nil {
			panic(fmt.Errorf("failed to create redis dispatcher: %w", err))
		}

		return d
	case "eventbus":
		return dispatch.NewEventBusDispatcher(bus)
	default:
		panic("Unsupported dispatcher provider: " + provider)
	}
}
