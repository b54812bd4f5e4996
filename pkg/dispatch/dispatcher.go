// Package dispatch hands due automatable tasks to the content-generation
// pipeline. Dispatch is at-least-once; the engine's idempotent completion and
// approval paths make duplicate deliveries safe.
package dispatch

import (
	"context"

	"github.com/apertura/sessionflow/pkg/models"
)

// Dispatcher delivers one due task to whatever consumes the automation queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *models.TaskInstance, batched bool) error
	Close() error
}
