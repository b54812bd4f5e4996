// Package worker implements the polling automation dispatcher. It is the
// external side of the engine's pull queue: on a cron schedule it lists
// automatable tasks, filters the ones due for automation, and hands them to
// the content-generation pipeline through a dispatcher. The worker never
// completes tasks itself; completion flows back through the approval gate or
// direct completion calls.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apertura/sessionflow/pkg/dispatch"
	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/otelhelper"
	"github.com/apertura/sessionflow/pkg/services"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Worker polls the automation queue and dispatches due tasks.
type Worker struct {
	id         string
	tracker    *services.Tracker
	dispatcher dispatch.Dispatcher
	schedule   cron.Schedule
	logger     *slog.Logger
	tracer     trace.Tracer

	// dispatched remembers the task versions already handed off by this
	// process, so a task is not re-dispatched every cycle while it waits for
	// content generation. Dispatch stays at-least-once across restarts; the
	// engine's idempotent paths absorb duplicates.
	dispatched map[string]int64

	now func() time.Time
}

// New creates a worker polling on the given standard 5-field cron expression.
func New(id string, tracker *services.Tracker, dispatcher dispatch.Dispatcher, cronExpression string, logger *slog.Logger, tracer trace.Tracer) (*Worker, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	schedule, err := parser.Parse(cronExpression)
	if err != nil {
		return nil, fmt.Errorf("invalid poll cron expression %q: %w", cronExpression, err)
	}

	return &Worker{
		id:         id,
		tracker:    tracker,
		dispatcher: dispatcher,
		schedule:   schedule,
		logger:     logger.With("worker_id", id),
		tracer:     tracer,
		dispatched: make(map[string]int64),
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting automation worker")

	for {
		next := w.schedule.Next(w.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.InfoContext(ctx, "Automation worker stopping")

			return ctx.Err()
		case <-timer.C:
		}

		count, err := w.RunCycle(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Poll cycle failed", "error", err)

			continue
		}

		if count > 0 {
			w.logger.InfoContext(ctx, "Poll cycle dispatched tasks", "count", count)
		}
	}
}

// RunCycle performs one poll of the automation queue and returns how many
// tasks were dispatched.
func (w *Worker) RunCycle(ctx context.Context) (int, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.poll_cycle",
		attribute.String(otelhelper.WorkerIDKey, w.id))
	defer span.End()

	tasks, err := w.tracker.ListAutomatable(ctx, "")
	if err != nil {
		otelhelper.SetError(span, err)

		return 0, err
	}

	today := models.DateOf(w.now())
	due := w.selectDue(tasks, today)
	batched := batchBySession(due)

	dispatchedCount := 0

	for _, task := range due {
		err := w.dispatcher.Dispatch(ctx, task, batched[task.ID])
		if err != nil {
			otelhelper.SetError(span, err, attribute.String(otelhelper.TaskIDKey, task.ID))

			return dispatchedCount, fmt.Errorf("failed to dispatch task %s: %w", task.ID, err)
		}

		w.dispatched[task.ID] = task.Version
		dispatchedCount++
	}

	w.prune(tasks)
	span.SetAttributes(attribute.Int("sessionflow.dispatched_count", dispatchedCount))

	return dispatchedCount, nil
}

// selectDue filters the pull queue down to tasks this worker should hand off:
// due today or earlier, not reserved for humans, not already awaiting review,
// and not already dispatched at this version.
func (w *Worker) selectDue(tasks []*models.TaskInstance, today models.Date) []*models.TaskInstance {
	due := make([]*models.TaskInstance, 0, len(tasks))

	for _, task := range tasks {
		if task.RequiresHuman {
			continue
		}

		if task.AutomationStatus != models.AutomationStatusPending {
			continue
		}

		if task.AdjustedDate.After(today) {
			continue
		}

		if version, ok := w.dispatched[task.ID]; ok && version == task.Version {
			continue
		}

		due = append(due, task)
	}

	return due
}

// batchBySession marks tasks that can be generated together with another
// batchable task from the same session.
func batchBySession(tasks []*models.TaskInstance) map[string]bool {
	perSession := make(map[string]int)

	for _, task := range tasks {
		if task.CanBatch {
			perSession[task.SessionID]++
		}
	}

	batched := make(map[string]bool, len(tasks))

	for _, task := range tasks {
		batched[task.ID] = task.CanBatch && perSession[task.SessionID] > 1
	}

	return batched
}

// prune drops dispatch records for tasks no longer in the queue.
func (w *Worker) prune(current []*models.TaskInstance) {
	live := make(map[string]struct{}, len(current))
	for _, task := range current {
		live[task.ID] = struct{}{}
	}

	for id := range w.dispatched {
		if _, ok := live[id]; !ok {
			delete(w.dispatched, id)
		}
	}
}
