package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence/file"
	"github.com/apertura/sessionflow/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type capturedDispatch struct {
	taskID  string
	batched bool
}

type captureDispatcher struct {
	dispatched []capturedDispatch
}

func (d *captureDispatcher) Dispatch(_ context.Context, task *models.TaskInstance, batched bool) error {
	d.dispatched = append(d.dispatched, capturedDispatch{taskID: task.ID, batched: batched})

	return nil
}

func (d *captureDispatcher) Close() error { return nil }

type workerEnv struct {
	worker      *Worker
	dispatcher  *captureDispatcher
	persistence *file.Persistence
	tracker     *services.Tracker
	generator   *services.Generator
	templates   *services.Template
}

func newTestWorker(t *testing.T) *workerEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := file.NewPersistence(t.TempDir())

	templates := services.NewTemplate(p)
	generator := services.NewGenerator(p, templates, nil, logger)
	tracker := services.NewTracker(p, nil, logger)
	dispatcher := &captureDispatcher{}

	w, err := New("worker-test", tracker, dispatcher, "*/15 * * * *", logger,
		noop.NewTracerProvider().Tracer("test"))
	require.NoError(t, err)

	// Poll cycles run against a fixed clock so due-date filtering is
	// deterministic.
	w.now = func() time.Time {
		return time.Date(2025, time.June, 8, 10, 0, 0, 0, time.UTC)
	}

	return &workerEnv{
		worker:      w,
		dispatcher:  dispatcher,
		persistence: p,
		tracker:     tracker,
		generator:   generator,
		templates:   templates,
	}
}

func seedPortrait(t *testing.T, templates *services.Template, generator *services.Generator, sessionID string) *models.Timeline {
	t.Helper()

	template := &models.TimelineTemplate{
		SessionType: "portrait",
		Tasks: []models.TaskDef{
			{Name: "Send booking confirmation", OffsetDays: -14, Order: 1, CanAutomate: true, ApprovalRequired: true, CanBatch: true},
			{Name: "Send preparation guide", OffsetDays: -7, Order: 2, CanAutomate: true, ApprovalRequired: true, CanBatch: true},
			{Name: "Confirm session details", OffsetDays: -3, Order: 3, CanAutomate: true, ApprovalRequired: true},
			{Name: "Conduct session", OffsetDays: 0, Order: 4, RequiresHuman: true},
			{Name: "Deliver final gallery", OffsetDays: 7, Order: 5, CanAutomate: true, ApprovalRequired: true},
		},
	}

	_, err := templates.Put(t.Context(), template)
	require.NoError(t, err)

	timeline, err := generator.Generate(t.Context(), services.GenerateRequest{
		SessionID:   sessionID,
		SessionType: "portrait",
		SessionDate: models.NewDate(2025, time.June, 15),
	})
	require.NoError(t, err)

	return timeline
}

func TestWorker_New_InvalidCron(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New("worker-test", nil, nil, "not a cron", logger,
		noop.NewTracerProvider().Tracer("test"))
	require.Error(t, err)
}

func TestWorker_RunCycle_DispatchesDueTasks(t *testing.T) {
	env := newTestWorker(t)
	seedPortrait(t, env.templates, env.generator, "session-1")

	// On 2025-06-08 the -14 and -7 offset tasks are due; -3 and +7 are not.
	count, err := env.worker.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, env.dispatcher.dispatched, 2)

	// Both due tasks are batchable within the same session.
	for _, d := range env.dispatcher.dispatched {
		assert.True(t, d.batched)
	}
}

func TestWorker_RunCycle_DoesNotRedispatch(t *testing.T) {
	env := newTestWorker(t)
	seedPortrait(t, env.templates, env.generator, "session-1")

	_, err := env.worker.RunCycle(t.Context())
	require.NoError(t, err)

	// The same cycle conditions hand off nothing new.
	count, err := env.worker.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Len(t, env.dispatcher.dispatched, 2)
}

func TestWorker_RunCycle_RedispatchesAfterReopen(t *testing.T) {
	env := newTestWorker(t)
	timeline := seedPortrait(t, env.templates, env.generator, "session-1")

	_, err := env.worker.RunCycle(t.Context())
	require.NoError(t, err)

	// A completion and reopen bumps the task version; the worker treats the
	// reopened task as fresh work.
	task := timeline.Tasks[0]
	_, err = env.tracker.SetCompletion(t.Context(), task.ID, true, "studio_owner")
	require.NoError(t, err)
	_, err = env.tracker.SetCompletion(t.Context(), task.ID, false, "studio_owner")
	require.NoError(t, err)

	count, err := env.worker.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, env.dispatcher.dispatched, 3)
}

func TestWorker_RunCycle_SkipsHumanTasks(t *testing.T) {
	env := newTestWorker(t)
	seedPortrait(t, env.templates, env.generator, "session-1")

	// Push the clock past the session: every automatable task is due, but the
	// human-only session task is never dispatched.
	env.worker.now = func() time.Time {
		return time.Date(2025, time.June, 23, 10, 0, 0, 0, time.UTC)
	}

	count, err := env.worker.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	for _, d := range env.dispatcher.dispatched {
		assert.NotEmpty(t, d.taskID)
	}
}

func TestWorker_RunCycle_SkipsTasksAwaitingApproval(t *testing.T) {
	env := newTestWorker(t)
	timeline := seedPortrait(t, env.templates, env.generator, "session-1")

	// A submission awaiting review holds its task out of the dispatch set.
	task := timeline.Tasks[0]
	task.AutomationStatus = models.AutomationStatusPendingApproval
	require.NoError(t, env.persistence.TaskRepository().SaveTask(t.Context(), task))

	count, err := env.worker.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, env.dispatcher.dispatched, 1)

	assert.Equal(t, timeline.Tasks[1].ID, env.dispatcher.dispatched[0].taskID)
}
