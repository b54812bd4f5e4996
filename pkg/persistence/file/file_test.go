package file

import (
	"testing"
	"time"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTimeline(sessionID string) *models.Timeline {
	sessionDate := models.NewDate(2025, time.June, 15)

	return &models.Timeline{
		SessionID:   sessionID,
		SessionType: "portrait",
		SessionDate: sessionDate,
		Tasks: []*models.TaskInstance{
			{
				ID:               sessionID + "-task-1",
				SessionID:        sessionID,
				TaskName:         "Send booking confirmation",
				CalculatedDate:   sessionDate.AddDays(-14),
				AdjustedDate:     sessionDate.AddDays(-14),
				OffsetDays:       -14,
				Order:            1,
				CanAutomate:      true,
				ApprovalRequired: true,
				AutomationStatus: models.AutomationStatusPending,
			},
			{
				ID:               sessionID + "-task-2",
				SessionID:        sessionID,
				TaskName:         "Conduct session",
				CalculatedDate:   sessionDate,
				AdjustedDate:     sessionDate,
				Order:            2,
				RequiresHuman:    true,
				AutomationStatus: models.AutomationStatusPending,
			},
		},
	}
}

func TestTemplateRepository_RoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())

	template := &models.TimelineTemplate{
		SessionType: "Portrait Session",
		Tasks: []models.TaskDef{
			{Name: "Send booking confirmation", OffsetDays: -14, Order: 1},
		},
	}

	require.NoError(t, p.TemplateRepository().Save(t.Context(), template))
	assert.False(t, template.CreatedAt.IsZero())

	// Session types with spaces survive the file-name escaping.
	fetched, err := p.TemplateRepository().BySessionType(t.Context(), "Portrait Session")
	require.NoError(t, err)
	assert.Equal(t, "Portrait Session", fetched.SessionType)
	require.Len(t, fetched.Tasks, 1)

	_, err = p.TemplateRepository().BySessionType(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestTemplateRepository_List(t *testing.T) {
	p := NewPersistence(t.TempDir())

	templates, err := p.TemplateRepository().List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, templates)

	for _, sessionType := range []string{"wedding", "portrait"} {
		require.NoError(t, p.TemplateRepository().Save(t.Context(), &models.TimelineTemplate{
			SessionType: sessionType,
			Tasks:       []models.TaskDef{{Name: "Task", Order: 1}},
		}))
	}

	templates, err = p.TemplateRepository().List(t.Context())
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "portrait", templates[0].SessionType)
	assert.Equal(t, "wedding", templates[1].SessionType)
}

func TestTaskRepository_CreateTimeline(t *testing.T) {
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.TaskRepository().CreateTimeline(t.Context(), testTimeline("session-1")))

	fetched, err := p.TaskRepository().TimelineBySession(t.Context(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "portrait", fetched.SessionType)
	require.Len(t, fetched.Tasks, 2)

	// A second create for the same session must fail, whatever its payload.
	err = p.TaskRepository().CreateTimeline(t.Context(), testTimeline("session-1"))
	require.Error(t, err)
	assert.True(t, persistence.IsTimelineExists(err))
}

func TestTaskRepository_TimelineBySession_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.TaskRepository().TimelineBySession(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsTimelineNotFound(err))
}

func TestTaskRepository_SaveTask_VersionDiscipline(t *testing.T) {
	p := NewPersistence(t.TempDir())
	require.NoError(t, p.TaskRepository().CreateTimeline(t.Context(), testTimeline("session-1")))

	task, err := p.TaskRepository().TaskByID(t.Context(), "session-1-task-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), task.Version)

	task.Complete("studio_owner", time.Now().UTC())
	require.NoError(t, p.TaskRepository().SaveTask(t.Context(), task))
	assert.Equal(t, int64(1), task.Version)

	// A writer holding the old version must not clobber the completed state.
	stale := *task
	stale.Version = 0

	err = p.TaskRepository().SaveTask(t.Context(), &stale)
	require.Error(t, err)
	assert.True(t, persistence.IsConcurrentModification(err))

	current, err := p.TaskRepository().TaskByID(t.Context(), "session-1-task-1")
	require.NoError(t, err)
	assert.True(t, current.IsCompleted)
	assert.Equal(t, int64(1), current.Version)
}

func TestTaskRepository_SaveTask_UnknownTask(t *testing.T) {
	p := NewPersistence(t.TempDir())
	require.NoError(t, p.TaskRepository().CreateTimeline(t.Context(), testTimeline("session-1")))

	err := p.TaskRepository().SaveTask(t.Context(), &models.TaskInstance{
		ID:        "ghost",
		SessionID: "session-1",
	})
	require.Error(t, err)
	assert.True(t, persistence.IsTaskNotFound(err))
}

func TestTaskRepository_RescheduleTimeline(t *testing.T) {
	p := NewPersistence(t.TempDir())
	require.NoError(t, p.TaskRepository().CreateTimeline(t.Context(), testTimeline("session-1")))

	timeline, err := p.TaskRepository().TimelineBySession(t.Context(), "session-1")
	require.NoError(t, err)

	newDate := models.NewDate(2025, time.June, 22)

	for _, task := range timeline.Tasks {
		recomputed := newDate.AddDays(task.OffsetDays)
		task.CalculatedDate = recomputed
		task.AdjustedDate = recomputed
	}

	require.NoError(t, p.TaskRepository().RescheduleTimeline(t.Context(), "session-1", newDate, timeline.Tasks))

	stored, err := p.TaskRepository().TimelineBySession(t.Context(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-22", stored.SessionDate.String())
	assert.Equal(t, "2025-06-08", stored.Tasks[0].AdjustedDate.String())
	assert.Equal(t, "2025-06-22", stored.Tasks[1].AdjustedDate.String())
	assert.Equal(t, int64(1), stored.Tasks[0].Version)
}

func TestTaskRepository_ListAutomatable(t *testing.T) {
	p := NewPersistence(t.TempDir())

	tasks, err := p.TaskRepository().ListAutomatable(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, p.TaskRepository().CreateTimeline(t.Context(), testTimeline("session-1")))
	require.NoError(t, p.TaskRepository().CreateTimeline(t.Context(), testTimeline("session-2")))

	tasks, err = p.TaskRepository().ListAutomatable(t.Context(), "")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = p.TaskRepository().ListAutomatable(t.Context(), "session-2")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "session-2-task-1", tasks[0].ID)

	// Unknown sessions yield an empty queue, not an error.
	tasks, err = p.TaskRepository().ListAutomatable(t.Context(), "missing")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestApprovalRepository(t *testing.T) {
	p := NewPersistence(t.TempDir())

	approval := &models.ApprovalRequest{
		ID:               "approval-1",
		TaskInstanceID:   "task-1",
		SessionID:        "session-1",
		GeneratedContent: "Draft email",
		ContentType:      "email",
		ApprovalStatus:   models.ApprovalStatusPendingReview,
		SubmittedAt:      time.Now().UTC(),
	}

	require.NoError(t, p.ApprovalRepository().Save(t.Context(), approval))

	fetched, err := p.ApprovalRepository().ByID(t.Context(), "approval-1")
	require.NoError(t, err)
	assert.Equal(t, "Draft email", fetched.GeneratedContent)

	open, err := p.ApprovalRepository().OpenByTask(t.Context(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, "approval-1", open.ID)

	pending, err := p.ApprovalRepository().ListPending(t.Context())
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// Resolving closes the open slot.
	now := time.Now().UTC()
	approval.ApprovalStatus = models.ApprovalStatusApproved
	approval.ResolvedAt = &now
	require.NoError(t, p.ApprovalRepository().Save(t.Context(), approval))

	_, err = p.ApprovalRepository().OpenByTask(t.Context(), "task-1")
	require.Error(t, err)
	assert.True(t, persistence.IsApprovalNotFound(err))

	pending, err = p.ApprovalRepository().ListPending(t.Context())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := NewPersistence(t.TempDir())
	require.NoError(t, p.HealthCheck(t.Context()))

	missing := NewPersistence("/nonexistent/sessionflow-root")
	require.Error(t, missing.HealthCheck(t.Context()))
}
