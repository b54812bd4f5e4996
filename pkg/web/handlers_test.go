package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence/file"
	"github.com/apertura/sessionflow/pkg/services"
	"github.com/apertura/sessionflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	persistence := file.NewPersistence(t.TempDir())

	templateService := services.NewTemplate(persistence)
	generatorService := services.NewGenerator(persistence, templateService, nil, logger)
	trackerService := services.NewTracker(persistence, nil, logger)
	approvalService := services.NewApprovals(persistence, trackerService, nil, logger)
	rescheduleService := services.NewReschedule(persistence, nil, logger)
	summaryService := services.NewSummary(persistence, nil, logger)

	handlers := web.NewAPIHandlers(
		templateService,
		generatorService,
		trackerService,
		approvalService,
		rescheduleService,
		summaryService,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()

	tpl := app.Group("/templates")
	tpl.Get("/", handlers.GetTemplates)
	tpl.Get("/:sessionType", handlers.GetTemplate)
	tpl.Put("/:sessionType", handlers.PutTemplate)
	tpl.Delete("/:sessionType", handlers.DeleteTemplate)

	s := app.Group("/sessions")
	s.Post("/:sessionId/timeline", handlers.GenerateTimeline)
	s.Get("/:sessionId/timeline", handlers.GetTimeline)
	s.Post("/:sessionId/reschedule", handlers.RescheduleSession)
	s.Get("/:sessionId/context", handlers.GetSessionContext)

	tasks := app.Group("/tasks")
	tasks.Get("/automatable", handlers.GetAutomatableTasks)
	tasks.Post("/:taskId/completion", handlers.SetTaskCompletion)
	tasks.Post("/:taskId/approvals", handlers.SubmitApproval)

	ap := app.Group("/approvals")
	ap.Get("/pending", handlers.GetPendingApprovals)
	ap.Post("/:approvalId/resolution", handlers.ResolveApproval)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, raw
}

func portraitPayload() map[string]any {
	return map[string]any{
		"tasks": []map[string]any{
			{"name": "Send booking confirmation", "offset_days": -14, "order": 1, "can_automate": true, "approval_required": true, "can_batch": true},
			{"name": "Send preparation guide", "offset_days": -7, "order": 2, "can_automate": true, "approval_required": true, "can_batch": true},
			{"name": "Confirm session details", "offset_days": -3, "order": 3, "can_automate": true, "approval_required": true},
			{"name": "Conduct session", "offset_days": 0, "order": 4, "requires_human": true, "estimated_hours": 3},
			{"name": "Deliver final gallery", "offset_days": 7, "order": 5, "can_automate": true, "approval_required": true},
		},
	}
}

func seedTimeline(t *testing.T, app *fiber.App, sessionID string) *models.Timeline {
	t.Helper()

	resp, _ := doJSON(t, app, http.MethodPut, "/templates/portrait", portraitPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/sessions/"+sessionID+"/timeline", map[string]any{
		"session_type": "portrait",
		"session_date": "2025-06-15",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var timeline models.Timeline

	require.NoError(t, json.Unmarshal(body, &timeline))

	return &timeline
}

func TestAPIHandlers_PutTemplate(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPut, "/templates/portrait", portraitPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var template models.TimelineTemplate

	require.NoError(t, json.Unmarshal(body, &template))
	assert.Equal(t, "portrait", template.SessionType)
	assert.Len(t, template.Tasks, 5)
}

func TestAPIHandlers_PutTemplate_Invalid(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{
			"empty tasks",
			map[string]any{"tasks": []map[string]any{}},
		},
		{
			"duplicate order",
			map[string]any{"tasks": []map[string]any{
				{"name": "First", "offset_days": 0, "order": 1},
				{"name": "Second", "offset_days": 1, "order": 1},
			}},
		},
		{
			"unknown field",
			map[string]any{"tasks": []map[string]any{
				{"name": "First", "offset_days": 0, "order": 1, "priority": "high"},
			}},
		},
		{
			"missing name",
			map[string]any{"tasks": []map[string]any{
				{"offset_days": 0, "order": 1},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, http.MethodPut, "/templates/portrait", tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAPIHandlers_GetTemplate_NotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/templates/newborn", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_DeleteTemplate(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPut, "/templates/portrait", portraitPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/templates/portrait", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/templates/portrait", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GenerateTimeline(t *testing.T) {
	app := setupTestApp(t)

	timeline := seedTimeline(t, app, "session-1")

	require.Len(t, timeline.Tasks, 5)
	assert.Equal(t, "2025-06-01", timeline.Tasks[0].AdjustedDate.String())
	assert.Equal(t, "2025-06-22", timeline.Tasks[4].AdjustedDate.String())
}

func TestAPIHandlers_GenerateTimeline_Idempotent(t *testing.T) {
	app := setupTestApp(t)

	first := seedTimeline(t, app, "session-1")

	resp, body := doJSON(t, app, http.MethodPost, "/sessions/session-1/timeline", map[string]any{
		"session_type": "portrait",
		"session_date": "2025-07-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var second models.Timeline

	require.NoError(t, json.Unmarshal(body, &second))
	assert.Equal(t, "2025-06-15", second.SessionDate.String())
	assert.Equal(t, first.Tasks[0].ID, second.Tasks[0].ID)
}

func TestAPIHandlers_GenerateTimeline_NoTemplate(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/sessions/session-1/timeline", map[string]any{
		"session_type": "newborn",
		"session_date": "2025-06-15",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetTimeline(t *testing.T) {
	app := setupTestApp(t)

	seedTimeline(t, app, "session-1")

	resp, body := doJSON(t, app, http.MethodGet, "/sessions/session-1/timeline", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var timeline models.Timeline

	require.NoError(t, json.Unmarshal(body, &timeline))
	assert.Len(t, timeline.Tasks, 5)

	resp, _ = doJSON(t, app, http.MethodGet, "/sessions/missing/timeline", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_RescheduleSession(t *testing.T) {
	app := setupTestApp(t)

	timeline := seedTimeline(t, app, "session-1")

	// Complete the first task before moving the session a week out.
	resp, _ := doJSON(t, app, http.MethodPost, "/tasks/"+timeline.Tasks[0].ID+"/completion", map[string]any{
		"completed": true,
		"actor":     "studio_owner",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/sessions/session-1/reschedule", map[string]any{
		"session_date": "2025-06-22",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Timeline

	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "2025-06-22", updated.SessionDate.String())

	resp, body = doJSON(t, app, http.MethodGet, "/sessions/session-1/timeline", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &updated))

	assert.Equal(t, "2025-06-01", updated.Tasks[0].AdjustedDate.String())
	assert.Equal(t, "2025-06-15", updated.Tasks[1].AdjustedDate.String())
	assert.Equal(t, "2025-06-29", updated.Tasks[4].AdjustedDate.String())
}

func TestAPIHandlers_GetSessionContext(t *testing.T) {
	app := setupTestApp(t)

	seedTimeline(t, app, "session-1")

	resp, body := doJSON(t, app, http.MethodGet, "/sessions/session-1/context?now=2025-06-13", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary models.SessionContext

	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 2, summary.DaysUntilSession)
	assert.Equal(t, models.SessionPhaseImminent, summary.Phase)
	assert.Equal(t, 5, summary.TotalTasks)

	resp, _ = doJSON(t, app, http.MethodGet, "/sessions/session-1/context?now=garbage", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_GetAutomatableTasks(t *testing.T) {
	app := setupTestApp(t)

	seedTimeline(t, app, "session-1")

	resp, body := doJSON(t, app, http.MethodGet, "/tasks/automatable?session_id=session-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Tasks      []*models.TaskInstance `json:"tasks"`
		TotalCount int                    `json:"total_count"`
	}

	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 4, result.TotalCount)
}

func TestAPIHandlers_SetTaskCompletion_Invalid(t *testing.T) {
	app := setupTestApp(t)

	timeline := seedTimeline(t, app, "session-1")

	resp, _ := doJSON(t, app, http.MethodPost, "/tasks/"+timeline.Tasks[0].ID+"/completion", map[string]any{
		"completed": true,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/tasks/missing-task/completion", map[string]any{
		"completed": true,
		"actor":     "studio_owner",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ApprovalFlow(t *testing.T) {
	app := setupTestApp(t)

	timeline := seedTimeline(t, app, "session-1")
	taskID := timeline.Tasks[0].ID

	resp, body := doJSON(t, app, http.MethodPost, "/tasks/"+taskID+"/approvals", map[string]any{
		"content":      "Hi Sarah, your session is confirmed!",
		"content_type": "email",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var approval models.ApprovalRequest

	require.NoError(t, json.Unmarshal(body, &approval))
	assert.Equal(t, models.ApprovalStatusPendingReview, approval.ApprovalStatus)

	resp, body = doJSON(t, app, http.MethodGet, "/approvals/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), approval.ID)

	resp, body = doJSON(t, app, http.MethodPost, "/approvals/"+approval.ID+"/resolution", map[string]any{
		"approved": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var task models.TaskInstance

	require.NoError(t, json.Unmarshal(body, &task))
	assert.True(t, task.IsCompleted)
	require.NotNil(t, task.CompletedBy)
	assert.Equal(t, models.ActorAIAgentApproved, *task.CompletedBy)

	// Resolving twice is a conflict.
	resp, _ = doJSON(t, app, http.MethodPost, "/approvals/"+approval.ID+"/resolution", map[string]any{
		"approved": false,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_SubmitApproval_NotRequired(t *testing.T) {
	app := setupTestApp(t)

	timeline := seedTimeline(t, app, "session-1")

	// "Conduct session" carries no approval gate.
	resp, _ := doJSON(t, app, http.MethodPost, "/tasks/"+timeline.Tasks[3].ID+"/approvals", map[string]any{
		"content":      "content",
		"content_type": "email",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
