package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence/file"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// portraitTemplate is the canonical fixture used across service tests: a
// portrait session prep flow spanning two weeks before to one week after the
// session date.
func portraitTemplate() *models.TimelineTemplate {
	return &models.TimelineTemplate{
		SessionType: "portrait",
		Tasks: []models.TaskDef{
			{Name: "Send booking confirmation", OffsetDays: -14, Order: 1, CanAutomate: true, ApprovalRequired: true, CanBatch: true},
			{Name: "Send preparation guide", OffsetDays: -7, Order: 2, CanAutomate: true, ApprovalRequired: true, CanBatch: true},
			{Name: "Confirm session details", OffsetDays: -3, Order: 3, CanAutomate: true, ApprovalRequired: true},
			{Name: "Conduct session", OffsetDays: 0, Order: 4, RequiresHuman: true, EstimatedHours: 3},
			{Name: "Cull and edit previews", OffsetDays: 2, Order: 5, RequiresHuman: true, EstimatedHours: 4},
			{Name: "Send preview gallery", OffsetDays: 3, Order: 6, CanAutomate: true, ApprovalRequired: true},
			{Name: "Deliver final gallery", OffsetDays: 7, Order: 7, CanAutomate: true, ApprovalRequired: true},
		},
	}
}

type testEnv struct {
	persistence *file.Persistence
	templates   *Template
	generator   *Generator
	tracker     *Tracker
	approvals   *Approvals
	reschedule  *Reschedule
	summary     *Summary
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	p := file.NewPersistence(t.TempDir())

	templates := NewTemplate(p)
	tracker := NewTracker(p, nil, logger)

	return &testEnv{
		persistence: p,
		templates:   templates,
		generator:   NewGenerator(p, templates, nil, logger),
		tracker:     tracker,
		approvals:   NewApprovals(p, tracker, nil, logger),
		reschedule:  NewReschedule(p, nil, logger),
		summary:     NewSummary(p, nil, logger),
	}
}

// generatePortrait stores the portrait template and generates a timeline for
// the 2025-06-15 session used throughout the scenario tests.
func (e *testEnv) generatePortrait(t *testing.T, ctx context.Context, sessionID string) *models.Timeline {
	t.Helper()

	_, err := e.templates.Put(ctx, portraitTemplate())
	require.NoError(t, err)

	timeline, err := e.generator.Generate(ctx, GenerateRequest{
		SessionID:   sessionID,
		SessionType: "portrait",
		SessionDate: models.NewDate(2025, time.June, 15),
	})
	require.NoError(t, err)

	return timeline
}
