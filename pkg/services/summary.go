package services

import (
	"context"
	"log/slog"
	"math"

	"github.com/apertura/sessionflow/pkg/directory"
	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
)

// Summary derives session phase, progress and next/overdue tasks from current
// task state. It is a read-only view consumed by dashboards and chat-context
// assembly; nothing here mutates the store.
type Summary struct {
	persistence persistence.Persistence
	directory   directory.Directory
	logger      *slog.Logger
}

// NewSummary creates a new context summarizer. The directory may be nil when
// no client records service is wired; summaries then omit the client name.
func NewSummary(p persistence.Persistence, dir directory.Directory, logger *slog.Logger) *Summary {
	return &Summary{
		persistence: p,
		directory:   dir,
		logger:      logger,
	}
}

// Summarize builds the session context as of the given reference date.
func (s *Summary) Summarize(ctx context.Context, sessionID string, now models.Date) (*models.SessionContext, error) {
	timeline, err := s.persistence.TaskRepository().TimelineBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	daysUntil := now.DaysUntil(timeline.SessionDate)

	summary := &models.SessionContext{
		SessionID:        timeline.SessionID,
		SessionType:      timeline.SessionType,
		SessionDate:      timeline.SessionDate,
		DaysUntilSession: daysUntil,
		Phase:            models.PhaseFor(daysUntil),
		TotalTasks:       len(timeline.Tasks),
		CompletedTasks:   timeline.CompletedCount(),
		OverdueTasks:     make([]*models.TaskInstance, 0),
	}

	if summary.TotalTasks > 0 {
		summary.ProgressPercentage = int(math.Round(100 * float64(summary.CompletedTasks) / float64(summary.TotalTasks)))
	}

	incomplete := make([]*models.TaskInstance, 0, len(timeline.Tasks))

	for _, task := range timeline.Tasks {
		if !task.IsCompleted {
			incomplete = append(incomplete, task)
		}
	}

	models.SortTasksByDueDate(incomplete)

	for _, task := range incomplete {
		if task.AdjustedDate.Before(now) {
			summary.OverdueTasks = append(summary.OverdueTasks, task)

			continue
		}

		if summary.NextTask == nil {
			summary.NextTask = task
		}
	}

	s.resolveClientName(ctx, timeline, summary)

	return summary, nil
}

// resolveClientName reads the client display name through the directory. A
// lookup failure degrades the summary rather than failing it.
func (s *Summary) resolveClientName(ctx context.Context, timeline *models.Timeline, summary *models.SessionContext) {
	if s.directory == nil || timeline.ClientID == "" {
		return
	}

	client, err := s.directory.ClientByID(ctx, timeline.ClientID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve client display name",
			"session_id", timeline.SessionID,
			"client_id", timeline.ClientID,
			"error", err)

		return
	}

	summary.ClientName = client.DisplayName
}
