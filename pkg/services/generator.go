package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/apertura/sessionflow/pkg/events"
	"github.com/apertura/sessionflow/pkg/eventbus"
	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
	"github.com/google/uuid"
)

// Generator instantiates a concrete timeline for a session from its template.
// Generation is a pure function of template and session date, and idempotent:
// a session's timeline is created at most once.
type Generator struct {
	persistence persistence.Persistence
	templates   *Template
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewGenerator creates a new timeline generator.
func NewGenerator(p persistence.Persistence, templates *Template, publisher eventbus.EventPublisher, logger *slog.Logger) *Generator {
	return &Generator{
		persistence: p,
		templates:   templates,
		publisher:   publisher,
		logger:      logger,
	}
}

// GenerateRequest carries the session identity the surrounding application
// owns. ClientID is optional and only used for display lookups.
type GenerateRequest struct {
	SessionID   string      `validate:"required"`
	SessionType string      `validate:"required"`
	SessionDate models.Date `validate:"required"`
	ClientID    string
}

// Generate creates the session's task instances from the template mapped to
// its session type. When a timeline already exists for the session the
// existing one is returned unchanged; duplicate generation never occurs, even
// under concurrent invocation.
func (s *Generator) Generate(ctx context.Context, req GenerateRequest) (*models.Timeline, error) {
	if req.SessionID == "" || req.SessionType == "" || req.SessionDate.IsZero() {
		return nil, NewValidationError("Generate", "INVALID_REQUEST",
			"session id, session type and session date are required", ErrInvalidRequest)
	}

	existing, err := s.persistence.TaskRepository().TimelineBySession(ctx, req.SessionID)
	if err == nil {
		return existing, nil
	}

	if !persistence.IsTimelineNotFound(err) {
		return nil, fmt.Errorf("failed to check for existing timeline: %w", err)
	}

	template, err := s.templates.Get(ctx, req.SessionType)
	if err != nil {
		return nil, err
	}

	timeline := buildTimeline(template, req)

	err = s.persistence.TaskRepository().CreateTimeline(ctx, timeline)
	if err != nil {
		// Lost the creation race; the winner's timeline is the session's
		// timeline.
		if persistence.IsTimelineExists(err) {
			return s.persistence.TaskRepository().TimelineBySession(ctx, req.SessionID)
		}

		return nil, fmt.Errorf("failed to create timeline: %w", err)
	}

	s.logger.InfoContext(ctx, "Generated timeline",
		"session_id", req.SessionID,
		"session_type", req.SessionType,
		"session_date", req.SessionDate.String(),
		"tasks", len(timeline.Tasks))

	s.publish(ctx, timeline)

	return timeline, nil
}

// TimelineBySession fetches a previously generated timeline with tasks sorted
// in template order.
func (s *Generator) TimelineBySession(ctx context.Context, sessionID string) (*models.Timeline, error) {
	timeline, err := s.persistence.TaskRepository().TimelineBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	timeline.SortTasks()

	return timeline, nil
}

// buildTimeline derives task instances in template order. Definitions are
// sorted by their order value first so the result is identical regardless of
// how the template slice was assembled.
func buildTimeline(template *models.TimelineTemplate, req GenerateRequest) *models.Timeline {
	defs := make([]models.TaskDef, len(template.Tasks))
	copy(defs, template.Tasks)
	sort.Slice(defs, func(i, j int) bool { return defs[i].Order < defs[j].Order })

	now := time.Now().UTC()
	tasks := make([]*models.TaskInstance, 0, len(defs))

	for _, def := range defs {
		due := req.SessionDate.AddDays(def.OffsetDays)

		tasks = append(tasks, &models.TaskInstance{
			ID:               uuid.New().String(),
			SessionID:        req.SessionID,
			TaskName:         def.Name,
			CalculatedDate:   due,
			AdjustedDate:     due,
			OffsetDays:       def.OffsetDays,
			Order:            def.Order,
			CanAutomate:      def.CanAutomate,
			ApprovalRequired: def.ApprovalRequired,
			EstimatedHours:   def.EstimatedHours,
			RequiresHuman:    def.RequiresHuman,
			CanBatch:         def.CanBatch,
			AutomationStatus: models.AutomationStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	return &models.Timeline{
		SessionID:   req.SessionID,
		SessionType: req.SessionType,
		SessionDate: req.SessionDate,
		ClientID:    req.ClientID,
		Tasks:       tasks,
	}
}

func (s *Generator) publish(ctx context.Context, timeline *models.Timeline) {
	if s.publisher == nil {
		return
	}

	event := events.TimelineGenerated{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.TimelineGeneratedEvent,
			Timestamp: time.Now().UTC(),
			SessionID: timeline.SessionID,
		},
		SessionType: timeline.SessionType,
		SessionDate: timeline.SessionDate,
		TaskCount:   len(timeline.Tasks),
	}

	if err := s.publisher.Publish(ctx, timeline.SessionID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish timeline generated event",
			"session_id", timeline.SessionID, "error", err)
	}
}
