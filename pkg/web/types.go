// Package web provides HTTP request and response types for the timeline API.
package web

import "github.com/apertura/sessionflow/pkg/models"

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// PutTemplateRequest represents the request body for storing a timeline
// template. The session type comes from the URL path.
type PutTemplateRequest struct {
	Tasks []TaskDefRequest `json:"tasks" validate:"required,min=1,dive"`
}

// TaskDefRequest represents one task definition in a template payload.
type TaskDefRequest struct {
	Name             string  `json:"name"              validate:"required,min=1"`
	OffsetDays       int     `json:"offset_days"`
	Order            int     `json:"order"             validate:"required,min=1"`
	CanAutomate      bool    `json:"can_automate"`
	ApprovalRequired bool    `json:"approval_required"`
	EstimatedHours   float64 `json:"estimated_hours"   validate:"min=0"`
	RequiresHuman    bool    `json:"requires_human"`
	CanBatch         bool    `json:"can_batch"`
}

// GenerateTimelineRequest represents the request body for generating a
// session's timeline. The session ID comes from the URL path.
type GenerateTimelineRequest struct {
	SessionType string      `json:"session_type" validate:"required"`
	SessionDate models.Date `json:"session_date" validate:"required"`
	ClientID    string      `json:"client_id,omitempty"`
}

// RescheduleRequest represents the request body for moving a session to a new
// date.
type RescheduleRequest struct {
	SessionDate models.Date `json:"session_date" validate:"required"`
}

// SetCompletionRequest represents the request body for marking a task done or
// reopening it.
type SetCompletionRequest struct {
	Completed *bool  `json:"completed" validate:"required"`
	Actor     string `json:"actor"     validate:"required"`
}

// SubmitApprovalRequest represents the request body for submitting generated
// content for human review.
type SubmitApprovalRequest struct {
	Content     string         `json:"content"      validate:"required"`
	ContentType string         `json:"content_type" validate:"required"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ResolveApprovalRequest represents the reviewer's decision on an open
// approval request.
type ResolveApprovalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// toTemplate converts the request payload into the domain model.
func (r *PutTemplateRequest) toTemplate(sessionType string) *models.TimelineTemplate {
	tasks := make([]models.TaskDef, 0, len(r.Tasks))

	for _, def := range r.Tasks {
		tasks = append(tasks, models.TaskDef{
			Name:             def.Name,
			OffsetDays:       def.OffsetDays,
			Order:            def.Order,
			CanAutomate:      def.CanAutomate,
			ApprovalRequired: def.ApprovalRequired,
			EstimatedHours:   def.EstimatedHours,
			RequiresHuman:    def.RequiresHuman,
			CanBatch:         def.CanBatch,
		})
	}

	return &models.TimelineTemplate{
		SessionType: sessionType,
		Tasks:       tasks,
	}
}
