// Package web provides HTTP handlers and REST API endpoints for timeline
// management.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
	"github.com/apertura/sessionflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	templateService   *services.Template
	generatorService  *services.Generator
	trackerService    *services.Tracker
	approvalService   *services.Approvals
	rescheduleService *services.Reschedule
	summaryService    *services.Summary
	validator         *validator.Validate
}

func NewAPIHandlers(
	templateService *services.Template,
	generatorService *services.Generator,
	trackerService *services.Tracker,
	approvalService *services.Approvals,
	rescheduleService *services.Reschedule,
	summaryService *services.Summary,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		templateService:   templateService,
		generatorService:  generatorService,
		trackerService:    trackerService,
		approvalService:   approvalService,
		rescheduleService: rescheduleService,
		summaryService:    summaryService,
		validator:         validator,
	}
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates, err := h.templateService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"templates":   templates,
		"total_count": len(templates),
	})
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	sessionType := c.Params("sessionType")
	if sessionType == "" {
		return badRequest(c, "Session type is required")
	}

	template, err := h.templateService.Get(c.Context(), sessionType)
	if err != nil {
		if services.IsNoTemplate(err) {
			return notFound(c, "Template not found")
		}

		return internalError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) PutTemplate(c fiber.Ctx) error {
	sessionType := c.Params("sessionType")
	if sessionType == "" {
		return badRequest(c, "Session type is required")
	}

	body := c.Body()

	if err := validateTemplatePayload(body); err != nil {
		return badRequest(c, err.Error())
	}

	var req PutTemplateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	template, err := h.templateService.Put(c.Context(), req.toTemplate(sessionType))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	sessionType := c.Params("sessionType")
	if sessionType == "" {
		return badRequest(c, "Session type is required")
	}

	if err := h.templateService.Delete(c.Context(), sessionType); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GenerateTimeline(c fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return badRequest(c, "Session ID is required")
	}

	var req GenerateTimelineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	timeline, err := h.generatorService.Generate(c.Context(), services.GenerateRequest{
		SessionID:   sessionID,
		SessionType: req.SessionType,
		SessionDate: req.SessionDate,
		ClientID:    req.ClientID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(timeline)
}

func (h *APIHandlers) GetTimeline(c fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return badRequest(c, "Session ID is required")
	}

	timeline, err := h.generatorService.TimelineBySession(c.Context(), sessionID)
	if err != nil {
		if persistence.IsTimelineNotFound(err) {
			return notFound(c, "Timeline not found")
		}

		return internalError(c, err)
	}

	return c.JSON(timeline)
}

func (h *APIHandlers) RescheduleSession(c fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return badRequest(c, "Session ID is required")
	}

	var req RescheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	timeline, err := h.rescheduleService.Apply(c.Context(), sessionID, req.SessionDate)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(timeline)
}

func (h *APIHandlers) GetSessionContext(c fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return badRequest(c, "Session ID is required")
	}

	now := models.DateOf(time.Now().UTC())

	if nowStr := c.Query("now"); nowStr != "" {
		parsed, err := models.ParseDate(nowStr)
		if err != nil {
			return badRequest(c, "Invalid reference date, expected YYYY-MM-DD")
		}

		now = parsed
	}

	summary, err := h.summaryService.Summarize(c.Context(), sessionID, now)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(summary)
}

func (h *APIHandlers) GetAutomatableTasks(c fiber.Ctx) error {
	tasks, err := h.trackerService.ListAutomatable(c.Context(), c.Query("session_id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"tasks":       tasks,
		"total_count": len(tasks),
	})
}

func (h *APIHandlers) SetTaskCompletion(c fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return badRequest(c, "Task ID is required")
	}

	var req SetCompletionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.trackerService.SetCompletion(c.Context(), taskID, *req.Completed, req.Actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(task)
}

func (h *APIHandlers) SubmitApproval(c fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return badRequest(c, "Task ID is required")
	}

	var req SubmitApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	approval, err := h.approvalService.Submit(c.Context(), taskID, req.Content, req.ContentType, req.Metadata)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(approval)
}

func (h *APIHandlers) ResolveApproval(c fiber.Ctx) error {
	approvalID := c.Params("approvalId")
	if approvalID == "" {
		return badRequest(c, "Approval ID is required")
	}

	var req ResolveApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.approvalService.Resolve(c.Context(), approvalID, *req.Approved)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(task)
}

func (h *APIHandlers) GetPendingApprovals(c fiber.Ctx) error {
	approvals, err := h.approvalService.ListPending(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"approvals":   approvals,
		"total_count": len(approvals),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.templateService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Sessionflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Sessionflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
