// Package main provides the Sessionflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/apertura/sessionflow/pkg/directory"
	"github.com/apertura/sessionflow/pkg/eventbus"
	"github.com/apertura/sessionflow/pkg/persistence"
	"github.com/apertura/sessionflow/pkg/services"
	"github.com/apertura/sessionflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	directory   directory.Directory
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	directory directory.Directory,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		directory:   directory,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	templateService := services.NewTemplate(a.persistence)
	generatorService := services.NewGenerator(a.persistence, templateService, a.eventBus, a.logger)
	trackerService := services.NewTracker(a.persistence, a.eventBus, a.logger)
	approvalService := services.NewApprovals(a.persistence, trackerService, a.eventBus, a.logger)
	rescheduleService := services.NewReschedule(a.persistence, a.eventBus, a.logger)
	summaryService := services.NewSummary(a.persistence, a.directory, a.logger)

	handlers := web.NewAPIHandlers(
		templateService,
		generatorService,
		trackerService,
		approvalService,
		rescheduleService,
		summaryService,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Sessionflow API")
	})

	t := app.Group("/templates")
	t.Get("/", handlers.GetTemplates)
	t.Get("/:sessionType", handlers.GetTemplate)
	t.Put("/:sessionType", handlers.PutTemplate)
	t.Delete("/:sessionType", handlers.DeleteTemplate)

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

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
