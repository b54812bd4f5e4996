package main

import (
	"context"
	"os"

	"github.com/apertura/sessionflow/pkg/cmd"
	"github.com/apertura/sessionflow/pkg/log"
	"github.com/apertura/sessionflow/pkg/otelhelper"
	"github.com/apertura/sessionflow/pkg/services"
	"github.com/apertura/sessionflow/pkg/worker"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "sessionflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Poll the automation queue and dispatch due tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "dispatcher",
				Usage:   "Dispatch channel for due tasks (eventbus, redis)",
				Value:   "eventbus",
				Sources: cli.EnvVars("DISPATCHER"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for the redis dispatcher",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "poll-cron",
				Usage:   "Cron expression controlling how often the queue is polled",
				Value:   "*/15 * * * *",
				Sources: cli.EnvVars("POLL_CRON"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("sessionflow-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing Sessionflow Worker")

			tracer, err := otelhelper.NewTracer(ctx, "sessionflow-worker")
			if err != nil {
				logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)

				return err
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			dispatcher := cmd.NewDispatcher(command.String("dispatcher"), command.String("redis-url"), eventBus)
			defer func() {
				if err := dispatcher.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close dispatcher", "error", err)
				}
			}()

			tracker := services.NewTracker(persistence, eventBus, logger)

			w, err := worker.New(workerID, tracker, dispatcher, command.String("poll-cron"), logger, tracer)
			if err != nil {
				return err
			}

			err = w.Run(ctx)
			if err != nil && ctx.Err() == nil {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
