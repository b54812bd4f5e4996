package main

import (
	"context"
	"os"
	"time"

	"github.com/apertura/sessionflow/pkg/cmd"
	"github.com/apertura/sessionflow/pkg/directory"
	"github.com/apertura/sessionflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort              = 9081
	defaultDirectoryTimeout  = 5 * time.Second
	defaultDirectoryCacheTTL = 5 * time.Minute
	defaultDirectoryCache    = 1024
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "sessionflow-api",
		Usage:                 "Manage session timeline templates, timelines and approvals",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
				Name:    "directory-url",
				Usage:   "Base URL of the client records service (optional)",
				Sources: cli.EnvVars("DIRECTORY_URL"),
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

			logger.InfoContext(ctx, "Initializing Sessionflow API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var dir directory.Directory
			if directoryURL := command.String("directory-url"); directoryURL != "" {
				dir = directory.NewCached(
					directory.NewHTTPDirectory(directoryURL, defaultDirectoryTimeout),
					defaultDirectoryCache,
					defaultDirectoryCacheTTL,
				)
			}

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				dir,
			)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
