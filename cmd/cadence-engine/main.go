package main

import (
	"context"
	"fmt"
	"os"

	"github.com/evercrm/cadence/pkg/cmd"
	"github.com/evercrm/cadence/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "cadence-engine",
		Usage:                 "Run the campaign step execution engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "engine-id",
				Aliases: []string{"id"},
				Usage:   "Custom engine ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("ENGINE_ID"),
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
				Name:    "poll-schedule",
				Usage:   "Cron expression driving the polling cycle",
				Value:   "@every 15s",
				Sources: cli.EnvVars("POLL_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "batch-size",
				Usage:   "Maximum executions fetched per polling cycle",
				Value:   100,
				Sources: cli.EnvVars("BATCH_SIZE"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Concurrent step executions per cycle",
				Value:   8,
				Sources: cli.EnvVars("WORKERS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
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

			engineID := command.String("engine-id")
			if engineID == "" {
				engineID = fmt.Sprintf("engine-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("cadence-engine").With("engine_id", engineID)

			logger.Info("Initializing Cadence engine")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "cadence-engine", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			runner := NewRunner(RunnerConfig{
				Store:        store,
				EventBus:     eventBus,
				Logger:       logger,
				PollSchedule: command.String("poll-schedule"),
				BatchSize:    command.Int("batch-size"),
				Workers:      command.Int("workers"),
				Tracing:      command.Bool("tracing"),
			})

			return runner.Run(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
