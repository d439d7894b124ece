package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/appflow/pkg/cmd"
	"github.com/dukex/appflow/pkg/log"
	"github.com/dukex/appflow/pkg/otelhelper"
	"github.com/dukex/appflow/pkg/templates"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "appflow-api",
		Usage:                 "Serve applications, their required documents and workflows",
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
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (file path or postgres:// URL)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for the audit stream (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "templates-path",
				Usage:   "Directory of service template JSON files (built-in templates when empty)",
				Sources: cli.EnvVars("TEMPLATES_PATH"),
			},
			&cli.StringFlag{
				Name:    "sla-schedule",
				Usage:   "Cron schedule of the SLA breach sweep",
				Value:   "*/5 * * * *",
				Sources: cli.EnvVars("SLA_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token required on API requests (disabled when empty)",
				Sources: cli.EnvVars("APPFLOW_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "otel-endpoint",
				Usage:   "OTLP/HTTP endpoint for traces (tracing disabled when empty)",
				Sources: cli.EnvVars("OTEL_EXPORTER_OTLP_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing Appflow API")

	if command.String("otel-endpoint") != "" {
		tracerProvider, err := otelhelper.NewTracerProvider(ctx, "appflow-api")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	}

	catalog, err := templates.LoadDir(command.String("templates-path"))
	if err != nil {
		return fmt.Errorf("failed to load service templates: %w", err)
	}

	logger.InfoContext(ctx, "Loaded service templates", "codes", catalog.Codes())

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}

	defer func() {
		if err := persistence.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "appflow-api", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	api := NewAPI(logger, persistence, catalog, eventBus, command.String("token"))

	sweeper, err := api.Sweeper(command.String("sla-schedule"))
	if err != nil {
		return err
	}

	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	return api.Start(ctx, command.Int("port"))
}
