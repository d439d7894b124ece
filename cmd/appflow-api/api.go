// Package main provides the Appflow API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"

	"github.com/dukex/appflow/pkg/eventbus"
	"github.com/dukex/appflow/pkg/persistence"
	"github.com/dukex/appflow/pkg/services"
	"github.com/dukex/appflow/pkg/sla"
	"github.com/dukex/appflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger       *slog.Logger
	applications *services.Applications
	token        string
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	catalog services.TemplateCatalog,
	eventBus eventbus.EventBus,
	token string,
) *API {
	opts := []services.Option{}
	if eventBus != nil {
		opts = append(opts, services.WithPublisher(eventBus))
	}

	return &API{
		logger:       logger,
		applications: services.NewApplications(persistence, catalog, logger, opts...),
		token:        token,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.applications, a.validate, a.logger)

	app := fiber.New(fiber.Config{AppName: "appflow-api"})
	app.Use(cors.New(cors.Config{
		AllowHeaders: []string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization, web.ActorHeader},
	}))
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Appflow API")
	})

	app.Use(web.RequireToken(a.token))
	handlers.Register(app)

	return app
}

// Sweeper schedules the SLA breach sweep over the API's applications.
func (a *API) Sweeper(schedule string) (*sla.Sweeper, error) {
	return sla.NewSweeper(a.applications, schedule, a.logger)
}

// Serve runs the API on ln until ctx is done.
func (a *API) Serve(ctx context.Context, ln net.Listener) error {
	app := a.App()

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down API server")

		if err := app.Shutdown(); err != nil {
			return err
		}

		if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}

		return nil
	}
}

func (a *API) Start(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}

	a.logger.Info("API server listening", "port", port)

	return a.Serve(ctx, ln)
}
