// Package main provides the Cadence API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/evercrm/cadence/pkg/campaign"
	"github.com/evercrm/cadence/pkg/cmd"
	"github.com/evercrm/cadence/pkg/eventbus"
	"github.com/evercrm/cadence/pkg/lock"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/services"
	"github.com/evercrm/cadence/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	eventBus eventbus.EventBus
	redisURL string
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, store persistence.Persistence, eventBus eventbus.EventBus, redisURL string) *API {
	return &API{
		logger:   logger,
		store:    store,
		eventBus: eventBus,
		redisURL: redisURL,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	registry := cmd.NewRegistry(a.logger, a.store)
	campaignService := services.NewCampaignService(a.store, registry, a.logger)

	var locks campaign.ContactLocker

	if a.redisURL != "" {
		manager, err := lock.NewManager(a.redisURL)
		if err != nil {
			panic(err)
		}

		locks = manager
	}

	enroller := campaign.NewEnroller(a.store, a.eventBus, locks, a.logger)
	matcher := campaign.NewTriggerMatcher(a.store, enroller, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(campaignService, enroller, matcher, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cadence API")
	})

	campaigns := app.Group("/campaigns")
	campaigns.Post("/", handlers.CreateCampaign)
	campaigns.Get("/:id", handlers.GetCampaign)
	campaigns.Post("/:id/activate", handlers.ActivateCampaign)
	campaigns.Post("/:id/pause", handlers.PauseCampaign)
	campaigns.Post("/:id/archive", handlers.ArchiveCampaign)
	campaigns.Delete("/:id", handlers.DeleteCampaign)
	campaigns.Post("/:id/enrollments", handlers.EnrollContact)

	app.Post("/events/stage-change", handlers.StageChange)

	reports := app.Group("/reports")
	reports.Get("/campaign-performance", handlers.CampaignPerformance)
	reports.Get("/enrollment-counts", handlers.EnrollmentCounts)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
