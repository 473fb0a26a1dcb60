package server

import (
	"github.com/gofiber/fiber/v2"

	"textbridge/internal/core/job"
	"textbridge/internal/core/pipeline"
	"textbridge/internal/health"
	"textbridge/internal/platform/redis"
)

type Dependencies struct {
	Job      *job.Service
	Pipeline *pipeline.Service
	Redis    *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.Handler {
	healthHandler := health.NewHandler(d.Redis)
	app.Get("/v1/health", health.Limiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	h := pipeline.NewHandler(d.Job, d.Pipeline)
	api.Post("/translations", h.HandleCreate)
	api.Get("/translations/:jobId", h.HandleGet)
	api.Post("/translations/events", h.HandleEvent)

	return healthHandler
}
