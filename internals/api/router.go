package api

import (
	"errors"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(app *fiber.App, handler *Handler) {

	// Middleware
	app.Use(logger.New())
	app.Use(metricsMiddleware)

	// Routes
	v1 := app.Group("/v1")
	{
		v1.Get("/rates", handler.GetRates)
		v1.Get("/currencies", handler.GetCurrencies)
		v1.Get("/convert", handler.Convert)

		v1.Post("/sessions", handler.CreateSession)
		v1.Get("/sessions/:id", handler.GetSession)
		v1.Delete("/sessions/:id", handler.DeleteSession)
		v1.Post("/sessions/:id/rows", handler.AddRow)
		v1.Put("/sessions/:id/rows/:index", handler.UpdateRow)
		v1.Delete("/sessions/:id/rows/:index", handler.RemoveRow)
		v1.Post("/sessions/:id/calculate", handler.Calculate)
		v1.Delete("/sessions/:id/summary", handler.ClearSummary)
		v1.Delete("/sessions/:id/summary/:index", handler.RemoveSummaryItem)

		v1.Get("/preferences", handler.GetPreferences)
		v1.Put("/preferences", handler.PutPreferences)
		v1.Post("/preferences/theme/toggle", handler.ToggleTheme)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP"})
	})
}

// metricsMiddleware records request latency by route pattern.
func metricsMiddleware(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}
	}
	observability.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))
	return err
}
