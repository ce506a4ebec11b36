package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/cardlock/internal/lock"
)

// CheckFunc reports the health of one dependency.
type CheckFunc func(ctx context.Context) error

// NATSCheck reports whether nc is connected and flushing.
func NATSCheck(nc *nats.Conn) CheckFunc {
	return func(ctx context.Context) error {
		if nc == nil || !nc.IsConnected() {
			return errors.New("disconnected")
		}
		return nc.FlushWithContext(ctx)
	}
}

// RegisterRoutes mounts /metrics, /health and the /api/v1 handlers on app.
// /health runs every check and reports degraded if any fails or the service
// has no valid credential table.
func RegisterRoutes(app *fiber.App, h *AccessHandler, checks map[string]CheckFunc) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		results := map[string]string{}
		status := "ok"
		code := fiber.StatusOK

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check(healthCtx); err != nil {
				results[name] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		mode := h.service.Mode()
		if mode == lock.ModeDegraded {
			status = "degraded"
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"mode":   mode,
			"checks": results,
		})
	})

	v1 := app.Group("/api/v1")
	v1.Get("/config", h.ConfigHandler)
	v1.Post("/access/check", h.CheckHandler)
	v1.Get("/access/events", h.EventsHandler)
}
