package handlers

import (
	"context"
	"time"

	"noteflow/cmd/server/handlers/handlerutil"
	"noteflow/cmd/server/handlers/httperr"
	"noteflow/internal/logger"

	"github.com/gofiber/fiber/v2"
)

const HealthzTimeout = 5 * time.Second

// Probe checks one backing store. Memory stores pass nil.
type Probe func(ctx context.Context) error

// Healthz returns the health of the server.
// @Summary Health check
// @Description Check if the server and its storage are healthy
// @Tags health
// @Produce json
// @Success 200 {object} handlerutil.Envelope
// @Failure 503 {object} httperr.E
// @Router /healthz [get]
func Healthz(probe Probe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if probe != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), HealthzTimeout)
			defer cancel()
			if err := probe(ctx); err != nil {
				logger.L().Warn("health probe failed", "error", err)
				return httperr.Fail(httperr.E{Status: fiber.StatusServiceUnavailable, Message: "storage unavailable"})
			}
		}
		return handlerutil.Respond(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	}
}
