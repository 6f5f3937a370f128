package handlers

import (
	"noteflow/cmd/server/handlers/handlerutil"

	"github.com/gofiber/fiber/v2"
)

// Me returns the identity carried by the bearer token.
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} handlerutil.Envelope{data=auth.Identity}
// @Failure 401 {object} httperr.E
// @Router /me [get]
func Me(c *fiber.Ctx) error {
	id, err := handlerutil.Identity(c)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, id)
}
