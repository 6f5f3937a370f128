// Package handlerutil holds the request plumbing shared by the handlers.
package handlerutil

import (
	"noteflow/cmd/server/handlers/httperr"
	"noteflow/internal/logger"
	"noteflow/internal/services/auth"
	"noteflow/internal/utils/validate"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the JWT middleware.
const (
	LocalUserID    = "userID"
	LocalUserEmail = "userEmail"
	LocalUserName  = "userName"
)

// Envelope is the success body of every API response.
type Envelope struct {
	Success bool `json:"success" example:"true"`
	Data    any  `json:"data"`
}

// Respond writes data inside the success envelope.
func Respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Data: data})
}

// Identity returns the caller the JWT middleware stored on the context.
func Identity(c *fiber.Ctx) (*auth.Identity, error) {
	userID, ok := c.Locals(LocalUserID).(string)
	if !ok || userID == "" {
		logger.L().Error("user ID not found in context", "path", c.Path())
		return nil, httperr.Fail(httperr.ErrUnauthorized)
	}
	email, _ := c.Locals(LocalUserEmail).(string)
	name, _ := c.Locals(LocalUserName).(string)
	return &auth.Identity{UserID: userID, Email: email, Name: name}, nil
}

// UserID is Identity for handlers that only need the id.
func UserID(c *fiber.Ctx) (string, error) {
	id, err := Identity(c)
	if err != nil {
		return "", err
	}
	return id.UserID, nil
}

// ParseAndValidateBody parses request body and validates it
func ParseAndValidateBody(c *fiber.Ctx, req any, v *validator.Validate, handlerName string) error {
	if err := c.BodyParser(req); err != nil {
		logger.L().Warn("failed to parse request body", "handler", handlerName, "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}
	if err := validate.Struct(c.UserContext(), v, req); err != nil {
		logger.L().Info("request validation failed", "handler", handlerName, "error", err)
		return err
	}
	return nil
}

// ParseAndValidateQuery parses query parameters and validates them
func ParseAndValidateQuery(c *fiber.Ctx, req any, v *validator.Validate, handlerName string) error {
	if err := c.QueryParser(req); err != nil {
		logger.L().Warn("failed to parse query params", "handler", handlerName, "error", err)
		return httperr.Fail(httperr.E{Status: fiber.StatusBadRequest, Message: "malformed query parameters"})
	}
	if err := validate.Struct(c.UserContext(), v, req); err != nil {
		logger.L().Info("query validation failed", "handler", handlerName, "error", err)
		return err
	}
	return nil
}
