// Package httperr turns service errors into the JSON failure envelope.
package httperr

import (
	"errors"

	"noteflow/internal/apperr"
	"noteflow/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// E represents an HTTP error with status code and message
type E struct {
	Status  int    `json:"-" example:"400"`
	Success bool   `json:"success" example:"false"`
	Message string `json:"error" example:"title is required"`
}

// Error implements the error interface
func (e E) Error() string {
	return e.Message
}

// JSON returns the error as JSON response
func (e E) JSON(c *fiber.Ctx) error {
	return c.Status(e.Status).JSON(e)
}

// Fail returns the error for Fiber's global error handler to process
func Fail(err E) error {
	return err
}

// Pre-defined HTTP errors
var (
	ErrBadRequest      = E{Status: fiber.StatusBadRequest, Message: "malformed request body"}
	ErrUnauthorized    = E{Status: fiber.StatusUnauthorized, Message: "unauthorized"}
	ErrTooManyRequests = E{Status: fiber.StatusTooManyRequests, Message: "too many requests"}
	ErrInternal        = E{Status: fiber.StatusInternalServerError, Message: "internal server error"}
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{apperr.ErrInvalidArgument, fiber.StatusBadRequest},
	{apperr.ErrUnauthenticated, fiber.StatusUnauthorized},
	{apperr.ErrForbidden, fiber.StatusForbidden},
	{apperr.ErrNotFound, fiber.StatusNotFound},
	{apperr.ErrConflict, fiber.StatusConflict},
	{apperr.ErrUpstream, fiber.StatusInternalServerError},
}

// FromError maps any error to the status and message the client sees.
// Unclassified errors become a bare 500.
func FromError(err error) E {
	var e E
	if errors.As(err, &e) {
		return e
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		return E{Status: fiberError.Code, Message: fiberError.Message}
	}

	kind := apperr.KindOf(err)
	for _, m := range statusByKind {
		if kind == m.kind {
			return E{Status: m.status, Message: apperr.Message(err)}
		}
	}
	return ErrInternal
}

// Handler is the global error handler for Fiber
func Handler(c *fiber.Ctx, err error) error {
	e := FromError(err)
	if e.Status >= fiber.StatusInternalServerError {
		logger.L().Error("request failed", "method", c.Method(), "path", c.Path(), "status", e.Status, "error", err)
	}
	return e.JSON(c)
}
