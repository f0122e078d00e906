package handlers

import (
	"errors"
	"log"

	"notely/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// APIResponse is the uniform success envelope returned by every endpoint.
type APIResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// respond writes the success envelope with the given status code.
func respond(c *fiber.Ctx, statusCode int, data interface{}, message string) error {
	return c.Status(statusCode).JSON(APIResponse{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// ErrorHandler is the central fiber error handler. Every error returned from
// a handler or middleware funnels through here and is rendered as the
// failure envelope. Unknown error types become an opaque 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	statusCode := fiber.StatusInternalServerError
	message := "Internal server error"

	var appErr *apperrors.Error
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		statusCode = appErr.StatusCode
		message = appErr.Message
		if appErr.Err != nil {
			log.Printf("%s %s failed: %v", c.Method(), c.Path(), appErr.Err)
		}
	case errors.As(err, &fiberErr):
		statusCode = fiberErr.Code
		message = fiberErr.Message
	default:
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"statusCode": statusCode,
		"message":    message,
		"success":    false,
	})
}
