package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/services"
)

// statusFor maps a service error to an HTTP status and a message that is safe
// to show to the client. Provider responses never reach the client.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrJobDescriptionUnreadable):
		return fiber.StatusBadRequest, "the job description PDF has no extractable text"
	case errors.Is(err, services.ErrEmbeddingFailed):
		return fiber.StatusBadGateway, "the embedding service failed, please try again later"
	case errors.Is(err, services.ErrSummarizerUnavailable):
		return fiber.StatusBadGateway, "the summarization service is unavailable, please try again later"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "ranking timed out"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Error: message,
		Code:  status,
	})
}

// ErrorHandler is the fiber error handler for the whole app.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, message := statusFor(err)
	return respondError(c, status, message)
}
