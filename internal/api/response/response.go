// Package response renders the JSON envelope shared by every API response.
package response

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// Envelope is the body of every response, success or failure.
type Envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	StatusCode int                 `json:"statusCode"`
	Timestamp  time.Time           `json:"timestamp"`
	Data       any                 `json:"data"`
	Errors     []domain.FieldError `json:"errors,omitempty"`
}

// Success writes a successful envelope carrying data.
func Success(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
		Data:       data,
	})
}

// Error writes a failure envelope. fields is only set for validation failures.
func Error(c echo.Context, status int, message string, fields []domain.FieldError) error {
	return c.JSON(status, Envelope{
		Success:    false,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
		Errors:     fields,
	})
}
