package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/response"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors and, in production, hides their detail from the client.
//   - Renders the standard response envelope.
func NewHTTPErrorHandler(log zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, fields := resolveError(err, log, c, production)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = response.Error(c, code, msg, fields)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context, production bool) (int, string, []domain.FieldError) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, "Validation failed", ve.Fields
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message), nil
	}

	// Authorization denials share 401 with authentication failures.
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "User with this email already exists", nil
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password", nil
	case errors.Is(err, domain.ErrAccessTokenRequired):
		return http.StatusUnauthorized, "Access token is required", nil
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token", nil
	case errors.Is(err, domain.ErrInsufficientPermissions):
		return http.StatusUnauthorized, "Insufficient permissions", nil
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found", nil
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many failed login attempts, please try again later", nil
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests from this IP, please try again later", nil
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented, "Refresh token flow not implemented", nil
	}

	// Unexpected error: always log the real cause.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	if production {
		return http.StatusInternalServerError, "Internal server error", nil
	}
	return http.StatusInternalServerError, err.Error(), nil
}
