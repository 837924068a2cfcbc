package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// currentClaims returns the claims attached by the Auth middleware. A route
// wired without Required reaches the error path rather than running anonymously.
func currentClaims(c echo.Context) (*domain.Claims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok || claims.UserID == "" {
		return nil, domain.ErrAccessTokenRequired
	}
	return claims, nil
}
