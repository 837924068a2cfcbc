package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// RateLimit limits requests per client IP using store. Rejected requests end
// with domain.ErrRateLimited.
func RateLimit(store echomiddleware.RateLimiterStore) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			metrics.RateLimitedTotal.Inc()
			return domain.ErrRateLimited
		},
	})
}

// NewMemoryRateLimitStore is the single-process fallback used when Redis is
// not available. It refills maxRequests tokens evenly over window.
func NewMemoryRateLimitStore(maxRequests int, window time.Duration) echomiddleware.RateLimiterStore {
	return echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(maxRequests) / window.Seconds()),
		Burst:     maxRequests,
		ExpiresIn: window,
	})
}
