package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/security"
)

const claimsKey = "auth.claims"

// Auth builds the authentication and authorization middleware.
type Auth struct {
	verifier ports.TokenVerifier
	audit    *Auditor
}

func NewAuth(verifier ports.TokenVerifier, audit *Auditor) *Auth {
	return &Auth{verifier: verifier, audit: audit}
}

// ClaimsFrom returns the claims attached by Required or Optional, if any.
func ClaimsFrom(c echo.Context) (*domain.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*domain.Claims)
	return claims, ok && claims != nil
}

// SetClaims attaches claims to the request.
func SetClaims(c echo.Context, claims *domain.Claims) {
	c.Set(claimsKey, claims)
}

// Required rejects requests without a valid access token.
func (a *Auth) Required() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := security.ExtractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				a.audit.Record(c, domain.AuditEvent{
					Type:    domain.AuditAuthentication,
					Outcome: domain.AuditFailure,
					Reason:  "missing access token",
				})
				return domain.ErrAccessTokenRequired
			}

			claims, err := a.verify(c, token)
			if err != nil {
				return domain.ErrInvalidToken
			}

			SetClaims(c, claims)
			return next(c)
		}
	}
}

// Optional attaches claims when a valid token is presented and otherwise
// lets the request through anonymously.
func (a *Auth) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := security.ExtractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}
			if claims, err := a.verify(c, token); err == nil {
				SetClaims(c, claims)
			}
			return next(c)
		}
	}
}

// verify checks token and writes the matching audit entry.
func (a *Auth) verify(c echo.Context, token string) (*domain.Claims, error) {
	claims, err := a.verifier.VerifyAccessToken(token)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		a.audit.Record(c, domain.AuditEvent{
			Type:    domain.AuditAuthentication,
			Outcome: domain.AuditFailure,
			Reason:  err.Error(),
		})
		return nil, err
	}

	metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
	a.audit.Record(c, withClaims(domain.AuditEvent{
		Type:    domain.AuditAuthentication,
		Outcome: domain.AuditSuccess,
	}, claims))
	return claims, nil
}
