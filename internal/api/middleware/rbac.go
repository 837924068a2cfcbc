package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// Authorize admits only authenticated requests whose role is in roles.
// It must run after Required.
//
// A denial is reported as domain.ErrInsufficientPermissions, which the error
// handler renders as 401 like an authentication failure.
func (a *Auth) Authorize(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	want := strings.Join(allowed, ",")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return a.denyUnauthenticated(c, "role")
			}
			if !claims.HasRole(roles...) {
				metrics.AuthorizationDenialsTotal.WithLabelValues("role").Inc()
				a.audit.Record(c, withClaims(domain.AuditEvent{
					Type:    domain.AuditAuthorization,
					Outcome: domain.AuditFailure,
					Reason:  fmt.Sprintf("role %s not in [%s]", claims.Role, want),
				}, claims))
				return domain.ErrInsufficientPermissions
			}
			return next(c)
		}
	}
}

// RequirePermissions admits only authenticated requests holding every one of
// perms. It must run after Required.
func (a *Auth) RequirePermissions(perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return a.denyUnauthenticated(c, "permission")
			}
			if !claims.HasPermissions(perms...) {
				metrics.AuthorizationDenialsTotal.WithLabelValues("permission").Inc()
				a.audit.Record(c, withClaims(domain.AuditEvent{
					Type:    domain.AuditAuthorization,
					Outcome: domain.AuditFailure,
					Reason:  "missing permissions: " + strings.Join(missing(claims, perms), ","),
				}, claims))
				return domain.ErrInsufficientPermissions
			}
			return next(c)
		}
	}
}

// denyUnauthenticated handles a gate mounted without Required in front of it.
func (a *Auth) denyUnauthenticated(c echo.Context, gate string) error {
	metrics.AuthorizationDenialsTotal.WithLabelValues(gate).Inc()
	a.audit.Record(c, domain.AuditEvent{
		Type:    domain.AuditAuthorization,
		Outcome: domain.AuditFailure,
		Reason:  "authorization attempted without authentication",
	})
	return domain.ErrAccessTokenRequired
}

func missing(claims *domain.Claims, perms []string) []string {
	var out []string
	for _, p := range perms {
		if !claims.HasPermissions(p) {
			out = append(out, p)
		}
	}
	return out
}
