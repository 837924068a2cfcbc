package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestAuthorize_Allows(t *testing.T) {
	var logs bytes.Buffer
	auth := newTestAuth(&logs, nil)
	c, rec := newContext("")
	SetClaims(c, &domain.Claims{UserID: "u-1", Role: domain.RoleAdmin})

	called := false
	handler := auth.Authorize(domain.RoleAdmin, domain.RoleManager)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("next handler not called")
	}
}

func TestAuthorize_RejectsRole(t *testing.T) {
	var logs bytes.Buffer
	pub := &recordingPublisher{}
	auth := newTestAuth(&logs, pub)
	c, _ := newContext("")
	SetClaims(c, &domain.Claims{UserID: "u-1", Role: domain.RoleUser})

	handler := auth.Authorize(domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrInsufficientPermissions) {
		t.Fatalf("expected ErrInsufficientPermissions, got %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.AuditAuthorization || pub.events[0].UserID != "u-1" {
		t.Fatalf("expected authorization denial audit, got %+v", pub.events)
	}
}

func TestGates_RequireAuthentication(t *testing.T) {
	gates := map[string]func(*Auth) echo.MiddlewareFunc{
		"role":       func(a *Auth) echo.MiddlewareFunc { return a.Authorize(domain.RoleUser) },
		"permission": func(a *Auth) echo.MiddlewareFunc { return a.RequirePermissions("users:read") },
	}

	for gate, build := range gates {
		t.Run(gate, func(t *testing.T) {
			var logs bytes.Buffer
			pub := &recordingPublisher{}
			auth := newTestAuth(&logs, pub)
			c, _ := newContext("")
			denials := metrics.AuthorizationDenialsTotal.WithLabelValues(gate)
			before := testutil.ToFloat64(denials)

			handler := build(auth)(func(c echo.Context) error {
				t.Fatalf("should not reach next handler")
				return nil
			})
			if err := handler(c); !errors.Is(err, domain.ErrAccessTokenRequired) {
				t.Fatalf("expected ErrAccessTokenRequired, got %v", err)
			}

			if len(pub.events) != 1 {
				t.Fatalf("expected one audit event, got %+v", pub.events)
			}
			ev := pub.events[0]
			if ev.Type != domain.AuditAuthorization || ev.Outcome != domain.AuditFailure ||
				ev.Reason != "authorization attempted without authentication" || ev.IP != "203.0.113.7" {
				t.Fatalf("unexpected audit event: %+v", ev)
			}
			if got := testutil.ToFloat64(denials); got != before+1 {
				t.Fatalf("expected %s denial to be counted, got %v -> %v", gate, before, got)
			}
		})
	}
}

func TestRequirePermissions(t *testing.T) {
	tests := []struct {
		name    string
		granted []string
		require []string
		allowed bool
	}{
		{"all granted", []string{"users:read", "users:write"}, []string{"users:read", "users:write"}, true},
		{"superset granted", []string{"users:read", "users:write", "x"}, []string{"users:read"}, true},
		{"one missing", []string{"users:read"}, []string{"users:read", "users:write"}, false},
		{"none granted", nil, []string{"users:read"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			auth := newTestAuth(&logs, nil)
			c, _ := newContext("")
			SetClaims(c, &domain.Claims{UserID: "u-1", Role: domain.RoleManager, Permissions: tt.granted})

			called := false
			err := auth.RequirePermissions(tt.require...)(func(c echo.Context) error {
				called = true
				return nil
			})(c)

			if called != tt.allowed {
				t.Fatalf("called=%v, want %v", called, tt.allowed)
			}
			if !tt.allowed {
				if !errors.Is(err, domain.ErrInsufficientPermissions) {
					t.Fatalf("expected ErrInsufficientPermissions, got %v", err)
				}
				if !strings.Contains(logs.String(), "missing permissions") {
					t.Fatalf("expected denial audit entry, got %s", logs.String())
				}
			}
		})
	}
}
