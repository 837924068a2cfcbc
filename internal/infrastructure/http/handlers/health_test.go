package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestLiveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]Check
		wantCode int
		wantDeps map[string]string
	}{
		{"no dependencies", nil, http.StatusOK, map[string]string{}},
		{"all healthy", map[string]Check{"store": ok, "redis": ok}, http.StatusOK,
			map[string]string{"store": "ok", "redis": "ok"}},
		{"redis down", map[string]Check{"store": ok, "redis": down}, http.StatusServiceUnavailable,
			map[string]string{"store": "ok", "redis": "unhealthy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

			if err := NewReadinessHandler(tt.checks).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if len(resp.Dependencies) != len(tt.wantDeps) {
				t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
			}
			for name, status := range tt.wantDeps {
				if resp.Dependencies[name].Status != status {
					t.Fatalf("%s: expected %s, got %+v", name, status, resp.Dependencies[name])
				}
			}
		})
	}
}
