package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/auth-service/docs"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/http/handlers"
)

// PermUsersRead is required to read other users' profiles.
const PermUsersRead = "users:read"

const (
	defaultBasePath = "/api/v1"
	bodyLimit       = "10M"

	contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data: https:"
	hstsMaxAge            = 31536000
)

var defaultCORSOrigins = []string{"http://localhost:3000"}

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Log         zerolog.Logger
	Production  bool
	AuthService ports.AuthService
	Verifier    ports.TokenVerifier
	// Audit receives a copy of every audit event. Optional.
	Audit ports.AuditPublisher
	// Checks are the readiness checks, keyed by dependency name.
	Checks map[string]handlers.Check

	// BasePath prefixes the API routes. Defaults to /api/v1.
	BasePath    string
	CORSOrigins []string
	// RateLimit counts API requests per client IP. Nil disables limiting.
	RateLimit echomiddleware.RateLimiterStore
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log, deps.Production)

	// HTTP metrics go to a per-router registry so building several routers
	// in one process does not collide on registration.
	reg := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "auth",
		Registerer: reg,
	}))
	e.Use(secureHeaders())
	e.Use(cors(deps.CORSOrigins))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echomiddleware.GzipWithConfig(echomiddleware.GzipConfig{
		// promhttp negotiates its own compression.
		Skipper: func(c echo.Context) bool { return c.Path() == "/metrics" },
	}))

	// --- Dependencies ---
	auditor := middleware.NewAuditor(deps.Log, deps.Audit)
	auth := middleware.NewAuth(deps.Verifier, auditor)
	authHandler := handler.NewAuthHandler(deps.AuthService, auditor)

	// --- API routes ---
	basePath := deps.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}
	apiGroup := e.Group(basePath)
	if deps.RateLimit != nil {
		apiGroup.Use(middleware.RateLimit(deps.RateLimit))
	}

	g := apiGroup.Group("/auth")
	g.POST("/register", authHandler.Register)
	g.POST("/login", authHandler.Login)
	g.POST("/refresh-token", authHandler.RefreshToken)
	g.GET("/profile", authHandler.Profile, auth.Required())
	g.POST("/logout", authHandler.Logout, auth.Required())
	g.GET("/session", authHandler.Session, auth.Optional())
	g.GET("/users/:id", authHandler.GetUser,
		auth.Required(),
		auth.Authorize(domain.RoleAdmin, domain.RoleManager),
		auth.RequirePermissions(PermUsersRead),
	)

	// --- Health checks (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Operational ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func secureHeaders() echo.MiddlewareFunc {
	return echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		// The swagger UI relies on inline scripts.
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/swagger/")
		},
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            hstsMaxAge,
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: contentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
	})
}

func cors(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     origins,
		AllowCredentials: true,
		AllowMethods: []string{
			"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS",
		},
		AllowHeaders: []string{
			echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestedWith, "x-auth-token",
		},
	})
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			e := log.Info()
			if v.Error != nil {
				e = log.Warn().Err(v.Error)
			}
			e.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
