package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Auditor writes the authentication audit trail. Every event is logged
// synchronously; a configured publisher additionally receives a copy.
type Auditor struct {
	log       zerolog.Logger
	publisher ports.AuditPublisher
	now       func() time.Time
}

// NewAuditor returns an Auditor. publisher may be nil.
func NewAuditor(log zerolog.Logger, publisher ports.AuditPublisher) *Auditor {
	return &Auditor{
		log:       log.With().Str("component", "audit").Logger(),
		publisher: publisher,
		now:       time.Now,
	}
}

// Record completes event with request metadata and emits it.
func (a *Auditor) Record(c echo.Context, event domain.AuditEvent) {
	req := c.Request()
	event.IP = c.RealIP()
	event.Method = req.Method
	event.Path = req.URL.Path
	event.RequestID = requestID(c)
	event.Timestamp = a.now().UTC()

	var e *zerolog.Event
	if event.Outcome == domain.AuditSuccess {
		e = a.log.Info()
	} else {
		e = a.log.Warn()
	}
	e = e.Str("audit_type", string(event.Type)).
		Str("outcome", string(event.Outcome)).
		Str("ip", event.IP).
		Str("method", event.Method).
		Str("path", event.Path)
	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.UserID != "" {
		e = e.Str("user_id", event.UserID).
			Str("email", event.Email).
			Str("role", string(event.Role))
	}
	if event.Reason != "" {
		e = e.Str("reason", event.Reason)
	}
	e.Msg("auth audit")

	if a.publisher != nil {
		a.publisher.Publish(event)
	}
}

// withClaims fills the identity fields of event from claims.
func withClaims(event domain.AuditEvent, claims *domain.Claims) domain.AuditEvent {
	if claims != nil {
		event.UserID = claims.UserID
		event.Email = claims.Email
		event.Role = claims.Role
	}
	return event
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
