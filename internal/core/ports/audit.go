package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// AuditPublisher accepts audit events for asynchronous delivery.
// Publish must not block the request path.
type AuditPublisher interface {
	Publish(event domain.AuditEvent)
}

// AuditSink delivers a single audit event to an external system.
type AuditSink interface {
	Deliver(ctx context.Context, event domain.AuditEvent) error
}
